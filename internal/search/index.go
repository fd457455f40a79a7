// Package search maintains the Elasticsearch index behind the admin
// application listing.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	apperrors "camp-portal/internal/common/errors"
	"camp-portal/internal/common/logger"
	"camp-portal/internal/models"
	"camp-portal/internal/store"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

const (
	DefaultSize = 20
	MaxSize     = 100
)

const indexMapping = `{
	"mappings": {
		"properties": {
			"id":                    {"type": "keyword"},
			"user_id":               {"type": "keyword"},
			"camper_first_name":     {"type": "text"},
			"camper_last_name":      {"type": "text"},
			"email":                 {"type": "text", "fields": {"raw": {"type": "keyword"}}},
			"status":                {"type": "keyword"},
			"completion_percentage": {"type": "integer"},
			"created_at":            {"type": "date"},
			"updated_at":            {"type": "date"},
			"completed_at":          {"type": "date"},
			"accepted_at":           {"type": "date"}
		}
	}
}`

// ContactLookup supplies the applicant email stored alongside each document.
type ContactLookup interface {
	GetApplicantContact(ctx context.Context, applicationID string) (*store.ApplicantContact, error)
}

type Document struct {
	ID                   string     `json:"id"`
	UserID               string     `json:"user_id"`
	CamperFirstName      *string    `json:"camper_first_name"`
	CamperLastName       *string    `json:"camper_last_name"`
	Email                string     `json:"email"`
	Status               string     `json:"status"`
	CompletionPercentage int        `json:"completion_percentage"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
	CompletedAt          *time.Time `json:"completed_at,omitempty"`
	AcceptedAt           *time.Time `json:"accepted_at,omitempty"`
}

type Index struct {
	client   *elasticsearch.Client
	index    string
	contacts ContactLookup
	logger   logger.Logger
}

func NewIndex(client *elasticsearch.Client, index string, contacts ContactLookup, log logger.Logger) *Index {
	return &Index{
		client:   client,
		index:    index,
		contacts: contacts,
		logger:   log.WithFields(map[string]interface{}{"component": "search", "index": index}),
	}
}

// EnsureIndex creates the index with its mapping when it does not exist.
func (i *Index) EnsureIndex(ctx context.Context) error {
	res, err := esapi.IndicesExistsRequest{Index: []string{i.index}}.Do(ctx, i.client)
	if err != nil {
		return fmt.Errorf("check index %s: %w", i.index, err)
	}
	res.Body.Close()
	if res.StatusCode == 200 {
		return nil
	}

	res, err = esapi.IndicesCreateRequest{
		Index: i.index,
		Body:  strings.NewReader(indexMapping),
	}.Do(ctx, i.client)
	if err != nil {
		return fmt.Errorf("create index %s: %w", i.index, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("create index %s: %s", i.index, res.String())
	}
	i.logger.Info("search index created", nil)
	return nil
}

// IndexApplication writes the application's current state as its document.
func (i *Index) IndexApplication(ctx context.Context, app *models.Application) error {
	doc := Document{
		ID:                   app.ID,
		UserID:               app.UserID,
		CamperFirstName:      app.CamperFirstName,
		CamperLastName:       app.CamperLastName,
		Status:               string(app.Status),
		CompletionPercentage: app.CompletionPercentage,
		CreatedAt:            app.CreatedAt,
		UpdatedAt:            app.UpdatedAt,
		CompletedAt:          app.CompletedAt,
		AcceptedAt:           app.AcceptedAt,
	}
	if i.contacts != nil {
		contact, err := i.contacts.GetApplicantContact(ctx, app.ID)
		if err != nil {
			return apperrors.NewIndexFailedError(app.ID, err)
		}
		doc.Email = contact.Email
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return apperrors.NewIndexFailedError(app.ID, err)
	}

	res, err := esapi.IndexRequest{
		Index:      i.index,
		DocumentID: app.ID,
		Body:       bytes.NewReader(body),
	}.Do(ctx, i.client)
	if err != nil {
		return apperrors.NewIndexFailedError(app.ID, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return apperrors.NewIndexFailedError(app.ID, fmt.Errorf("%s", res.String()))
	}

	i.logger.Debug("application indexed", map[string]interface{}{
		"applicationId": app.ID,
		"status":        app.Status,
	})
	return nil
}
