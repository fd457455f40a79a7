package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	apperrors "camp-portal/internal/common/errors"
	"camp-portal/internal/models"

	"github.com/elastic/go-elasticsearch/v8/esapi"
)

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []struct {
			ID string `json:"_id"`
		} `json:"hits"`
	} `json:"hits"`
}

// ClampSize bounds a page size to 1..MaxSize, defaulting to DefaultSize.
func ClampSize(size int) int {
	switch {
	case size <= 0:
		return DefaultSize
	case size > MaxSize:
		return MaxSize
	default:
		return size
	}
}

func buildQuery(f models.ApplicationFilter) map[string]interface{} {
	var must, filter []interface{}

	if f.Search != "" {
		must = append(must, map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  f.Search,
				"fields": []string{"camper_first_name^2", "camper_last_name^2", "email"},
				"type":   "best_fields",
			},
		})
	}
	if f.Status != "" {
		filter = append(filter, map[string]interface{}{
			"term": map[string]interface{}{"status": string(f.Status)},
		})
	}

	boolQuery := map[string]interface{}{}
	if len(must) > 0 {
		boolQuery["must"] = must
	} else {
		boolQuery["must"] = []interface{}{map[string]interface{}{"match_all": map[string]interface{}{}}}
	}
	if len(filter) > 0 {
		boolQuery["filter"] = filter
	}

	return map[string]interface{}{
		"query":   map[string]interface{}{"bool": boolQuery},
		"sort":    []interface{}{map[string]interface{}{"created_at": map[string]interface{}{"order": "desc"}}},
		"_source": false,
	}
}

// Search returns the ids of matching applications, in listing order, and the
// total hit count.
func (i *Index) Search(ctx context.Context, f models.ApplicationFilter) ([]string, int64, error) {
	body, err := json.Marshal(buildQuery(f))
	if err != nil {
		return nil, 0, apperrors.NewSearchQueryFailedError(err)
	}

	from := f.From
	if from < 0 {
		from = 0
	}
	size := ClampSize(f.Size)

	res, err := esapi.SearchRequest{
		Index:          []string{i.index},
		Body:           bytes.NewReader(body),
		From:           &from,
		Size:           &size,
		TrackTotalHits: true,
	}.Do(ctx, i.client)
	if err != nil {
		return nil, 0, apperrors.NewSearchQueryFailedError(err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, 0, apperrors.NewSearchQueryFailedError(fmt.Errorf("%s", res.String()))
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, 0, apperrors.NewSearchQueryFailedError(fmt.Errorf("decode response: %w", err))
	}

	ids := make([]string, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		ids = append(ids, h.ID)
	}
	return ids, parsed.Hits.Total.Value, nil
}
