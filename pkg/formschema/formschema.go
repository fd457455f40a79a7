// Package formschema loads, checks and flattens the JSON form definition
// that seeds application sections and questions.
package formschema

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"camp-portal/internal/models"

	"github.com/jmoiron/sqlx/types"
)

func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*Definition, error) {
	var def Definition
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parse form definition: %w", err)
	}
	return &def, nil
}

var knownStatuses = map[string]bool{
	string(models.StatusInProgress):  true,
	string(models.StatusUnderReview): true,
	string(models.StatusAccepted):    true,
	string(models.StatusDeclined):    true,
}

// Validate reports every problem in the definition, joined.
func (d *Definition) Validate() error {
	var errs []error
	if len(d.Sections) == 0 {
		errs = append(errs, errors.New("form contains no sections"))
	}

	sectionIDs := make(map[string]bool)
	seen := make(map[string]bool) // questions earlier in document order
	for si, s := range d.Sections {
		if s.ID == "" {
			errs = append(errs, fmt.Errorf("section %d: missing id", si))
		} else if sectionIDs[s.ID] {
			errs = append(errs, fmt.Errorf("duplicate section id: %s", s.ID))
		}
		sectionIDs[s.ID] = true
		if s.Title == "" {
			errs = append(errs, fmt.Errorf("section %s: missing title", s.ID))
		}
		if s.ShowWhenStatus != nil && !knownStatuses[*s.ShowWhenStatus] {
			errs = append(errs, fmt.Errorf("section %s: unknown showWhenStatus %q", s.ID, *s.ShowWhenStatus))
		}

		for qi, q := range s.Questions {
			if q.ID == "" {
				errs = append(errs, fmt.Errorf("section %s question %d: missing id", s.ID, qi))
				continue
			}
			if seen[q.ID] {
				errs = append(errs, fmt.Errorf("duplicate question id: %s", q.ID))
			}
			if q.Text == "" {
				errs = append(errs, fmt.Errorf("question %s: missing text", q.ID))
			}
			if !models.QuestionType(q.Type).Valid() {
				errs = append(errs, fmt.Errorf("question %s: unknown type %q", q.ID, q.Type))
			}
			if q.ShowWhenStatus != nil && !knownStatuses[*q.ShowWhenStatus] {
				errs = append(errs, fmt.Errorf("question %s: unknown showWhenStatus %q", q.ID, *q.ShowWhenStatus))
			}
			if len(q.Options) > 0 && !json.Valid(q.Options) {
				errs = append(errs, fmt.Errorf("question %s: options are not valid JSON", q.ID))
			}
			if c := q.ShowIf; c != nil {
				switch {
				case c.QuestionID == q.ID:
					errs = append(errs, fmt.Errorf("question %s: showIf references itself", q.ID))
				case c.QuestionID == "" || c.Answer == "":
					errs = append(errs, fmt.Errorf("question %s: showIf needs questionId and answer", q.ID))
				case !seen[c.QuestionID]:
					errs = append(errs, fmt.Errorf("question %s: showIf trigger %s is unknown or comes later", q.ID, c.QuestionID))
				}
			}
			seen[q.ID] = true
		}
	}
	return errors.Join(errs...)
}

// Models flattens the definition into rows. Order indexes follow document
// order starting at 1; missing active flags default to true.
func (d *Definition) Models() ([]models.Section, []models.Question) {
	var sections []models.Section
	var questions []models.Question

	for si, s := range d.Sections {
		sections = append(sections, models.Section{
			ID:             s.ID,
			Title:          s.Title,
			Description:    s.Description,
			OrderIndex:     si + 1,
			IsActive:       active(s.Active),
			ShowWhenStatus: s.ShowWhenStatus,
		})

		for qi, q := range s.Questions {
			m := models.Question{
				ID:             q.ID,
				SectionID:      s.ID,
				QuestionText:   q.Text,
				QuestionType:   models.QuestionType(q.Type),
				IsRequired:     q.Required,
				IsActive:       active(q.Active),
				OrderIndex:     qi + 1,
				HelpText:       q.HelpText,
				Placeholder:    q.Placeholder,
				ShowWhenStatus: q.ShowWhenStatus,
			}
			if len(q.Options) > 0 {
				opts := types.JSONText(q.Options)
				m.Options = &opts
			}
			if q.ShowIf != nil {
				id, answer := q.ShowIf.QuestionID, q.ShowIf.Answer
				m.ShowIfQuestionID = &id
				m.ShowIfAnswer = &answer
			}
			questions = append(questions, m)
		}
	}
	return sections, questions
}

func active(b *bool) bool {
	return b == nil || *b
}
