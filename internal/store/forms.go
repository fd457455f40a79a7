package store

import (
	"context"
	"fmt"

	"camp-portal/internal/models"
)

const sectionColumns = `id, title, description, order_index, is_active, show_when_status`

const questionColumns = `id, section_id, question_text, question_type, options, is_required, is_active,
	order_index, help_text, placeholder, show_when_status, show_if_question_id, show_if_answer`

// ListSections returns every section, active or not, in document order.
func (q *Queries) ListSections(ctx context.Context) ([]models.Section, error) {
	var sections []models.Section
	query := `SELECT ` + sectionColumns + ` FROM application_sections ORDER BY order_index, id`
	if err := q.selectAll(ctx, &sections, query); err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	return sections, nil
}

// ListQuestions returns every question, active or not, in document order.
func (q *Queries) ListQuestions(ctx context.Context) ([]models.Question, error) {
	var questions []models.Question
	query := `SELECT ` + questionColumns + ` FROM application_questions ORDER BY order_index, id`
	if err := q.selectAll(ctx, &questions, query); err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	return questions, nil
}

func (q *Queries) UpsertSection(ctx context.Context, s models.Section) error {
	_, err := q.exec(ctx, `
		INSERT INTO application_sections (id, title, description, order_index, is_active, show_when_status)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			order_index = EXCLUDED.order_index,
			is_active = EXCLUDED.is_active,
			show_when_status = EXCLUDED.show_when_status,
			updated_at = NOW()`,
		s.ID, s.Title, s.Description, s.OrderIndex, s.IsActive, s.ShowWhenStatus,
	)
	if err != nil {
		return fmt.Errorf("upsert section %s: %w", s.ID, err)
	}
	return nil
}

func (q *Queries) UpsertQuestion(ctx context.Context, qn models.Question) error {
	var options interface{}
	if qn.Options != nil {
		options = string(*qn.Options)
	}
	_, err := q.exec(ctx, `
		INSERT INTO application_questions (id, section_id, question_text, question_type, options, is_required,
			is_active, order_index, help_text, placeholder, show_when_status, show_if_question_id, show_if_answer)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			section_id = EXCLUDED.section_id,
			question_text = EXCLUDED.question_text,
			question_type = EXCLUDED.question_type,
			options = EXCLUDED.options,
			is_required = EXCLUDED.is_required,
			is_active = EXCLUDED.is_active,
			order_index = EXCLUDED.order_index,
			help_text = EXCLUDED.help_text,
			placeholder = EXCLUDED.placeholder,
			show_when_status = EXCLUDED.show_when_status,
			show_if_question_id = EXCLUDED.show_if_question_id,
			show_if_answer = EXCLUDED.show_if_answer,
			updated_at = NOW()`,
		qn.ID, qn.SectionID, qn.QuestionText, string(qn.QuestionType), options, qn.IsRequired,
		qn.IsActive, qn.OrderIndex, qn.HelpText, qn.Placeholder, qn.ShowWhenStatus, qn.ShowIfQuestionID, qn.ShowIfAnswer,
	)
	if err != nil {
		return fmt.Errorf("upsert question %s: %w", qn.ID, err)
	}
	return nil
}
