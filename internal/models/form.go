package models

import "github.com/jmoiron/sqlx/types"

// QuestionType enumerates the input widgets a question can render as.
type QuestionType string

const (
	QuestionTypeText           QuestionType = "text"
	QuestionTypeTextarea       QuestionType = "textarea"
	QuestionTypeDropdown       QuestionType = "dropdown"
	QuestionTypeMultipleChoice QuestionType = "multiple_choice"
	QuestionTypeCheckbox       QuestionType = "checkbox"
	QuestionTypeFileUpload     QuestionType = "file_upload"
	QuestionTypeProfilePicture QuestionType = "profile_picture"
	QuestionTypeMedicationList QuestionType = "medication_list"
	QuestionTypeAllergyList    QuestionType = "allergy_list"
	QuestionTypeDate           QuestionType = "date"
	QuestionTypeEmail          QuestionType = "email"
	QuestionTypePhone          QuestionType = "phone"
	QuestionTypeSignature      QuestionType = "signature"
)

var questionTypes = map[QuestionType]struct{}{
	QuestionTypeText: {}, QuestionTypeTextarea: {}, QuestionTypeDropdown: {},
	QuestionTypeMultipleChoice: {}, QuestionTypeCheckbox: {}, QuestionTypeFileUpload: {},
	QuestionTypeProfilePicture: {}, QuestionTypeMedicationList: {}, QuestionTypeAllergyList: {},
	QuestionTypeDate: {}, QuestionTypeEmail: {}, QuestionTypePhone: {}, QuestionTypeSignature: {},
}

func (t QuestionType) Valid() bool {
	_, ok := questionTypes[t]
	return ok
}

// Section is an ordered container of questions. A nil ShowWhenStatus means
// the section is visible in every status.
type Section struct {
	ID             string  `db:"id" json:"id"`
	Title          string  `db:"title" json:"title"`
	Description    *string `db:"description" json:"description,omitempty"`
	OrderIndex     int     `db:"order_index" json:"order_index"`
	IsActive       bool    `db:"is_active" json:"is_active"`
	ShowWhenStatus *string `db:"show_when_status" json:"show_when_status"`
}

// Question belongs to one section. ShowIfQuestionID and ShowIfAnswer form the
// conditional-display rule: the question is shown only while the trigger
// question's response equals ShowIfAnswer.
type Question struct {
	ID               string          `db:"id" json:"id"`
	SectionID        string          `db:"section_id" json:"section_id"`
	QuestionText     string          `db:"question_text" json:"question_text"`
	QuestionType     QuestionType    `db:"question_type" json:"question_type"`
	Options          *types.JSONText `db:"options" json:"options,omitempty"`
	IsRequired       bool            `db:"is_required" json:"is_required"`
	IsActive         bool            `db:"is_active" json:"is_active"`
	OrderIndex       int             `db:"order_index" json:"order_index"`
	HelpText         *string         `db:"help_text" json:"help_text,omitempty"`
	Placeholder      *string         `db:"placeholder" json:"placeholder,omitempty"`
	ShowWhenStatus   *string         `db:"show_when_status" json:"show_when_status"`
	ShowIfQuestionID *string         `db:"show_if_question_id" json:"show_if_question_id"`
	ShowIfAnswer     *string         `db:"show_if_answer" json:"show_if_answer"`
}

// HasCondition reports whether the question carries a conditional-display
// rule. A trigger without an expected answer is not a rule.
func (q Question) HasCondition() bool {
	return q.ShowIfQuestionID != nil && *q.ShowIfQuestionID != "" && q.ShowIfAnswer != nil
}

// SectionWithQuestions is the form view served to applicants.
type SectionWithQuestions struct {
	Section
	Questions []Question `json:"questions"`
}
