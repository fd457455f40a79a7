package formschema

import "encoding/json"

// Definition is the on-disk form: ordered sections, each with ordered questions.
type Definition struct {
	Version     string       `json:"version"`
	LastUpdated string       `json:"lastUpdated"`
	Sections    []SectionDef `json:"sections"`
}

type SectionDef struct {
	ID             string        `json:"id"`
	Title          string        `json:"title"`
	Description    *string       `json:"description,omitempty"`
	Active         *bool         `json:"active,omitempty"`
	ShowWhenStatus *string       `json:"showWhenStatus,omitempty"`
	Questions      []QuestionDef `json:"questions"`
}

type QuestionDef struct {
	ID             string          `json:"id"`
	Text           string          `json:"text"`
	Type           string          `json:"type"`
	Options        json.RawMessage `json:"options,omitempty"`
	Required       bool            `json:"required"`
	Active         *bool           `json:"active,omitempty"`
	HelpText       *string         `json:"helpText,omitempty"`
	Placeholder    *string         `json:"placeholder,omitempty"`
	ShowWhenStatus *string         `json:"showWhenStatus,omitempty"`
	ShowIf         *Condition      `json:"showIf,omitempty"`
}

// Condition shows a question only while another question's answer equals Answer.
type Condition struct {
	QuestionID string `json:"questionId"`
	Answer     string `json:"answer"`
}
