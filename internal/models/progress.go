package models

type SectionProgress struct {
	SectionID            string `json:"section_id"`
	SectionTitle         string `json:"section_title"`
	TotalQuestions       int    `json:"total_questions"`
	RequiredQuestions    int    `json:"required_questions"`
	AnsweredQuestions    int    `json:"answered_questions"`
	AnsweredRequired     int    `json:"answered_required"`
	CompletionPercentage int    `json:"completion_percentage"`
	IsComplete           bool   `json:"is_complete"`
}

type ApplicationProgress struct {
	ApplicationID     string            `json:"application_id"`
	TotalSections     int               `json:"total_sections"`
	CompletedSections int               `json:"completed_sections"`
	OverallPercentage int               `json:"overall_percentage"`
	SectionProgress   []SectionProgress `json:"section_progress"`
}
