// Package progress computes application completion.
//
// Two calculators exist and intentionally disagree. Compute is status-aware:
// it honors section and question activity, status gates and conditional
// rules. SimplePercentage is the one persisted on every response write and
// ignores all of that. Callers must not substitute one for the other.
package progress

import (
	"math"
	"sort"

	"camp-portal/internal/models"
)

// Compute returns per-section and overall completion for an application in
// the given status.
func Compute(
	applicationID string,
	status models.ApplicationStatus,
	sections []models.Section,
	questions []models.Question,
	responses []models.Response,
) models.ApplicationProgress {
	answers := make(map[string]*string, len(responses))
	for _, r := range responses {
		answers[r.QuestionID] = r.ResponseValue
	}

	bySection := make(map[string][]models.Question)
	for _, q := range questions {
		bySection[q.SectionID] = append(bySection[q.SectionID], q)
	}

	visible := visibleSections(sections, status)
	result := models.ApplicationProgress{
		ApplicationID:   applicationID,
		TotalSections:   len(visible),
		SectionProgress: make([]models.SectionProgress, 0, len(visible)),
	}

	for _, s := range visible {
		sp := sectionProgress(s, bySection[s.ID], status, answers)
		if sp.IsComplete {
			result.CompletedSections++
		}
		result.SectionProgress = append(result.SectionProgress, sp)
	}

	if result.TotalSections == 0 {
		result.OverallPercentage = 100
	} else {
		result.OverallPercentage = percent(result.CompletedSections, result.TotalSections)
	}
	return result
}

func sectionProgress(s models.Section, questions []models.Question, status models.ApplicationStatus, answers map[string]*string) models.SectionProgress {
	sp := models.SectionProgress{SectionID: s.ID, SectionTitle: s.Title}

	for _, q := range questions {
		if !q.IsActive || !statusGateOpen(q.ShowWhenStatus, status) || !conditionMet(q, answers) {
			continue
		}
		sp.TotalQuestions++
		_, answered := answers[q.ID]
		if answered {
			sp.AnsweredQuestions++
		}
		if q.IsRequired {
			sp.RequiredQuestions++
			if answered {
				sp.AnsweredRequired++
			}
		}
	}

	// Completion and percentage diverge when nothing is required: such a
	// section is always complete, but reports 0% until every visible question
	// has an answer.
	sp.IsComplete = sp.AnsweredRequired == sp.RequiredQuestions
	switch {
	case sp.RequiredQuestions > 0:
		sp.CompletionPercentage = percent(sp.AnsweredRequired, sp.RequiredQuestions)
	case sp.AnsweredQuestions == sp.TotalQuestions:
		sp.CompletionPercentage = 100
	default:
		sp.CompletionPercentage = 0
	}
	return sp
}

// SimplePercentage is the share of active required questions across the
// whole schema that have a response, or 100 when nothing is required.
func SimplePercentage(questions []models.Question, responses []models.Response) int {
	answered := make(map[string]struct{}, len(responses))
	for _, r := range responses {
		answered[r.QuestionID] = struct{}{}
	}

	required, done := 0, 0
	for _, q := range questions {
		if !q.IsActive || !q.IsRequired {
			continue
		}
		required++
		if _, ok := answered[q.ID]; ok {
			done++
		}
	}
	if required == 0 {
		return 100
	}
	return percent(done, required)
}

func visibleSections(sections []models.Section, status models.ApplicationStatus) []models.Section {
	out := make([]models.Section, 0, len(sections))
	for _, s := range sections {
		if s.IsActive && statusGateOpen(s.ShowWhenStatus, status) {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].OrderIndex < out[j].OrderIndex })
	return out
}

func statusGateOpen(gate *string, status models.ApplicationStatus) bool {
	return gate == nil || *gate == "" || models.ApplicationStatus(*gate) == status
}

// conditionMet evaluates a single-level rule against the trigger's stored
// answer. Rules are never followed transitively, and a question naming itself
// as trigger is treated as hidden.
func conditionMet(q models.Question, answers map[string]*string) bool {
	if !q.HasCondition() {
		return true
	}
	if *q.ShowIfQuestionID == q.ID {
		return false
	}
	value, ok := answers[*q.ShowIfQuestionID]
	if !ok || value == nil {
		return false
	}
	return *value == *q.ShowIfAnswer
}

func percent(part, whole int) int {
	return int(math.Round(100 * float64(part) / float64(whole)))
}
