package progress

import (
	"testing"

	"camp-portal/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Fixtures
// ==========================

func ptr(s string) *string { return &s }

func section(id string, order int) models.Section {
	return models.Section{ID: id, Title: "Section " + id, OrderIndex: order, IsActive: true}
}

func question(id, sectionID string, required bool) models.Question {
	return models.Question{
		ID:           id,
		SectionID:    sectionID,
		QuestionText: "Question " + id,
		QuestionType: models.QuestionTypeText,
		IsRequired:   required,
		IsActive:     true,
	}
}

func answer(questionID, value string) models.Response {
	return models.Response{ApplicationID: "app-1", QuestionID: questionID, ResponseValue: ptr(value)}
}

func fileAnswer(questionID string) models.Response {
	return models.Response{ApplicationID: "app-1", QuestionID: questionID, FileID: ptr("file-" + questionID)}
}

func sectionByID(t *testing.T, p models.ApplicationProgress, id string) models.SectionProgress {
	t.Helper()
	for _, sp := range p.SectionProgress {
		if sp.SectionID == id {
			return sp
		}
	}
	t.Fatalf("section %s not in result", id)
	return models.SectionProgress{}
}

// ==========================
// Compute
// ==========================

func TestCompute_NoSectionsIsComplete(t *testing.T) {
	p := Compute("app-1", models.StatusInProgress, nil, nil, nil)

	assert.Equal(t, 0, p.TotalSections)
	assert.Equal(t, 100, p.OverallPercentage)
	assert.Empty(t, p.SectionProgress)
}

func TestCompute_SectionPercentagesAndOverall(t *testing.T) {
	sections := []models.Section{section("s1", 1), section("s2", 2)}
	questions := []models.Question{
		question("q1", "s1", true),
		question("q2", "s1", true),
		question("q3", "s1", true),
		question("q4", "s2", true),
	}
	responses := []models.Response{answer("q1", "a"), answer("q4", "b")}

	p := Compute("app-1", models.StatusInProgress, sections, questions, responses)

	s1 := sectionByID(t, p, "s1")
	assert.Equal(t, 3, s1.RequiredQuestions)
	assert.Equal(t, 1, s1.AnsweredRequired)
	assert.Equal(t, 33, s1.CompletionPercentage)
	assert.False(t, s1.IsComplete)

	s2 := sectionByID(t, p, "s2")
	assert.Equal(t, 100, s2.CompletionPercentage)
	assert.True(t, s2.IsComplete)

	assert.Equal(t, 2, p.TotalSections)
	assert.Equal(t, 1, p.CompletedSections)
	assert.Equal(t, 50, p.OverallPercentage)
}

func TestCompute_RoundsHalfAwayFromZero(t *testing.T) {
	sections := []models.Section{section("s1", 1)}
	var questions []models.Question
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		questions = append(questions, question(id, "s1", true))
	}
	// 1/8 = 12.5%
	p := Compute("app-1", models.StatusInProgress, sections, questions, []models.Response{answer("a", "x")})

	assert.Equal(t, 13, p.SectionProgress[0].CompletionPercentage)
}

func TestCompute_NoRequiredQuestions(t *testing.T) {
	sections := []models.Section{section("s1", 1)}
	questions := []models.Question{question("q1", "s1", false), question("q2", "s1", false)}

	t.Run("partially answered is complete at 0%", func(t *testing.T) {
		p := Compute("app-1", models.StatusInProgress, sections, questions, []models.Response{answer("q1", "x")})
		sp := p.SectionProgress[0]

		assert.True(t, sp.IsComplete)
		assert.Equal(t, 0, sp.CompletionPercentage)
		assert.Equal(t, 100, p.OverallPercentage)
	})

	t.Run("fully answered is complete at 100%", func(t *testing.T) {
		p := Compute("app-1", models.StatusInProgress, sections, questions,
			[]models.Response{answer("q1", "x"), answer("q2", "y")})

		assert.True(t, p.SectionProgress[0].IsComplete)
		assert.Equal(t, 100, p.SectionProgress[0].CompletionPercentage)
	})

	t.Run("empty section is complete at 100%", func(t *testing.T) {
		p := Compute("app-1", models.StatusInProgress, []models.Section{section("empty", 1)}, nil, nil)

		assert.True(t, p.SectionProgress[0].IsComplete)
		assert.Equal(t, 100, p.SectionProgress[0].CompletionPercentage)
	})
}

func TestCompute_SkipsInactiveAndOrdersSections(t *testing.T) {
	inactive := section("off", 0)
	inactive.IsActive = false
	sections := []models.Section{section("late", 9), inactive, section("early", 1)}

	q := question("q-off", "early", true)
	q.IsActive = false
	questions := []models.Question{q, question("q1", "early", true)}

	p := Compute("app-1", models.StatusInProgress, sections, questions, nil)

	require.Len(t, p.SectionProgress, 2)
	assert.Equal(t, "early", p.SectionProgress[0].SectionID)
	assert.Equal(t, "late", p.SectionProgress[1].SectionID)
	assert.Equal(t, 1, p.SectionProgress[0].TotalQuestions)
}

func TestCompute_StatusGates(t *testing.T) {
	postAccept := section("camp-prep", 2)
	postAccept.ShowWhenStatus = ptr(string(models.StatusAccepted))
	sections := []models.Section{section("s1", 1), postAccept}

	gated := question("q-gated", "s1", true)
	gated.ShowWhenStatus = ptr(string(models.StatusAccepted))
	questions := []models.Question{
		question("q1", "s1", true),
		gated,
		question("q-prep", "camp-prep", true),
	}
	responses := []models.Response{answer("q1", "x")}

	before := Compute("app-1", models.StatusUnderReview, sections, questions, responses)
	require.Len(t, before.SectionProgress, 1)
	assert.Equal(t, 1, before.SectionProgress[0].RequiredQuestions)
	assert.Equal(t, 100, before.OverallPercentage)

	after := Compute("app-1", models.StatusAccepted, sections, questions, responses)
	require.Len(t, after.SectionProgress, 2)
	assert.Equal(t, 2, sectionByID(t, after, "s1").RequiredQuestions)
	assert.Equal(t, 0, after.CompletedSections)
	assert.Equal(t, 0, after.OverallPercentage)
}

func TestCompute_ConditionalRule(t *testing.T) {
	sections := []models.Section{section("s1", 1)}
	q1 := question("q1", "s1", true)
	q2 := question("q2", "s1", true)
	q2.ShowIfQuestionID = ptr("q1")
	q2.ShowIfAnswer = ptr("yes")
	questions := []models.Question{q1, q2}

	tests := []struct {
		name         string
		responses    []models.Response
		wantTotal    int
		wantRequired int
	}{
		{"trigger answered no", []models.Response{answer("q1", "no")}, 1, 1},
		{"trigger answered yes", []models.Response{answer("q1", "yes")}, 2, 2},
		{"trigger unanswered", nil, 1, 1},
		{"trigger answered with a file", []models.Response{fileAnswer("q1")}, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sp := Compute("app-1", models.StatusInProgress, sections, questions, tt.responses).SectionProgress[0]
			assert.Equal(t, tt.wantTotal, sp.TotalQuestions)
			assert.Equal(t, tt.wantRequired, sp.RequiredQuestions)
		})
	}
}

func TestCompute_HiddenAnswersDoNotCount(t *testing.T) {
	sections := []models.Section{section("s1", 1)}
	q1 := question("q1", "s1", true)
	q2 := question("q2", "s1", true)
	q2.ShowIfQuestionID = ptr("q1")
	q2.ShowIfAnswer = ptr("yes")

	// q2 keeps a stale answer after q1 flipped to "no".
	p := Compute("app-1", models.StatusInProgress, sections, []models.Question{q1, q2},
		[]models.Response{answer("q1", "no"), answer("q2", "stale")})
	sp := p.SectionProgress[0]

	assert.Equal(t, 1, sp.AnsweredRequired)
	assert.Equal(t, 1, sp.AnsweredQuestions)
	assert.True(t, sp.IsComplete)
}

func TestCompute_TriggerInAnotherSection(t *testing.T) {
	sections := []models.Section{section("s1", 1), section("s2", 2)}
	dep := question("q2", "s2", true)
	dep.ShowIfQuestionID = ptr("q1")
	dep.ShowIfAnswer = ptr("yes")
	questions := []models.Question{question("q1", "s1", false), dep}

	p := Compute("app-1", models.StatusInProgress, sections, questions, []models.Response{answer("q1", "yes")})

	assert.Equal(t, 1, sectionByID(t, p, "s2").RequiredQuestions)
}

func TestCompute_SelfReferenceIsHidden(t *testing.T) {
	sections := []models.Section{section("s1", 1)}
	q := question("q1", "s1", true)
	q.ShowIfQuestionID = ptr("q1")
	q.ShowIfAnswer = ptr("yes")

	p := Compute("app-1", models.StatusInProgress, sections, []models.Question{q}, []models.Response{answer("q1", "yes")})

	assert.Equal(t, 0, p.SectionProgress[0].TotalQuestions)
}

func TestCompute_Invariants(t *testing.T) {
	sections := []models.Section{section("s1", 1), section("s2", 2)}
	questions := []models.Question{
		question("q1", "s1", true),
		question("q2", "s1", false),
		question("q3", "s2", true),
		question("q4", "s2", true),
	}
	all := []models.Response{answer("q1", "a"), answer("q2", "b"), answer("q3", "c"), answer("q4", "d")}

	prevOverall := -1
	for n := 0; n <= len(all); n++ {
		p := Compute("app-1", models.StatusInProgress, sections, questions, all[:n])

		assert.GreaterOrEqual(t, p.OverallPercentage, 0)
		assert.LessOrEqual(t, p.OverallPercentage, 100)
		assert.GreaterOrEqual(t, p.OverallPercentage, prevOverall, "answering must never lower overall completion")
		prevOverall = p.OverallPercentage

		for _, sp := range p.SectionProgress {
			assert.LessOrEqual(t, sp.AnsweredRequired, sp.RequiredQuestions)
			assert.Equal(t, sp.AnsweredRequired == sp.RequiredQuestions, sp.IsComplete)
			assert.GreaterOrEqual(t, sp.CompletionPercentage, 0)
			assert.LessOrEqual(t, sp.CompletionPercentage, 100)
		}
	}
	assert.Equal(t, 100, prevOverall)
}

// ==========================
// SimplePercentage
// ==========================

func TestSimplePercentage(t *testing.T) {
	q1 := question("q1", "s1", true)
	q2 := question("q2", "s2", true)
	optional := question("q3", "s1", false)
	inactive := question("q4", "s1", true)
	inactive.IsActive = false

	tests := []struct {
		name      string
		questions []models.Question
		responses []models.Response
		want      int
	}{
		{"nothing required", []models.Question{optional}, nil, 100},
		{"no questions", nil, nil, 100},
		{"half answered", []models.Question{q1, q2, optional}, []models.Response{answer("q1", "x")}, 50},
		{"both required answered", []models.Question{q1, q2}, []models.Response{answer("q1", "x"), fileAnswer("q2")}, 100},
		{"inactive ignored", []models.Question{q1, inactive}, []models.Response{answer("q1", "x")}, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SimplePercentage(tt.questions, tt.responses))
		})
	}
}

func TestSimplePercentage_IgnoresConditionsAndGates(t *testing.T) {
	sections := []models.Section{section("s1", 1)}
	q1 := question("q1", "s1", true)
	q2 := question("q2", "s1", true)
	q2.ShowIfQuestionID = ptr("q1")
	q2.ShowIfAnswer = ptr("yes")
	gated := question("q3", "s1", true)
	gated.ShowWhenStatus = ptr(string(models.StatusAccepted))
	questions := []models.Question{q1, q2, gated}
	responses := []models.Response{answer("q1", "no")}

	// The two calculators disagree here.
	assert.Equal(t, 33, SimplePercentage(questions, responses))
	assert.Equal(t, 100, Compute("app-1", models.StatusInProgress, sections, questions, responses).OverallPercentage)
}
