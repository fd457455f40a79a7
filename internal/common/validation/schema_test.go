package validation

import (
	"testing"

	"camp-portal/internal/common/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestValidator(t *testing.T) *Validator {
	t.Helper()
	v, err := NewValidator()
	require.NoError(t, err)
	return v
}

func TestNewValidator_CompilesEmbeddedSchemas(t *testing.T) {
	v := newTestValidator(t)
	for _, name := range []string{SchemaCreateApplication, SchemaUpdateApplication, SchemaCreateNote} {
		assert.Contains(t, v.schemas, name)
	}
}

func TestValidate_UpdateApplication(t *testing.T) {
	v := newTestValidator(t)

	tests := []struct {
		name  string
		body  string
		valid bool
	}{
		{"empty body", `{}`, true},
		{"names only", `{"camper_first_name":"Ada","camper_last_name":null}`, true},
		{"text answer", `{"responses":[{"question_id":"q1","response_value":"yes"}]}`, true},
		{"file answer", `{"responses":[{"question_id":"q1","file_id":"f1"}]}`, true},
		{"cleared answer", `{"responses":[{"question_id":"q1","response_value":null}]}`, true},
		{"missing question_id", `{"responses":[{"response_value":"yes"}]}`, false},
		{"empty question_id", `{"responses":[{"question_id":""}]}`, false},
		{"number as answer", `{"responses":[{"question_id":"q1","response_value":42}]}`, false},
		{"responses not array", `{"responses":"q1"}`, false},
		{"malformed json", `{"responses":`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(SchemaUpdateApplication, []byte(tt.body))
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, errors.ErrCodeValidationFailed))
		})
	}
}

func TestValidateBody_ReportsField(t *testing.T) {
	v := newTestValidator(t)

	result, err := v.ValidateBody(SchemaCreateNote, []byte(`{"note":""}`))
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.True(t, result.HasErrors("note"))
	assert.NotEmpty(t, result.GetErrorMessages())
}

func TestValidateBody_UnknownSchema(t *testing.T) {
	v := newTestValidator(t)
	_, err := v.ValidateBody("nope", []byte(`{}`))
	assert.Error(t, err)
}

func TestValidateEmailAndPhone(t *testing.T) {
	assert.True(t, ValidateEmail("parent@example.org"))
	assert.False(t, ValidateEmail("parent@"))
	assert.True(t, ValidatePhone("+1 (555) 010-2030"))
	assert.False(t, ValidatePhone("12345"))
}
