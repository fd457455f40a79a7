package senddecisionnotification

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"camp-portal/internal/common/aws"
	"camp-portal/internal/common/errors"
	"camp-portal/internal/common/logger"
	"camp-portal/internal/common/metrics"
	"camp-portal/internal/common/validation"
	"camp-portal/internal/models"
	"camp-portal/internal/store"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
)

const TaskType = "send-decision-notification"

type ContactLookup interface {
	GetApplicantContact(ctx context.Context, applicationID string) (*store.ApplicantContact, error)
}

type Mailer interface {
	SendEmail(ctx context.Context, msg aws.Email) (string, error)
}

type SMSSender interface {
	SendSMS(ctx context.Context, phone, message string) (string, error)
}

type Handler struct {
	config     *Config
	contacts   ContactLookup
	mailer     Mailer
	sms        SMSSender
	templates  map[string]messageTemplate
	errHandler *errors.ErrorHandler
	logger     logger.Logger
}

func NewHandler(config *Config, contacts ContactLookup, mailer Mailer, sms SMSSender, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		contacts:   contacts,
		mailer:     mailer,
		sms:        sms,
		templates:  defaultTemplates(),
		errHandler: errors.NewErrorHandler(l),
		logger:     l,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.fail(ctx, client, job, errors.NewValidationError(fmt.Sprintf("parse input: %v", err)))
		return
	}

	output, err := h.Execute(ctx, &input)
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	if err != nil {
		h.fail(ctx, client, job, err)
		return
	}

	cmd, err := client.NewCompleteJobCommand().JobKey(job.Key).VariablesFromObject(output)
	if err != nil {
		h.fail(ctx, client, job, errors.NewInternalError(err))
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{"error": err.Error()})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.Normalize(err).Code)).Inc()
	h.errHandler.HandleJobError(ctx, client, job, err)
}

// Execute sends the decision email, and the SMS for acceptances. An email
// failure fails the job so it is retried; an SMS failure only downgrades
// the output.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input.ApplicationID == "" {
		return nil, errors.NewValidationError("applicationId is required")
	}

	out := &Output{
		NotificationID: uuid.New().String(),
		Status:         StatusDisabled,
		SentAt:         time.Now().UTC().Format(time.RFC3339),
	}

	tmpl, ok := h.templates[input.Event]
	if !ok {
		return nil, errors.NewTemplateNotFoundError(input.Event)
	}

	contact, err := h.contacts.GetApplicantContact(ctx, input.ApplicationID)
	if err != nil {
		if stderrors.Is(err, store.ErrNotFound) {
			h.logger.Warn("application not found, nothing to notify", map[string]interface{}{
				"applicationId": input.ApplicationID,
			})
			return out, nil
		}
		return nil, errors.NewQueryExecutionFailedError("get applicant contact", err)
	}

	data := map[string]string{
		"applicationId": input.ApplicationID,
		"camperName":    models.DisplayName(contact.CamperFirstName, contact.CamperLastName),
		"event":         input.Event,
	}

	if h.config.EmailEnabled && contact.Email != "" {
		if _, err := h.mailer.SendEmail(ctx, aws.Email{
			To:      contact.Email,
			Subject: renderTemplate(tmpl.Subject, data),
			Text:    renderTemplate(tmpl.Body, data),
		}); err != nil {
			return nil, errors.NewNotificationSendFailedError("email", err)
		}
		out.EmailSent = true
	}

	if h.config.SMSEnabled && tmpl.SMS != "" && contact.Phone != nil && validation.ValidatePhone(*contact.Phone) {
		if _, err := h.sms.SendSMS(ctx, *contact.Phone, renderTemplate(tmpl.SMS, data)); err != nil {
			h.logger.Warn("SMS send failed", map[string]interface{}{
				"applicationId": input.ApplicationID,
				"error":         err.Error(),
			})
			if !out.EmailSent {
				out.Status = StatusFailed
				return out, nil
			}
		} else {
			out.SMSSent = true
		}
	}

	if out.EmailSent || out.SMSSent {
		out.Status = StatusSent
	}

	h.logger.Info("decision notification processed", map[string]interface{}{
		"applicationId": input.ApplicationID,
		"event":         input.Event,
		"status":        out.Status,
	})
	return out, nil
}

// renderTemplate substitutes {{key}} placeholders and drops unknown ones.
func renderTemplate(tmpl string, data map[string]string) string {
	result := tmpl
	for k, v := range data {
		result = strings.ReplaceAll(result, "{{"+k+"}}", v)
	}

	for {
		start := strings.Index(result, "{{")
		if start == -1 {
			break
		}
		end := strings.Index(result[start:], "}}")
		if end == -1 {
			break
		}
		end += start + 2
		result = result[:start] + result[end:]
	}
	return result
}

func defaultTemplates() map[string]messageTemplate {
	return map[string]messageTemplate{
		models.EventApplicationSubmitted: {
			Subject: "Application received for {{camperName}}",
			Body: "Thank you! The camp application for {{camperName}} is complete and is now under review. " +
				"We will be in touch once the review team has made a decision.",
		},
		models.EventApplicationAccepted: {
			Subject: "{{camperName}} has been accepted",
			Body: "Congratulations! The camp application for {{camperName}} has been accepted. " +
				"Please sign in to the portal to complete the remaining enrollment forms.",
			SMS: "Camp update: {{camperName}} has been accepted! Sign in to the portal for next steps.",
		},
	}
}
