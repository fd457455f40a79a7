package senddecisionnotification

type Input struct {
	ApplicationID string `json:"applicationId"`
	Event         string `json:"event"`
}

type Output struct {
	NotificationID string `json:"notificationId"`
	Status         string `json:"status"` // "sent", "failed", "disabled"
	EmailSent      bool   `json:"emailSent"`
	SMSSent        bool   `json:"smsSent"`
	SentAt         string `json:"sentAt"` // ISO 8601
}

// Statuses
const (
	StatusSent     = "sent"
	StatusFailed   = "failed"
	StatusDisabled = "disabled"
)

type messageTemplate struct {
	Subject string
	Body    string
	SMS     string
}
