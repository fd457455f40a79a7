package camunda

import (
	"context"
	"time"

	"camp-portal/internal/common/logger"
	"camp-portal/internal/models"
)

// Publisher starts one instance of the lifecycle process per event.
type Publisher struct {
	client    *Client
	processID string
	logger    logger.Logger
}

func NewPublisher(client *Client, processID string, log logger.Logger) *Publisher {
	return &Publisher{
		client:    client,
		processID: processID,
		logger:    log.WithFields(map[string]interface{}{"component": "lifecycle-publisher", "processId": processID}),
	}
}

func eventVariables(ev models.LifecycleEvent) map[string]interface{} {
	return map[string]interface{}{
		"applicationId": ev.ApplicationID,
		"userId":        ev.UserID,
		"event":         ev.Name,
		"status":        string(ev.Status),
		"occurredAt":    ev.OccurredAt.Format(time.RFC3339),
	}
}

func (p *Publisher) Publish(ctx context.Context, ev models.LifecycleEvent) error {
	vars := eventVariables(ev)

	result, err := p.client.ExecuteWithRetry(ctx, func(ctx context.Context) (interface{}, error) {
		cmd, err := p.client.GetClient().NewCreateInstanceCommand().
			BPMNProcessId(p.processID).
			LatestVersion().
			VariablesFromMap(vars)
		if err != nil {
			return nil, err
		}
		return cmd.Send(ctx)
	}, "create lifecycle instance")
	if err != nil {
		return err
	}

	fields := map[string]interface{}{
		"applicationId": ev.ApplicationID,
		"event":         ev.Name,
	}
	if resp, ok := result.(interface{ GetProcessInstanceKey() int64 }); ok {
		fields["processInstanceKey"] = resp.GetProcessInstanceKey()
	}
	p.logger.Debug("lifecycle instance created", fields)
	return nil
}
