package publisher

import (
	"context"
	"encoding/json"
	"time"

	"sjsage522/pricewatch/internal/models"
	"sjsage522/pricewatch/logger"
)

// Stream keys
const (
	KeyAlert    = "b64_alert"
	KeyFleetRun = "b64_fleet_run"
)

// Event is the JSON envelope written to the streams.
type Event struct {
	Type string          `json:"type"`
	At   time.Time       `json:"at"`
	Data json.RawMessage `json:"data"`
}

// Events publishes domain events through a Publisher.
type Events struct {
	pub Publisher
	now func() time.Time
}

// NewEvents wraps pub
func NewEvents(pub Publisher) *Events {
	return &Events{pub: pub, now: time.Now}
}

func (e *Events) publish(ctx context.Context, key, typ string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	msg, err := json.Marshal(Event{Type: typ, At: e.now().UTC(), Data: raw})
	if err != nil {
		return err
	}
	return e.pub.Publish(ctx, key, msg)
}

// NotifyAlert publishes a stored alert
func (e *Events) NotifyAlert(ctx context.Context, a models.Alert) error {
	return e.publish(ctx, KeyAlert, "alert", a)
}

// FleetRunSummary is the event payload for a finished fleet run.
type FleetRunSummary struct {
	RunID        string    `json:"runId"`
	Mode         string    `json:"mode"`
	Success      int       `json:"success"`
	Failed       int       `json:"failed"`
	Total        int       `json:"total"`
	StartTime    time.Time `json:"startTime"`
	EndTime      time.Time `json:"endTime"`
	FallbackUsed bool      `json:"fallbackUsed"`
}

// PublishRun publishes the summary of a fleet run and trims the streams.
func (e *Events) PublishRun(ctx context.Context, r *models.FleetResult) error {
	summary := FleetRunSummary{
		RunID:        r.RunID,
		Mode:         r.Mode,
		Success:      r.Success,
		Failed:       r.Failed,
		Total:        r.Total,
		StartTime:    r.StartTime,
		EndTime:      r.EndTime,
		FallbackUsed: r.FallbackUsed,
	}
	if err := e.publish(ctx, KeyFleetRun, "fleet_run", summary); err != nil {
		return err
	}
	if err := e.pub.TrimStreams(ctx); err != nil {
		logger.ForPublisher().Warn().Err(err).Msg("Failed to trim streams")
	}
	return nil
}
