package messenger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/mightytigers/matchday/pkg/logger"
	"github.com/mightytigers/matchday/pkg/metrics"
)

// DefaultSubject is the NATS subject match summaries are published to when
// none is configured.
const DefaultSubject = "matchday.summaries"

// envelope is the wire form of one outbound summary. Op distinguishes a
// fresh post from an in-place edit of Ref.
type envelope struct {
	Op      string   `json:"op"` // "send" or "update"
	Ref     string   `json:"ref"`
	TeamID  string   `json:"team_id"`
	MatchID string   `json:"match_id"`
	Date    string   `json:"date"`
	Text    string   `json:"text"`
	Buttons []string `json:"buttons"`
}

// NATSMessenger publishes rendered summaries to a NATS subject where a
// chat-transport bridge picks them up. The bridge owns the real chat
// message; the reference here is an opaque correlation id.
type NATSMessenger struct {
	conn    *nats.Conn
	subject string
	log     logger.Logger
}

// NewNATSMessenger connects to NATS and returns a publishing messenger.
func NewNATSMessenger(url, subject string, log logger.Logger) (*NATSMessenger, error) {
	if subject == "" {
		subject = DefaultSubject
	}
	if log == nil {
		log = logger.Nop()
	}

	conn, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.RetryOnFailedConnect(true),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	return &NATSMessenger{
		conn:    conn,
		subject: subject,
		log:     log.Named("messenger"),
	}, nil
}

// Close drains and closes the connection.
func (m *NATSMessenger) Close() {
	if err := m.conn.Drain(); err != nil {
		m.log.Warn(context.Background(), "nats drain failed", logger.Error(err))
	}
}

// RenderAndSend publishes a fresh summary and returns its correlation ref.
func (m *NATSMessenger) RenderAndSend(ctx context.Context, snap Snapshot) (string, error) {
	ref := uuid.NewString()
	if err := m.publish("send", ref, snap); err != nil {
		metrics.RecordMessengerError()
		return "", err
	}
	metrics.RecordMessengerSend()
	return ref, nil
}

// RenderAndUpdate publishes an edit for the summary previously sent as ref.
func (m *NATSMessenger) RenderAndUpdate(ctx context.Context, ref string, snap Snapshot) error {
	if err := m.publish("update", ref, snap); err != nil {
		metrics.RecordMessengerError()
		return err
	}
	metrics.RecordMessengerUpdate()
	return nil
}

func (m *NATSMessenger) publish(op, ref string, snap Snapshot) error {
	text, err := RenderSummary(snap)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(envelope{
		Op:      op,
		Ref:     ref,
		TeamID:  snap.TeamID,
		MatchID: snap.MatchID,
		Date:    snap.Date.UTC().Format(time.RFC3339),
		Text:    text,
		Buttons: snap.Buttons,
	})
	if err != nil {
		return fmt.Errorf("marshal summary envelope: %w", err)
	}

	if err := m.conn.Publish(m.subject, payload); err != nil {
		return fmt.Errorf("publish summary: %w", err)
	}
	return nil
}
