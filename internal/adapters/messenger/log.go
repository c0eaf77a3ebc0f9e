package messenger

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/mightytigers/matchday/pkg/logger"
	"github.com/mightytigers/matchday/pkg/metrics"
)

// LogMessenger writes rendered summaries to the log instead of a chat
// transport. Used for local development and as the default backend.
type LogMessenger struct {
	log logger.Logger
	seq atomic.Int64
}

// NewLogMessenger creates a log-backed messenger.
func NewLogMessenger(log logger.Logger) *LogMessenger {
	if log == nil {
		log = logger.Nop()
	}
	return &LogMessenger{log: log.Named("messenger")}
}

// RenderAndSend logs the summary and hands back a synthetic reference.
func (m *LogMessenger) RenderAndSend(ctx context.Context, snap Snapshot) (string, error) {
	text, err := RenderSummary(snap)
	if err != nil {
		metrics.RecordMessengerError()
		return "", err
	}

	ref := fmt.Sprintf("log-%d", m.seq.Add(1))
	m.log.Info(ctx, "match summary sent",
		logger.String("ref", ref),
		logger.String("team_id", snap.TeamID),
		logger.String("match_id", snap.MatchID),
		logger.String("text", text),
	)
	metrics.RecordMessengerSend()
	return ref, nil
}

// RenderAndUpdate logs the refreshed summary under the existing reference.
func (m *LogMessenger) RenderAndUpdate(ctx context.Context, ref string, snap Snapshot) error {
	text, err := RenderSummary(snap)
	if err != nil {
		metrics.RecordMessengerError()
		return err
	}

	m.log.Info(ctx, "match summary updated",
		logger.String("ref", ref),
		logger.String("team_id", snap.TeamID),
		logger.String("match_id", snap.MatchID),
		logger.String("text", text),
	)
	metrics.RecordMessengerUpdate()
	return nil
}
