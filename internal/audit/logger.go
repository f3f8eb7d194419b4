// Package audit writes an append-only trail of favorites changes.
package audit

import (
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/pilab-dev/reelsync/domain"
	"github.com/pilab-dev/reelsync/notify"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Event represents an audit log event.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	EventID   string    `json:"event_id,omitempty"`
	Action    string    `json:"action"`
	User      string    `json:"user,omitempty"`
	Target    string    `json:"target,omitempty"` // movie id
	Details   string    `json:"details,omitempty"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
}

// Logger writes one JSON line per event to its writer.
type Logger struct {
	mu  sync.Mutex
	out zerolog.Logger
	now func() time.Time
}

// NewLogger creates a Logger writing to w.
func NewLogger(w io.Writer) *Logger {
	return &Logger{
		out: zerolog.New(w),
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Log records an audit event.
func (l *Logger) Log(action, user, target, details string, err error) {
	l.write(Event{
		Action:  action,
		User:    user,
		Target:  target,
		Details: details,
		Success: err == nil,
	}, err)
}

func (l *Logger) OnFavoriteAdded(evt domain.FavoriteEvent) {
	l.write(Event{
		EventID: evt.ID,
		Action:  "favorite." + string(domain.FavoriteAdded),
		User:    evt.Favorite.UserID,
		Target:  evt.Favorite.MovieID,
		Details: evt.Favorite.Title,
		Success: true,
	}, nil)
}

func (l *Logger) OnFavoriteRemoved(evt domain.FavoriteEvent) {
	l.write(Event{
		EventID: evt.ID,
		Action:  "favorite." + string(domain.FavoriteRemoved),
		User:    evt.Favorite.UserID,
		Target:  evt.Favorite.MovieID,
		Success: true,
	}, nil)
}

func (l *Logger) write(event Event, err error) {
	event.Timestamp = l.now()
	if err != nil {
		event.Error = err.Error()
	}

	entry, marshalErr := json.Marshal(event)

	l.mu.Lock()
	defer l.mu.Unlock()

	if marshalErr != nil {
		log.Error().Err(marshalErr).Msg("Failed to marshal audit event to JSON")
		l.out.Log().
			Str("action", event.Action).
			Str("user", event.User).
			Str("target", event.Target).
			Bool("success", event.Success).
			Msg("Audit Log (fallback)")
		return
	}

	l.out.Log().RawJSON("audit_event", entry).Msg("")
}

var _ notify.Listener = (*Logger)(nil)
