// Package calllog tracks the lifecycle of outbound calls as persisted state:
// Initiated is the entry state, Ended and Failed are terminal.
package calllog

import (
	"context"
	"errors"
	"time"

	"github.com/voixlabs/dialdash/internal/store"
	"go.uber.org/zap"
)

// ErrUnauthenticated is returned when a tracker operation is attempted
// without an established identity.
var ErrUnauthenticated = errors.New("no authenticated user")

// Entry is a call log expanded with its contact for presentation.
type Entry struct {
	ID          string           `json:"id"`
	ContactName string           `json:"client_name"`
	Phone       string           `json:"phone_number"`
	Status      store.CallStatus `json:"status"`
	Duration    int              `json:"duration"`
	Created     time.Time        `json:"created"`
}

// Tracker creates, terminates and lists call logs for a user.
type Tracker struct {
	log *zap.Logger
}

func NewTracker(logger *zap.Logger) *Tracker {
	return &Tracker{log: logger.Named("calllog.tracker")}
}

// Create appends an Initiated call log for the resolved contact. Callers must
// only invoke this after contact resolution succeeded.
func (t *Tracker) Create(ctx context.Context, h store.Handle, contact store.Contact) (*store.CallLog, error) {
	if !h.Authenticated() {
		return nil, ErrUnauthenticated
	}

	entry, err := h.Store.CreateCallLog(ctx, h.Token, store.CallLog{
		UserID:    h.User.ID,
		ContactID: contact.ID,
		Status:    store.CallInitiated,
	})
	if err != nil {
		return nil, err
	}

	t.log.Info("call log created",
		zap.String("call_log_id", entry.ID),
		zap.String("contact_id", contact.ID),
	)
	return entry, nil
}

// EndMostRecent transitions the user's newest Initiated log to Ended.
// A (nil, nil) return means there was no active call: ending twice, or
// ending when nothing was started, is a recoverable no-op. The transition is
// guarded by the current status, so a concurrent request that already ended
// the same log also lands in the no-active-call outcome.
func (t *Tracker) EndMostRecent(ctx context.Context, h store.Handle) (*store.CallLog, error) {
	if !h.Authenticated() {
		return nil, ErrUnauthenticated
	}

	latest, err := h.Store.LatestInitiated(ctx, h.Token, h.User.ID)
	if err != nil {
		return nil, err
	}
	if latest == nil {
		return nil, nil
	}

	changed, err := h.Store.SetCallLogStatus(ctx, h.Token, latest.ID, store.CallInitiated, store.CallEnded)
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, nil
	}

	t.log.Info("call ended", zap.String("call_log_id", latest.ID))
	latest.Status = store.CallEnded
	return latest, nil
}

// MarkFailed transitions an Initiated log to Failed after the device gateway
// rejected the call. Logs already in a terminal state are left alone.
func (t *Tracker) MarkFailed(ctx context.Context, h store.Handle, id string) error {
	if !h.Authenticated() {
		return ErrUnauthenticated
	}

	changed, err := h.Store.SetCallLogStatus(ctx, h.Token, id, store.CallInitiated, store.CallFailed)
	if err != nil {
		return err
	}
	if changed {
		t.log.Warn("call marked failed", zap.String("call_log_id", id))
	}
	return nil
}

// List returns the user's call logs newest first, each expanded with the
// contact's display name and phone. Contacts deleted since the call keep the
// log entry with an Unknown placeholder.
func (t *Tracker) List(ctx context.Context, h store.Handle, page, pageSize int) ([]Entry, error) {
	if !h.Authenticated() {
		return nil, ErrUnauthenticated
	}

	logs, err := h.Store.ListCallLogs(ctx, h.Token, h.User.ID, page, pageSize)
	if err != nil {
		return nil, err
	}

	contacts := make(map[string]*store.Contact, len(logs))
	entries := make([]Entry, 0, len(logs))
	for _, entry := range logs {
		resolved, seen := contacts[entry.ContactID]
		if !seen {
			resolved, err = h.Store.GetContact(ctx, h.Token, entry.ContactID)
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				return nil, err
			}
			contacts[entry.ContactID] = resolved
		}

		name, phone := "Unknown", ""
		if resolved != nil {
			name, phone = resolved.Name, resolved.Phone
		}
		entries = append(entries, Entry{
			ID:          entry.ID,
			ContactName: name,
			Phone:       phone,
			Status:      entry.Status,
			Duration:    entry.Duration,
			Created:     entry.Created,
		})
	}
	return entries, nil
}
