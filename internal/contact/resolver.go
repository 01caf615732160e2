// Package contact resolves dialed phone numbers to known contacts using a
// tolerant matching heuristic over normalized digits.
package contact

import (
	"context"
	"errors"
	"fmt"

	"github.com/voixlabs/dialdash/internal/store"
	"go.uber.org/zap"
)

// ManualDialLabel is the sentinel client label meaning no specific contact
// was pre-selected; resolution then considers every contact in scope.
const ManualDialLabel = "Manual Dial"

var (
	// ErrNoMatch: no contact's phone matches the dialed number.
	ErrNoMatch = errors.New("contact not found")
	// ErrStoreUnavailable: the candidate lookup itself failed.
	ErrStoreUnavailable = errors.New("contact lookup unavailable")
)

// AmbiguousError is returned when more than one contact's normalized phone
// satisfies the match relation. Callers must not silently pick one.
type AmbiguousError struct {
	Candidates []store.Contact
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("ambiguous contact match: %d candidates", len(e.Candidates))
}

// Resolver maps a (label, dialed number) pair to at most one contact.
type Resolver struct {
	log *zap.Logger
}

func NewResolver(logger *zap.Logger) *Resolver {
	return &Resolver{log: logger.Named("contact.resolver")}
}

// Resolve returns the single contact matching the dialed number. The label
// narrows the candidate set to an exact name match unless it is the
// ManualDialLabel sentinel. Ambiguity surfaces as *AmbiguousError; lookup
// failures surface as ErrStoreUnavailable, never as a panic or raw store
// error.
func (r *Resolver) Resolve(ctx context.Context, h store.Handle, label, dialed string) (*store.Contact, error) {
	normalized := Normalize(dialed)

	filter := store.ContactFilter{}
	if label != ManualDialLabel {
		filter.Name = label
	}

	candidates, err := h.Store.ListContacts(ctx, h.Token, filter)
	if err != nil {
		r.log.Warn("candidate lookup failed",
			zap.String("label", label),
			zap.String("normalized_phone", normalized),
			zap.Error(err),
		)
		return nil, ErrStoreUnavailable
	}

	var matched []store.Contact
	for _, candidate := range candidates {
		if Matches(dialed, candidate.Phone) {
			matched = append(matched, candidate)
		}
	}

	switch len(matched) {
	case 0:
		r.log.Info("no contact matched",
			zap.String("label", label),
			zap.String("normalized_phone", normalized),
		)
		return nil, ErrNoMatch
	case 1:
		return &matched[0], nil
	default:
		return nil, &AmbiguousError{Candidates: matched}
	}
}
