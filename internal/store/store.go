// Package store defines the record-store boundary: the system of record for
// users, contacts, call logs and device credentials. Implementations live in
// store/remote (external HTTP store) and store/local (embedded standalone
// backend); everything above this package is backend-agnostic.
package store

import (
	"context"
	"time"
)

// User is the authenticated identity attached to records.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Auth is the result of a password login or a token refresh.
type Auth struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Contact is a known client record. Owned by the store; read-mostly here.
// Phone uniqueness is NOT guaranteed: several contacts may share overlapping
// digits (with/without trunk prefix).
type Contact struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
	VAT   string `json:"vat,omitempty"`
	Email string `json:"email,omitempty"`
}

// CallStatus is the lifecycle state of an outbound call log.
type CallStatus string

const (
	CallInitiated CallStatus = "Initiated"
	CallEnded     CallStatus = "Ended"
	CallFailed    CallStatus = "Failed"
)

// CallLog records one outbound call for a user. The "active" call is the most
// recently created log still in Initiated state; ordering by Created is
// load-bearing for that lookup.
type CallLog struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user"`
	ContactID string     `json:"contact"`
	Status    CallStatus `json:"status"`
	Duration  int        `json:"duration"`
	Created   time.Time  `json:"created"`
}

// DeviceCredential is the per-user {host, apiKey} pair for the device-control
// API. One per user, created on first save and updated thereafter.
type DeviceCredential struct {
	ID     string `json:"id"`
	UserID string `json:"user"`
	Host   string `json:"host"`
	APIKey string `json:"apiKey"`
}

// ContactFilter narrows contact listing. Empty Name means all contacts.
type ContactFilter struct {
	Name string
}

// Store is the record-store contract. The token scopes every call to the
// authenticated user; handles must not be shared across requests.
type Store interface {
	AuthWithPassword(ctx context.Context, email, password string) (*Auth, error)
	AuthRefresh(ctx context.Context, token string) (*Auth, error)

	ListContacts(ctx context.Context, token string, filter ContactFilter) ([]Contact, error)
	GetContact(ctx context.Context, token, id string) (*Contact, error)
	CreateContact(ctx context.Context, token string, contact Contact) (*Contact, error)
	UpdateContact(ctx context.Context, token string, contact Contact) (*Contact, error)
	DeleteContact(ctx context.Context, token, id string) error

	CreateCallLog(ctx context.Context, token string, entry CallLog) (*CallLog, error)
	// LatestInitiated returns the newest Initiated call log for the user, or
	// (nil, nil) when there is none.
	LatestInitiated(ctx context.Context, token, userID string) (*CallLog, error)
	// SetCallLogStatus transitions a call log from one status to another and
	// reports whether the record actually changed. The from-status guard is
	// what keeps concurrent end-call requests idempotent.
	SetCallLogStatus(ctx context.Context, token, id string, from, to CallStatus) (bool, error)
	ListCallLogs(ctx context.Context, token, userID string, page, perPage int) ([]CallLog, error)

	// GetDeviceCredential returns (nil, nil) when the user has never saved one.
	GetDeviceCredential(ctx context.Context, token, userID string) (*DeviceCredential, error)
	SaveDeviceCredential(ctx context.Context, token string, cred DeviceCredential) (*DeviceCredential, error)
}
