package local

import "time"

// User is a dashboard account in the embedded store.
type User struct {
	ID           string     `gorm:"primaryKey"`
	Email        string     `gorm:"type:text;not null;uniqueIndex"`
	Name         string     `gorm:"type:text"`
	PasswordHash string     `gorm:"type:text;not null"`
	CreatedAt    time.Time  `gorm:"not null"`
	UpdatedAt    time.Time  `gorm:"not null"`
}

func (User) TableName() string { return "users" }

// Session is a persisted login session. Only the sha256 of the token is
// stored; the raw token lives in the client cookie.
type Session struct {
	ID         string    `gorm:"primaryKey"`
	UserID     string    `gorm:"column:user_id;not null;index"`
	TokenHash  string    `gorm:"column:token_hash;type:text;not null;uniqueIndex"`
	ExpiresAt  time.Time `gorm:"column:expires_at;not null;index"`
	CreatedAt  time.Time `gorm:"column:created_at;not null"`
	LastSeenAt time.Time `gorm:"column:last_seen_at;not null"`
}

func (Session) TableName() string { return "sessions" }

// Contact mirrors the clients collection of the remote store.
type Contact struct {
	ID        string    `gorm:"primaryKey"`
	Name      string    `gorm:"type:text;not null;index"`
	Phone     string    `gorm:"type:text"`
	VAT       string    `gorm:"column:vat;type:text"`
	Email     string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (Contact) TableName() string { return "contacts" }

// CallLog is one outbound call. The active-call lookup orders by created_at,
// so that column carries the ordering guarantee.
type CallLog struct {
	ID        string    `gorm:"primaryKey"`
	UserID    string    `gorm:"column:user_id;not null;index"`
	ContactID string    `gorm:"column:contact_id;not null"`
	Status    string    `gorm:"type:text;not null;index"`
	Duration  int       `gorm:"not null;default:0"`
	CreatedAt time.Time `gorm:"column:created_at;not null;index"`
}

func (CallLog) TableName() string { return "call_logs" }

// DeviceCredential holds the per-user device-control API {host, apiKey} pair.
type DeviceCredential struct {
	ID        string    `gorm:"primaryKey"`
	UserID    string    `gorm:"column:user_id;not null;uniqueIndex"`
	Host      string    `gorm:"type:text;not null"`
	APIKey    string    `gorm:"column:api_key;type:text;not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (DeviceCredential) TableName() string { return "device_credentials" }
