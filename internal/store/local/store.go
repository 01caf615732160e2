// Package local implements the record-store contract on an embedded gorm
// database (sqlite or postgres), so the dashboard can run standalone without
// an external record store.
package local

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/voixlabs/dialdash/internal/store"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Store is the embedded record-store backend.
type Store struct {
	db   *gorm.DB
	node *snowflake.Node
	log  *zap.Logger
}

var _ store.Store = (*Store)(nil)

func New(db *gorm.DB, node *snowflake.Node, logger *zap.Logger) (*Store, error) {
	if err := db.AutoMigrate(&User{}, &Session{}, &Contact{}, &CallLog{}, &DeviceCredential{}); err != nil {
		return nil, err
	}
	return &Store{
		db:   db,
		node: node,
		log:  logger.Named("store.local"),
	}, nil
}

func (s *Store) ListContacts(ctx context.Context, token string, filter store.ContactFilter) ([]store.Contact, error) {
	if _, err := s.authorize(ctx, token); err != nil {
		return nil, err
	}

	stmt := s.db.WithContext(ctx).Model(&Contact{})
	if filter.Name != "" {
		stmt = stmt.Where("name = ?", filter.Name)
	}

	var rows []Contact
	if err := stmt.Order("name asc, id asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	contacts := make([]store.Contact, 0, len(rows))
	for _, row := range rows {
		contacts = append(contacts, contactFromRow(row))
	}
	return contacts, nil
}

func (s *Store) GetContact(ctx context.Context, token, id string) (*store.Contact, error) {
	if _, err := s.authorize(ctx, token); err != nil {
		return nil, err
	}

	var row Contact
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	contact := contactFromRow(row)
	return &contact, nil
}

func (s *Store) CreateContact(ctx context.Context, token string, contact store.Contact) (*store.Contact, error) {
	if _, err := s.authorize(ctx, token); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	row := Contact{
		ID:        s.node.Generate().String(),
		Name:      contact.Name,
		Phone:     contact.Phone,
		VAT:       contact.VAT,
		Email:     contact.Email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, err
	}
	created := contactFromRow(row)
	return &created, nil
}

func (s *Store) UpdateContact(ctx context.Context, token string, contact store.Contact) (*store.Contact, error) {
	if _, err := s.authorize(ctx, token); err != nil {
		return nil, err
	}

	result := s.db.WithContext(ctx).Model(&Contact{}).
		Where("id = ?", contact.ID).
		Updates(map[string]any{
			"name":       contact.Name,
			"phone":      contact.Phone,
			"vat":        contact.VAT,
			"email":      contact.Email,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, store.ErrNotFound
	}
	return s.GetContact(ctx, token, contact.ID)
}

func (s *Store) DeleteContact(ctx context.Context, token, id string) error {
	if _, err := s.authorize(ctx, token); err != nil {
		return err
	}

	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&Contact{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) CreateCallLog(ctx context.Context, token string, entry store.CallLog) (*store.CallLog, error) {
	user, err := s.authorize(ctx, token)
	if err != nil {
		return nil, err
	}

	row := CallLog{
		ID:        s.node.Generate().String(),
		UserID:    user.ID,
		ContactID: entry.ContactID,
		Status:    string(entry.Status),
		Duration:  entry.Duration,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, err
	}
	created := callLogFromRow(row)
	return &created, nil
}

func (s *Store) LatestInitiated(ctx context.Context, token, userID string) (*store.CallLog, error) {
	if _, err := s.authorize(ctx, token); err != nil {
		return nil, err
	}

	var row CallLog
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, string(store.CallInitiated)).
		Order("created_at desc, id desc").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	entry := callLogFromRow(row)
	return &entry, nil
}

// SetCallLogStatus is a single guarded UPDATE: the from-status predicate makes
// the transition atomic, so concurrent end-call requests cannot both win.
func (s *Store) SetCallLogStatus(ctx context.Context, token, id string, from, to store.CallStatus) (bool, error) {
	user, err := s.authorize(ctx, token)
	if err != nil {
		return false, err
	}

	result := s.db.WithContext(ctx).Model(&CallLog{}).
		Where("id = ? AND user_id = ? AND status = ?", id, user.ID, string(from)).
		Update("status", string(to))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (s *Store) ListCallLogs(ctx context.Context, token, userID string, page, perPage int) ([]store.CallLog, error) {
	if _, err := s.authorize(ctx, token); err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 50
	}

	var rows []CallLog
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc, id desc").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	logs := make([]store.CallLog, 0, len(rows))
	for _, row := range rows {
		logs = append(logs, callLogFromRow(row))
	}
	return logs, nil
}

func (s *Store) GetDeviceCredential(ctx context.Context, token, userID string) (*store.DeviceCredential, error) {
	if _, err := s.authorize(ctx, token); err != nil {
		return nil, err
	}

	var row DeviceCredential
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	cred := credentialFromRow(row)
	return &cred, nil
}

func (s *Store) SaveDeviceCredential(ctx context.Context, token string, cred store.DeviceCredential) (*store.DeviceCredential, error) {
	user, err := s.authorize(ctx, token)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	var existing DeviceCredential
	err = s.db.WithContext(ctx).Where("user_id = ?", user.ID).First(&existing).Error
	switch {
	case err == nil:
		if err := s.db.WithContext(ctx).Model(&DeviceCredential{}).
			Where("id = ?", existing.ID).
			Updates(map[string]any{
				"host":       cred.Host,
				"api_key":    cred.APIKey,
				"updated_at": now,
			}).Error; err != nil {
			return nil, err
		}
		existing.Host = cred.Host
		existing.APIKey = cred.APIKey
		saved := credentialFromRow(existing)
		return &saved, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		row := DeviceCredential{
			ID:        s.node.Generate().String(),
			UserID:    user.ID,
			Host:      cred.Host,
			APIKey:    cred.APIKey,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
			return nil, err
		}
		saved := credentialFromRow(row)
		return &saved, nil
	default:
		return nil, err
	}
}

func contactFromRow(row Contact) store.Contact {
	return store.Contact{
		ID:    row.ID,
		Name:  row.Name,
		Phone: row.Phone,
		VAT:   row.VAT,
		Email: row.Email,
	}
}

func callLogFromRow(row CallLog) store.CallLog {
	return store.CallLog{
		ID:        row.ID,
		UserID:    row.UserID,
		ContactID: row.ContactID,
		Status:    store.CallStatus(row.Status),
		Duration:  row.Duration,
		Created:   row.CreatedAt,
	}
}

func credentialFromRow(row DeviceCredential) store.DeviceCredential {
	return store.DeviceCredential{
		ID:     row.ID,
		UserID: row.UserID,
		Host:   row.Host,
		APIKey: row.APIKey,
	}
}
