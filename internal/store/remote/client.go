// Package remote implements the record-store contract against an external
// collection store over HTTP (PocketBase-compatible API).
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/voixlabs/dialdash/internal/store"
	"go.uber.org/zap"
)

const (
	usersCollection       = "users"
	contactsCollection    = "clients"
	callLogsCollection    = "call_logs"
	credentialsCollection = "api_clients"
)

// Client talks to the remote record store. It holds no per-user state: the
// auth token is supplied per call and attached as the Authorization header.
type Client struct {
	baseURL string
	http    *http.Client
	log     *zap.Logger
}

func New(baseURL string, logger *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    http.DefaultClient,
		log:     logger.Named("store.remote"),
	}
}

// WithHTTPClient overrides the transport, used in tests.
func (c *Client) WithHTTPClient(h *http.Client) *Client {
	c.http = h
	return c
}

type authResponse struct {
	Token  string     `json:"token"`
	Record userRecord `json:"record"`
}

type userRecord struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type contactRecord struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
	VAT   string `json:"vat"`
	Email string `json:"email"`
}

type callLogRecord struct {
	ID       string `json:"id"`
	User     string `json:"user"`
	Contact  string `json:"client_name"`
	Status   string `json:"status"`
	Duration int    `json:"duration"`
	Created  string `json:"created"`
}

type credentialRecord struct {
	ID     string `json:"id"`
	User   string `json:"user"`
	Host   string `json:"host"`
	APIKey string `json:"apiKey"`
}

type listResponse[T any] struct {
	Page       int `json:"page"`
	PerPage    int `json:"perPage"`
	TotalItems int `json:"totalItems"`
	Items      []T `json:"items"`
}

func (c *Client) AuthWithPassword(ctx context.Context, email, password string) (*store.Auth, error) {
	body := map[string]string{"identity": email, "password": password}
	var resp authResponse
	err := c.do(ctx, http.MethodPost, "/api/collections/"+usersCollection+"/auth-with-password", "", body, &resp)
	if err != nil {
		if isStatus(err, http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden) {
			return nil, store.ErrInvalidCredentials
		}
		return nil, err
	}
	return authFromResponse(resp), nil
}

func (c *Client) AuthRefresh(ctx context.Context, token string) (*store.Auth, error) {
	var resp authResponse
	err := c.do(ctx, http.MethodPost, "/api/collections/"+usersCollection+"/auth-refresh", token, nil, &resp)
	if err != nil {
		if isStatus(err, http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound) {
			return nil, store.ErrInvalidToken
		}
		return nil, err
	}
	return authFromResponse(resp), nil
}

func (c *Client) ListContacts(ctx context.Context, token string, filter store.ContactFilter) ([]store.Contact, error) {
	query := url.Values{}
	query.Set("page", "1")
	query.Set("perPage", "500")
	query.Set("sort", "name")
	if filter.Name != "" {
		query.Set("filter", fmt.Sprintf("name=%s", quote(filter.Name)))
	}

	var resp listResponse[contactRecord]
	if err := c.do(ctx, http.MethodGet, recordsPath(contactsCollection)+"?"+query.Encode(), token, nil, &resp); err != nil {
		return nil, err
	}
	contacts := make([]store.Contact, 0, len(resp.Items))
	for _, item := range resp.Items {
		contacts = append(contacts, contactFromRecord(item))
	}
	return contacts, nil
}

func (c *Client) GetContact(ctx context.Context, token, id string) (*store.Contact, error) {
	var rec contactRecord
	err := c.do(ctx, http.MethodGet, recordsPath(contactsCollection)+"/"+url.PathEscape(id), token, nil, &rec)
	if err != nil {
		if isStatus(err, http.StatusNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	contact := contactFromRecord(rec)
	return &contact, nil
}

func (c *Client) CreateContact(ctx context.Context, token string, contact store.Contact) (*store.Contact, error) {
	body := map[string]any{
		"name":  contact.Name,
		"phone": contact.Phone,
		"vat":   contact.VAT,
		"email": contact.Email,
	}
	var rec contactRecord
	if err := c.do(ctx, http.MethodPost, recordsPath(contactsCollection), token, body, &rec); err != nil {
		return nil, err
	}
	created := contactFromRecord(rec)
	return &created, nil
}

func (c *Client) UpdateContact(ctx context.Context, token string, contact store.Contact) (*store.Contact, error) {
	body := map[string]any{
		"name":  contact.Name,
		"phone": contact.Phone,
		"vat":   contact.VAT,
		"email": contact.Email,
	}
	var rec contactRecord
	err := c.do(ctx, http.MethodPatch, recordsPath(contactsCollection)+"/"+url.PathEscape(contact.ID), token, body, &rec)
	if err != nil {
		if isStatus(err, http.StatusNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	updated := contactFromRecord(rec)
	return &updated, nil
}

func (c *Client) DeleteContact(ctx context.Context, token, id string) error {
	err := c.do(ctx, http.MethodDelete, recordsPath(contactsCollection)+"/"+url.PathEscape(id), token, nil, nil)
	if isStatus(err, http.StatusNotFound) {
		return store.ErrNotFound
	}
	return err
}

func (c *Client) CreateCallLog(ctx context.Context, token string, entry store.CallLog) (*store.CallLog, error) {
	body := map[string]any{
		"user":        entry.UserID,
		"client_name": entry.ContactID,
		"status":      string(entry.Status),
		"duration":    entry.Duration,
	}
	var rec callLogRecord
	if err := c.do(ctx, http.MethodPost, recordsPath(callLogsCollection), token, body, &rec); err != nil {
		return nil, err
	}
	created := callLogFromRecord(rec)
	return &created, nil
}

func (c *Client) LatestInitiated(ctx context.Context, token, userID string) (*store.CallLog, error) {
	query := url.Values{}
	query.Set("page", "1")
	query.Set("perPage", "1")
	query.Set("sort", "-created")
	query.Set("filter", fmt.Sprintf("user=%s && status=%s", quote(userID), quote(string(store.CallInitiated))))

	var resp listResponse[callLogRecord]
	if err := c.do(ctx, http.MethodGet, recordsPath(callLogsCollection)+"?"+query.Encode(), token, nil, &resp); err != nil {
		return nil, err
	}
	if len(resp.Items) == 0 {
		return nil, nil
	}
	entry := callLogFromRecord(resp.Items[0])
	return &entry, nil
}

// SetCallLogStatus re-reads the record and only patches when the status still
// matches. The remote API has no compare-and-swap, so this is best effort;
// the embedded backend does it atomically.
func (c *Client) SetCallLogStatus(ctx context.Context, token, id string, from, to store.CallStatus) (bool, error) {
	var rec callLogRecord
	err := c.do(ctx, http.MethodGet, recordsPath(callLogsCollection)+"/"+url.PathEscape(id), token, nil, &rec)
	if err != nil {
		if isStatus(err, http.StatusNotFound) {
			return false, nil
		}
		return false, err
	}
	if rec.Status != string(from) {
		return false, nil
	}
	body := map[string]any{"status": string(to)}
	if err := c.do(ctx, http.MethodPatch, recordsPath(callLogsCollection)+"/"+url.PathEscape(id), token, body, nil); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Client) ListCallLogs(ctx context.Context, token, userID string, page, perPage int) ([]store.CallLog, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("perPage", strconv.Itoa(perPage))
	query.Set("sort", "-created")
	query.Set("filter", fmt.Sprintf("user=%s", quote(userID)))

	var resp listResponse[callLogRecord]
	if err := c.do(ctx, http.MethodGet, recordsPath(callLogsCollection)+"?"+query.Encode(), token, nil, &resp); err != nil {
		return nil, err
	}
	logs := make([]store.CallLog, 0, len(resp.Items))
	for _, item := range resp.Items {
		logs = append(logs, callLogFromRecord(item))
	}
	return logs, nil
}

func (c *Client) GetDeviceCredential(ctx context.Context, token, userID string) (*store.DeviceCredential, error) {
	query := url.Values{}
	query.Set("page", "1")
	query.Set("perPage", "1")
	query.Set("filter", fmt.Sprintf("user=%s", quote(userID)))

	var resp listResponse[credentialRecord]
	if err := c.do(ctx, http.MethodGet, recordsPath(credentialsCollection)+"?"+query.Encode(), token, nil, &resp); err != nil {
		return nil, err
	}
	if len(resp.Items) == 0 {
		return nil, nil
	}
	cred := credentialFromRecord(resp.Items[0])
	return &cred, nil
}

func (c *Client) SaveDeviceCredential(ctx context.Context, token string, cred store.DeviceCredential) (*store.DeviceCredential, error) {
	body := map[string]any{
		"user":   cred.UserID,
		"host":   cred.Host,
		"apiKey": cred.APIKey,
	}

	var rec credentialRecord
	var err error
	if cred.ID == "" {
		err = c.do(ctx, http.MethodPost, recordsPath(credentialsCollection), token, body, &rec)
	} else {
		err = c.do(ctx, http.MethodPatch, recordsPath(credentialsCollection)+"/"+url.PathEscape(cred.ID), token, body, &rec)
	}
	if err != nil {
		return nil, err
	}
	saved := credentialFromRecord(rec)
	return &saved, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.log.Warn("store request failed",
			zap.String("method", method),
			zap.String("path", req.URL.Path),
			zap.Int("status", resp.StatusCode),
		)
		return &store.RemoteError{Status: resp.StatusCode, Body: strings.TrimSpace(string(payload))}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func recordsPath(collection string) string {
	return "/api/collections/" + collection + "/records"
}

func quote(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `\"`) + `"`
}

func isStatus(err error, statuses ...int) bool {
	var remoteErr *store.RemoteError
	if !errors.As(err, &remoteErr) {
		return false
	}
	for _, status := range statuses {
		if remoteErr.Status == status {
			return true
		}
	}
	return false
}

func authFromResponse(resp authResponse) *store.Auth {
	return &store.Auth{
		Token: resp.Token,
		User: store.User{
			ID:    resp.Record.ID,
			Email: resp.Record.Email,
			Name:  resp.Record.Name,
		},
	}
}

func contactFromRecord(rec contactRecord) store.Contact {
	return store.Contact{
		ID:    rec.ID,
		Name:  rec.Name,
		Phone: rec.Phone,
		VAT:   rec.VAT,
		Email: rec.Email,
	}
}

func callLogFromRecord(rec callLogRecord) store.CallLog {
	return store.CallLog{
		ID:        rec.ID,
		UserID:    rec.User,
		ContactID: rec.Contact,
		Status:    store.CallStatus(rec.Status),
		Duration:  rec.Duration,
		Created:   parseStoreTime(rec.Created),
	}
}

func credentialFromRecord(rec credentialRecord) store.DeviceCredential {
	return store.DeviceCredential{
		ID:     rec.ID,
		UserID: rec.User,
		Host:   rec.Host,
		APIKey: rec.APIKey,
	}
}
