// Package notification keeps the persisted notification feed, the ephemeral
// toast list and the push forwarding of new notifications to external
// services.
package notification

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tphakala/contractwatch/internal/errors"
)

// Type represents the severity of a notification or toast
type Type string

const (
	// TypeInfo is a neutral informational message
	TypeInfo Type = "info"
	// TypeSuccess confirms a completed action
	TypeSuccess Type = "success"
	// TypeWarning needs attention, contract expiration reminders use it
	TypeWarning Type = "warning"
	// TypeError reports a failure
	TypeError Type = "error"
)

// Sentinel errors for notification operations
var (
	ErrNotificationNotFound = errors.Newf("notification not found").Component("notification").Category(errors.CategoryNotFound).Build()
	ErrToastNotFound        = errors.Newf("toast not found").Component("notification").Category(errors.CategoryNotFound).Build()
)

// ParseType maps a type name to a Type. Empty and unknown names are info.
func ParseType(s string) Type {
	switch t := Type(strings.ToLower(strings.TrimSpace(s))); t {
	case TypeSuccess, TypeWarning, TypeError:
		return t
	default:
		return TypeInfo
	}
}

// Valid reports whether t is one of the known types
func (t Type) Valid() bool {
	switch t {
	case TypeInfo, TypeSuccess, TypeWarning, TypeError:
		return true
	default:
		return false
	}
}

// Notification is one entry of the feed
type Notification struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      Type      `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Read      bool      `json:"read"`
}

// notificationJSON is the wire shape used when rehydrating persisted feeds.
// Older payloads store the timestamp as epoch milliseconds.
type notificationJSON struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Message   string          `json:"message"`
	Type      string          `json:"type"`
	Timestamp json.RawMessage `json:"timestamp"`
	Read      bool            `json:"read"`
}

// UnmarshalJSON accepts RFC 3339 or epoch millisecond timestamps
func (n *Notification) UnmarshalJSON(data []byte) error {
	var raw notificationJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	ts, err := parseTimestamp(raw.Timestamp)
	if err != nil {
		return err
	}

	*n = Notification{
		ID:        raw.ID,
		Title:     raw.Title,
		Message:   raw.Message,
		Type:      ParseType(raw.Type),
		Timestamp: ts,
		Read:      raw.Read,
	}
	return nil
}

func parseTimestamp(raw json.RawMessage) (time.Time, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return time.Time{}, nil
	}
	if raw[0] == '"' {
		var t time.Time
		if err := json.Unmarshal(raw, &t); err != nil {
			return time.Time{}, err
		}
		return t, nil
	}
	var ms int64
	if err := json.Unmarshal(raw, &ms); err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms), nil
}

// newID returns a time-ordered unique identifier
func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
