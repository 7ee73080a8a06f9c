package state

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/tphakala/contractwatch/internal/dates"
	"github.com/tphakala/contractwatch/internal/errors"
)

// ReadMarker returns the date of the last successful expiration check.
// A corrupt marker yields found=false together with a state error, callers
// treat it as "never checked".
func ReadMarker(store Store) (day time.Time, found bool, err error) {
	raw, ok, err := store.Get(KeyLastCheck)
	if err != nil || !ok {
		return time.Time{}, false, err
	}

	day, err = dates.Parse(strings.TrimSpace(string(raw)))
	if err != nil {
		return time.Time{}, false, corruptError(KeyLastCheck, err)
	}
	return day, true, nil
}

// WriteMarker records day as the date of the last successful check
func WriteMarker(store Store, day time.Time) error {
	return store.Set(KeyLastCheck, []byte(dates.FormatISO(dates.DateOf(day))))
}

// CheckedOn reports whether the marker equals day. A corrupt marker counts
// as not checked and is returned as the error.
func CheckedOn(store Store, day time.Time) (bool, error) {
	last, found, err := ReadMarker(store)
	if !found {
		return false, err
	}
	return last.Equal(dates.DateOf(day)), nil
}

// Handoff carries an expiration toast from the login flow to the next
// dashboard mount. Scanned marks a handoff staged by the expiration scan of
// Day; only those record the expiration check when consumed.
type Handoff struct {
	Pending bool   `json:"pending"`
	Title   string `json:"title"`
	Message string `json:"message"`
	Type    string `json:"type"`
	Scanned bool   `json:"scanned,omitempty"`
	Day     string `json:"day,omitempty"`
}

// ScannedOn reports whether h was staged by the expiration scan of day
func (h Handoff) ScannedOn(day time.Time) bool {
	return h.Scanned && h.Day == dates.FormatISO(dates.DateOf(day))
}

// ReadHandoff returns the stored handoff. A missing entry is the zero
// Handoff. A corrupt entry is the zero Handoff plus a state error.
func ReadHandoff(store Store) (Handoff, error) {
	raw, ok, err := store.Get(KeyHandoff)
	if err != nil || !ok {
		return Handoff{}, err
	}
	var h Handoff
	if err := json.Unmarshal(raw, &h); err != nil {
		return Handoff{}, corruptError(KeyHandoff, err)
	}
	return h, nil
}

// WriteHandoff stores h
func WriteHandoff(store Store, h Handoff) error {
	data, err := json.Marshal(h)
	if err != nil {
		return err
	}
	return store.Set(KeyHandoff, data)
}

// ClearHandoff removes the pending handoff
func ClearHandoff(store Store) error {
	return store.Delete(KeyHandoff)
}

func corruptError(key string, err error) error {
	return errors.New(err).
		Component("state").
		Category(errors.CategoryState).
		Context("key", key).
		Context("reason", "corrupt").
		Build()
}
