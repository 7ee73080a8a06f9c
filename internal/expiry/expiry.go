// Package expiry finds fixed-term contracts that are about to end and
// renders the grouped reminder text. Everything here is pure.
package expiry

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/tphakala/contractwatch/internal/contract"
	"github.com/tphakala/contractwatch/internal/dates"
)

// DefaultWindowDays is how far ahead a contract end counts as expiring
const DefaultWindowDays = 30

// Expiring is a contract inside the window with its days remaining
type Expiring struct {
	Contract      contract.Contract `json:"contract"`
	DaysRemaining int               `json:"daysRemaining"`
}

// Bucket groups expiring contracts sharing the same days remaining
type Bucket struct {
	DaysRemaining int        `json:"daysRemaining"`
	Contracts     []Expiring `json:"contracts"`
}

// NameLookup resolves a worker id to a display name
type NameLookup interface {
	Name(workerID string) (string, bool)
}

// NameLookupFunc adapts a function to NameLookup
type NameLookupFunc func(workerID string) (string, bool)

// Name implements NameLookup
func (f NameLookupFunc) Name(workerID string) (string, bool) {
	return f(workerID)
}

// Scan returns the active fixed-term contracts whose end date falls between
// today and today+windowDays, both ends included, in input order. A window
// of zero or less uses DefaultWindowDays. Contracts without a parsed start
// or end date are skipped.
func Scan(contracts []contract.Contract, today time.Time, windowDays int) []Expiring {
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}
	today = dates.DateOf(today)
	limit := dates.AddDays(today, windowDays)

	var out []Expiring
	for i := range contracts {
		c := &contracts[i]
		if c.Type != contract.TypeFixedTerm || c.Status != contract.StatusActive || c.EndDate == nil || !c.StartKnown() {
			continue
		}
		end := *c.EndDate
		if end.Before(today) || end.After(limit) {
			continue
		}
		out = append(out, Expiring{
			Contract:      *c,
			DaysRemaining: dates.DaysBetween(today, end),
		})
	}
	return out
}

// Group buckets expiring contracts by days remaining, soonest first
func Group(expiring []Expiring) []Bucket {
	index := make(map[int]int)
	var buckets []Bucket
	for _, e := range expiring {
		i, ok := index[e.DaysRemaining]
		if !ok {
			i = len(buckets)
			index[e.DaysRemaining] = i
			buckets = append(buckets, Bucket{DaysRemaining: e.DaysRemaining})
		}
		buckets[i].Contracts = append(buckets[i].Contracts, e)
	}
	slices.SortFunc(buckets, func(a, b Bucket) int {
		return a.DaysRemaining - b.DaysRemaining
	})
	return buckets
}

// Title returns the notification title for a set of expiring contracts
func Title(expiring []Expiring) string {
	if len(expiring) == 1 {
		return "Contract about to expire"
	}
	return "Contracts about to expire"
}

// Summarize renders the reminder text.
//
// A single contract names its worker:
//
//	The contract of Ana García expires in 5 days.
//
// Several contracts produce one line per bucket:
//
//	2 contracts expire in 5 days.
//	1 contract expires in 12 days.
func Summarize(expiring []Expiring, names NameLookup) string {
	switch len(expiring) {
	case 0:
		return ""
	case 1:
		e := expiring[0]
		return fmt.Sprintf("The contract of %s expires in %s.",
			workerLabel(e.Contract.WorkerID, names), pluralDays(e.DaysRemaining))
	}

	buckets := Group(expiring)
	lines := make([]string, 0, len(buckets))
	for _, b := range buckets {
		n := len(b.Contracts)
		if n == 1 {
			lines = append(lines, fmt.Sprintf("1 contract expires in %s.", pluralDays(b.DaysRemaining)))
			continue
		}
		lines = append(lines, fmt.Sprintf("%d contracts expire in %s.", n, pluralDays(b.DaysRemaining)))
	}
	return strings.Join(lines, "\n")
}

func workerLabel(workerID string, names NameLookup) string {
	if names != nil {
		if name, ok := names.Name(workerID); ok && name != "" {
			return name
		}
	}
	return "worker " + workerID
}

func pluralDays(n int) string {
	if n == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", n)
}
