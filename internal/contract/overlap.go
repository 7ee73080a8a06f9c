package contract

import (
	"fmt"
	"time"

	"github.com/tphakala/contractwatch/internal/dates"
	"github.com/tphakala/contractwatch/internal/errors"
)

// Candidate is a contract being proposed for a worker. A nil End means the
// candidate is indefinite.
type Candidate struct {
	WorkerID string
	Start    time.Time
	End      *time.Time
}

// HasOverlap reports whether a candidate period for workerID collides with
// any active contract of that worker.
//
// An unbounded existing contract or one with an unreadable start date
// collides with every candidate, and an indefinite candidate collides with
// every active contract. Bounded periods
// collide when they share at least one day, boundaries included.
func HasOverlap(workerID string, candidateStart time.Time, candidateEnd *time.Time, existing []Contract) bool {
	_, found := FindOverlap(workerID, candidateStart, candidateEnd, existing)
	return found
}

// FindOverlap is HasOverlap returning the first conflicting contract
func FindOverlap(workerID string, candidateStart time.Time, candidateEnd *time.Time, existing []Contract) (Contract, bool) {
	for i := range existing {
		c := &existing[i]
		if c.WorkerID != workerID || !c.IsActive() {
			continue
		}
		if c.Unbounded() || !c.StartKnown() || candidateEnd == nil {
			return *c, true
		}
		if !candidateStart.After(*c.EndDate) && !candidateEnd.Before(c.StartDate) {
			return *c, true
		}
	}
	return Contract{}, false
}

// ValidateCandidate checks a proposed contract against the date rule and the
// worker's active contracts. A rejection is a validation error whose
// UserMessage is fit for display.
func ValidateCandidate(c Candidate, existing []Contract) error {
	if c.WorkerID == "" {
		return validationError("worker id is required", "worker_id", c.WorkerID)
	}
	if c.Start.IsZero() {
		return validationError("start date is required", "worker_id", c.WorkerID)
	}
	if c.End != nil && !c.End.After(c.Start) {
		return validationError("end date must be after start date", "worker_id", c.WorkerID)
	}

	conflict, found := FindOverlap(c.WorkerID, c.Start, c.End, existing)
	if !found {
		return nil
	}

	return errors.Newf("candidate contract overlaps contract %s", conflict.ID).
		Component("contract").
		Category(errors.CategoryValidation).
		Context("worker_id", c.WorkerID).
		Context("conflicting_contract_id", conflict.ID).
		Context(userMessageKey, overlapMessage(&conflict)).
		Build()
}

// ConflictingContractID returns the id of the contract that caused a
// ValidateCandidate rejection, if any
func ConflictingContractID(err error) string {
	if v, ok := errors.ContextValue(err, "conflicting_contract_id"); ok {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

func overlapMessage(c *Contract) string {
	if !c.StartKnown() {
		return fmt.Sprintf("The worker already has an active contract (%s) whose start date %q could not be read",
			c.ID, c.RawStartDate)
	}
	if c.Unbounded() {
		return fmt.Sprintf("The worker already has an active contract (%s) with no end date starting %s",
			c.ID, dates.FormatForDisplay(c.StartDate))
	}
	return fmt.Sprintf("The worker already has an active contract (%s) from %s to %s",
		c.ID, dates.FormatForDisplay(c.StartDate), c.EndDateDisplay())
}
