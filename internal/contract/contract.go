// Package contract holds the canonical contract and worker model, the
// normalization of backend records and the overlap rules.
package contract

import (
	"time"

	"github.com/tphakala/contractwatch/internal/dates"
	"github.com/tphakala/contractwatch/internal/errors"
)

// Type is the contract modality
type Type string

const (
	TypeIndefinite Type = "indefinite"
	TypeFixedTerm  Type = "fixed_term"
)

// Status is the lifecycle state of a contract
type Status string

const (
	StatusActive   Status = "active"
	StatusFinished Status = "finished"
)

// Contract is the canonical shape of a contract after normalization.
// Dates are date-only UTC values.
type Contract struct {
	ID        string     `json:"id"`
	WorkerID  string     `json:"workerId"`
	Type      Type       `json:"type"`
	StartDate time.Time  `json:"startDate"`
	EndDate   *time.Time `json:"endDate,omitempty"`
	Status    Status     `json:"status"`

	// RawStartDate and RawEndDate keep the backend text when it could not
	// be parsed
	RawStartDate string `json:"rawStartDate,omitempty"`
	RawEndDate   string `json:"rawEndDate,omitempty"`
}

// Worker is an employee as known to the contract store
type Worker struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// IsActive reports whether the contract is in force
func (c *Contract) IsActive() bool {
	return c.Status == StatusActive
}

// Unbounded reports whether the contract has no usable end date. An
// indefinite contract is unbounded, and so is a fixed-term contract whose
// end date is missing or unparseable.
func (c *Contract) Unbounded() bool {
	return c.Type == TypeIndefinite || c.EndDate == nil
}

// StartKnown reports whether the start date was read
func (c *Contract) StartKnown() bool {
	return !c.StartDate.IsZero()
}

// Validate checks the date invariants of a contract
func (c *Contract) Validate() error {
	if c.ID == "" {
		return validationError("contract id is required", "contract_id", c.ID)
	}
	if c.WorkerID == "" {
		return validationError("worker id is required", "contract_id", c.ID)
	}
	if c.StartDate.IsZero() {
		return validationError("start date is required", "contract_id", c.ID)
	}
	switch c.Type {
	case TypeIndefinite:
		if c.EndDate != nil {
			return validationError("an indefinite contract cannot have an end date", "contract_id", c.ID)
		}
	case TypeFixedTerm:
		if c.EndDate != nil && !c.EndDate.After(c.StartDate) {
			return validationError("end date must be after start date", "contract_id", c.ID)
		}
	default:
		return validationError("unknown contract type "+string(c.Type), "contract_id", c.ID)
	}
	return nil
}

// EndDateDisplay renders the end date as dd/mm/yyyy, or "" when absent
func (c *Contract) EndDateDisplay() string {
	if c.EndDate == nil {
		return ""
	}
	return dates.FormatForDisplay(*c.EndDate)
}

// userMessageKey is the error context key carrying a message fit for end users
const userMessageKey = "user_message"

func validationError(msg, key string, value any) error {
	return errors.Newf("%s", msg).
		Component("contract").
		Category(errors.CategoryValidation).
		Context(key, value).
		Context(userMessageKey, capitalize(msg)).
		Build()
}

// UserMessage returns the message of err meant for end users
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if v, ok := errors.ContextValue(err, userMessageKey); ok {
		if msg, ok := v.(string); ok && msg != "" {
			return msg
		}
	}
	return err.Error()
}

func capitalize(s string) string {
	if s == "" || s[0] < 'a' || s[0] > 'z' {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}
