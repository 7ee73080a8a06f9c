package contract

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/tphakala/contractwatch/internal/dates"
	"github.com/tphakala/contractwatch/internal/errors"
)

// FlexString decodes a JSON string, number or null into a string.
// Backends disagree on whether ids are numeric.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler
func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*f = ""
		return nil
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(strings.TrimSpace(s))
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*f = FlexString(n.String())
		return nil
	}
}

// first returns the first non-empty value
func first(values ...FlexString) string {
	for _, v := range values {
		if v != "" {
			return string(v)
		}
	}
	return ""
}

// RawContract is a contract record as sent by the backend. Each field may
// arrive under its English or its Spanish name.
type RawContract struct {
	ID           FlexString `json:"id"`
	IDContrato   FlexString `json:"id_contrato"`
	WorkerID     FlexString `json:"workerId"`
	TrabajadorID FlexString `json:"trabajador_id"`
	IDTrabajador FlexString `json:"id_trabajador"`
	ContractType FlexString `json:"contractType"`
	TipoContrato FlexString `json:"tipo_contrato"`
	StartDate    FlexString `json:"startDate"`
	FechaInicio  FlexString `json:"fecha_inicio"`
	EndDate      FlexString `json:"endDate"`
	FechaFin     FlexString `json:"fecha_fin"`
	Status       FlexString `json:"status"`
	Estado       FlexString `json:"estado"`
}

// Normalize converts the record into the canonical Contract.
//
// A missing id, worker id or start date and an unknown type or status are
// errors. Unparseable dates are not: the contract keeps a zero StartDate or
// a nil EndDate and the original text in RawStartDate or RawEndDate. A missing
// type is inferred from the presence of an end date, a missing status means
// active.
func (r *RawContract) Normalize() (Contract, error) {
	c := Contract{
		ID:       first(r.ID, r.IDContrato),
		WorkerID: first(r.WorkerID, r.TrabajadorID, r.IDTrabajador),
	}
	if c.ID == "" {
		return Contract{}, normalizeError("contract record has no id", "")
	}
	if c.WorkerID == "" {
		return Contract{}, normalizeError("contract record has no worker id", c.ID)
	}

	startText := first(r.StartDate, r.FechaInicio)
	if startText == "" {
		return Contract{}, normalizeError("contract record has no start date", c.ID)
	}
	if start, err := dates.Parse(startText); err == nil {
		c.StartDate = start
	} else {
		c.RawStartDate = startText
	}

	endText := first(r.EndDate, r.FechaFin)
	if endText != "" {
		if end, err := dates.Parse(endText); err == nil {
			c.EndDate = &end
		} else {
			c.RawEndDate = endText
		}
	}

	typeText := first(r.ContractType, r.TipoContrato)
	if typeText == "" {
		if endText != "" {
			c.Type = TypeFixedTerm
		} else {
			c.Type = TypeIndefinite
		}
	} else {
		t, ok := ParseType(typeText)
		if !ok {
			return Contract{}, normalizeError("unknown contract type "+typeText, c.ID)
		}
		c.Type = t
	}

	statusText := first(r.Status, r.Estado)
	if statusText == "" {
		c.Status = StatusActive
	} else {
		s, ok := ParseStatus(statusText)
		if !ok {
			return Contract{}, normalizeError("unknown contract status "+statusText, c.ID)
		}
		c.Status = s
	}

	return c, nil
}

func normalizeError(msg, contractID string) error {
	return errors.Newf("%s", msg).
		Component("contract").
		Category(errors.CategoryValidation).
		Context("contract_id", contractID).
		Build()
}

// RawWorker is a worker record as sent by the backend
type RawWorker struct {
	ID           FlexString `json:"id"`
	IDTrabajador FlexString `json:"id_trabajador"`
	Name         FlexString `json:"name"`
	Nombre       FlexString `json:"nombre"`
	LastName     FlexString `json:"lastName"`
	Apellido     FlexString `json:"apellido"`
	Apellidos    FlexString `json:"apellidos"`
}

// Normalize converts the record into a Worker. The display name joins given
// name and surname and is NFC normalized.
func (r *RawWorker) Normalize() (Worker, error) {
	w := Worker{ID: first(r.ID, r.IDTrabajador)}
	if w.ID == "" {
		return Worker{}, normalizeError("worker record has no id", "")
	}

	parts := make([]string, 0, 2)
	if name := first(r.Name, r.Nombre); name != "" {
		parts = append(parts, name)
	}
	if lastName := first(r.LastName, r.Apellido, r.Apellidos); lastName != "" {
		parts = append(parts, lastName)
	}
	w.Name = norm.NFC.String(strings.Join(strings.Fields(strings.Join(parts, " ")), " "))
	return w, nil
}

// foldKey lowercases s and strips diacritics, so "Plazo_Fijo" and
// "plazo fijo" compare equal.
func foldKey(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(strings.TrimSpace(folded))
	return strings.NewReplacer("_", " ", "-", " ").Replace(folded)
}

var typeAliases = map[string]Type{
	"indefinite": TypeIndefinite,
	"indefinido": TypeIndefinite,
	"indefinida": TypeIndefinite,
	"permanent":  TypeIndefinite,
	"fixed term": TypeFixedTerm,
	"fixedterm":  TypeFixedTerm,
	"plazo fijo": TypeFixedTerm,
	"temporal":   TypeFixedTerm,
	"temporary":  TypeFixedTerm,
	"por obra":   TypeFixedTerm,
	"eventual":   TypeFixedTerm,
}

var statusAliases = map[string]Status{
	"active":     StatusActive,
	"activo":     StatusActive,
	"activa":     StatusActive,
	"vigente":    StatusActive,
	"finished":   StatusFinished,
	"finalizado": StatusFinished,
	"finalizada": StatusFinished,
	"terminado":  StatusFinished,
	"inactive":   StatusFinished,
	"inactivo":   StatusFinished,
	"expired":    StatusFinished,
	"vencido":    StatusFinished,
}

// ParseType maps English and Spanish contract type names to a Type
func ParseType(s string) (Type, bool) {
	t, ok := typeAliases[foldKey(s)]
	return t, ok
}

// ParseStatus maps English and Spanish status names to a Status.
// Numeric flags 1 and 0 are accepted as active and finished.
func ParseStatus(s string) (Status, bool) {
	key := foldKey(s)
	if b, err := strconv.ParseBool(key); err == nil {
		if b {
			return StatusActive, true
		}
		return StatusFinished, true
	}
	st, ok := statusAliases[key]
	return st, ok
}
