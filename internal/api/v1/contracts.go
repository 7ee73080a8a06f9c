package api

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/contractwatch/internal/contract"
	"github.com/tphakala/contractwatch/internal/dates"
	"github.com/tphakala/contractwatch/internal/errors"
	"github.com/tphakala/contractwatch/internal/expiry"
	"github.com/tphakala/contractwatch/internal/export"
	"github.com/tphakala/contractwatch/internal/state"
)

// ExpiringContract is one row of GET /contracts/expiring
type ExpiringContract struct {
	contract.Contract
	WorkerName     string `json:"workerName,omitempty"`
	EndDateDisplay string `json:"endDateDisplay"`
	DaysRemaining  int    `json:"daysRemaining"`
}

// ValidateContractRequest is the body of POST /contracts/validate
type ValidateContractRequest struct {
	WorkerID  string `json:"workerId"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate,omitempty"`
}

// GetExpiringContracts previews the contracts inside the expiry window. It
// never notifies and never writes the check marker.
func (c *Controller) GetExpiringContracts(ctx echo.Context) error {
	expiring, err := c.pipeline.Preview(ctx.Request().Context())
	if err != nil {
		return c.HandleError(ctx, err, "Contract store unavailable", 0)
	}

	names := c.pipeline.Names()
	rows := make([]ExpiringContract, 0, len(expiring))
	for _, e := range expiring {
		row := ExpiringContract{
			Contract:       e.Contract,
			EndDateDisplay: e.Contract.EndDateDisplay(),
			DaysRemaining:  e.DaysRemaining,
		}
		if names != nil {
			row.WorkerName, _ = names.Name(e.Contract.WorkerID)
		}
		rows = append(rows, row)
	}

	resp := map[string]any{
		"day":        dates.FormatISO(c.pipeline.Today()),
		"windowDays": c.pipeline.WindowDays(),
		"count":      len(rows),
		"contracts":  rows,
		"message":    expiry.Summarize(expiring, names),
	}
	if last, found, err := state.ReadMarker(c.pipeline.Store()); err == nil && found {
		resp["lastCheck"] = dates.FormatISO(last)
	}
	return ctx.JSON(http.StatusOK, resp)
}

// ExportExpiringContracts returns the expiring set as an XLSX download
func (c *Controller) ExportExpiringContracts(ctx echo.Context) error {
	expiring, err := c.pipeline.Preview(ctx.Request().Context())
	if err != nil {
		return c.HandleError(ctx, err, "Contract store unavailable", 0)
	}

	day := c.pipeline.Today()
	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, export.Report{Day: day, Expiring: expiring, Names: c.pipeline.Names()}); err != nil {
		return c.HandleError(ctx, err, "Failed to render export", http.StatusInternalServerError)
	}

	ctx.Response().Header().Set(echo.HeaderContentDisposition,
		`attachment; filename="`+export.Filename(day)+`"`)
	return ctx.Blob(http.StatusOK, export.ContentType, buf.Bytes())
}

// ValidateContract checks a candidate contract against the worker's active
// contracts. A rejected candidate answers 422 with a displayable message.
func (c *Controller) ValidateContract(ctx echo.Context) error {
	var req ValidateContractRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}

	candidate, err := req.candidate()
	if err != nil {
		return ctx.JSON(http.StatusUnprocessableEntity, map[string]any{
			"valid": false,
			"error": contract.UserMessage(err),
		})
	}

	err = c.pipeline.ValidateCandidate(ctx.Request().Context(), candidate)
	switch {
	case err == nil:
		return ctx.JSON(http.StatusOK, map[string]any{"valid": true})
	case errors.IsCategory(err, errors.CategoryValidation):
		resp := map[string]any{
			"valid": false,
			"error": contract.UserMessage(err),
		}
		if id := contract.ConflictingContractID(err); id != "" {
			resp["conflictingContractId"] = id
		}
		return ctx.JSON(http.StatusUnprocessableEntity, resp)
	default:
		return c.HandleError(ctx, err, "Contract store unavailable", 0)
	}
}

func (r *ValidateContractRequest) candidate() (contract.Candidate, error) {
	cand := contract.Candidate{WorkerID: strings.TrimSpace(r.WorkerID)}

	if s := strings.TrimSpace(r.StartDate); s != "" {
		start, err := dates.Parse(s)
		if err != nil {
			return cand, invalidDate("start date", s)
		}
		cand.Start = start
	}
	if s := strings.TrimSpace(r.EndDate); s != "" {
		end, err := dates.Parse(s)
		if err != nil {
			return cand, invalidDate("end date", s)
		}
		cand.End = &end
	}
	return cand, nil
}

func invalidDate(field, value string) error {
	return errors.Newf("%s %s is not a valid date", field, strconv.Quote(value)).
		Component("api").
		Category(errors.CategoryValidation).
		Context("field", field).
		Build()
}
