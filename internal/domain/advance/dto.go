package advance

import (
	"time"

	"github.com/cmlabs-hris/hris-payroll-engine/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

type CreateAdvanceRequest struct {
	EmployeeID  string          `json:"employee_id"`
	Amount      decimal.Decimal `json:"amount"`
	AdvanceDate string          `json:"advance_date"`
	ForMonth    string          `json:"for_month"`
	Note        *string         `json:"note,omitempty"`
}

func (r *CreateAdvanceRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeID) {
		errs.Add("employee_id", "employee_id is required")
	}
	if !r.Amount.IsPositive() {
		errs.Add("amount", "amount must be greater than zero")
	}
	if _, ok := validator.IsValidDate(r.AdvanceDate); !ok {
		errs.Add("advance_date", "advance_date must be in YYYY-MM-DD format")
	}
	if r.ForMonth != "" {
		if _, err := time.Parse("2006-01", r.ForMonth); err != nil {
			errs.Add("for_month", "for_month must be in YYYY-MM format")
		}
	}

	return errs.Err()
}

type EntryResponse struct {
	ID               string          `json:"id"`
	EmployeeID       string          `json:"employee_id"`
	Amount           decimal.Decimal `json:"amount"`
	RemainingBalance decimal.Decimal `json:"remaining_balance"`
	Status           Status          `json:"status"`
	AdvanceDate      string          `json:"advance_date"`
	ForMonth         string          `json:"for_month"`
	Note             *string         `json:"note,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

func ToEntryResponse(e Entry) EntryResponse {
	return EntryResponse{
		ID:               e.ID,
		EmployeeID:       e.EmployeeID,
		Amount:           e.Amount,
		RemainingBalance: e.RemainingBalance,
		Status:           e.Status,
		AdvanceDate:      e.AdvanceDate.Format("2006-01-02"),
		ForMonth:         e.ForMonth,
		Note:             e.Note,
		CreatedAt:        e.CreatedAt,
	}
}

type EmployeeLedgerResponse struct {
	EmployeeID         string          `json:"employee_id"`
	OutstandingBalance decimal.Decimal `json:"outstanding_balance"`
	Entries            []EntryResponse `json:"entries"`
}
