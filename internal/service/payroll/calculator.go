package payroll

import (
	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/payroll"
	"github.com/shopspring/decimal"
)

const moneyPlaces = 2

var (
	hoursPerDay          = decimal.NewFromInt(8)
	minutesPerHour       = decimal.NewFromInt(60)
	hundred              = decimal.NewFromInt(100)
	maxAdvanceShareOfPay = decimal.RequireFromString("0.5")
)

// SalaryCalculator derives a salary from its input snapshot. It holds no
// state; the same input always yields the same result.
type SalaryCalculator struct {
}

func NewSalaryCalculator() *SalaryCalculator {
	return &SalaryCalculator{}
}

// Calculate applies the payroll formula. Intermediate values keep full
// precision; outputs are rounded half-up to 2 places and net payable is taken
// from the rounded after-tax salary and advance deduction.
func (c *SalaryCalculator) Calculate(in payroll.CalculationInput) payroll.CalculationResult {
	salaryForPresent, perHour, perMinute := c.rates(in)

	otRate := in.EmployeeOTRate
	if !otRate.IsPositive() {
		otRate = perHour
	}
	otCharges := in.OTHours.Mul(otRate)
	lateDeduction := decimal.NewFromInt(int64(in.LateMinutes)).Mul(perMinute)

	gross := salaryForPresent.Add(otCharges).Add(in.Incentive).Sub(lateDeduction)

	tdsRate := in.EmployeeTDSRate
	if !tdsRate.IsPositive() {
		tdsRate = in.PeriodTDSRate
	}
	tdsAmount := gross.Mul(tdsRate).Div(hundred)
	afterTDS := gross.Sub(tdsAmount)

	afterTDSRounded := afterTDS.Round(moneyPlaces)
	advance, balance := c.advanceDeduction(in, afterTDS, afterTDSRounded)

	net := afterTDSRounded.Sub(advance)
	if net.IsNegative() {
		net = decimal.Zero
	}

	return payroll.CalculationResult{
		SalaryForPresentDays:    salaryForPresent.Round(moneyPlaces),
		OTCharges:               otCharges.Round(moneyPlaces),
		LateDeduction:           lateDeduction.Round(moneyPlaces),
		GrossSalary:             gross.Round(moneyPlaces),
		AppliedTDSRate:          tdsRate,
		TDSAmount:               tdsAmount.Round(moneyPlaces),
		SalaryAfterTDS:          afterTDSRounded,
		AdvanceDeductionAmount:  advance,
		RemainingAdvanceBalance: balance.Sub(advance),
		NetPayable:              net,
	}
}

// Recalculate re-derives the outputs of a stored salary from its snapshot.
func (c *SalaryCalculator) Recalculate(s payroll.CalculatedSalary) payroll.CalculationResult {
	return c.Calculate(s.CalculationInput)
}

// rates returns salary for present days and the per-hour and per-minute rates.
// Without working days the full basic salary is paid and both rates are zero.
func (c *SalaryCalculator) rates(in payroll.CalculationInput) (salaryForPresent, perHour, perMinute decimal.Decimal) {
	if in.TotalWorkingDays <= 0 {
		return in.BasicSalary, decimal.Zero, decimal.Zero
	}

	wd := decimal.NewFromInt(int64(in.TotalWorkingDays))
	dailyRate := in.BasicSalary.Div(wd)
	perHour = in.BasicSalary.Div(wd.Mul(hoursPerDay))
	return dailyRate.Mul(in.PresentDays), perHour, perHour.Div(minutesPerHour)
}

// advanceDeduction is min(balance, half of after-tax pay, after-tax pay), or
// the manual override. Either way the result stays within [0, min(after-tax
// pay, balance)].
func (c *SalaryCalculator) advanceDeduction(in payroll.CalculationInput, afterTDS, afterTDSRounded decimal.Decimal) (advance, balance decimal.Decimal) {
	balance = in.OutstandingAdvanceBalance.Round(moneyPlaces)
	if balance.IsNegative() {
		balance = decimal.Zero
	}

	if in.AdvanceDeductionOverride != nil {
		advance = in.AdvanceDeductionOverride.Round(moneyPlaces)
	} else {
		advance = decimal.Min(balance, afterTDS.Mul(maxAdvanceShareOfPay), afterTDS).Round(moneyPlaces)
	}

	advance = decimal.Min(advance, afterTDSRounded, balance)
	if advance.IsNegative() {
		advance = decimal.Zero
	}
	return advance, balance
}
