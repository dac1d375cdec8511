// Package loans provides fixed-payment amortization and inflation-indexed
// payment projections.
package loans

import (
	"math"

	"github.com/iwvelando/credit-simulator/pkg/constants"
	"github.com/iwvelando/credit-simulator/pkg/mathutil"
	"go.uber.org/zap"
)

// Row holds the values for a given period of an amortization schedule.
type Row struct {
	Period      int     `json:"period"`
	Installment float64 `json:"installment"`
	Principal   float64 `json:"principal"`
	Interest    float64 `json:"interest"`
	Balance     float64 `json:"balance"`
}

// FixedInstallment calculates the constant ("French system") installment for
// a principal, periodic rate and number of periods. It returns 0 when any
// input is not positive.
func FixedInstallment(principal, rate float64, term int) float64 {
	if !ready(principal, rate, term) {
		return 0
	}
	return principal * rate / discountComplement(rate, -float64(term))
}

// Schedule produces the fixed-payment amortization schedule. Any zero input
// yields an empty schedule: the form is not ready to compute yet.
//
// Balances use the closed form P·(1-(1+r)^(k-n))/(1-(1+r)^-n), so long terms
// never overflow and the final balance is exactly zero.
func Schedule(principal, rate float64, term int) []Row {
	if !ready(principal, rate, term) {
		return []Row{}
	}

	installment := FixedInstallment(principal, rate, term)
	denominator := discountComplement(rate, -float64(term))
	rows := make([]Row, 0, term)
	previous := principal
	for period := 1; period <= term; period++ {
		balance := principal * (discountComplement(rate, float64(period-term)) / denominator)
		if period == term {
			balance = 0
		}
		capital := previous - balance

		rows = append(rows, Row{
			Period:      period,
			Installment: installment,
			Principal:   capital,
			Interest:    installment - capital,
			Balance:     mathutil.FloorZero(balance),
		})
		previous = balance
	}
	return rows
}

// ScheduleFinite reports whether every amount in rows is a finite number.
func ScheduleFinite(rows []Row) bool {
	for _, row := range rows {
		if !mathutil.IsFinite(row.Installment) || !mathutil.IsFinite(row.Principal) ||
			!mathutil.IsFinite(row.Interest) || !mathutil.IsFinite(row.Balance) {
			return false
		}
	}
	return true
}

// discountComplement returns 1-(1+rate)^exponent for a non-positive exponent.
func discountComplement(rate, exponent float64) float64 {
	return -math.Expm1(exponent * math.Log1p(rate))
}

// Totals returns the sum of installments and of interest over a schedule.
func Totals(rows []Row) (paid, interest float64) {
	for _, row := range rows {
		paid += row.Installment
		interest += row.Interest
	}
	return paid, interest
}

// MonthlyRateFromAnnual converts an effective annual rate in percent (TEA)
// to the equivalent effective monthly rate as a fraction.
func MonthlyRateFromAnnual(effectiveAnnualPercent float64) float64 {
	if !mathutil.IsPositive(effectiveAnnualPercent) {
		return 0
	}
	return math.Pow(1+mathutil.FromPercent(effectiveAnnualPercent), 1.0/constants.MonthsPerYear) - 1
}

// NominalAnnualRate converts a monthly rate fraction to a nominal annual
// rate in percent (TNA).
func NominalAnnualRate(monthlyRate float64) float64 {
	return monthlyRate * constants.MonthsPerYear * constants.PercentageMultiplier
}

func ready(principal, rate float64, term int) bool {
	return mathutil.IsPositive(principal) && mathutil.IsPositive(rate) && term > 0
}

// ScheduleGenerator wraps Schedule with debug logging for service callers.
type ScheduleGenerator struct {
	logger *zap.Logger
}

// NewScheduleGenerator creates a new generator instance
func NewScheduleGenerator(logger *zap.Logger) *ScheduleGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleGenerator{logger: logger}
}

// Generate builds the schedule for a named loan.
func (g *ScheduleGenerator) Generate(name string, principal, rate float64, term int) []Row {
	rows := Schedule(principal, rate, term)
	if len(rows) == 0 {
		g.logger.Debug("skipping schedule for incomplete input",
			zap.String("op", "loans.Generate"),
			zap.String("loan", name),
			zap.Float64("principal", principal),
			zap.Float64("rate", rate),
			zap.Int("term", term),
		)
		return rows
	}

	paid, interest := Totals(rows)
	g.logger.Debug("generated amortization schedule",
		zap.String("op", "loans.Generate"),
		zap.String("loan", name),
		zap.Float64("installment", mathutil.Round(rows[0].Installment)),
		zap.Float64("totalPaid", mathutil.Round(paid)),
		zap.Float64("totalInterest", mathutil.Round(interest)),
		zap.Int("periods", len(rows)),
	)
	return rows
}
