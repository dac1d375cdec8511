package loans

import (
	"math"

	"github.com/iwvelando/credit-simulator/pkg/constants"
	"github.com/iwvelando/credit-simulator/pkg/mathutil"
)

// UVAProjection is one period of an inflation-indexed payment projection.
type UVAProjection struct {
	Period          int     `json:"period"`
	Payment         float64 `json:"payment"`
	PercentOfIncome float64 `json:"percentOfIncome"`
}

// ProjectUVA grows an initial payment at a constant monthly inflation derived
// from the annual rate in percent, tracking each payment against a fixed
// income. A non-positive income reports a zero ratio.
func ProjectUVA(initialPayment, annualInflationPct float64, term int, income float64) []UVAProjection {
	if term <= 0 {
		return []UVAProjection{}
	}

	monthly := annualInflationPct / constants.PercentageMultiplier / constants.MonthsPerYear
	rows := make([]UVAProjection, 0, term)
	for period := 1; period <= term; period++ {
		payment := initialPayment * math.Pow(1+monthly, float64(period-1))
		ratio := 0.0
		if income > 0 {
			ratio = mathutil.Percentage(payment, income)
		}
		rows = append(rows, UVAProjection{
			Period:          period,
			Payment:         payment,
			PercentOfIncome: ratio,
		})
	}
	return rows
}

// ValidInflation reports whether an expected annual inflation in percent is
// finite and within the range projections accept.
func ValidInflation(annualInflationPct float64) bool {
	return mathutil.IsFinite(annualInflationPct) &&
		annualInflationPct >= constants.MinAnnualInflation &&
		annualInflationPct <= constants.MaxAnnualInflation
}

// ProjectionFinite reports whether every payment, income ratio and their
// running total in rows are finite numbers.
func ProjectionFinite(rows []UVAProjection) bool {
	total := 0.0
	for _, row := range rows {
		total += row.Payment
		if !mathutil.IsFinite(row.Payment) || !mathutil.IsFinite(row.PercentOfIncome) || !mathutil.IsFinite(total) {
			return false
		}
	}
	return true
}

// UVASummary condenses a projection for display.
type UVASummary struct {
	FirstPayment   float64 `json:"firstPayment"`
	LastPayment    float64 `json:"lastPayment"`
	PeakPercent    float64 `json:"peakPercent"`
	BreachPeriod   int     `json:"breachPeriod,omitempty"` // first period above the threshold, 0 if none
	TotalProjected float64 `json:"totalProjected"`
}

// SummarizeUVA returns the first and last payment, the peak income ratio and
// the first period whose ratio exceeds threshold percent.
func SummarizeUVA(rows []UVAProjection, threshold float64) UVASummary {
	var summary UVASummary
	if len(rows) == 0 {
		return summary
	}
	summary.FirstPayment = rows[0].Payment
	summary.LastPayment = rows[len(rows)-1].Payment
	for _, row := range rows {
		summary.TotalProjected += row.Payment
		if row.PercentOfIncome > summary.PeakPercent {
			summary.PeakPercent = row.PercentOfIncome
		}
		if summary.BreachPeriod == 0 && threshold > 0 && row.PercentOfIncome > threshold {
			summary.BreachPeriod = row.Period
		}
	}
	return summary
}
