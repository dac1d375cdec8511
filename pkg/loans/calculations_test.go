package loans

import (
	"math"
	"testing"

	"go.uber.org/zap"
)

func TestFixedInstallment(t *testing.T) {
	tests := []struct {
		name          string
		principal     float64
		rate          float64
		term          int
		expectedRange []float64 // [min, max] expected range
	}{
		{
			name:          "Twelve months at two percent",
			principal:     100000,
			rate:          0.02,
			term:          12,
			expectedRange: []float64{9455.95, 9455.97},
		},
		{
			name:          "Standard 30-year mortgage",
			principal:     175000,
			rate:          0.045 / 12,
			term:          360,
			expectedRange: []float64{886.69, 886.71},
		},
		{
			name:          "High interest personal loan",
			principal:     10000,
			rate:          0.18 / 12,
			term:          36,
			expectedRange: []float64{360, 380},
		},
		{
			name:          "Zero rate is not ready",
			principal:     12000,
			rate:          0,
			term:          60,
			expectedRange: []float64{0, 0},
		},
		{
			name:          "Zero principal is not ready",
			principal:     0,
			rate:          0.01,
			term:          60,
			expectedRange: []float64{0, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FixedInstallment(tt.principal, tt.rate, tt.term)
			if result < tt.expectedRange[0] || result > tt.expectedRange[1] {
				t.Errorf("FixedInstallment() = %.4f, expected range [%.2f, %.2f]",
					result, tt.expectedRange[0], tt.expectedRange[1])
			}
		})
	}
}

func TestScheduleExample(t *testing.T) {
	rows := Schedule(100000, 0.02, 12)
	if len(rows) != 12 {
		t.Fatalf("expected 12 rows, got %d", len(rows))
	}

	first := rows[0]
	if first.Period != 1 {
		t.Errorf("expected first period 1, got %d", first.Period)
	}
	checks := []struct {
		name     string
		got      float64
		expected float64
	}{
		{"installment", first.Installment, 9455.96},
		{"interest", first.Interest, 2000.00},
		{"principal", first.Principal, 7455.96},
		{"balance", first.Balance, 92544.04},
	}
	for _, c := range checks {
		if math.Abs(c.got-c.expected) > 0.01 {
			t.Errorf("first row %s = %.4f, expected %.2f", c.name, c.got, c.expected)
		}
	}

	if last := rows[len(rows)-1]; last.Balance != 0 {
		t.Errorf("expected last balance exactly 0, got %v", last.Balance)
	}
}

func TestScheduleInvariants(t *testing.T) {
	tests := []struct {
		name      string
		principal float64
		rate      float64
		term      int
	}{
		{"Single period", 5000, 0.03, 1},
		{"Short personal loan", 250000, 0.045, 24},
		{"Mortgage", 30000000, 0.0035, 240},
		{"Thirty years", 175000, 0.00375, 360},
		{"Tiny rate", 1000, 0.000001, 12},
		{"Large rate", 1000, 0.5, 48},
		{"Large rate over a long term", 1000, 0.5, 2000},
		{"Hundred years monthly", 30000000, 0.04, 1200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := Schedule(tt.principal, tt.rate, tt.term)
			if len(rows) != tt.term {
				t.Fatalf("expected %d rows, got %d", tt.term, len(rows))
			}

			if !ScheduleFinite(rows) {
				t.Fatalf("schedule contains non-finite amounts: first row %+v", rows[0])
			}

			sumPrincipal := 0.0
			previous := tt.principal
			for i, row := range rows {
				if row.Period != i+1 {
					t.Errorf("row %d has period %d", i, row.Period)
				}
				if row.Balance > previous {
					t.Errorf("balance increased at period %d: %.4f > %.4f", row.Period, row.Balance, previous)
				}
				if row.Balance < 0 {
					t.Errorf("negative balance at period %d: %v", row.Period, row.Balance)
				}
				if math.Abs(row.Installment-rows[0].Installment) > 1e-9 {
					t.Errorf("installment changed at period %d", row.Period)
				}
				previous = row.Balance
				sumPrincipal += row.Principal
			}

			if math.Abs(sumPrincipal-tt.principal) > 0.01 {
				t.Errorf("sum of principal = %.4f, expected %.2f", sumPrincipal, tt.principal)
			}
			if rows[len(rows)-1].Balance != 0 {
				t.Errorf("expected terminal balance 0, got %v", rows[len(rows)-1].Balance)
			}
		})
	}
}

func TestScheduleIncompleteInput(t *testing.T) {
	tests := []struct {
		name      string
		principal float64
		rate      float64
		term      int
	}{
		{"Zero principal", 0, 0.02, 12},
		{"Zero rate", 100000, 0, 12},
		{"Zero term", 100000, 0.02, 0},
		{"Negative term", 100000, 0.02, -3},
		{"NaN rate", 100000, math.NaN(), 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := Schedule(tt.principal, tt.rate, tt.term)
			if rows == nil {
				t.Fatal("expected an empty, non-nil schedule")
			}
			if len(rows) != 0 {
				t.Errorf("expected empty schedule, got %d rows", len(rows))
			}
		})
	}
}

func TestFixedInstallmentLongTerm(t *testing.T) {
	// (1.5)^2000 does not fit in a float64; the installment tends to P·r.
	got := FixedInstallment(1000, 0.5, 2000)
	if math.IsNaN(got) || math.Abs(got-500) > 1e-9 {
		t.Errorf("FixedInstallment(1000, 0.5, 2000) = %v, expected 500", got)
	}
}

func TestScheduleFinite(t *testing.T) {
	if !ScheduleFinite(Schedule(1000, 0.01, 12)) {
		t.Error("expected a regular schedule to be finite")
	}
	if !ScheduleFinite(nil) {
		t.Error("expected an empty schedule to be finite")
	}
	rows := []Row{{Period: 1, Installment: math.NaN()}}
	if ScheduleFinite(rows) {
		t.Error("expected NaN installment to be rejected")
	}
	rows = []Row{{Period: 1, Balance: math.Inf(1)}}
	if ScheduleFinite(rows) {
		t.Error("expected infinite balance to be rejected")
	}
}

func TestScheduleIsDeterministic(t *testing.T) {
	a := Schedule(80000, 0.015, 36)
	b := Schedule(80000, 0.015, 36)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("row %d differs between identical runs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

// referenceRow is one payment from a published amortization table for
// 175,000 at 4.5% nominal over 360 months.
type referenceRow struct {
	Period    int
	Payment   float64
	Principal float64
	Interest  float64
	Balance   float64
}

func TestScheduleAgainstReferenceTable(t *testing.T) {
	reference := []referenceRow{
		{1, 886.70, 230.45, 656.25, 174769.55},
		{2, 886.70, 231.31, 655.39, 174538.24},
		{12, 886.70, 240.14, 646.56, 172176.85},
		{24, 886.70, 251.17, 635.53, 169224.01},
		{60, 886.70, 287.40, 599.30, 159526.36},
		{120, 886.70, 359.76, 526.94, 140156.51},
		{240, 886.70, 563.75, 322.95, 85557.02},
		{359, 886.70, 880.09, 6.61, 883.39},
		{360, 886.70, 883.39, 3.31, 0.00},
	}

	rows := Schedule(175000, 0.045/12, 360)
	tolerance := 0.50
	for _, ref := range reference {
		row := rows[ref.Period-1]
		if math.Abs(row.Installment-ref.Payment) > tolerance ||
			math.Abs(row.Principal-ref.Principal) > tolerance ||
			math.Abs(row.Interest-ref.Interest) > tolerance ||
			math.Abs(row.Balance-ref.Balance) > tolerance {
			t.Errorf("period %d = %+v, expected %+v", ref.Period, row, ref)
		}
	}
}

func TestTotals(t *testing.T) {
	rows := Schedule(100000, 0.02, 12)
	paid, interest := Totals(rows)
	if math.Abs(paid-9455.96*12) > 0.1 {
		t.Errorf("total paid = %.2f", paid)
	}
	if math.Abs(paid-interest-100000) > 0.01 {
		t.Errorf("paid - interest = %.4f, expected principal", paid-interest)
	}

	paid, interest = Totals(nil)
	if paid != 0 || interest != 0 {
		t.Errorf("expected zero totals for empty schedule")
	}
}

func TestRateConversions(t *testing.T) {
	monthly := MonthlyRateFromAnnual(12.682503)
	if math.Abs(monthly-0.01) > 1e-6 {
		t.Errorf("MonthlyRateFromAnnual(12.68) = %.8f, expected 0.01", monthly)
	}
	if got := MonthlyRateFromAnnual(0); got != 0 {
		t.Errorf("MonthlyRateFromAnnual(0) = %v, expected 0", got)
	}
	if got := MonthlyRateFromAnnual(-5); got != 0 {
		t.Errorf("MonthlyRateFromAnnual(-5) = %v, expected 0", got)
	}
	if got := NominalAnnualRate(0.01); math.Abs(got-12) > 1e-9 {
		t.Errorf("NominalAnnualRate(0.01) = %v, expected 12", got)
	}
}

func TestScheduleGenerator(t *testing.T) {
	generator := NewScheduleGenerator(zap.NewNop())
	if rows := generator.Generate("mortgage", 100000, 0.02, 12); len(rows) != 12 {
		t.Errorf("expected 12 rows, got %d", len(rows))
	}
	if rows := generator.Generate("incomplete", 0, 0.02, 12); len(rows) != 0 {
		t.Errorf("expected no rows, got %d", len(rows))
	}

	// A nil logger must not panic.
	if rows := NewScheduleGenerator(nil).Generate("nil logger", 1000, 0.01, 2); len(rows) != 2 {
		t.Errorf("expected 2 rows, got %d", len(rows))
	}
}
