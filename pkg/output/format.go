// Package output renders simulation analyses for terminals and spreadsheets.
package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/message"

	"github.com/iwvelando/credit-simulator/pkg/constants"
	"github.com/iwvelando/credit-simulator/pkg/credit"
	"github.com/iwvelando/credit-simulator/pkg/format"
	"github.com/iwvelando/credit-simulator/pkg/loans"
	"github.com/iwvelando/credit-simulator/pkg/validation"
)

// Write renders analysis to w in the named output format.
func Write(w io.Writer, outputFormat string, analysis credit.Analysis, locale format.Locale) error {
	if err := validation.ValidateOutputFormat(outputFormat); err != nil {
		return err
	}
	if outputFormat == constants.OutputFormatCSV {
		return CsvFormat(w, analysis)
	}
	return PrettyFormat(w, analysis, locale)
}

// PrettyFormat outputs a human-readable rather than machine-readable table.
func PrettyFormat(w io.Writer, analysis credit.Analysis, locale format.Locale) error {
	p := message.NewPrinter(locale.Tag)
	ew := &errWriter{w: w}
	money := func(v float64) string { return locale.Money(v, constants.CurrencyARS) }

	title := analysis.ReferenceCode
	if title == "" {
		title = "(not saved)"
	}
	ew.printf("--- Simulation %s ---\n", title)
	profile := analysis.Profile
	ew.printf("Product: %s | Amount: %s | Income: %s | Term: %s months\n",
		profile.ProductType, money(profile.Amount), money(profile.MonthlyIncome), p.Sprint(profile.TermMonths))
	for _, warning := range analysis.Warnings {
		ew.printf("Warning: %s\n", warning)
	}

	ew.printf("\n--- Offers (%d) ---\n", len(analysis.Offers))
	ew.printf("Offer | Institution | Payment | %% Income | TNA | CFT | Notes\n")
	ew.printf("_____ | ___________ | _______ | ________ | ___ | ___ | _____\n")
	for _, offer := range analysis.Offers {
		var notes []string
		if offer.UVA {
			notes = append(notes, "UVA")
		}
		if c := offer.Converted; c != nil && c.RequiresConversion {
			notes = append(notes, "approx. "+locale.Money(c.ConvertedAmount, string(c.To)))
		}
		notes = append(notes, offer.Observations...)
		ew.printf("%s | %s | %s | %s | %s | %s | %s\n",
			offer.ID, offer.InstitutionName, money(offer.MonthlyPayment),
			locale.Percent(offer.PaymentToIncome, 2), locale.Percent(offer.NominalRate, 2),
			locale.Percent(offer.CFT, 2), strings.Join(notes, "; "))
	}

	for _, offer := range analysis.Offers {
		if len(offer.Schedule) > 0 {
			ew.printf("\n--- Amortization for %s ---\n", offer.ID)
			ew.printf("Period | Installment | Principal | Interest | Balance\n")
			ew.printf("______ | ___________ | _________ | ________ | _______\n")
			for _, row := range offer.Schedule {
				ew.printf("%s | %s | %s | %s | %s\n", p.Sprint(row.Period),
					money(row.Installment), money(row.Principal), money(row.Interest), money(row.Balance))
			}
		}
		if len(offer.Projection) > 0 {
			ew.printf("\n--- UVA projection for %s ---\n", offer.ID)
			ew.printf("Period | Payment | %% Income\n")
			ew.printf("______ | _______ | ________\n")
			for _, row := range offer.Projection {
				ew.printf("%s | %s | %s\n", p.Sprint(row.Period), money(row.Payment), locale.Percent(row.PercentOfIncome, 2))
			}
			if s := offer.ProjectionSummary; s != nil && s.BreachPeriod > 0 {
				ew.printf("Payment exceeds the income limit from period %d\n", s.BreachPeriod)
			}
		}
	}

	if len(analysis.Skipped) > 0 {
		ew.printf("\n--- Skipped (%d) ---\n", len(analysis.Skipped))
		for _, skip := range analysis.Skipped {
			ew.printf("%s: %s", skip.ID, skip.Reason)
			if skip.Detail != "" {
				ew.printf(" (%s)", skip.Detail)
			}
			ew.printf("\n")
		}
	}
	return ew.err
}

var offerHeader = []string{
	"id", "institution", "denomination", "monthly_payment", "payment_to_income",
	"nominal_rate", "effective_rate", "cft", "max_term_months", "ltv", "uva",
	"exceeds_income_ratio", "observations",
}

// CsvFormat outputs the offers of an analysis in comma-separated value format.
func CsvFormat(w io.Writer, analysis credit.Analysis) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(offerHeader); err != nil {
		return err
	}
	for _, offer := range analysis.Offers {
		ltv := ""
		if offer.LTV != nil {
			ltv = decimal(*offer.LTV)
		}
		record := []string{
			offer.ID,
			offer.InstitutionName,
			offer.Denomination,
			decimal(offer.MonthlyPayment),
			decimal(offer.PaymentToIncome),
			decimal(offer.NominalRate),
			decimal(offer.EffectiveRate),
			decimal(offer.CFT),
			strconv.Itoa(offer.MaxTermMonths),
			ltv,
			strconv.FormatBool(offer.UVA),
			strconv.FormatBool(offer.ExceedsIncomeRatio),
			strings.Join(offer.Observations, "; "),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ScheduleCsv outputs an amortization schedule in comma-separated value format.
func ScheduleCsv(w io.Writer, rows []loans.Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"period", "installment", "principal", "interest", "balance"}); err != nil {
		return err
	}
	for _, row := range rows {
		record := []string{
			strconv.Itoa(row.Period),
			decimal(row.Installment),
			decimal(row.Principal),
			decimal(row.Interest),
			decimal(row.Balance),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func decimal(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// errWriter keeps the first write error so rendering code can stay linear.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(layout string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, layout, args...)
}
