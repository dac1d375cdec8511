package validation

import (
	"fmt"
	"net/mail"
	"strings"

	"github.com/iwvelando/credit-simulator/pkg/constants"
	"github.com/iwvelando/credit-simulator/pkg/credit"
	"github.com/iwvelando/credit-simulator/pkg/loans"
	"github.com/iwvelando/credit-simulator/pkg/mathutil"
)

// Applicant age limits outside which a profile is flagged.
const (
	MinApplicantAge = 18
	MaxApplicantAge = 100
)

// ValidateProfile returns advisory warnings for an applicant profile. It never
// rejects a profile; incomplete ones are reported so the caller can explain
// why no products were evaluated.
func ValidateProfile(profile credit.FormData) []string {
	var warnings []string

	if !credit.ValidFamily(profile.ProductType) {
		warnings = append(warnings, fmt.Sprintf("unknown product type %q, expected one of %s",
			profile.ProductType, strings.Join(credit.Families, ", ")))
	}
	if !mathutil.IsPositive(profile.Amount) {
		warnings = append(warnings, "requested amount is missing")
	}
	if !mathutil.IsPositive(profile.MonthlyIncome) {
		warnings = append(warnings, "monthly income is missing")
	}
	if profile.TermMonths <= 0 {
		warnings = append(warnings, "term is missing")
	}
	if profile.Age != 0 && (profile.Age < MinApplicantAge || profile.Age > MaxApplicantAge) {
		warnings = append(warnings, fmt.Sprintf("age %d is outside %d-%d", profile.Age, MinApplicantAge, MaxApplicantAge))
	}
	if profile.EmploymentMonths < 0 {
		warnings = append(warnings, "employment tenure cannot be negative")
	}

	secured := profile.ProductType == credit.Mortgage || profile.ProductType == credit.Collateralized
	switch {
	case secured && !mathutil.IsPositive(profile.AppraisalValue):
		warnings = append(warnings, "no appraisal value provided; loan-to-value limits were not checked")
	case secured && profile.AppraisalValue < profile.Amount:
		warnings = append(warnings, fmt.Sprintf("requested amount %.2f exceeds the appraisal value %.2f",
			profile.Amount, profile.AppraisalValue))
	}

	if inflation := profile.ExpectedInflation; inflation != nil {
		switch {
		case !loans.ValidInflation(*inflation):
			warnings = append(warnings, fmt.Sprintf(
				"expected inflation must be between %.0f%% and %.0f%%; UVA payments were not projected",
				constants.MinAnnualInflation, constants.MaxAnnualInflation))
		case *inflation < 0:
			warnings = append(warnings, "expected inflation is negative; UVA payments will be projected to fall")
		}
	}
	if profile.Email != "" {
		if _, err := mail.ParseAddress(profile.Email); err != nil {
			warnings = append(warnings, fmt.Sprintf("email %q is not valid; no notification will be sent", profile.Email))
		}
	}
	return warnings
}

// ValidEmail reports whether address can receive notifications.
func ValidEmail(address string) bool {
	if strings.TrimSpace(address) == "" {
		return false
	}
	_, err := mail.ParseAddress(address)
	return err == nil
}
