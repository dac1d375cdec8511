package credit

import (
	"fmt"
	"sort"
	"strings"

	"github.com/iwvelando/credit-simulator/pkg/constants"
	"github.com/iwvelando/credit-simulator/pkg/loans"
	"github.com/iwvelando/credit-simulator/pkg/mathutil"
)

// Evaluator filters and prices catalog products for an applicant.
type Evaluator struct {
	rules *RuleEngine
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithRules enables per-product eligibility expressions.
func WithRules(engine *RuleEngine) Option {
	return func(e *Evaluator) { e.rules = engine }
}

// NewEvaluator creates an evaluator.
func NewEvaluator(opts ...Option) *Evaluator {
	e := &Evaluator{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate evaluates profile against catalog using an evaluator without
// eligibility rules.
func Evaluate(profile FormData, catalog Catalog) Evaluation {
	return NewEvaluator().Evaluate(profile, catalog)
}

// Evaluate returns the products of the profile's family the applicant
// qualifies for, sorted by monthly payment, plus the reasons the others were
// skipped. It never fails: an incomplete profile yields an empty evaluation
// and malformed products are skipped.
func (e *Evaluator) Evaluate(profile FormData, catalog Catalog) Evaluation {
	evaluation := Evaluation{Results: []Result{}}
	if !Ready(profile) {
		return evaluation
	}

	for _, product := range catalog[profile.ProductType] {
		if reason, detail := e.disqualify(profile, product); reason != "" {
			evaluation.Skipped = append(evaluation.Skipped, Skip{
				ID:     ResultID(product.InstitutionCode, product.ID),
				Reason: reason,
				Detail: detail,
			})
			continue
		}
		evaluation.Results = append(evaluation.Results, price(profile, product))
	}

	sort.SliceStable(evaluation.Results, func(i, j int) bool {
		a, b := evaluation.Results[i], evaluation.Results[j]
		if a.MonthlyPayment != b.MonthlyPayment {
			return a.MonthlyPayment < b.MonthlyPayment
		}
		return a.ID < b.ID
	})
	return evaluation
}

// Ready reports whether profile has every numeric field evaluation needs.
// An unready profile is not an error, only an unfinished form.
func Ready(profile FormData) bool {
	return ValidFamily(profile.ProductType) &&
		mathutil.IsPositive(profile.Amount) &&
		mathutil.IsPositive(profile.MonthlyIncome) &&
		profile.TermMonths > 0
}

func securedFamily(family string) bool {
	return family == Mortgage || family == Collateralized
}

// missingField names the first required catalog field that is absent.
func missingField(family string, product Product) string {
	switch {
	case strings.TrimSpace(product.ID) == "":
		return "id"
	case strings.TrimSpace(product.InstitutionCode) == "":
		return "institutionCode"
	case !mathutil.IsPositive(product.MaxTEA):
		return "maxTea"
	case product.MaxTermMonths <= 0:
		return "maxTermMonths"
	case securedFamily(family) && !mathutil.IsPositive(product.MaxAmount):
		return "maxAmount"
	case family == Mortgage && product.MaxAge <= 0:
		return "maxAge"
	}
	return ""
}

func (e *Evaluator) disqualify(profile FormData, product Product) (string, string) {
	family := profile.ProductType
	if field := missingField(family, product); field != "" {
		return ReasonCatalogFieldMissing, field
	}

	if profile.MonthlyIncome < product.MinIncome {
		return ReasonIncome, fmt.Sprintf("income %.2f below %.2f", profile.MonthlyIncome, product.MinIncome)
	}
	if profile.EmploymentMonths < product.MinTenureMonths {
		return ReasonTenure, fmt.Sprintf("tenure %d months below %d", profile.EmploymentMonths, product.MinTenureMonths)
	}
	if profile.TermMonths > product.MaxTermMonths {
		return ReasonTerm, fmt.Sprintf("term %d months above %d", profile.TermMonths, product.MaxTermMonths)
	}
	if securedFamily(family) && (profile.Amount < product.MinAmount || profile.Amount > product.MaxAmount) {
		return ReasonAmount, fmt.Sprintf("amount %.2f outside [%.2f, %.2f]", profile.Amount, product.MinAmount, product.MaxAmount)
	}
	if family == Mortgage {
		ageAtEnd := float64(profile.Age) + float64(profile.TermMonths)/constants.MonthsPerYear
		if ageAtEnd > float64(product.MaxAge) {
			return ReasonAge, fmt.Sprintf("age at term end %.1f above %d", ageAtEnd, product.MaxAge)
		}
	}
	if securedFamily(family) && mathutil.IsPositive(profile.AppraisalValue) {
		if !mathutil.IsPositive(product.MaxLTV) {
			return ReasonCatalogFieldMissing, "maxLtv"
		}
		ltv := mathutil.Percentage(profile.Amount, profile.AppraisalValue)
		if ltv > product.MaxLTV {
			return ReasonLTV, fmt.Sprintf("loan-to-value %.2f%% above %.2f%%", ltv, product.MaxLTV)
		}
	}
	if e.rules != nil && strings.TrimSpace(product.Eligibility) != "" {
		ok, err := e.rules.Eligible(product.Eligibility, profile, product)
		if err != nil {
			return ReasonRule, err.Error()
		}
		if !ok {
			return ReasonRule, product.Eligibility
		}
	}
	return "", ""
}

// IsUVA reports whether a product is inflation-indexed, by a case-insensitive
// match of "UVA" anywhere in its denomination.
func IsUVA(product Product) bool {
	return strings.Contains(strings.ToUpper(product.Denomination), "UVA")
}

func price(profile FormData, product Product) Result {
	monthlyRate := loans.MonthlyRateFromAnnual(product.MaxTEA)
	payment := loans.FixedInstallment(profile.Amount, monthlyRate, profile.TermMonths)
	ratio := mathutil.Percentage(payment, profile.MonthlyIncome)

	result := Result{
		ID:              ResultID(product.InstitutionCode, product.ID),
		ProductID:       product.ID,
		InstitutionCode: product.InstitutionCode,
		InstitutionName: product.InstitutionName,
		Denomination:    product.Denomination,
		Family:          profile.ProductType,
		MonthlyPayment:  payment,
		PaymentToIncome: ratio,
		MonthlyRate:     monthlyRate,
		NominalRate:     loans.NominalAnnualRate(monthlyRate),
		EffectiveRate:   product.MaxTEA,
		CFT:             product.MaxCFT,
		MaxTermMonths:   product.MaxTermMonths,
		UVA:             IsUVA(product),
	}

	if securedFamily(profile.ProductType) && mathutil.IsPositive(profile.AppraisalValue) {
		ltv := mathutil.Percentage(profile.Amount, profile.AppraisalValue)
		result.LTV = &ltv
	}
	if mathutil.IsPositive(product.PaymentPer100k) {
		result.ReferencePayment = product.PaymentPer100k * profile.Amount / constants.ReferenceAmountUnit
	}
	if mathutil.IsPositive(product.MaxPaymentToIncome) && ratio > product.MaxPaymentToIncome {
		result.ExceedsIncomeRatio = true
		result.Observations = append(result.Observations,
			fmt.Sprintf("payment is %.2f%% of income, above the %.2f%% allowed", ratio, product.MaxPaymentToIncome))
	}
	if result.UVA {
		if profile.ExpectedInflation == nil || !loans.ValidInflation(*profile.ExpectedInflation) {
			result.Observations = append(result.Observations,
				"payment is UVA-indexed and will grow with inflation")
		} else {
			result.Observations = append(result.Observations,
				fmt.Sprintf("payment is UVA-indexed; projected with %.2f%% annual inflation", *profile.ExpectedInflation))
		}
	}
	return result
}
