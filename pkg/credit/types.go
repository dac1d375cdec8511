// Package credit evaluates a catalog of loan products against an applicant
// profile and produces comparable results.
package credit

import "github.com/iwvelando/credit-simulator/pkg/constants"

// Product families accepted in FormData.ProductType.
const (
	Mortgage       = constants.FamilyMortgage
	Personal       = constants.FamilyPersonal
	Collateralized = constants.FamilyCollateralized
)

// Families lists every supported product family.
var Families = []string{Mortgage, Personal, Collateralized}

// FormData is the applicant profile. AppraisalValue of zero means no
// appraisal was provided; a nil ExpectedInflation means no expectation.
type FormData struct {
	ProductType       string   `json:"productType"`
	Amount            float64  `json:"amount"`
	MonthlyIncome     float64  `json:"monthlyIncome"`
	Age               int      `json:"age"`
	EmploymentMonths  int      `json:"employmentMonths"`
	TermMonths        int      `json:"termMonths"`
	AppraisalValue    float64  `json:"appraisalValue,omitempty"`
	ExpectedInflation *float64 `json:"expectedInflation,omitempty"` // annual percent
	Email             string   `json:"email,omitempty"`
}

// Product is a catalog entry. Rates and ratios are percentages.
type Product struct {
	ID                 string  `json:"id"`
	Denomination       string  `json:"denomination"`
	Family             string  `json:"family"`
	InstitutionCode    string  `json:"institutionCode"`
	InstitutionName    string  `json:"institutionName"`
	MinIncome          float64 `json:"minIncome"`
	MinTenureMonths    int     `json:"minTenureMonths"`
	MaxPaymentToIncome float64 `json:"maxPaymentToIncome"`
	MaxTEA             float64 `json:"maxTea"`
	MaxCFT             float64 `json:"maxCft"`
	MinAmount          float64 `json:"minAmount,omitempty"`
	MaxAmount          float64 `json:"maxAmount,omitempty"`
	MaxTermMonths      int     `json:"maxTermMonths"`
	MaxAge             int     `json:"maxAge,omitempty"`
	MaxLTV             float64 `json:"maxLtv,omitempty"`
	PaymentPer100k     float64 `json:"paymentPer100k,omitempty"`
	Eligibility        string  `json:"eligibility,omitempty"` // optional CEL expression
}

// Catalog holds products partitioned by family.
type Catalog map[string][]Product

// Result is the evaluation of one qualifying product.
type Result struct {
	ID                 string   `json:"id"`
	ProductID          string   `json:"productId"`
	InstitutionCode    string   `json:"institutionCode"`
	InstitutionName    string   `json:"institutionName"`
	Denomination       string   `json:"denomination"`
	Family             string   `json:"family"`
	MonthlyPayment     float64  `json:"monthlyPayment"`
	PaymentToIncome    float64  `json:"paymentToIncome"`
	MonthlyRate        float64  `json:"monthlyRate"`
	NominalRate        float64  `json:"nominalRate"`
	EffectiveRate      float64  `json:"effectiveRate"`
	CFT                float64  `json:"cft"`
	MaxTermMonths      int      `json:"maxTermMonths"`
	LTV                *float64 `json:"ltv,omitempty"`
	ReferencePayment   float64  `json:"referencePayment,omitempty"`
	Observations       []string `json:"observations,omitempty"`
	UVA                bool     `json:"uva"`
	ExceedsIncomeRatio bool     `json:"exceedsIncomeRatio"`
}

// Skip reasons.
const (
	ReasonCatalogFieldMissing = "catalog_field_missing"
	ReasonIncome              = "income_below_minimum"
	ReasonTenure              = "tenure_below_minimum"
	ReasonTerm                = "term_above_maximum"
	ReasonAmount              = "amount_out_of_range"
	ReasonAge                 = "age_above_maximum"
	ReasonLTV                 = "ltv_above_maximum"
	ReasonRule                = "eligibility_rule"
)

// Skip records why a product was not offered.
type Skip struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
	Detail string `json:"detail,omitempty"`
}

// Evaluation is the outcome of evaluating a profile against a catalog.
type Evaluation struct {
	Results []Result `json:"results"`
	Skipped []Skip   `json:"skipped,omitempty"`
}

// ResultID derives the stable identifier of a product's result.
func ResultID(institutionCode, productID string) string {
	return institutionCode + "-" + productID
}

// ValidFamily reports whether family is supported.
func ValidFamily(family string) bool {
	for _, f := range Families {
		if f == family {
			return true
		}
	}
	return false
}
