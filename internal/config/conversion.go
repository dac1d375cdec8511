package config

import (
	"strings"

	"github.com/iwvelando/credit-simulator/pkg/credit"
)

// ToProduct converts a configured product to a credit.Product of family.
func (p Product) ToProduct(family string) credit.Product {
	productFamily := p.Family
	if productFamily == "" {
		productFamily = family
	}
	return credit.Product{
		ID:                 p.ID,
		Denomination:       p.Denomination,
		Family:             productFamily,
		InstitutionCode:    p.InstitutionCode,
		InstitutionName:    p.InstitutionName,
		MinIncome:          p.MinIncome,
		MinTenureMonths:    p.MinTenureMonths,
		MaxPaymentToIncome: p.MaxPaymentToIncome,
		MaxTEA:             p.MaxTEA,
		MaxCFT:             p.MaxCFT,
		MinAmount:          p.MinAmount,
		MaxAmount:          p.MaxAmount,
		MaxTermMonths:      p.MaxTermMonths,
		MaxAge:             p.MaxAge,
		MaxLTV:             p.MaxLTV,
		PaymentPer100k:     p.PaymentPer100k,
		Eligibility:        p.Eligibility,
	}
}

// ToCatalog converts the configured families to a credit.Catalog. Family keys
// are matched case-insensitively.
func (c CatalogConfig) ToCatalog() credit.Catalog {
	catalog := make(credit.Catalog, len(c.Families))
	for key, products := range c.Families {
		family := strings.ToLower(key)
		for _, product := range products {
			catalog[family] = append(catalog[family], product.ToProduct(family))
		}
	}
	return catalog
}

// ToFormData converts the configured profile to an applicant profile.
func (p Profile) ToFormData() credit.FormData {
	form := credit.FormData{
		ProductType:      strings.ToLower(p.ProductType),
		Amount:           p.Amount,
		MonthlyIncome:    p.MonthlyIncome,
		Age:              p.Age,
		EmploymentMonths: p.EmploymentMonths,
		TermMonths:       p.TermMonths,
		AppraisalValue:   p.AppraisalValue,
		Email:            p.Email,
	}
	if p.ExpectedInflation != nil {
		inflation := *p.ExpectedInflation
		form.ExpectedInflation = &inflation
	}
	return form
}
