package validation

import (
	"fmt"

	"github.com/iwvelando/credit-simulator/pkg/credit"
	"github.com/iwvelando/credit-simulator/pkg/mathutil"
)

// ValidateCatalog returns warnings for catalog entries that will never be
// offered or that are filed under the wrong family.
func ValidateCatalog(catalog credit.Catalog) []string {
	var warnings []string

	for _, family := range credit.Families {
		seen := make(map[string]bool)
		for i, product := range catalog[family] {
			label := fmt.Sprintf("%s product #%d", family, i+1)
			if product.ID != "" {
				label = fmt.Sprintf("%s product '%s'", family, credit.ResultID(product.InstitutionCode, product.ID))
			}

			if product.ID == "" || product.InstitutionCode == "" {
				warnings = append(warnings, fmt.Sprintf("%s is missing its id or institution code and will be skipped", label))
			}
			if !mathutil.IsPositive(product.MaxTEA) {
				warnings = append(warnings, fmt.Sprintf("%s has no maximum TEA and will be skipped", label))
			}
			if product.MaxTermMonths <= 0 {
				warnings = append(warnings, fmt.Sprintf("%s has no maximum term and will be skipped", label))
			}
			if family != credit.Personal && !mathutil.IsPositive(product.MaxAmount) {
				warnings = append(warnings, fmt.Sprintf("%s has no maximum amount and will be skipped", label))
			}
			if family == credit.Mortgage && product.MaxAge <= 0 {
				warnings = append(warnings, fmt.Sprintf("%s has no maximum age and will be skipped", label))
			}
			if product.MinAmount > product.MaxAmount && product.MaxAmount > 0 {
				warnings = append(warnings, fmt.Sprintf("%s has a minimum amount above its maximum", label))
			}
			if product.Family != "" && product.Family != family {
				warnings = append(warnings, fmt.Sprintf("%s declares family %q", label, product.Family))
			}

			id := credit.ResultID(product.InstitutionCode, product.ID)
			if product.ID != "" && seen[id] {
				warnings = append(warnings, fmt.Sprintf("%s is listed more than once", label))
			}
			seen[id] = true
		}
	}

	for family := range catalog {
		if !credit.ValidFamily(family) {
			warnings = append(warnings, fmt.Sprintf("catalog family %q is not supported and will be ignored", family))
		}
	}
	return warnings
}
