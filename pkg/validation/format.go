// Package validation checks applicant profiles, product catalogs and CLI
// options, returning warnings for recoverable problems.
package validation

import (
	"fmt"

	"github.com/iwvelando/credit-simulator/pkg/constants"
)

// ValidateOutputFormat checks if the output format is one of the supported formats.
func ValidateOutputFormat(format string) error {
	if format != constants.OutputFormatPretty && format != constants.OutputFormatCSV {
		return fmt.Errorf("expected output format of %s or %s, got %q",
			constants.OutputFormatPretty, constants.OutputFormatCSV, format)
	}
	return nil
}
