// Package validation provides common validation utilities.
package validation

import (
	"fmt"
	"slices"
	"strings"

	"github.com/iwvelando/heloc-forecast/pkg/constants"
)

// OutputFormats lists every supported output format.
var OutputFormats = []string{
	constants.OutputFormatPretty,
	constants.OutputFormatCSV,
	constants.OutputFormatJSON,
	constants.OutputFormatPDF,
}

// ValidateOutputFormat checks if the output format is one of the supported formats.
func ValidateOutputFormat(format string) error {
	if !slices.Contains(OutputFormats, format) {
		return fmt.Errorf("expected output format of %s, got %s",
			strings.Join(OutputFormats, ", "), format)
	}
	return nil
}

// ValidateOutputTarget checks that formats which cannot go to a terminal
// name a file.
func ValidateOutputTarget(format, file string) error {
	if format == constants.OutputFormatPDF && file == "" {
		return fmt.Errorf("output format %s requires an output file", format)
	}
	return nil
}
