package errors

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/mitchellh/go-wordwrap"
)

// DiagnosticError describes a plugin source that could not be registered or
// activated
type DiagnosticError struct {
	// Source is the friendly name of the plugin source
	Source string
	// SystemID is the unique id of the plugin source
	SystemID    string
	Diagnostics []string
}

// NewDiagnosticError creates a DiagnosticError
func NewDiagnosticError(source, systemID string, diagnostics ...string) *DiagnosticError {
	return &DiagnosticError{
		Source:      source,
		SystemID:    systemID,
		Diagnostics: diagnostics,
	}
}

// Error pretty prints the diagnostics wrapped at 80 columns
func (d *DiagnosticError) Error() string {
	err := strings.Builder{}
	err.WriteString(fmt.Sprintf("Invalid plugin: %s\n", d.Source))

	if d.SystemID != "" && d.SystemID != d.Source {
		err.WriteString(fmt.Sprintf("  %s\n", color.New(color.Faint).Sprint(d.SystemID)))
	}

	err.WriteString("\n")

	for _, diag := range d.Diagnostics {
		lines := strings.Split(wordwrap.WrapString(diag, 76), "\n")
		err.WriteString("  - " + lines[0] + "\n")

		for _, l := range lines[1:] {
			err.WriteString("    " + l + "\n")
		}
	}

	return err.String()
}
