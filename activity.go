package pluggable

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

// Activity is a message a plugin reports while it executes
type Activity struct {
	Message string
}

// ActivityOptions describe how an activity should be reported
type ActivityOptions struct {
	// DryRun is set when the activity describes work that was not done
	DryRun bool
}

// ActivityReporter receives plugin activities
type ActivityReporter func(a Activity, opts ActivityOptions)

// ConsoleActivityReporter writes one line per activity to w, dry run
// activities are prefixed with a marker
func ConsoleActivityReporter(w io.Writer) ActivityReporter {
	dryRun := color.New(color.FgYellow).Sprint("[dry-run]")

	return func(a Activity, opts ActivityOptions) {
		if opts.DryRun {
			fmt.Fprintln(w, dryRun, a.Message)
			return
		}

		fmt.Fprintln(w, a.Message)
	}
}

// DefaultActivityReporter writes activities to stdout
var DefaultActivityReporter = ConsoleActivityReporter(os.Stdout)
