// Package report prints colored, verb-based progress lines while a run
// is in flight: a right-aligned bold verb followed by a message, one
// line per event, with a set of verb labels fixed by their call sites
// (scanning/processing/cleaning/verifying/using/wrote/verified/cleaned/
// done/failed/blocked). Colors come from github.com/gookit/color.
package report

import (
	"fmt"
	"io"
	"os"

	"github.com/gookit/color"
)

const (
	VerbScanning   = "scanning"
	VerbScanned    = "scanned"
	VerbUsing      = "using"
	VerbProcessing = "processing"
	VerbCleaning   = "cleaning"
	VerbVerifying  = "verifying"
	// VerbWrote, VerbVerified and VerbCleaned are the per-file success
	// verbs, one per scheduler mode: Build/InMemoryBuild wrote output,
	// Verify matched what was already on disk, Clean removed a file's
	// outputs. VerbDone stays reserved for the final aggregate tally.
	VerbWrote    = "wrote"
	VerbVerified = "verified"
	VerbCleaned  = "cleaned"
	VerbDone     = "done"
	VerbFailed   = "failed"
	VerbBlocked  = "blocked"
)

var verbColor = map[string]color.Color{
	VerbScanning:   color.FgYellow,
	VerbScanned:    color.FgYellow,
	VerbUsing:      color.FgYellow,
	VerbProcessing: color.FgGreen,
	VerbCleaning:   color.FgCyan,
	VerbVerifying:  color.FgCyan,
	VerbWrote:      color.FgGreen,
	VerbVerified:   color.FgGreen,
	VerbCleaned:    color.FgGreen,
	VerbDone:       color.FgGreen,
	VerbFailed:     color.FgRed,
	VerbBlocked:    color.FgYellow,
}

// Reporter prints one right-aligned, bold, colored verb followed by a
// plain message per status line, to Out (stderr by default).
type Reporter struct {
	Out     io.Writer
	Enabled bool
}

// New returns a Reporter writing to stderr, with color enabled iff
// enabled is true (the CLI turns this off with --no-color or a project
// file's color = false; terminal detection is not performed).
func New(enabled bool) *Reporter {
	return &Reporter{Out: os.Stderr, Enabled: enabled}
}

// Status prints one "  <verb> <message>" line, right-aligning verb to a
// 12-character field the way the original CLI does.
func (r *Reporter) Status(verb string, message string) {
	if r == nil {
		return
	}
	if !r.Enabled {
		fmt.Fprintf(r.Out, "%12s %s\n", verb, message)
		return
	}
	c, ok := verbColor[verb]
	if !ok {
		c = color.FgWhite
	}
	style := color.New(c, color.OpBold)
	fmt.Fprintf(r.Out, "%s %s\n", style.Sprintf("%12s", verb), message)
}

// Summary prints the final tally line, green when everything succeeded
// and red when anything failed.
func (r *Reporter) Summary(total, failed int) {
	if r == nil {
		return
	}
	if failed == 0 {
		r.Status(VerbDone, fmt.Sprintf("%d file(s)", total))
		return
	}
	r.Status(VerbFailed, fmt.Sprintf("%d of %d file(s)", failed, total))
}
