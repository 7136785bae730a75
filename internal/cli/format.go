package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"github.com/okian/palantir/internal/domain/model"
)

var (
	green   = color.New(color.FgGreen).SprintFunc()
	yellow  = color.New(color.FgYellow).SprintFunc()
	red     = color.New(color.FgRed).SprintFunc()
	magenta = color.New(color.FgMagenta).SprintFunc()
)

// statusColor picks the colour of a return code.
func statusColor(retcode int) func(a ...interface{}) string {
	switch model.Normalize(retcode) {
	case model.StatusSuccess:
		return green
	case model.StatusWarning:
		return yellow
	default:
		return red
	}
}

// formatStatus renders a check status as
//
//	<check>: SUCCESS (disabled)
//	Ran at 2006-01-02T15:04:05 (3 hours ago)
//	STDOUT:
//	...
func formatStatus(s *model.CheckStatus, now time.Time) string {
	var b strings.Builder
	b.WriteString(statusColor(s.Retcode)(s.CheckName() + ": " + model.StatusLabel(s.Retcode)))
	if !s.Enabled {
		b.WriteString(" (disabled)")
	}
	if s.LastRun.IsZero() {
		b.WriteString("\nNever ran")
	} else {
		fmt.Fprintf(&b, "\nRan at %s (%s)",
			s.LastRun.Local().Format("2006-01-02T15:04:05"),
			humanize.RelTime(s.LastRun.Time, now, "ago", "from now"))
	}
	if s.Stdout != "" {
		b.WriteString("\nSTDOUT:\n" + s.Stdout)
	}
	if s.Stderr != "" {
		b.WriteString("\nSTDERR:\n" + s.Stderr)
	}
	return b.String()
}

// enabledLabel is the list suffix of a disabled entry.
func enabledLabel(enabled bool) string {
	if enabled {
		return ""
	}
	return "(disabled)"
}

func dashes(n int) string { return strings.Repeat("-", n) }

func joinNames(names []string) string { return strings.Join(names, ", ") }
