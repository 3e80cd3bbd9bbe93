package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Out receives all user-facing output
var Out io.Writer = os.Stderr

// --- Styles ---
var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("78"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("197"))
	pathStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("228"))
	faintStyle   = lipgloss.NewStyle().Faint(true)
	addedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("78"))
	removedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("197"))
	hunkStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
)

func Header(format string, a ...interface{}) {
	fmt.Fprintln(Out, headerStyle.Render(fmt.Sprintf(format, a...)))
}

func Info(format string, a ...interface{}) {
	fmt.Fprintln(Out, infoStyle.Render(fmt.Sprintf(format, a...)))
}

func Success(format string, a ...interface{}) {
	fmt.Fprintln(Out, successStyle.Render(fmt.Sprintf(format, a...)))
}

func Warning(format string, a ...interface{}) {
	fmt.Fprintln(Out, warningStyle.Render(fmt.Sprintf(format, a...)))
}

func Error(format string, a ...interface{}) {
	fmt.Fprintln(Out, errorStyle.Render(fmt.Sprintf(format, a...)))
}

func Path(format string, a ...interface{}) {
	fmt.Fprintln(Out, "  "+pathStyle.Render(fmt.Sprintf(format, a...)))
}

func Faint(format string, a ...interface{}) {
	fmt.Fprintln(Out, faintStyle.Render(fmt.Sprintf(format, a...)))
}

// Diff prints a unified diff with added and removed lines coloured
func Diff(body string) {
	for _, line := range strings.Split(strings.TrimRight(body, "\n"), "\n") {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			fmt.Fprintln(Out, headerStyle.Render(line))
		case strings.HasPrefix(line, "@@"):
			fmt.Fprintln(Out, hunkStyle.Render(line))
		case strings.HasPrefix(line, "+"):
			fmt.Fprintln(Out, addedStyle.Render(line))
		case strings.HasPrefix(line, "-"):
			fmt.Fprintln(Out, removedStyle.Render(line))
		default:
			fmt.Fprintln(Out, line)
		}
	}
}

// --- Summaries ---

// ChangeLine is one row of a batch summary
type ChangeLine struct {
	Index       int
	Description string
	TargetFile  string
	Added       int
	Removed     int
}

func PrintApplySummary(applied []ChangeLine, total int, failed *ChangeLine, cause error) {
	Header("\n--- Batch Summary ---")

	if len(applied) > 0 {
		Success("Applied %d of %d change(s):", len(applied), total)
		for _, c := range applied {
			fmt.Fprintf(Out, "  %d. %s %s %s\n", c.Index, c.Description,
				faintStyle.Render("("+c.TargetFile+")"),
				addedStyle.Render(fmt.Sprintf("+%d", c.Added))+" "+removedStyle.Render(fmt.Sprintf("-%d", c.Removed)))
		}
	}
	if failed != nil {
		Error("Failed at change %d of %d:", failed.Index, total)
		fmt.Fprintf(Out, "  %d. %s %s\n", failed.Index, failed.Description, faintStyle.Render("("+failed.TargetFile+")"))
		if cause != nil {
			fmt.Fprintf(Out, "     %s\n", errorStyle.Render(cause.Error()))
		}
		if skipped := total - failed.Index; skipped > 0 {
			Warning("%d change(s) not attempted.", skipped)
		}
	}
	if len(applied) == 0 && failed == nil {
		Faint("Nothing to do.")
	}
}

func PrintRestoreSummary(restored int, warnings []string) {
	Header("\n--- Restore Summary ---")
	if restored > 0 {
		Success("Restored %d file(s).", restored)
	}
	if len(warnings) > 0 {
		Error("Failed to restore %d file(s):", len(warnings))
		for _, w := range warnings {
			fmt.Fprintf(Out, "  - %s\n", w)
		}
	}
	if restored == 0 && len(warnings) == 0 {
		Faint("Checkpoint holds no files.")
	}
}
