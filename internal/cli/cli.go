package cli

import (
	"fmt"
	"io"

	"github.com/spf13/pflag"
)

// Config holds all the command-line flag values.
type Config struct {
	Root         string
	Changelog    string
	Clipboard    bool
	Diff         bool
	NoCheckpoint bool
	Restore      string
	Checkpoints  bool
	History      int
	Log          int
	Verbose      bool
	// Batch is the positional batch file argument, "-" for stdin
	Batch string
}

// Command reports which action the flags select
func (c *Config) Command() string {
	switch {
	case c.Restore != "":
		return "restore"
	case c.Checkpoints:
		return "checkpoints"
	case c.History > 0:
		return "history"
	case c.Log > 0:
		return "log"
	default:
		return "apply"
	}
}

// ParseFlags defines and parses command-line flags using pflag.
func ParseFlags(name string, args []string, output io.Writer) (*Config, error) {
	cfg := &Config{}
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(output)

	// Define flags
	fs.StringVarP(&cfg.Root, "root", "C", ".", "Project root the batch's target files are relative to.")
	fs.StringVar(&cfg.Changelog, "changelog", "", "Changelog path relative to the root (default: CODEBASE.md or the project file's value).")
	fs.BoolVar(&cfg.Clipboard, "clipboard", false, "Read the batch from the clipboard.")
	fs.BoolVar(&cfg.Diff, "diff", false, "Print a unified diff for every applied change.")
	fs.BoolVar(&cfg.NoCheckpoint, "no-checkpoint", false, "Don't snapshot target files before applying.")
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", false, "Log each step to stderr.")

	// Inspection commands; each prints and exits without applying anything
	fs.StringVar(&cfg.Restore, "restore", "", "Write the files captured by checkpoint `ID` back to disk.")
	fs.BoolVar(&cfg.Checkpoints, "checkpoints", false, "List checkpoints for the project root.")
	fs.IntVar(&cfg.History, "history", 0, "Show the `N` latest runs for the project root.")
	fs.IntVar(&cfg.Log, "log", 0, "Show the `N` latest changelog sections.")
	fs.Lookup("history").NoOptDefVal = "10"
	fs.Lookup("log").NoOptDefVal = "5"

	fs.Usage = func() {
		fmt.Fprintf(output, "Usage: %s [flags] [batch-file|-]\n", name)
		fmt.Fprintln(output, "\nApply a batch of file edits, record them in the changelog and commit the result.")
		fmt.Fprintf(output, "\nExample: %s -C ./project changes.yaml\n", name)
		fmt.Fprintln(output, "\nFlags:")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	switch fs.NArg() {
	case 0:
	case 1:
		cfg.Batch = fs.Arg(0)
	default:
		return nil, fmt.Errorf("expected at most one batch file, got %d", fs.NArg())
	}

	// Validate mutually exclusive flags
	selected := 0
	for _, set := range []bool{cfg.Restore != "", cfg.Checkpoints, cfg.History > 0, cfg.Log > 0} {
		if set {
			selected++
		}
	}
	if selected > 1 {
		return nil, fmt.Errorf("--restore, --checkpoints, --history and --log are mutually exclusive")
	}
	if cfg.History < 0 || cfg.Log < 0 {
		return nil, fmt.Errorf("--history and --log take a positive count")
	}
	if selected == 1 && (cfg.Batch != "" || cfg.Clipboard) {
		return nil, fmt.Errorf("a batch cannot be combined with --%s", cfg.Command())
	}
	if cfg.Batch != "" && cfg.Clipboard {
		return nil, fmt.Errorf("a batch file cannot be combined with --clipboard")
	}

	return cfg, nil
}
