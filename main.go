package main

import (
	"errors"
	"io"
	"log"
	"os"

	"github.com/spf13/pflag"

	"refactorizor/internal/cli"
	"refactorizor/internal/ui"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	opts, err := cli.ParseFlags("refactorizor", args, os.Stderr)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		// pflag already prints its own parse errors
		if !isFlagError(err) {
			ui.Error("Error: %v", err)
		}
		return 2
	}

	log.SetFlags(0)
	if opts.Verbose {
		log.SetOutput(os.Stderr)
	} else {
		log.SetOutput(io.Discard)
	}

	app, err := NewApp(opts)
	if err != nil {
		ui.Error("Failed to initialize application: %v", err)
		return 1
	}
	defer app.Shutdown()

	if err := app.Execute(); err != nil {
		ui.Error("Error: %v", err)
		return 1
	}
	return 0
}

// isFlagError reports whether err came from pflag itself rather than from
// argument validation.
func isFlagError(err error) bool {
	var notExist *pflag.NotExistError
	var valueErr *pflag.InvalidValueError
	var syntaxErr *pflag.InvalidSyntaxError
	var missing *pflag.ValueRequiredError
	return errors.As(err, &notExist) || errors.As(err, &valueErr) ||
		errors.As(err, &syntaxErr) || errors.As(err, &missing)
}
