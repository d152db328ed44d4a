// Command txtpp is the CLI front end for the txtpp preprocessing engine.
//
// Configures a minimal default logger, delegates argument parsing to
// internal/cli, and translates an *cli.ExitError into the corresponding
// process exit code.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	txtpp "github.com/Pistonite/txtpp"
	"github.com/Pistonite/txtpp/internal/cli"
	"github.com/Pistonite/txtpp/internal/ctxlog"
	"github.com/Pistonite/txtpp/internal/ppmode"
	"github.com/Pistonite/txtpp/internal/shellrun"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})))

	if err := run(os.Stdout, os.Args[1:]); err != nil {
		if exitErr, ok := err.(*cli.ExitError); ok {
			if exitErr.Message != "" {
				fmt.Fprintln(os.Stderr, exitErr.Message)
			}
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(outW *os.File, args []string) error {
	if err := shellrun.GuardAgainstRecursion(); err != nil {
		return err
	}

	parsed, shouldExit, err := cli.Parse(args, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	ctx := ctxlog.WithLogger(context.Background(), slog.Default())

	var rpt *txtpp.Report
	if parsed.Config.Mode == ppmode.Clean {
		rpt, err = txtpp.Clean(ctx, parsed.Roots, parsed.Config)
	} else {
		rpt, err = txtpp.Preprocess(ctx, parsed.Roots, parsed.Config)
	}
	if err != nil {
		return err
	}

	if rpt.Failed() {
		return &cli.ExitError{Code: 1, Message: fmt.Sprintf("%d file(s) failed", rpt.FailureCount())}
	}
	return nil
}
