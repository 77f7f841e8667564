// Command loxwalk runs the tree-walking interpreter: given a source file it
// executes the file and exits; given no arguments it starts a line-by-line
// REPL. This driver, the error-report formatter it calls into, and anything
// resembling host/embedding concerns all sit outside the interpreter core
// itself (internal/scanner, internal/parser, internal/resolver,
// internal/interp) by design.
package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/waxwing-lang/loxwalk/internal/errs"
	"github.com/waxwing-lang/loxwalk/internal/interp"
	"github.com/waxwing-lang/loxwalk/internal/parser"
	"github.com/waxwing-lang/loxwalk/internal/resolver"
	"github.com/waxwing-lang/loxwalk/internal/scanner"
	"github.com/waxwing-lang/loxwalk/internal/source"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "loxwalk [source-path]",
		Short:         "Run the loxwalk interpreter on a file, or start a REPL with no arguments",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			defer recoverFatal()
			if len(args) == 1 {
				runFile(args[0])
			} else {
				runREPL()
			}
			return nil
		},
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runFile executes a whole source file, mapping the first error encountered
// to the process exit code spec.md §6 assigns its stage, and never returns
// on any path but success.
func runFile(path string) {
	content, ioErr := os.ReadFile(path)
	if ioErr != nil {
		fmt.Fprintf(os.Stderr, "loxwalk: %v\n", ioErr)
		os.Exit(1)
	}

	stage, runErr := execute(string(content), os.Stdout)
	if runErr != nil {
		if exitReq, ok := runErr.(*interp.ExitRequest); ok {
			os.Exit(exitReq.Code)
		}
		fmt.Fprintln(os.Stderr, runErr)
		os.Exit(stage.ExitCode())
	}
}

// runREPL reads and executes one line at a time, printing a ">> " prompt.
// Each line runs as its own program against a fresh interpreter: the REPL
// has no persisted state across lines, matching spec.md §6's "no persisted
// state" external-interface rule. A runtime error reports and continues;
// only exit() or end-of-input ends the session.
func runREPL() {
	scan := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(">> ")
		if !scan.Scan() {
			fmt.Println()
			return
		}
		line := scan.Text()
		if line == "" {
			continue
		}

		_, runErr := execute(line, os.Stdout)
		if runErr != nil {
			if exitReq, ok := runErr.(*interp.ExitRequest); ok {
				os.Exit(exitReq.Code)
			}
			fmt.Fprintln(os.Stderr, runErr)
		}
	}
}

// execute runs source through the full pipeline and returns the stage whose
// error (if any) aborted it, so the caller can map it to an exit code.
func execute(src string, out *os.File) (errs.Stage, error) {
	buf := source.New(src)

	tokens, lexErrs := scanner.New(buf).ScanAll()
	if len(lexErrs) > 0 {
		return errs.Lexical, lexErrs[0]
	}

	stmts, parseErrs := parser.Parse(buf, tokens)
	if len(parseErrs) > 0 {
		return errs.Parse, parseErrs[0]
	}

	if resolveErrs := resolver.Resolve(stmts); len(resolveErrs) > 0 {
		return errs.Resolution, resolveErrs[0]
	}

	it := interp.New(out)
	if err := it.Run(stmts); err != nil {
		return errs.Runtime, err
	}
	return errs.Lexical, nil
}

// recoverFatal turns an invariant panic (an interpreter bug, not a user
// error) into the fatal exit code spec.md §6 reserves for it, rather than
// letting it crash the process with a bare Go stack trace.
func recoverFatal() {
	if r := recover(); r != nil {
		fmt.Fprintf(os.Stderr, "loxwalk: fatal: %v\n", r)
		os.Exit(105)
	}
}
