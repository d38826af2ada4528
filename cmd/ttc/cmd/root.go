package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ttlang/go-tt/internal/diag"
)

var (
	// Version information (set by build flags)
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var (
	evalExpr   string
	schemasDir string
	noColor    bool
)

var rootCmd = &cobra.Command{
	Use:   "ttc",
	Short: "TT compiler and toolchain",
	Long: `go-tt is a Go implementation of the TT automation language compiler.

TT describes automations combining triggers (event streams), queries
(data tables) and actions (side-effecting invocations) over catalogued
functions. ttc turns TT source into a typed, optimized intermediate
representation for the execution environment.`,
	Version: Version,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(`{{with .Name}}{{printf "%%s " .}}{{end}}{{printf "version %%s" .Version}}
Commit: %s
Built:  %s
`, GitCommit, BuildDate))

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

// readInput returns the source text from the -e flag or the file argument.
func readInput(args []string) (source, filename string, err error) {
	if evalExpr != "" {
		return evalExpr, "<eval>", nil
	}
	if len(args) == 1 {
		content, err := os.ReadFile(args[0])
		if err != nil {
			return "", "", fmt.Errorf("failed to read file %s: %w", args[0], err)
		}
		return string(content), args[0], nil
	}
	return "", "", fmt.Errorf("either provide a file path or use -e flag for inline code")
}

// reportError prints a compile error with source context and exits
// non-zero through the returned error.
func reportError(err error, source, filename string) error {
	useColor := !noColor && isTerminal()
	fmt.Fprintln(os.Stderr, diag.Format(err, source, filename, useColor))
	return err
}

func isTerminal() bool {
	info, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}

// successf prints a green status line unless colors are disabled.
func successf(format string, args ...any) {
	if noColor {
		fmt.Printf(format+"\n", args...)
		return
	}
	color.Green(format, args...)
}
