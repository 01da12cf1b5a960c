package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	// Version information (set by build flags)
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "goecma",
	Short: "ECMAScript engine and tooling",
	Long: `go-ecma is a standards-tracking ECMAScript engine written in Go.

The engine parses JavaScript source text, compiles it to register-based
bytecode, and executes it against a managed heap with a precise garbage
collector. This driver exposes the pipeline stages for scripting and
debugging:

  run      execute scripts
  lex      dump the token stream
  parse    dump or pretty-print the AST
  compile  disassemble the compiled bytecode`,
	Version: Version,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(`{{with .Name}}{{printf "%%s " .}}{{end}}{{printf "version %%s" .Version}}
Commit: %s
Built:  %s
`, GitCommit, BuildDate))

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")

	// Optional env-file configuration: GOECMA_STACK_LIMIT,
	// GOECMA_HEAP_THRESHOLD, GOECMA_STRICT.
	_ = godotenv.Load()
}

// envInt reads an integer environment setting, 0 when absent.
func envInt(name string) int {
	if s := os.Getenv(name); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return 0
}

// envBool reads a boolean environment setting.
func envBool(name string) bool {
	s := os.Getenv(name)
	return s == "1" || s == "true" || s == "yes"
}

func exitWithError(msg string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+msg+"\n", args...)
	os.Exit(1)
}
