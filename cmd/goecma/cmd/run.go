package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/cwbudde/go-ecma/internal/errors"
	"github.com/cwbudde/go-ecma/pkg/ecma"
)

var (
	evalExpr    string
	printResult bool
	exposeGC    bool
	asModule    bool
)

var runCmd = &cobra.Command{
	Use:   "run [files...]",
	Short: "Run scripts or an inline expression",
	Long: `Execute JavaScript from files or an inline expression. File arguments
may be doublestar globs; every match runs in the same Context in sorted
order.

Examples:
  # Run a script file
  goecma run script.js

  # Evaluate an inline expression
  goecma run -e "console.log(6 * 7)"

  # Run every script under a directory
  goecma run 'scripts/**/*.js'

  # Run a module
  goecma run --module main.mjs`,
	RunE: runScripts,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&evalExpr, "eval", "e", "", "evaluate inline code instead of reading files")
	runCmd.Flags().BoolVar(&printResult, "print", false, "print each script's completion value")
	runCmd.Flags().BoolVar(&exposeGC, "expose-gc", false, "install a global gc() function")
	runCmd.Flags().BoolVar(&asModule, "module", false, "evaluate files as modules")
}

// newContext builds the evaluation context from flags and environment.
func newContext() *ecma.Context {
	opts := []ecma.Option{
		ecma.WithConsole(os.Stdout),
	}
	if limit := envInt("GOECMA_STACK_LIMIT"); limit > 0 {
		opts = append(opts, ecma.WithStackLimit(limit))
	}
	if threshold := envInt("GOECMA_HEAP_THRESHOLD"); threshold > 0 {
		opts = append(opts, ecma.WithHeapThreshold(threshold))
	}
	if envBool("GOECMA_STRICT") {
		opts = append(opts, ecma.WithStrict(true))
	}
	if exposeGC {
		opts = append(opts, ecma.WithExposedGC())
	}
	opts = append(opts, ecma.WithModuleLoader(fileModuleLoader))
	return ecma.New(opts...)
}

// fileModuleLoader reads module sources from disk relative to the
// referrer.
func fileModuleLoader(ctx *ecma.Context, referrer, specifier string) (*ecma.Module, error) {
	content, err := os.ReadFile(specifier)
	if err != nil {
		return nil, fmt.Errorf("cannot load module %q: %w", specifier, err)
	}
	return ctx.CompileModule(string(content), specifier)
}

func runScripts(_ *cobra.Command, args []string) error {
	ctx := newContext()

	if evalExpr != "" {
		v, err := ctx.Eval(evalExpr)
		if err != nil {
			reportError(err)
			return err
		}
		if printResult {
			fmt.Println(v.Inspect())
		}
		return nil
	}

	if len(args) == 0 {
		return fmt.Errorf("either provide file paths or use -e for inline code")
	}

	files, err := expandGlobs(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no files matched")
	}

	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read file %s: %w", file, err)
		}
		if asModule {
			mod, err := ctx.CompileModule(string(content), file)
			if err != nil {
				reportError(err)
				return err
			}
			if err := mod.Link(); err != nil {
				reportError(err)
				return err
			}
			if _, err := mod.Evaluate(); err != nil {
				reportError(err)
				return err
			}
			continue
		}
		v, err := ctx.EvalBytes(content, file)
		if err != nil {
			reportError(err)
			return err
		}
		if printResult {
			fmt.Println(v.Inspect())
		}
	}
	return nil
}

// expandGlobs resolves plain paths and doublestar patterns into a sorted,
// de-duplicated file list.
func expandGlobs(args []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	for _, arg := range args {
		if !hasGlobMeta(arg) {
			if !seen[arg] {
				seen[arg] = true
				files = append(files, arg)
			}
			continue
		}
		base := "."
		pattern := arg
		if filepath.IsAbs(arg) {
			base = "/"
			pattern = arg[1:]
		}
		matches, err := doublestar.Glob(os.DirFS(base), pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid glob %q: %w", arg, err)
		}
		for _, m := range matches {
			full := m
			if base == "/" {
				full = "/" + m
			}
			if !seen[full] {
				seen[full] = true
				files = append(files, full)
			}
		}
	}
	sort.Strings(files)
	return files, nil
}

func hasGlobMeta(s string) bool {
	for _, c := range s {
		switch c {
		case '*', '?', '[', '{':
			return true
		}
	}
	return false
}

// reportError renders engine errors with source context.
func reportError(err error) {
	if se, ok := err.(*errors.ScriptError); ok {
		fmt.Fprintln(os.Stderr, se.Format(true))
		return
	}
	fmt.Fprintln(os.Stderr, err)
}
