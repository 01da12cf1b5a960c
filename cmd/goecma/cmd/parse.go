package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cwbudde/go-ecma/internal/lexer"
	"github.com/cwbudde/go-ecma/internal/parser"
	"github.com/cwbudde/go-ecma/internal/printer"
	"github.com/cwbudde/go-ecma/internal/source"
)

var (
	parseModule bool
	parsePrint  bool
)

var parseCmd = &cobra.Command{
	Use:   "parse [file]",
	Short: "Parse a script and dump or pretty-print the AST",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		content, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read file %s: %w", args[0], err)
		}
		text, err := source.Decode(content)
		if err != nil {
			return err
		}

		var p *parser.Parser
		if parseModule {
			p = parser.NewModule(lexer.New(text))
		} else {
			p = parser.New(lexer.New(text))
		}
		program := p.ParseProgram()
		if errs := p.Errors(); len(errs) > 0 {
			for _, perr := range errs {
				fmt.Fprintf(os.Stderr, "%s: %s\n", perr.Pos, perr.Message)
			}
			os.Exit(1)
		}

		if parsePrint {
			return printer.Fprint(os.Stdout, program)
		}
		for _, stmt := range program.Statements {
			fmt.Printf("%s  %s\n", stmt.Pos(), stmt.String())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(parseCmd)
	parseCmd.Flags().BoolVar(&parseModule, "module", false, "parse as a module")
	parseCmd.Flags().BoolVar(&parsePrint, "print", false, "pretty-print the reconstructed source")
}
