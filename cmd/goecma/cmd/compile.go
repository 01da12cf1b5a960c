package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cwbudde/go-ecma/internal/bytecode"
	"github.com/cwbudde/go-ecma/internal/lexer"
	"github.com/cwbudde/go-ecma/internal/parser"
	"github.com/cwbudde/go-ecma/internal/runtime"
	"github.com/cwbudde/go-ecma/internal/source"
)

var compileModule bool

var compileCmd = &cobra.Command{
	Use:   "compile [file]",
	Short: "Compile a script and print the bytecode disassembly",
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
		if compileModule {
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

		realm := runtime.NewRealm(0)
		cb, err := bytecode.Compile(program, realm, args[0])
		if err != nil {
			exitWithError("%s", err)
		}
		fmt.Print(bytecode.Disassemble(cb))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(compileCmd)
	compileCmd.Flags().BoolVar(&compileModule, "module", false, "compile as a module")
}
