package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cwbudde/go-ecma/internal/lexer"
	"github.com/cwbudde/go-ecma/internal/source"
	"github.com/cwbudde/go-ecma/pkg/token"
)

var lexCmd = &cobra.Command{
	Use:   "lex [file]",
	Short: "Dump the token stream of a script",
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

		l := lexer.New(text)
		for {
			tok := l.NextToken(token.GoalRegExp)
			fmt.Printf("%-4s %-18s %q\n", tok.Pos, tok.Type, tok.Literal)
			if tok.Type == token.EOF {
				break
			}
		}
		for _, lexErr := range l.Errors() {
			fmt.Fprintln(os.Stderr, lexErr)
		}
		if len(l.Errors()) > 0 {
			os.Exit(1)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(lexCmd)
}
