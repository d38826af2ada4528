package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ttlang/go-tt/internal/lexer"
	"github.com/ttlang/go-tt/pkg/token"
)

var (
	showPos    bool
	showType   bool
	onlyErrors bool
)

var lexCmd = &cobra.Command{
	Use:   "lex [file]",
	Short: "Tokenize a TT file or expression",
	Long: `Tokenize (lex) a TT program and print the resulting tokens.

Examples:
  # Tokenize a script file
  ttc lex program.tt

  # Tokenize an inline expression
  ttc lex -e "monitor (@com.weather.current()) => notify;"

  # Show token types and positions
  ttc lex --show-type --show-pos program.tt`,
	Args: cobra.MaximumNArgs(1),
	RunE: lexScript,
}

func init() {
	rootCmd.AddCommand(lexCmd)

	lexCmd.Flags().StringVarP(&evalExpr, "eval", "e", "", "tokenize inline code instead of reading from file")
	lexCmd.Flags().BoolVar(&showPos, "show-pos", false, "show token positions (line:column)")
	lexCmd.Flags().BoolVar(&showType, "show-type", false, "show token type names")
	lexCmd.Flags().BoolVar(&onlyErrors, "only-errors", false, "show only illegal tokens")
}

func lexScript(cmd *cobra.Command, args []string) error {
	source, filename, err := readInput(args)
	if err != nil {
		return err
	}

	verbose, _ := cmd.Flags().GetBool("verbose")
	if verbose {
		fmt.Printf("Tokenizing: %s\n", filename)
		fmt.Printf("Input length: %d bytes\n", len(source))
		fmt.Println("---")
	}

	l := lexer.New(source)
	for _, tok := range l.Tokenize() {
		if tok.Type == token.EOF {
			break
		}
		if onlyErrors && tok.Type != token.ILLEGAL {
			continue
		}
		line := tok.Literal
		if showType {
			line = fmt.Sprintf("%-16s %s", tok.Type, line)
		}
		if showPos {
			line = fmt.Sprintf("%4d:%-3d %s", tok.Pos.Line, tok.Pos.Column, line)
		}
		fmt.Println(line)
	}

	for _, lexErr := range l.Errors() {
		fmt.Println("error:", lexErr.Error())
	}
	return nil
}
