package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ttlang/go-tt/pkg/ttlang"
)

var parseCmd = &cobra.Command{
	Use:   "parse [file]",
	Short: "Parse a TT file and print its AST",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		source, filename, err := readInput(args)
		if err != nil {
			return err
		}
		input, err := ttlang.Parse(source)
		if err != nil {
			return reportError(err, source, filename)
		}
		fmt.Println(input.String())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(parseCmd)
	parseCmd.Flags().StringVarP(&evalExpr, "eval", "e", "", "parse inline code instead of reading from file")
}
