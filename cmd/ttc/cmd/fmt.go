package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ttlang/go-tt/pkg/ttlang"
)

var writeInPlace bool

var fmtCmd = &cobra.Command{
	Use:   "fmt [file]",
	Short: "Format a TT file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		source, filename, err := readInput(args)
		if err != nil {
			return err
		}
		formatted, err := ttlang.Format(source)
		if err != nil {
			return reportError(err, source, filename)
		}
		if writeInPlace && filename != "<eval>" {
			return os.WriteFile(filename, []byte(formatted+"\n"), 0o644)
		}
		fmt.Println(formatted)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fmtCmd)
	fmtCmd.Flags().StringVarP(&evalExpr, "eval", "e", "", "format inline code instead of reading from file")
	fmtCmd.Flags().BoolVarP(&writeInPlace, "write", "w", false, "write result back to the source file")
}
