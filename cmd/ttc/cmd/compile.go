package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ttlang/go-tt/internal/schema"
	"github.com/ttlang/go-tt/pkg/ttlang"
)

var outputFile string

var compileCmd = &cobra.Command{
	Use:   "compile [file]",
	Short: "Compile a TT file to IR",
	Long: `Run the whole pipeline over a TT program: parse, type-check,
optimize, and lower to the register IR consumed by the execution
environment.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		source, filename, err := readInput(args)
		if err != nil {
			return err
		}
		retriever := schema.NewManifestRetriever(schemasDir)
		program, err := ttlang.Compile(cmd.Context(), retriever, source)
		if err != nil {
			return reportError(err, source, filename)
		}

		text := program.Emit()
		if outputFile != "" {
			return os.WriteFile(outputFile, []byte(text), 0o644)
		}
		fmt.Print(text)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(compileCmd)
	compileCmd.Flags().StringVarP(&evalExpr, "eval", "e", "", "compile inline code instead of reading from file")
	compileCmd.Flags().StringVar(&schemasDir, "schemas", "schemas", "directory of class manifest YAML files")
	compileCmd.Flags().StringVarP(&outputFile, "output", "o", "", "write IR to file instead of stdout")
}
