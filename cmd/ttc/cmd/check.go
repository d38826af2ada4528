package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ttlang/go-tt/internal/schema"
	"github.com/ttlang/go-tt/pkg/ttlang"
)

var checkCmd = &cobra.Command{
	Use:   "check [file]",
	Short: "Type-check a TT file against a schema catalogue",
	Long: `Parse and type-check a TT program.

Schemas are resolved from YAML manifests in the directory given by
--schemas (one <class>.yaml file per class).`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		source, filename, err := readInput(args)
		if err != nil {
			return err
		}
		input, err := ttlang.Parse(source)
		if err != nil {
			return reportError(err, source, filename)
		}
		retriever := schema.NewManifestRetriever(schemasDir)
		if err := ttlang.Typecheck(cmd.Context(), retriever, input); err != nil {
			return reportError(err, source, filename)
		}
		successf("%s: ok", filename)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().StringVarP(&evalExpr, "eval", "e", "", "check inline code instead of reading from file")
	checkCmd.Flags().StringVar(&schemasDir, "schemas", "schemas", "directory of class manifest YAML files")
}
