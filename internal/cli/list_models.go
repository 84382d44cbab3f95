/*
PURPOSE:
  Defines the 'list-models' subcommand.
  Lists OpenRouter catalog models that accept image input.

REQUIREMENTS:
  User-specified:
  - List available models.

  Implementation-discovered:
  - Useful validation step before a paid run.
  - Text-only models are useless for this benchmark and are hidden.

ARCHITECTURE INTEGRATION:
  - Calls: internal/engine.Catalog

ERROR HANDLING:
  - Returns the catalog error if the fetch fails.

IMPLEMENTATION RULES:
  - Simple output to stdout, one id per line.

USAGE:
  gauge-bench list-models --filter gemini

SELF-HEALING INSTRUCTIONS:
  - None.

RELATED FILES:
  - internal/engine/catalog.go

MAINTENANCE:
  - None.
*/

package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/daryltucker/gauge-bench/internal/engine"
)

var modelFilter string

var listModelsCmd = &cobra.Command{
	Use:   "list-models",
	Short: "List vision-capable models in the OpenRouter catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		models, err := engine.New(cfg).Catalog().Models(cmd.Context())
		if err != nil {
			return err
		}

		needle := strings.ToLower(modelFilter)
		count := 0
		for _, m := range models {
			if !m.AcceptsImages() {
				continue
			}
			if needle != "" && !strings.Contains(strings.ToLower(m.ID), needle) {
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "- %s\n", m.ID)
			count++
		}
		if count == 0 {
			fmt.Fprintln(cmd.ErrOrStderr(), "No matching models.")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listModelsCmd)
	listModelsCmd.Flags().StringVar(&modelFilter, "filter", "", "Only list model ids containing this substring")
}
