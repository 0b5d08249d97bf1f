package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"ofertas/internal/normalize"
)

// NewNormalizeCommand prints how the resolver sees a name. With --compare it
// also prints the similarity score and whether the names would match.
func NewNormalizeCommand(_ *RootOptions) *cobra.Command {
	var compare string
	cmd := &cobra.Command{
		Use:   "normalize <name>",
		Short: "Show the normalized form of a product or store name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			name := args[0]
			fmt.Fprintf(out, "normalized: %s\n", normalize.Normalize(name))
			fmt.Fprintf(out, "base:       %s\n", normalize.BaseName(name))
			if compare != "" {
				fmt.Fprintf(out, "similarity: %.2f\n", normalize.Similarity(name, compare))
				fmt.Fprintf(out, "matches:    %t\n", normalize.ContainsEitherDirection(name, compare))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&compare, "compare", "", "second name to compare against")
	return cmd
}
