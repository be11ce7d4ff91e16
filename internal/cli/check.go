package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that the model provider and evidence store are reachable",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, a, err := setup()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		failed := false

		provider, err := a.Provider()
		switch {
		case err != nil:
			failed = true
			fmt.Fprintf(os.Stderr, "✗ Model provider: %v\n", err)
		case !provider.IsAvailable(ctx):
			failed = true
			fmt.Fprintf(os.Stderr, "✗ Model provider %s/%s is not reachable\n", provider.Name(), provider.Model())
		default:
			fmt.Fprintf(os.Stderr, "✓ Model provider %s/%s\n", provider.Name(), provider.Model())
		}

		if _, err := a.Retriever(); err != nil {
			failed = true
			fmt.Fprintf(os.Stderr, "✗ Evidence store: %v\n", err)
		} else if a.qdrant != nil {
			n, err := a.qdrant.Count(ctx)
			if err != nil {
				failed = true
				fmt.Fprintf(os.Stderr, "✗ Qdrant collection %s: %v\n", a.qdrant.Collection(), err)
			} else {
				fmt.Fprintf(os.Stderr, "✓ Qdrant collection %s (%d points)\n", a.qdrant.Collection(), n)
			}
		} else {
			fmt.Fprintf(os.Stderr, "✓ Static evidence file %s\n", a.cfg.Retrieval.EventsFile)
		}

		fmt.Fprintf(os.Stderr, "  Audit log: %s\n", a.Audit().Path())

		if failed {
			return fmt.Errorf("one or more checks failed")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
