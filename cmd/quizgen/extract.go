package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"quizgen-backend/internal/extract"
)

func newExtractCmd() *cobra.Command {
	var maxPages int
	cmd := &cobra.Command{
		Use:   "extract <file.pdf>",
		Short: "Print the text of every page of a PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			pages, err := extract.PDFExtractor{MaxPages: maxPages}.Extract(cmd.Context(), data)
			if err != nil {
				return err
			}
			for i, page := range pages {
				fmt.Fprintf(cmd.OutOrStdout(), "--- page %d ---\n%s", i+1, page)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&maxPages, "max-pages", extract.DefaultMaxPages, "Reject documents with more pages")
	return cmd
}
