package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "quizgen",
		Short:         "Generate multiple-choice tests from PDF documents",
		SilenceUsage:  true,
	}
	root.AddCommand(newExtractCmd())
	root.AddCommand(newGenerateCmd())
	return root
}
