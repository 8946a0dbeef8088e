package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"quizgen-backend/internal/bootstrap"
	"quizgen-backend/internal/documents"
	"quizgen-backend/internal/exams"
	"quizgen-backend/internal/generation"
	"quizgen-backend/internal/llm"
	"quizgen-backend/internal/shared/config"
	localstore "quizgen-backend/internal/shared/storage/object/local"
)

const cliUser = "cli"

func newGenerateCmd() *cobra.Command {
	var (
		questions int
		provider  string
		model     string
	)
	cmd := &cobra.Command{
		Use:   "generate <file.pdf>...",
		Short: "Run the generation pipeline on local PDFs and print the test as JSON",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if provider != "" {
				cfg.LLMProvider = provider
			}
			if model != "" {
				cfg.LLMModel = model
			}
			client, err := bootstrap.BuildLLM(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			return runGenerate(cmd, cfg, client, args, questions)
		},
	}
	cmd.Flags().IntVarP(&questions, "questions", "n", generation.DefaultQuestionCount, "Number of questions to request")
	cmd.Flags().StringVar(&provider, "provider", "", "LLM provider (openai, anthropic, gemini, mock)")
	cmd.Flags().StringVar(&model, "model", "", "Model name")
	return cmd
}

func runGenerate(cmd *cobra.Command, cfg config.Config, client llm.Client, paths []string, questions int) error {
	ctx := cmd.Context()
	dir, err := os.MkdirTemp("", "quizgen-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	docs := &documents.Service{
		Store:    localstore.New(dir),
		Repo:     documents.NewMemoryRepo(),
		MaxBytes: cfg.MaxDocumentBytes,
	}
	ids := make([]string, 0, len(paths))
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		doc, err := docs.Upload(ctx, cliUser, filepath.Base(path), f)
		f.Close()
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		ids = append(ids, doc.ID)
	}

	svc := bootstrap.NewGenerationService(cfg, docs, client, exams.NewMemoryRepo())
	test, err := svc.Generate(ctx, cliUser, generation.Request{DocumentIDs: ids, NumQuestions: &questions})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(test)
}
