// File: cmd/ask/main.go
//
// ask ingests one contract and answers a question about it, or runs a single
// analysis agent over it, then prints the result and exits.
//
//	ask -config config.yaml -file contract.pdf -q "What is the notice period?"
//	ask -config config.yaml -file contract.txt -agent risk_analysis
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"clm-paralegal/internal/chunker"
	"clm-paralegal/internal/config"
	"clm-paralegal/internal/domain/model"
	aiAdapters "clm-paralegal/internal/infra/adapters/ai"
	"clm-paralegal/internal/infra/adapters/pdf"
	"clm-paralegal/internal/infra/logging"
	"clm-paralegal/internal/infra/memstore"
	"clm-paralegal/internal/infra/vectorstore/memory"
	"clm-paralegal/internal/usecase"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	file := flag.String("file", "", "contract file (.pdf or plain text)")
	question := flag.String("q", "", "question to ask about the contract")
	agent := flag.String("agent", "", "run one analysis agent instead of asking (see -list)")
	full := flag.Bool("full", false, "run the full analysis and print the JSON report")
	list := flag.Bool("list", false, "list analysis agents and exit")
	flag.Parse()

	if *list {
		for _, k := range usecase.AgentKinds() {
			fmt.Println(k)
		}
		return
	}
	if *file == "" || (*question == "" && *agent == "" && !*full) {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadConfig(*cfgPath, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	// keep stdout for the answer
	cfg.Log.Format = "console"
	logger := logging.NewWithWriter(os.Stderr, cfg.Log, false)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	out, err := run(ctx, cfg, logger, *file, *question, model.AnalysisKind(*agent), *full)
	if err != nil {
		logger.Error().Err(err).Msg("ask failed")
		os.Exit(1)
	}
	fmt.Println(out)
}

func run(ctx context.Context, cfg *config.Config, logger *zerolog.Logger, file, question string, agent model.AnalysisKind, full bool) (string, error) {
	text, err := readContract(ctx, file)
	if err != nil {
		return "", err
	}
	ai, err := aiAdapters.NewFromConfig(ctx, cfg.AI, logger)
	if err != nil {
		return "", err
	}

	if agent != "" || full {
		analysis := usecase.NewAnalysisUseCase(ai, cfg.AI.GenerationModel, cfg.Analysis.MinInputLength, false, logger)
		if full {
			report, err := analysis.RunFull(ctx, text, nil)
			if err != nil {
				return "", err
			}
			b, err := json.MarshalIndent(report, "", "  ")
			return string(b), err
		}
		res := analysis.RunAgent(ctx, agent, text)
		if !res.OK() {
			return "", fmt.Errorf("%s: %s (%s)", agent, res.Failure.Message, res.Failure.Kind)
		}
		return res.Text, nil
	}

	split, err := chunker.NewWindowChunker(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
	if err != nil {
		return "", err
	}
	qa := usecase.NewQAUseCase(split, ai, memory.NewStorage(), memstore.NewSessionStore(), usecase.QAOptions{
		GenerationModel: cfg.AI.GenerationModel,
		EmbeddingModel:  cfg.AI.EmbeddingModel,
		Collection:      cfg.RAG.Collection,
		TopK:            cfg.RAG.TopK,
		RecencyWindow:   cfg.RAG.RecencyWindow,
		MinInputLength:  cfg.Analysis.MinInputLength,
		AutoInit:        true,
	}, logger)
	if _, err := qa.Ingest(ctx, text); err != nil {
		return "", err
	}
	return qa.Ask(ctx, question, "cli")
}

func readContract(ctx context.Context, path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return pdf.NewExtractor().ExtractText(ctx, bytes.NewReader(b), int64(len(b)))
	}
	return string(b), nil
}
