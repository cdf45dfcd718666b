package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"github.com/mbarlow/docchat/internal/log"
	"github.com/mbarlow/docchat/internal/models"
	"github.com/mbarlow/docchat/internal/types"
	"github.com/mbarlow/docchat/pkg/catalog"
	cfgPkg "github.com/mbarlow/docchat/pkg/config"
	"github.com/mbarlow/docchat/pkg/ingest"
	"github.com/mbarlow/docchat/pkg/llm"
	"github.com/mbarlow/docchat/pkg/processor"
	"github.com/mbarlow/docchat/pkg/rag"
	"github.com/mbarlow/docchat/pkg/store"
	srv "github.com/mbarlow/docchat/server"
)

// components is everything the commands need, wired once at startup.
type components struct {
	orchestrator *rag.Orchestrator
	pipeline     *ingest.Pipeline
	catalog      *catalog.Catalog
	closer       func()
}

func run(opts options, cfg *cfgPkg.Config) error {
	logCfg := log.Config{}
	if opts.debug {
		logCfg.Level = slog.LevelDebug
	}
	logger := log.New(logCfg)

	comp, err := buildComponents(cfg, logger)
	if err != nil {
		return err
	}
	defer comp.closer()

	switch {
	case opts.serve:
		return runServe(cfg, comp, logger)
	case flag.NArg() > 0:
		return runIngest(opts.namespace, flag.Args(), comp)
	default:
		return runChat(opts.namespace, comp)
	}
}

func buildComponents(cfg *cfgPkg.Config, logger log.Logger) (*components, error) {
	chatEngine, err := llm.NewWithConfig(llm.ChatConfig{
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize chat engine: %w", err)
	}

	embedder, err := llm.NewEmbedder(llm.EmbedderConfig{
		Model:   cfg.LLM.EmbeddingModel,
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	var index types.VectorIndex
	var docCatalog *catalog.Catalog
	closer := func() {}
	if cfg.Database.URL != "" {
		vectorStore, err := store.NewWithConfig(context.Background(), store.VectorStoreConfig{
			ConnString: cfg.Database.URL,
			TableName:  cfg.Database.TableName,
			VectorDim:  cfg.Database.VectorDim,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize vector store: %w", err)
		}
		docCatalog, err = catalog.New(context.Background(), cfg.Database.URL)
		if err != nil {
			vectorStore.Close()
			return nil, fmt.Errorf("failed to initialize catalog: %w", err)
		}
		index = vectorStore
		closer = func() {
			docCatalog.Close()
			vectorStore.Close()
		}
	} else {
		logger.Warn("no database configured, using in-memory vector index")
		index = store.NewMemoryStore()
	}

	proc := processor.NewWithConfig(processor.ProcessorConfig{
		ChunkSize:    cfg.Processor.ChunkSize,
		ChunkOverlap: cfg.Processor.ChunkOverlap,
	})

	pipeline := ingest.NewPipeline(ingest.PipelineConfig{
		FetchRetries:   cfg.Ingest.FetchRetries,
		FetchRetryWait: time.Duration(cfg.Ingest.FetchRetryWait) * time.Second,
		EmbedRate:      cfg.Ingest.EmbedRate,
	}, embedder, index, proc, logger.With("component", "ingest"))

	orchestrator := rag.NewOrchestrator(
		rag.NewHistoryRewriter(chatEngine, logger.With("component", "rewriter")),
		rag.NewVectorRetriever(embedder, index, cfg.Retrieval.TopK, logger.With("component", "retriever")),
		rag.NewStuffSynthesizer(chatEngine, logger.With("component", "synthesizer")),
		logger.With("component", "orchestrator"),
	)

	return &components{
		orchestrator: orchestrator,
		pipeline:     pipeline,
		catalog:      docCatalog,
		closer:       closer,
	}, nil
}

func runServe(cfg *cfgPkg.Config, comp *components, logger log.Logger) error {
	serverCfg := srv.Config{
		Logger:    logger.With("component", "server"),
		Orchestra: comp.orchestrator,
		Pipeline:  comp.pipeline,
	}
	// A typed nil in the interface would register routes against a dead
	// catalog, so only set it when one exists.
	if comp.catalog != nil {
		serverCfg.Catalog = comp.catalog
	}

	server, err := srv.New(serverCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	logger.Info("starting HTTP server", "addr", cfg.Server.Addr)
	if err := http.ListenAndServe(cfg.Server.Addr, server.Handler()); err != nil {
		return fmt.Errorf("server stopped: %w", err)
	}
	return nil
}

func runIngest(namespace string, fileURLs []string, comp *components) error {
	color.Blue("\nIngesting %d files into folder %q\n", len(fileURLs), namespace)

	bar := getProgressBar(len(fileURLs), "Ingesting documents...")
	comp.pipeline.OnProgress = func(models.FileResult) {
		_ = bar.Add(1)
	}

	files := make([]models.FileRef, 0, len(fileURLs))
	for _, u := range fileURLs {
		files = append(files, models.FileRef{FileURL: u, FileName: fileNameFromURL(u)})
	}

	results := comp.pipeline.Ingest(context.Background(), namespace, files)
	_ = bar.Finish()
	fmt.Println()

	failed := 0
	for _, result := range results {
		if result.Success {
			color.Green("  ok  %s", result.FileName)
		} else {
			failed++
			color.Red("  err %s: %s", result.FileName, result.Error)
		}
	}

	if failed > 0 {
		color.Yellow("\n%d of %d files failed\n", failed, len(results))
	} else {
		color.Green("\nAll %d files ingested\n", len(results))
	}
	return nil
}

func runChat(namespace string, comp *components) error {
	color.Cyan("\nChat with folder %q (type 'exit' to quit)", namespace)

	scanner := bufio.NewScanner(os.Stdin)
	userPrompt := color.New(color.FgGreen).PrintfFunc()
	assistantPrompt := color.New(color.FgCyan).PrintfFunc()

	var history []models.Message

	for {
		userPrompt("\nYou: ")
		if !scanner.Scan() {
			break
		}

		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}
		if strings.EqualFold(question, "exit") {
			break
		}

		messages := append(append([]models.Message{}, history...), models.Message{
			Role:    models.RoleUser,
			Content: question,
		})

		spinner := getSpinner("Searching your documents...")
		answer, err := comp.orchestrator.Answer(context.Background(), rag.Request{
			Messages:  messages,
			Namespace: namespace,
		})
		_ = spinner.Finish()
		fmt.Print("\r")

		if err != nil {
			color.Red("Error: %v\n", err)
			continue
		}

		assistantPrompt("\nAssistant: ")
		var full strings.Builder
		for fragment := range answer.Stream.Fragments() {
			fmt.Print(fragment)
			full.WriteString(fragment)
		}
		fmt.Println()

		if err := answer.Stream.Err(); err != nil {
			color.Red("\n(answer interrupted: %v)\n", err)
			continue
		}

		if len(answer.Sources) > 0 {
			color.Yellow("\nSources:")
			for _, src := range answer.Sources {
				color.Yellow("  - %s (page %d)", src.Metadata.FileName, src.Metadata.PageNumber)
			}
		}

		history = append(messages, models.Message{
			Role:    models.RoleAssistant,
			Content: full.String(),
		})
	}

	return nil
}

func getProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func getSpinner(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func fileNameFromURL(u string) string {
	if i := strings.LastIndex(u, "/"); i >= 0 && i < len(u)-1 {
		name := u[i+1:]
		if j := strings.IndexAny(name, "?#"); j >= 0 {
			name = name[:j]
		}
		if name != "" {
			return name
		}
	}
	return u
}
