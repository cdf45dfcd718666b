package main

import (
	"flag"
	"log/slog"
	"os"

	cfgPkg "github.com/mbarlow/docchat/pkg/config"
)

type options struct {
	configPath string
	serve      bool
	addr       string
	namespace  string
	debug      bool
}

func main() {
	opts, cfg, err := parseFlags()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	if err := run(opts, cfg); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func parseFlags() (options, *cfgPkg.Config, error) {
	var opts options
	var llmBaseURL, dbURL, model string
	var chunkSize, topK int

	flag.StringVar(&opts.configPath, "config", "", "Path to config file")
	flag.BoolVar(&opts.serve, "serve", false, "Start the HTTP server")
	flag.StringVar(&opts.addr, "addr", "", "HTTP listen address (overrides config)")
	flag.StringVar(&opts.namespace, "namespace", "default", "Folder to ingest into or chat with")
	flag.BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	flag.StringVar(&llmBaseURL, "llm-url", os.Getenv("OPENAI_BASE_URL"), "OpenAI-compatible API base URL")
	flag.StringVar(&dbURL, "db-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string (empty = in-memory index)")
	flag.StringVar(&model, "model", "", "Chat model to use")
	flag.IntVar(&chunkSize, "chunk-size", 0, "Size of text chunks")
	flag.IntVar(&topK, "top-k", 0, "Number of chunks to retrieve per question")
	flag.Parse()

	cfg, err := cfgPkg.LoadConfig(opts.configPath)
	if err != nil {
		return opts, nil, err
	}

	// Flags override the config file
	if llmBaseURL != "" {
		cfg.LLM.BaseURL = llmBaseURL
	}
	if dbURL != "" {
		cfg.Database.URL = dbURL
	}
	if model != "" {
		cfg.LLM.Model = model
	}
	if chunkSize > 0 {
		cfg.Processor.ChunkSize = chunkSize
	}
	if topK > 0 {
		cfg.Retrieval.TopK = topK
	}
	if opts.addr != "" {
		cfg.Server.Addr = opts.addr
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			slog.Error("config error", "field", e.Field, "message", e.Message)
		}
		os.Exit(1)
	}

	return opts, cfg, nil
}
