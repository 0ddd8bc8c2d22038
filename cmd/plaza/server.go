package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/plazadev/plaza/internal/agent"
	"github.com/plazadev/plaza/internal/api"
	"github.com/plazadev/plaza/internal/classify"
	"github.com/plazadev/plaza/internal/config"
	"github.com/plazadev/plaza/internal/genai"
	"github.com/plazadev/plaza/internal/ingest"
	"github.com/plazadev/plaza/internal/retrieval"
	"github.com/plazadev/plaza/internal/router"
	"github.com/plazadev/plaza/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the plaza server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show plaza system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "plaza version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logLevel := slog.LevelInfo
	if strings.EqualFold(cfg.Log.Level, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	if cfg.Server.AdminToken == "" {
		slog.Warn("no admin token configured, admin endpoints are disabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
		}
	}()

	// Wire the query path: classifier, retriever, generator, agent.
	engine := genai.NewClient(genai.ClientOptions{
		BaseURL:    cfg.GenAI.BaseURL,
		APIKey:     cfg.GenAI.APIKey,
		Model:      cfg.GenAI.Model,
		LiteModel:  cfg.GenAI.LiteModel,
		EmbedModel: cfg.GenAI.EmbedModel,
	})
	agentClient := agent.NewClient(cfg.Agent.BaseURL)
	classifier := classify.New()
	retriever := retrieval.NewRetriever(engine, store, retrieval.Options{
		TopK:             cfg.Retrieval.TopK,
		CandidateLimit:   cfg.Retrieval.CandidateLimit,
		VectorThreshold:  cfg.Retrieval.VectorThreshold,
		LexicalThreshold: cfg.Retrieval.LexicalThreshold,
	})

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := router.NewMetrics(reg)

	queryRouter := router.New(classifier, retriever, engine, agentClient, metrics)

	ingestor := ingest.NewIngestor(store, cfg.Ingest.MaxChunkSize)
	handler := api.NewHandler(api.Deps{
		Router:     queryRouter,
		Ingester:   ingestor,
		Store:      store,
		Searcher:   retriever,
		AdminToken: cfg.Server.AdminToken,
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
		Gatherer:   reg,
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// Start the embedding backfill worker.
	worker := ingest.NewWorker(store, engine, 5*time.Second, 16, 4)
	go worker.Run(ctx)

	// Start the MCP server over SSE on its own port.
	mcpSrv := api.NewMCPServer(api.MCPDeps{
		Router:   queryRouter,
		Searcher: retriever,
	})
	sseSrv := server.NewSSEServer(mcpSrv)
	mcpAddr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.MCPPort)
	go func() {
		slog.Info("MCP server listening", "addr", mcpAddr)
		if err := sseSrv.Start(mcpAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("MCP server error", "error", err)
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "plaza listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sseSrv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("MCP server shutdown", "error", err)
	}
	return srv.Shutdown(shutdownCtx)
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		// Still show partial status even if config fails.
		printError("config error: %v", err)
		return nil
	}

	serverURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	client := &http.Client{Timeout: 2 * time.Second}

	resp, err := client.Get(serverURL + "/health")
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == 200 {
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	printStatus("MCP port", "%d", cfg.Server.MCPPort)
	printStatus("GenAI endpoint", "%s", cfg.GenAI.BaseURL)
	printStatus("Search model", "%s", cfg.GenAI.Model)
	printStatus("Lite model", "%s", cfg.GenAI.LiteModel)
	printStatus("Embed model", "%s", cfg.GenAI.EmbedModel)
	printStatus("Agent endpoint", "%s", cfg.Agent.BaseURL)
	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}
