package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/baapco/diksha/internal/api"
	"github.com/baapco/diksha/internal/bot"
	"github.com/baapco/diksha/internal/config"
	"github.com/baapco/diksha/internal/gemini"
	"github.com/baapco/diksha/internal/ingest"
	"github.com/baapco/diksha/internal/ollama"
	"github.com/baapco/diksha/internal/responder"
	"github.com/baapco/diksha/internal/retrieval"
	"github.com/baapco/diksha/internal/session"
	"github.com/baapco/diksha/internal/storage"
	"github.com/baapco/diksha/internal/webhook"
	"github.com/baapco/diksha/internal/whatsapp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the webhook server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "diksha.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "diksha version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Initialize structured logging.
	logLevel := slog.LevelInfo
	if strings.EqualFold(cfg.Log.Level, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	// Write PID file. Check if server is already running via health endpoint.
	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("diksha is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("diksha is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Check local embedding backend readiness. The bot still answers without
	// it, just without knowledge retrieval.
	ollamaClient := ollama.New(cfg.Ollama.BaseURL)
	if !ollamaClient.IsRunning(ctx) {
		slog.Warn("ollama not reachable, knowledge retrieval disabled until it comes up",
			"url", cfg.Ollama.BaseURL)
	} else if !ollamaClient.HasModel(ctx, cfg.Ollama.EmbedModel) {
		slog.Warn("embedding model not found, pull it to enable knowledge retrieval",
			"model", cfg.Ollama.EmbedModel)
	}

	// Open storage.
	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
		}
	}()

	// Build the retrieval index and load the knowledge document.
	embedder := retrieval.NewEmbedder(ollamaClient, cfg.Ollama.EmbedModel)
	vectorStore := retrieval.NewSQLiteStore(store.DB())
	index := retrieval.NewIndex(embedder, vectorStore)

	if _, err := ingest.Bootstrap(ctx, index, cfg.Knowledge.PDFPath, cfg.Knowledge.ChunkSize, cfg.Knowledge.ChunkOverlap); err != nil {
		slog.Warn("knowledge load failed, continuing without retrieval", "error", err)
	}

	// Reply generation and conversation analysis.
	geminiClient := gemini.NewClient(cfg.Gemini.APIKey, cfg.Gemini.Model)
	replies := responder.New(geminiClient, cfg.Gemini.ReplyLanguage)

	// Session store with the timed expiry sweep.
	sessions := session.NewStore()
	sweeper := session.NewSweeper(sessions,
		func(sweepCtx context.Context, turns []session.Turn) (string, string) {
			a := replies.Analyze(sweepCtx, turns)
			return a.Intent, a.Purpose
		},
		store,
		cfg.Session.Timeout,
	)
	if err := sweeper.Start(cfg.Session.SweepInterval); err != nil {
		return fmt.Errorf("starting session sweeper: %w", err)
	}
	defer sweeper.Stop()

	// Outbound gateway and the message orchestrator.
	gateway := whatsapp.NewClient(cfg.WhatsApp.AccessToken, cfg.WhatsApp.PhoneNumberID)
	orchestrator := bot.New(store, sessions, index, replies, gateway, cfg.Knowledge.TopK)

	handler := webhook.NewHandler(cfg.WhatsApp.VerifyToken, orchestrator)

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// Operator MCP server on stdio.
	mcpSrv := api.NewMCPServer(api.MCPDeps{
		Retriever: index,
		Ledger:    store,
		TopK:      cfg.Knowledge.TopK,
	})
	stdioSrv := server.NewStdioServer(mcpSrv)
	go func() {
		if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("MCP stdio server error", "error", err)
		}
	}()
	slog.Info("MCP server started (stdio transport)")

	// Start server in a goroutine.
	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "diksha listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for signal or server error.
	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	// Flush expired sessions once more before exit so analyses are not lost.
	sweeper.Stop()
	sweeper.Sweep(context.Background())

	// Graceful shutdown with timeout.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("diksha is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop diksha (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to diksha (PID %d)", pid)
	return nil
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		// Still show partial status even if config fails.
		printError("config error: %v", err)
		return nil
	}

	client := &http.Client{Timeout: 2 * time.Second}

	// Check server health.
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	resp, err := client.Get(healthURL)
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

	// Check Ollama.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if ollama.New(cfg.Ollama.BaseURL).IsRunning(ctx) {
		printStatus("Ollama", "running at %s", cfg.Ollama.BaseURL)
	} else {
		printStatus("Ollama", "not running")
	}

	printStatus("Embed model", "%s", cfg.Ollama.EmbedModel)
	printStatus("Gemini model", "%s", cfg.Gemini.Model)
	printStatus("Knowledge PDF", "%s", cfg.Knowledge.PDFPath)

	// Show ledger and index counts from local storage when the server is down;
	// SQLite allows a second reader.
	store, err := storage.Open(cfg.Storage.DataDir)
	if err == nil {
		defer store.Close()
		if customers, err := store.ListCustomers(); err == nil {
			printStatus("Customers", "%d", len(customers))
		}
		vectorStore := retrieval.NewSQLiteStore(store.DB())
		if count, err := vectorStore.Count("knowledge_vectors"); err == nil {
			printStatus("Knowledge chunks", "%d", count)
		}
	}

	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}
