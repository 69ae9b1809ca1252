package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/liveshop/internal/config"
	"github.com/rpggio/liveshop/internal/domain/activity"
	"github.com/rpggio/liveshop/internal/domain/session"
	"github.com/rpggio/liveshop/internal/mcp"
	"github.com/rpggio/liveshop/internal/notify"
	"github.com/rpggio/liveshop/internal/sqlite"
	"github.com/rpggio/liveshop/internal/transport"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	// Use stderr for logs in stdio mode to keep stdout clean for JSON-RPC.
	logWriter := io.Writer(os.Stdout)
	if cfg.Transport.Mode == config.ModeStdio {
		logWriter = os.Stderr
	}
	if logPath := os.Getenv("LIVESHOP_LOG_PATH"); logPath != "" {
		fileWriter, file, err := newLogFileWriter(logPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "log file error: %v\n", err)
		} else {
			defer file.Close()
			logWriter = fileWriter
		}
	}
	logger := slog.New(slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))

	if err := ensureDBDir(cfg.DB.Path); err != nil {
		logger.Error("failed to prepare database path", "error", err)
		os.Exit(1)
	}

	db, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	catalog := sqlite.NewCatalogRepository(db)
	if cfg.Catalog.SeedPath != "" {
		batches, err := config.LoadCatalogSeed(cfg.Catalog.SeedPath)
		if err != nil {
			logger.Error("failed to load catalog seed", "error", err)
			os.Exit(1)
		}
		if err := catalog.Upsert(context.Background(), batches...); err != nil {
			logger.Error("failed to seed catalog", "error", err)
			os.Exit(1)
		}
		logger.Info("catalog seeded", "batches", len(batches))
	}

	notifier, closeNotifier := newNotifier(cfg.Notify, logger)
	defer closeNotifier()

	sessionSvc := session.NewService(sqlite.NewStore(db), catalog, notifier, logger)
	activitySvc := activity.NewService(sqlite.NewActivityRepository(db), logger)
	resolver := transport.NewAPIKeyResolver(sqlite.NewAPIKeyRepository(db), logger)

	mcpServer := mcp.NewServer(mcp.Config{
		Services: mcp.Services{
			Sessions: sessionSvc,
			Activity: activitySvc,
		},
		Resolver:      resolver,
		AuthEnabled:   cfg.Auth.Enabled,
		TransportMode: cfg.Transport.Mode,
		Logger:        logger,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if cfg.Session.IdleTimeout > 0 {
		logger.Info("idle reaper enabled", "idle_timeout", cfg.Session.IdleTimeout, "interval", cfg.Session.ReapInterval)
		go sessionSvc.RunReaper(ctx, cfg.Session.ReapInterval, cfg.Session.IdleTimeout)
	} else {
		logger.Info("idle reaper disabled")
	}

	// Branch based on transport mode
	if cfg.Transport.Mode == config.ModeStdio {
		runStdioMode(ctx, logger, mcpServer)
		return
	}

	principals := transport.HeaderPrincipalMiddleware
	if cfg.Auth.Enabled {
		principals = transport.AuthMiddleware(resolver)
	} else {
		logger.Warn("auth disabled: callers are trusted from X-Liveshop-Actor headers")
	}
	router := transport.NewServer(sessionSvc, activitySvc, principals, logger)
	runHTTPMode(logger, router, mcpServer, cfg.Server.Host, cfg.Server.Port)
}

// newNotifier picks Kafka when brokers are configured. Events are always logged.
func newNotifier(cfg config.NotifyConfig, logger *slog.Logger) (session.Notifier, func()) {
	logNotifier := notify.NewLogNotifier(logger)
	if len(cfg.KafkaBrokers) == 0 {
		return logNotifier, func() {}
	}
	kafkaNotifier := notify.NewKafkaNotifier(logger, cfg.KafkaTopic, cfg.KafkaBrokers...)
	logger.Info("publishing session events to kafka", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	return notify.Fanout{logNotifier, kafkaNotifier}, func() {
		if err := kafkaNotifier.Close(); err != nil {
			logger.Error("failed to close kafka writer", "error", err)
		}
	}
}

func runStdioMode(parent context.Context, logger *slog.Logger, mcpServer *sdkmcp.Server) {
	logger.Info("starting stdio transport", "auth", "disabled")

	stdio := &sdkmcp.StdioTransport{}

	// Setup signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		logger.Info("shutting down")
		cancel()
	}()

	// Run blocks until stdin closes or context is canceled
	if err := mcpServer.Run(ctx, stdio); err != nil {
		logger.Error("stdio server error", "error", err)
		os.Exit(1)
	}
}

func runHTTPMode(logger *slog.Logger, router *chi.Mux, mcpServer *sdkmcp.Server, host string, port int) {
	// Create HTTP handler using SDK
	mcpHandler := sdkmcp.NewStreamableHTTPHandler(
		func(r *http.Request) *sdkmcp.Server { return mcpServer },
		&sdkmcp.StreamableHTTPOptions{
			Stateless:      false,
			SessionTimeout: 30 * time.Minute,
		},
	)

	// The REST router already serves /health.
	router.Handle("/mcp", mcpHandler)
	router.Handle("/mcp/*", mcpHandler)

	addr := fmt.Sprintf("%s:%d", host, port)
	httpServer := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		logger.Info("server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
		}
	}()

	waitForShutdown(logger, httpServer)
}

func ensureDBDir(path string) error {
	if path == ":memory:" || path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func waitForShutdown(logger *slog.Logger, server *http.Server) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger.Info("shutting down")
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

const (
	maxLogSizeBytes  = 6 * 1024 * 1024
	keepLogSizeBytes = 5 * 1024 * 1024
)

type logFileWriter struct {
	path string
	file *os.File
	mu   sync.Mutex
}

func newLogFileWriter(path string) (*logFileWriter, *os.File, error) {
	if err := ensureLogDir(path); err != nil {
		return nil, nil, err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	writer := &logFileWriter{path: path, file: file}
	if err := writer.truncateIfNeeded(); err != nil {
		return nil, nil, err
	}
	return writer, file, nil
}

func ensureLogDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func (w *logFileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	n, err := w.file.Write(p)
	if err != nil {
		return n, err
	}
	if err := w.truncateIfNeeded(); err != nil {
		return n, err
	}
	return n, nil
}

func (w *logFileWriter) truncateIfNeeded() error {
	info, err := w.file.Stat()
	if err != nil {
		return err
	}
	size := info.Size()
	if size <= maxLogSizeBytes {
		return nil
	}
	if size <= keepLogSizeBytes {
		return nil
	}

	buf := make([]byte, keepLogSizeBytes)
	if _, err := w.file.Seek(size-keepLogSizeBytes, io.SeekStart); err != nil {
		return err
	}
	n, err := w.file.Read(buf)
	if err != nil && err != io.EOF {
		return err
	}
	buf = buf[:n]

	if err := w.file.Truncate(0); err != nil {
		return err
	}
	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if _, err := w.file.Write(buf); err != nil {
		return err
	}
	_, err = w.file.Seek(0, io.SeekEnd)
	return err
}
