package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/httplog/v3"

	"hrm-payroll/internal/app/server"
	"hrm-payroll/internal/platform/config"
	"hrm-payroll/internal/requestctx"
)

func main() {
	cfg := config.Load()

	logFormat := httplog.SchemaECS.Concise(cfg.Environment != "production")
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:       slog.LevelInfo,
		ReplaceAttr: logFormat.ReplaceAttr,
	})
	logger := slog.New(requestctx.NewLogHandler(handler)).With(
		slog.String("app", "hrm-payroll"),
		slog.String("env", cfg.Environment),
	)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx, cfg, logger); err != nil {
		slog.Error("server stopped", "err", err)
		os.Exit(1)
	}
}
