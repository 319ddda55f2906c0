package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hsaleh/chequeflow/internal/api"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			orch, store, err := buildOrchestrator(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			e := echo.New()
			e.HideBanner = true
			e.Use(middleware.Recover())
			e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
				LogStatus: true,
				LogURI:    true,
				LogMethod: true,
				LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
					slog.Info("Request", "method", v.Method, "uri", v.URI, "status", v.Status)
					return nil
				},
			}))

			handler := api.NewHandler(orch, viper.GetInt64("upload.max_bytes"))
			handler.RegisterRoutes(e)

			addr := viper.GetString("server.addr")
			if addr == "" {
				addr = ":8080"
			}

			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := e.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "error", err)
				}
			}()

			slog.Info("Serving HTTP API", "addr", addr)
			if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server failed: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().String("addr", ":8080", "listen address")
	_ = viper.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	return cmd
}
