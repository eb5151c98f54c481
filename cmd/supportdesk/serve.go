package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/halfmoonlab/supportdesk/agent"
	"github.com/halfmoonlab/supportdesk/approval"
	"github.com/halfmoonlab/supportdesk/catalog"
	"github.com/halfmoonlab/supportdesk/db"
	"github.com/halfmoonlab/supportdesk/gate"
	"github.com/halfmoonlab/supportdesk/server"
	"github.com/halfmoonlab/supportdesk/session"
	"github.com/halfmoonlab/supportdesk/tools"
	"github.com/halfmoonlab/supportdesk/tools/builtin"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the support agent HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := slog.New(slog.NewTextHandler(os.Stderr, nil))
		slog.SetDefault(log)

		apiKey := llmAPIKeyFromViper()
		if apiKey == "" {
			return fmt.Errorf("llm.api_key is not set (or OPENAI_API_KEY)")
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		gdb, err := db.Open(ctx, dbConfigFromViper())
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		if viper.GetBool("db.automigrate") {
			if err := db.AutoMigrate(gdb); err != nil {
				return fmt.Errorf("migrate db: %w", err)
			}
		}
		sessions := session.NewGormStore(gdb)

		dsn, err := db.ResolveSQLiteDSN(viper.GetString("db.dsn"))
		if err != nil {
			return fmt.Errorf("resolve ticket dsn: %w", err)
		}
		tickets, err := gate.NewSQLiteTicketStore(dsn)
		if err != nil {
			return fmt.Errorf("open ticket store: %w", err)
		}
		defer tickets.Close()

		g := gateFromViper()
		registry := tools.NewRegistry()
		registry.Register(builtin.NewCatalogLookupTool(catalog.DemoProducts()))
		registry.Register(builtin.NewOrderLookupTool(catalog.DemoOrders()))
		registry.Register(builtin.NewRequestRefundTool(g))

		client := llmClientFromViper(apiKey)
		appName := strings.TrimSpace(viper.GetString("app.name"))
		engine := agent.New(client, registry, sessions, agent.Config{
			AppName: appName,
			Model:   llmModelFromViper(),
		}, agent.WithLogger(log))

		coordOpts := []approval.Option{approval.WithLogger(log)}
		if sink := auditSinkFromViper(log); sink != nil {
			defer sink.Close()
			coordOpts = append(coordOpts, approval.WithAudit(sink, redactorFromViper()))
		}
		coord := approval.New(engine, sessions, tickets, appName, coordOpts...)

		addr := viper.GetString("server.addr")
		srv := &http.Server{
			Addr:    addr,
			Handler: server.New(coord, log).Handler(),
		}

		errCh := make(chan error, 1)
		go func() {
			log.Info("http_listening", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- err
			}
		}()

		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

		select {
		case err := <-errCh:
			return err
		case sig := <-stop:
			log.Info("shutting_down", "signal", sig.String())
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	},
}
