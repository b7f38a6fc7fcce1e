package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/espalier/internal/cli"
	"github.com/aretw0/espalier/internal/logging"
	"github.com/aretw0/espalier/pkg/adapters/httpapi"
	"github.com/aretw0/espalier/pkg/adapters/render"
	"github.com/aretw0/espalier/pkg/flowyaml"
	"github.com/aretw0/espalier/pkg/ports"
	"github.com/aretw0/espalier/pkg/validate"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the flow editing HTTP server",
	Long:  `Starts the JSON API that the editor frontend talks to: project and flow CRUD, validation, YAML import and artifact export.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(cmd)
		if err != nil {
			fmt.Printf("Error loading config: %v\n", err)
			os.Exit(1)
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Server.Addr = addr
		}

		logger := logging.New(logging.ParseLevel(cfg.Log.Level))

		backend, err := cli.NewBackend(cfg)
		if err != nil {
			fmt.Printf("Error opening storage: %v\n", err)
			os.Exit(1)
		}
		defer backend.Close()

		handler := httpapi.NewHandler(httpapi.Config{
			Store:     backend.Store,
			Projects:  backend.Projects,
			Validator: validate.New(),
			Exporters: []ports.FlowExporter{
				flowyaml.Exporter{},
				render.MermaidExporter{},
				render.PNGExporter{},
			},
			Locker: backend.Locker,
			Logger: logger,
		})

		srv := &http.Server{
			Addr:    cfg.Server.Addr,
			Handler: handler,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)

		go func() {
			logger.Info("server listening", "addr", srv.Addr, "backend", cfg.Storage.Backend)
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			logger.Error("server error", "err", err)
			os.Exit(1)

		case sig := <-shutdown:
			logger.Info("shutdown requested", "signal", sig.String())

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				logger.Error("graceful shutdown did not complete", "err", err)
				if err := srv.Close(); err != nil {
					logger.Error("error killing server", "err", err)
				}
			}
			logger.Info("server stopped")
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("addr", "a", "", "Listen address (overrides config)")
}
