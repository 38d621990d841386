package cmd

import (
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"invoice-reconciliation-service/cmd/reconciler/config"
	"invoice-reconciliation-service/internal/reconciler"
	"invoice-reconciliation-service/internal/server"
	"invoice-reconciliation-service/internal/store"
	"invoice-reconciliation-service/pkg/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var servePort int

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP reconciliation endpoint",
	Long: `Serve starts an HTTP server exposing POST /reconcile. A request names the
invoice and purchase-order files by their document-store locations; the
server downloads both, runs the reconciliation engine, uploads the report,
and answers with the report's location.

Document store settings come from RECONCILER_STORE_* environment variables
or the config file.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntVar(&servePort, "port", 10000, "server port")
	viper.BindPFlag("port", serveCmd.Flags().Lookup("port"))
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := logger.WithComponent("serve")

	storeConfig, err := config.CreateStoreConfig()
	if err != nil {
		return err
	}
	storeClient, err := store.NewClient(storeConfig)
	if err != nil {
		return err
	}

	engine, err := reconciler.NewEngine(config.CreateEngineConfig())
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", viper.GetInt("port")),
		Handler: server.New(engine, storeClient).Handler(),
	}

	// Graceful shutdown
	go func() {
		<-ctx.Done()
		log.Info("Shutting down server")
		srv.Shutdown(ctx)
	}()

	log.WithField("addr", srv.Addr).Info("Starting server")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server listen: %w", err)
	}

	return nil
}
