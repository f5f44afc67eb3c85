/*
Copyright © 2024 Dean
*/
package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	httpHdlr "storeclip/handler/http"
	"storeclip/src/events"
	"storeclip/src/log"
	"storeclip/src/videogen"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the upload and generation API",
	Long: `The serve command starts an HTTP server that accepts media uploads,
starts video generations and records their status as they are polled.`,
	RunE: RunServer,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func RunServer(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	minioService, err := newMinioService()
	if err != nil {
		return err
	}
	if err := minioService.EnsureBucketExists(ctx); err != nil {
		return fmt.Errorf("failed to ensure bucket exists: %w", err)
	}

	db, gens, err := openLedger()
	if err != nil {
		return err
	}
	defer func() {
		if err := closeDB(db); err != nil {
			log.Error(err, "Error closing database connection")
		}
	}()

	wmLogger := events.NewLogrAdapter(log.WithName("watermill"))
	transport, err := events.NewTransport(viper.GetString("events.driver"), viper.GetString("amqp.url"), wmLogger)
	if err != nil {
		return err
	}
	defer transport.Close()

	recorder := events.NewRecorder(events.RecordFunc(func(ctx context.Context, snap videogen.Snapshot) error {
		_, err := gens.RecordSnapshot(ctx, snap)
		return err
	}))
	router, err := events.NewRecorderRouter(transport.Subscriber, recorder, wmLogger)
	if err != nil {
		return err
	}
	routerDone := make(chan struct{})
	go func() {
		defer close(routerDone)
		if err := router.Run(ctx); err != nil {
			log.Error(err, "event router stopped")
		}
	}()
	select {
	case <-router.Running():
	case <-routerDone:
		return fmt.Errorf("event router failed to start")
	}

	backendClient := newBackendClient()
	service := videogen.NewService(
		minioService,
		backendClient,
		videogen.NewPoller(backendClient),
		videogen.WithObservers(events.NewStatusPublisher(transport.Publisher)),
	)

	handler := httpHdlr.NewHandler(ctx, minioService, service, gens, pollOptionsFromConfig())

	// Setup gin router
	r := gin.Default()
	handler.RegisterRoutes(r)

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + viper.GetString("server.port"),
		Handler: r,
	}

	// Start server in a goroutine
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error(err, "Failed to start server")
			cancel()
		}
	}()
	log.Info("Server started", "addr", srv.Addr)

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}
	log.Info("Shutting down server...")

	// Parse shutdown timeout
	timeout, err := time.ParseDuration(viper.GetString("server.shutdown_timeout"))
	if err != nil {
		log.Error(err, "Invalid shutdown timeout, using default 5s")
		timeout = 5 * time.Second
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
	defer shutdownCancel()

	// Attempt graceful shutdown
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(err, "Server forced to shutdown")
	}

	// Stop background polls, then the event router
	cancel()
	handler.Wait()
	<-routerDone

	log.Info("Server exited")
	return nil
}
