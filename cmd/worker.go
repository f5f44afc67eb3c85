package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"storeclip/src/events"
	"storeclip/src/log"
	"storeclip/src/videogen"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Record generation status events from the message queue",
	Long: `The worker command consumes status events published by other storeclip
processes over AMQP and records them in the generation ledger.`,
	RunE: runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
	if driver := viper.GetString("events.driver"); driver != events.DriverAMQP {
		return fmt.Errorf("worker needs events.driver=%s, got %q", events.DriverAMQP, driver)
	}

	db, gens, err := openLedger()
	if err != nil {
		return err
	}
	defer closeDB(db)

	logger := events.NewLogrAdapter(log.WithName("watermill"))
	transport, err := events.NewTransport(events.DriverAMQP, viper.GetString("amqp.url"), logger)
	if err != nil {
		return err
	}
	defer transport.Close()

	recorder := events.NewRecorder(events.RecordFunc(func(ctx context.Context, snap videogen.Snapshot) error {
		_, err := gens.RecordSnapshot(ctx, snap)
		return err
	}))
	router, err := events.NewRecorderRouter(transport.Subscriber, recorder, logger)
	if err != nil {
		return err
	}

	// Run the router
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- router.Run(ctx)
	}()

	// Graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-c:
	case err := <-errCh:
		return err
	}

	log.Info("Shutting down...")
	cancel()
	if err := <-errCh; err != nil {
		log.Error(err, "router stopped with error")
	}
	log.Info("Router stopped")

	return nil
}
