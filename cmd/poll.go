package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"storeclip/src/videogen"
)

var pollCmd = &cobra.Command{
	Use:   "poll <job-id>",
	Short: "Wait for an existing video generation job",
	Args:  cobra.ExactArgs(1),
	RunE:  runPoll,
}

func init() {
	rootCmd.AddCommand(pollCmd)
	pollCmd.Flags().Bool("once", false, "Check the status a single time instead of waiting")
	pollCmd.Flags().String("store-id", "", "Store the job belongs to (recorded with --record)")
	pollCmd.Flags().Bool("record", false, "Record status snapshots in the local generation ledger")
	addPollFlags(pollCmd)
}

func runPoll(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	jobID := args[0]
	once, _ := cmd.Flags().GetBool("once")
	storeID, _ := cmd.Flags().GetString("store-id")
	record, _ := cmd.Flags().GetBool("record")

	backendClient := newBackendClient()
	poller := videogen.NewPoller(backendClient)

	if once {
		status, err := poller.Check(ctx, jobID)
		if err != nil {
			return err
		}
		return printJSON(os.Stdout, status.Payload)
	}

	var serviceOpts []videogen.ServiceOption
	if record {
		db, gens, err := openLedger()
		if err != nil {
			return err
		}
		defer closeDB(db)
		serviceOpts = append(serviceOpts, videogen.WithObservers(gens))
	}

	// Polling never uploads or submits, so the service needs neither.
	service := videogen.NewService(nil, nil, poller, serviceOpts...)

	opts, err := pollOptionsFromFlags(cmd)
	if err != nil {
		return err
	}
	status, err := pollWithSpinner(ctx, jobID, storeID, service, opts)
	if err != nil {
		return err
	}
	return printJSON(os.Stdout, status.Payload)
}
