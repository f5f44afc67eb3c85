package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"storeclip/src/log"
	"storeclip/src/upload"
	"storeclip/src/videogen"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Make a video from store photos and clips",
	Long: `Uploads the given images and videos, submits a video generation request
for the store and waits until the backend reports the job as finished.`,
	Example: "storeclip generate --store-id 12 --text 'Grand opening' --image front.jpg --image menu.jpg --video kitchen.mp4",
	RunE:    runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)
	generateCmd.Flags().String("store-id", "", "Store to generate the video for")
	generateCmd.MarkFlagRequired("store-id")
	generateCmd.Flags().String("text", "", "Prompt text for the video")
	generateCmd.Flags().StringArray("image", nil, "Image file to include (repeatable)")
	generateCmd.Flags().StringArray("video", nil, "Video file to include (repeatable)")
	generateCmd.Flags().Bool("via-server", false, "Upload through a running `storeclip serve` instead of MinIO directly")
	generateCmd.Flags().Bool("record", false, "Record status snapshots in the local generation ledger")
	addPollFlags(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	storeID, _ := cmd.Flags().GetString("store-id")
	text, _ := cmd.Flags().GetString("text")
	imagePaths, _ := cmd.Flags().GetStringArray("image")
	videoPaths, _ := cmd.Flags().GetStringArray("video")
	viaServer, _ := cmd.Flags().GetBool("via-server")
	record, _ := cmd.Flags().GetBool("record")

	images, closeImages, err := openFiles(imagePaths)
	if err != nil {
		return err
	}
	defer closeImages()
	videos, closeVideos, err := openFiles(videoPaths)
	if err != nil {
		return err
	}
	defer closeVideos()

	var uploader upload.Uploader
	if viaServer {
		uploader = upload.NewHTTPUploader(viper.GetString("upload.url"), &http.Client{})
	} else {
		minioService, err := newMinioService()
		if err != nil {
			return err
		}
		uploader = minioService
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

	backendClient := newBackendClient()
	service := videogen.NewService(uploader, backendClient, videogen.NewPoller(backendClient), serviceOpts...)

	total := len(images) + len(videos)
	uploadBar := progressbar.NewOptions(total,
		progressbar.OptionSetDescription("uploading"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
	)

	jobID, err := service.Submit(ctx, videogen.GenerateInput{
		Text:    text,
		StoreID: storeID,
		Images:  images,
		Videos:  videos,
		OnUploadProgress: func(progress []upload.Progress) {
			uploadBar.Set(countCompleted(progress))
		},
	})
	uploadBar.Finish()
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "\ngeneration job %s submitted\n", jobID)

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

func addPollFlags(cmd *cobra.Command) {
	cmd.Flags().Duration("interval", 0, "Delay between status checks (default from poll.interval)")
	cmd.Flags().Int("max-attempts", 0, "Maximum number of status checks (default from poll.max_attempts)")
}

func pollOptionsFromFlags(cmd *cobra.Command) (videogen.PollOptions, error) {
	opts := pollOptionsFromConfig()
	if cmd.Flags().Changed("interval") {
		interval, err := cmd.Flags().GetDuration("interval")
		if err != nil {
			return opts, err
		}
		opts.Interval = interval
	}
	if cmd.Flags().Changed("max-attempts") {
		maxAttempts, err := cmd.Flags().GetInt("max-attempts")
		if err != nil {
			return opts, err
		}
		opts.MaxAttempts = maxAttempts
	}
	return opts, nil
}

func pollWithSpinner(ctx context.Context, jobID, storeID string, service *videogen.Service, opts videogen.PollOptions) (*videogen.StatusResponse, error) {
	spinner := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("waiting for job "+jobID),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSpinnerType(14),
	)
	defer spinner.Finish()

	opts.OnStatusUpdate = func(status videogen.StatusResponse) {
		spinner.Describe(fmt.Sprintf("job %s: %s", jobID, status.Status))
		spinner.Add(1)
		log.Debug("status update", "job_id", jobID, "status", status.Status)
	}
	return service.Poll(ctx, jobID, storeID, opts)
}

func openFiles(paths []string) ([]upload.File, func(), error) {
	files := make([]upload.File, 0, len(paths))
	closers := make([]io.Closer, 0, len(paths))
	closeAll := func() {
		for _, c := range closers {
			c.Close()
		}
	}

	for _, p := range paths {
		f, closer, err := upload.OpenFile(p)
		if err != nil {
			closeAll()
			return nil, func() {}, err
		}
		files = append(files, f)
		closers = append(closers, closer)
	}
	return files, closeAll, nil
}

func countCompleted(progress []upload.Progress) int {
	n := 0
	for _, p := range progress {
		if p.Status == upload.ProgressCompleted {
			n++
		}
	}
	return n
}

func printJSON(w io.Writer, v interface{}) error {
	if raw, ok := v.(json.RawMessage); ok {
		if len(raw) == 0 {
			return nil
		}
		var decoded interface{}
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return err
		}
		v = decoded
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
