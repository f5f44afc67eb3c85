package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"storeclip/src/integrations/backend"
	"storeclip/src/log"
	"storeclip/src/upload"
)

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "Manage uploaded media known to the backend",
}

var filesUploadCmd = &cobra.Command{
	Use:   "upload <path>...",
	Short: "Upload files to object storage and register them with the backend",
	Long: `Uploads each file to object storage, one after the other, and registers
it with the backend. The first failed upload stops the remaining ones.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		category, _ := cmd.Flags().GetString("category")
		description, _ := cmd.Flags().GetString("description")
		tags, _ := cmd.Flags().GetString("tags")

		files, closeFiles, err := openFiles(args)
		if err != nil {
			return err
		}
		defer closeFiles()

		minioService, err := newMinioService()
		if err != nil {
			return err
		}

		meta := backend.FileSubmission{
			Category:    category,
			Description: description,
		}
		if tags != "" {
			meta.Tags = strings.Split(tags, ",")
		}

		bar := progressbar.NewOptions(len(files),
			progressbar.OptionSetDescription("uploading"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
		)
		responses, err := uploadAndRegister(cmd.Context(), minioService, minioService, newBackendClient(), files, meta,
			func(progress []upload.Progress) {
				bar.Set(countCompleted(progress))
			})
		bar.Finish()
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return err
		}
		return printJSON(os.Stdout, responses)
	},
}

var filesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered files",
	RunE: func(cmd *cobra.Command, args []string) error {
		var q backend.FileQuery
		q.Category, _ = cmd.Flags().GetString("category")
		q.Limit, _ = cmd.Flags().GetInt("limit")
		q.Offset, _ = cmd.Flags().GetInt("offset")

		resp, err := newBackendClient().ListFiles(cmd.Context(), q)
		if err != nil {
			return err
		}
		return printJSON(os.Stdout, resp)
	},
}

var filesDeleteCmd = &cobra.Command{
	Use:   "delete <file-id>",
	Short: "Delete a registered file",
	Long: `Deletes the backend record of a file. With --object-url the stored object
is removed from the bucket as well.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		objectURL, _ := cmd.Flags().GetString("object-url")

		var remover objectRemover
		if objectURL != "" {
			minioService, err := newMinioService()
			if err != nil {
				return err
			}
			remover = minioService
		}

		resp, err := deleteFile(cmd.Context(), newBackendClient(), remover, args[0], objectURL)
		if err != nil {
			return err
		}
		return printJSON(os.Stdout, resp)
	},
}

type fileRegistry interface {
	SubmitFile(ctx context.Context, file backend.FileSubmission) (*backend.Response, error)
	DeleteFile(ctx context.Context, fileID string) (*backend.Response, error)
}

type objectRemover interface {
	RemoveObjectByURL(ctx context.Context, objectURL string) error
}

// uploadAndRegister uploads files sequentially and registers each one with
// meta as template. Objects whose registration did not happen are removed
// from storage again.
func uploadAndRegister(ctx context.Context, uploader upload.Uploader, remover objectRemover, registry fileRegistry,
	files []upload.File, meta backend.FileSubmission, onProgress func([]upload.Progress)) ([]*backend.Response, error) {
	results, err := upload.NewBatch(uploader, onProgress).Sequential(ctx, files)
	if err != nil {
		return nil, err
	}

	responses := make([]*backend.Response, 0, len(results))
	for i, res := range results {
		sub := meta
		sub.URL = res.URL
		sub.FileName = res.FileName
		sub.FileSize = res.FileSize
		sub.FileType = res.FileType

		resp, err := registry.SubmitFile(ctx, sub)
		if err != nil {
			for _, orphan := range results[i:] {
				if rmErr := remover.RemoveObjectByURL(ctx, orphan.URL); rmErr != nil {
					log.Error(rmErr, "failed to remove unregistered object", "url", orphan.URL)
				}
			}
			return responses, err
		}
		responses = append(responses, resp)
	}
	return responses, nil
}

// deleteFile drops the backend record and then, when objectURL is set, the
// stored object.
func deleteFile(ctx context.Context, registry fileRegistry, remover objectRemover, fileID, objectURL string) (*backend.Response, error) {
	resp, err := registry.DeleteFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if objectURL == "" {
		return resp, nil
	}
	if err := remover.RemoveObjectByURL(ctx, objectURL); err != nil {
		return resp, fmt.Errorf("file %s deleted but its object was not: %w", fileID, err)
	}
	return resp, nil
}

func init() {
	rootCmd.AddCommand(filesCmd)
	filesCmd.AddCommand(filesUploadCmd, filesListCmd, filesDeleteCmd)

	filesUploadCmd.Flags().String("category", "", "Category to file the upload under")
	filesUploadCmd.Flags().String("description", "", "Free-form description")
	filesUploadCmd.Flags().String("tags", "", "Comma separated tags")

	filesDeleteCmd.Flags().String("object-url", "", "URL of the stored object to remove as well")

	filesListCmd.Flags().String("category", "", "Only list this category")
	filesListCmd.Flags().Int("limit", 0, "Page size")
	filesListCmd.Flags().Int("offset", 0, "Offset")
}
