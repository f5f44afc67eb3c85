package videogen

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storeclip/src/log"
	"storeclip/src/upload"
)

// Submitter creates generation jobs on the backend.
type Submitter interface {
	CreateVideoGeneration(ctx context.Context, req GenerationRequest) (*GenerationCreated, error)
}

// StatusObserver receives every snapshot a Service sees. Observers cannot
// fail a session; they must handle their own errors.
type StatusObserver interface {
	ObserveStatus(ctx context.Context, snap Snapshot)
}

type ServiceOption func(*Service)

func WithObservers(observers ...StatusObserver) ServiceOption {
	return func(s *Service) {
		s.observers = append(s.observers, observers...)
	}
}

// GenerateInput is everything needed to make one video.
type GenerateInput struct {
	Text    string
	StoreID string
	Images  []upload.File
	Videos  []upload.File

	// OnUploadProgress follows the combined image and video upload.
	OnUploadProgress func([]upload.Progress)
}

// Service runs the upload, submit and poll pipeline.
type Service struct {
	uploader  upload.Uploader
	submitter Submitter
	poller    *Poller
	observers []StatusObserver
	now       func() time.Time
}

func NewService(uploader upload.Uploader, submitter Submitter, poller *Poller, opts ...ServiceOption) *Service {
	s := &Service{
		uploader:  uploader,
		submitter: submitter,
		poller:    poller,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GenerateVideo uploads the input media, submits a generation request and
// waits for the job to finish.
func (s *Service) GenerateVideo(ctx context.Context, in GenerateInput, opts PollOptions) (*StatusResponse, error) {
	jobID, err := s.Submit(ctx, in)
	if err != nil {
		return nil, err
	}
	return s.Poll(ctx, jobID, in.StoreID, opts)
}

// Submit uploads the input media and creates the generation job, returning
// its id. Uploaded files are not cleaned up if submission fails.
func (s *Service) Submit(ctx context.Context, in GenerateInput) (string, error) {
	if in.StoreID == "" {
		return "", errors.New("store id is required")
	}

	images, videos, err := s.uploadMedia(ctx, in)
	if err != nil {
		return "", fmt.Errorf("failed to upload media: %w", err)
	}

	created, err := s.submitter.CreateVideoGeneration(ctx, GenerationRequest{
		Text:    in.Text,
		Images:  images,
		Videos:  videos,
		StoreID: in.StoreID,
	})
	if err != nil {
		if len(images)+len(videos) > 0 {
			log.Info("generation submission failed, uploaded media left in place",
				"store_id", in.StoreID, "images", len(images), "videos", len(videos))
		}
		return "", fmt.Errorf("failed to create video generation: %w", err)
	}

	log.Info("video generation submitted", "job_id", created.ID, "store_id", in.StoreID)
	return created.ID, nil
}

// Poll waits for jobID, fanning every snapshot out to the caller's
// OnStatusUpdate and the configured observers. Snapshot.Attempt is the
// poller's attempt number, so it skips the attempts whose fetch failed.
func (s *Service) Poll(ctx context.Context, jobID, storeID string, opts PollOptions) (*StatusResponse, error) {
	opts.onAttempt = func(attempt int, status StatusResponse) {
		snap := Snapshot{
			JobID:      jobID,
			StoreID:    storeID,
			Attempt:    attempt,
			Status:     status,
			ObservedAt: s.now().UTC(),
		}
		for _, o := range s.observers {
			o.ObserveStatus(ctx, snap)
		}
	}

	status, err := s.poller.Poll(ctx, jobID, opts)
	if err != nil {
		log.Error(err, "video generation did not complete", "job_id", jobID)
		return nil, err
	}
	return status, nil
}

func (s *Service) uploadMedia(ctx context.Context, in GenerateInput) ([]MediaRef, []MediaRef, error) {
	files := make([]upload.File, 0, len(in.Images)+len(in.Videos))
	files = append(files, in.Images...)
	files = append(files, in.Videos...)
	if len(files) == 0 {
		return []MediaRef{}, []MediaRef{}, nil
	}

	results, err := upload.NewBatch(s.uploader, in.OnUploadProgress).Parallel(ctx, files)
	if err != nil {
		return nil, nil, err
	}

	images := toMediaRefs(results[:len(in.Images)], in.Images)
	videos := toMediaRefs(results[len(in.Images):], in.Videos)
	return images, videos, nil
}

func toMediaRefs(results []upload.Result, files []upload.File) []MediaRef {
	refs := make([]MediaRef, len(results))
	for i, r := range results {
		refs[i] = MediaRef{
			URL:          r.URL,
			OriginalName: files[i].Name,
		}
	}
	return refs
}
