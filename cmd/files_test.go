package cmd

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storeclip/src/integrations/backend"
	"storeclip/src/upload"
)

type recordingUploader struct {
	calls []string
	fail  string
}

func (u *recordingUploader) Upload(ctx context.Context, file upload.File) (*upload.Result, error) {
	u.calls = append(u.calls, file.Name)
	if file.Name == u.fail {
		return nil, errors.New("bucket quota exceeded")
	}
	return &upload.Result{
		URL:      "http://localhost:9000/store-media/uploads/" + file.Name,
		FileName: file.Name,
		FileSize: file.Size,
		FileType: file.ContentType,
	}, nil
}

type fakeRegistry struct {
	submitted []backend.FileSubmission
	failOn    string
	deleted   []string
	deleteErr error
}

func (r *fakeRegistry) SubmitFile(ctx context.Context, file backend.FileSubmission) (*backend.Response, error) {
	if file.FileName == r.failOn {
		return nil, &backend.APIError{Method: "POST", Path: "/api/files", StatusCode: 500}
	}
	r.submitted = append(r.submitted, file)
	return &backend.Response{Success: true, FileID: "id-" + file.FileName}, nil
}

func (r *fakeRegistry) DeleteFile(ctx context.Context, fileID string) (*backend.Response, error) {
	if r.deleteErr != nil {
		return nil, r.deleteErr
	}
	r.deleted = append(r.deleted, fileID)
	return &backend.Response{Success: true}, nil
}

type fakeRemover struct {
	removed []string
	err     error
}

func (r *fakeRemover) RemoveObjectByURL(ctx context.Context, objectURL string) error {
	r.removed = append(r.removed, objectURL)
	return r.err
}

func localFiles(names ...string) []upload.File {
	out := make([]upload.File, len(names))
	for i, n := range names {
		out[i] = upload.File{Name: n, Size: int64(len(n)), ContentType: "image/jpeg", Reader: strings.NewReader(n)}
	}
	return out
}

func TestUploadAndRegister(t *testing.T) {
	uploader := &recordingUploader{}
	registry := &fakeRegistry{}
	remover := &fakeRemover{}

	var progressCalls int
	meta := backend.FileSubmission{Category: "menu", Tags: []string{"lunch"}}
	responses, err := uploadAndRegister(context.Background(), uploader, remover, registry,
		localFiles("a.jpg", "b.jpg"), meta, func([]upload.Progress) { progressCalls++ })

	require.NoError(t, err)
	require.Len(t, responses, 2)
	assert.Equal(t, "id-b.jpg", responses[1].FileID)
	assert.Equal(t, []string{"a.jpg", "b.jpg"}, uploader.calls)
	assert.Positive(t, progressCalls)

	require.Len(t, registry.submitted, 2)
	assert.Equal(t, "http://localhost:9000/store-media/uploads/a.jpg", registry.submitted[0].URL)
	assert.Equal(t, "menu", registry.submitted[0].Category)
	assert.Equal(t, []string{"lunch"}, registry.submitted[1].Tags)
	assert.Empty(t, remover.removed)
}

func TestUploadAndRegisterStopsAtFailedUpload(t *testing.T) {
	uploader := &recordingUploader{fail: "b.jpg"}
	registry := &fakeRegistry{}

	_, err := uploadAndRegister(context.Background(), uploader, &fakeRemover{}, registry,
		localFiles("a.jpg", "b.jpg", "c.jpg"), backend.FileSubmission{}, nil)

	require.Error(t, err)
	assert.Equal(t, []string{"a.jpg", "b.jpg"}, uploader.calls)
	assert.Empty(t, registry.submitted)
}

func TestUploadAndRegisterRemovesUnregistered(t *testing.T) {
	registry := &fakeRegistry{failOn: "b.jpg"}
	remover := &fakeRemover{}

	responses, err := uploadAndRegister(context.Background(), &recordingUploader{}, remover, registry,
		localFiles("a.jpg", "b.jpg", "c.jpg"), backend.FileSubmission{}, nil)

	require.Error(t, err)
	assert.Len(t, responses, 1)
	assert.Equal(t, []string{
		"http://localhost:9000/store-media/uploads/b.jpg",
		"http://localhost:9000/store-media/uploads/c.jpg",
	}, remover.removed)
}

func TestDeleteFile(t *testing.T) {
	objectURL := "http://localhost:9000/store-media/uploads/a.jpg"

	t.Run("record only", func(t *testing.T) {
		registry := &fakeRegistry{}
		_, err := deleteFile(context.Background(), registry, nil, "f-1", "")

		require.NoError(t, err)
		assert.Equal(t, []string{"f-1"}, registry.deleted)
	})

	t.Run("record and object", func(t *testing.T) {
		registry := &fakeRegistry{}
		remover := &fakeRemover{}
		_, err := deleteFile(context.Background(), registry, remover, "f-1", objectURL)

		require.NoError(t, err)
		assert.Equal(t, []string{objectURL}, remover.removed)
	})

	t.Run("object left when record delete fails", func(t *testing.T) {
		remover := &fakeRemover{}
		_, err := deleteFile(context.Background(), &fakeRegistry{deleteErr: backend.ErrNotFound}, remover, "f-1", objectURL)

		assert.ErrorIs(t, err, backend.ErrNotFound)
		assert.Empty(t, remover.removed)
	})

	t.Run("object removal error", func(t *testing.T) {
		boom := errors.New("access denied")
		resp, err := deleteFile(context.Background(), &fakeRegistry{}, &fakeRemover{err: boom}, "f-1", objectURL)

		assert.ErrorIs(t, err, boom)
		assert.NotNil(t, resp)
	})
}
