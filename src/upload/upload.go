package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
)

var ErrNoFiles = errors.New("no files to upload")

// File is one file handed to an Uploader.
type File struct {
	Name        string
	Size        int64
	ContentType string
	Reader      io.Reader
}

// Result describes where an uploaded file ended up.
type Result struct {
	URL      string `json:"url"`
	FileName string `json:"fileName"`
	FileSize int64  `json:"fileSize"`
	FileType string `json:"fileType"`
}

// Uploader stores raw file bytes and returns a URL for them.
type Uploader interface {
	Upload(ctx context.Context, file File) (*Result, error)
}

// OpenFile opens a local file for upload. The caller must close the
// returned closer once the upload has finished.
func OpenFile(path string) (File, io.Closer, error) {
	info, err := os.Stat(path)
	if err != nil {
		return File{}, nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return File{}, nil, fmt.Errorf("%s is a directory", path)
	}

	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return File{}, nil, fmt.Errorf("failed to detect content type of %s: %w", path, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return File{}, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	return File{
		Name:        filepath.Base(path),
		Size:        info.Size(),
		ContentType: mtype.String(),
		Reader:      f,
	}, f, nil
}
