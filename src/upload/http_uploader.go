package upload

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
)

// HTTPUploader sends files to a remote upload endpoint as multipart form
// data under the "file" field.
type HTTPUploader struct {
	httpClient *http.Client
	endpoint   string
}

func NewHTTPUploader(endpoint string, c *http.Client) *HTTPUploader {
	if c == nil {
		c = http.DefaultClient
	}
	return &HTTPUploader{
		httpClient: c,
		endpoint:   endpoint,
	}
}

type uploadReply struct {
	Success bool `json:"success"`
	Result
	Error string `json:"error,omitempty"`
}

func (u *HTTPUploader) Upload(ctx context.Context, file File) (*Result, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, file.Name))
		if file.ContentType != "" {
			header.Set("Content-Type", file.ContentType)
		} else {
			header.Set("Content-Type", "application/octet-stream")
		}

		part, err := mw.CreatePart(header)
		if err != nil {
			pw.CloseWithError(fmt.Errorf("failed to create form file: %w", err))
			return
		}
		if _, err := io.Copy(part, file.Reader); err != nil {
			pw.CloseWithError(fmt.Errorf("failed to write file content: %w", err))
			return
		}
		pw.CloseWithError(mw.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.endpoint, pr)
	if err != nil {
		pr.Close()
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to upload %s: %w", file.Name, err)
	}
	defer resp.Body.Close()

	var reply uploadReply
	decodeErr := json.NewDecoder(resp.Body).Decode(&reply)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if decodeErr == nil && reply.Error != "" {
			return nil, fmt.Errorf("failed to upload %s: %s", file.Name, reply.Error)
		}
		return nil, fmt.Errorf("failed to upload %s: %s", file.Name, resp.Status)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("error decoding upload response: %w", decodeErr)
	}

	return &reply.Result, nil
}
