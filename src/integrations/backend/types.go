package backend

import (
	"encoding/json"
	"time"
)

// Store is a store profile owned by the signed-in user.
type Store struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Address     string `json:"address"`
	Description string `json:"description"`
	NaverURL    string `json:"naverUrl,omitempty"`
}

// StoreRequest is the body for creating or updating a store.
type StoreRequest struct {
	Name        string `json:"name"`
	Address     string `json:"address"`
	Description string `json:"description"`
	NaverURL    string `json:"naverUrl,omitempty"`
}

// FileSubmission records an uploaded file with the backend.
type FileSubmission struct {
	URL         string    `json:"url"`
	FileName    string    `json:"fileName"`
	FileSize    int64     `json:"fileSize"`
	FileType    string    `json:"fileType"`
	UploadedAt  time.Time `json:"uploadedAt"`
	Category    string    `json:"category,omitempty"`
	Description string    `json:"description,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
}

// FileQuery filters ListFiles. Zero fields are left out of the query.
type FileQuery struct {
	Category string
	Limit    int
	Offset   int
}

// Response is the generic envelope of the file endpoints.
type Response struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	FileID  string          `json:"fileId,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}
