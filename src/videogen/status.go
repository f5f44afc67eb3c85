package videogen

import (
	"encoding/json"
	"time"
)

// Status is the lifecycle state of a video generation job as reported by
// the backend. Transitions are owned by the backend; clients only observe.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusRunning   Status = "RUNNING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

// IsTerminal reports whether no further transitions follow s.
// Unknown values are treated as non-terminal.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// StatusResponse is one snapshot of a generation job.
type StatusResponse struct {
	ID           string `json:"id"`
	Status       Status `json:"status"`
	ErrorMessage string `json:"errorMessage,omitempty"`
	VideoURL     string `json:"videoUrl,omitempty"`

	// Payload is the raw response body, so result fields the client does
	// not model are still available once the job completes.
	Payload json.RawMessage `json:"-"`
}

func (s *StatusResponse) UnmarshalJSON(data []byte) error {
	type plain StatusResponse
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*s = StatusResponse(p)
	s.Payload = append(json.RawMessage(nil), data...)
	return nil
}

// MediaRef points at one uploaded image or video.
type MediaRef struct {
	URL          string `json:"url"`
	OriginalName string `json:"originalName"`
}

// GenerationRequest is the body of a video generation submission.
type GenerationRequest struct {
	Text    string     `json:"text"`
	Images  []MediaRef `json:"images"`
	Videos  []MediaRef `json:"videos"`
	StoreID string     `json:"storeId"`
}

// GenerationCreated is the backend's reply to a submission.
type GenerationCreated struct {
	ID string `json:"id"`
}

// Snapshot is a status observation enriched with the session it came from.
type Snapshot struct {
	JobID      string
	StoreID    string
	Attempt    int
	Status     StatusResponse
	ObservedAt time.Time
}
