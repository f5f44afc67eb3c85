package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"storeclip/src/log"
	"storeclip/src/videogen"
)

const StatusTopic = "video_generation.status"

// StatusEvent is the wire form of a videogen.Snapshot.
type StatusEvent struct {
	JobID        string          `json:"job_id"`
	StoreID      string          `json:"store_id,omitempty"`
	Attempt      int             `json:"attempt"`
	Status       videogen.Status `json:"status"`
	ErrorMessage string          `json:"error_message,omitempty"`
	VideoURL     string          `json:"video_url,omitempty"`
	Payload      json.RawMessage `json:"payload,omitempty"`
	ObservedAt   time.Time       `json:"observed_at"`
}

func NewStatusEvent(snap videogen.Snapshot) StatusEvent {
	return StatusEvent{
		JobID:        snap.JobID,
		StoreID:      snap.StoreID,
		Attempt:      snap.Attempt,
		Status:       snap.Status.Status,
		ErrorMessage: snap.Status.ErrorMessage,
		VideoURL:     snap.Status.VideoURL,
		Payload:      snap.Status.Payload,
		ObservedAt:   snap.ObservedAt,
	}
}

// Snapshot converts the event back into the form the poller produced.
func (e StatusEvent) Snapshot() videogen.Snapshot {
	return videogen.Snapshot{
		JobID:   e.JobID,
		StoreID: e.StoreID,
		Attempt: e.Attempt,
		Status: videogen.StatusResponse{
			ID:           e.JobID,
			Status:       e.Status,
			ErrorMessage: e.ErrorMessage,
			VideoURL:     e.VideoURL,
			Payload:      e.Payload,
		},
		ObservedAt: e.ObservedAt,
	}
}

// StatusPublisher publishes every observed snapshot to StatusTopic. It is a
// videogen.StatusObserver.
type StatusPublisher struct {
	publisher message.Publisher
	topic     string
}

func NewStatusPublisher(publisher message.Publisher) *StatusPublisher {
	return &StatusPublisher{
		publisher: publisher,
		topic:     StatusTopic,
	}
}

// Publish sends one snapshot.
func (p *StatusPublisher) Publish(ctx context.Context, snap videogen.Snapshot) error {
	payload, err := json.Marshal(NewStatusEvent(snap))
	if err != nil {
		return fmt.Errorf("failed to marshal status event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	msg.Metadata.Set("job_id", snap.JobID)

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("failed to publish status event: %w", err)
	}
	return nil
}

// ObserveStatus implements videogen.StatusObserver. Publishing failures are
// logged and never interrupt polling.
func (p *StatusPublisher) ObserveStatus(ctx context.Context, snap videogen.Snapshot) {
	if err := p.Publish(ctx, snap); err != nil {
		log.Error(err, "failed to publish status event", "job_id", snap.JobID, "status", snap.Status.Status)
	}
}

// SnapshotRecorder persists snapshots.
type SnapshotRecorder interface {
	RecordSnapshot(ctx context.Context, snap videogen.Snapshot) error
}

// RecordFunc adapts a plain function to SnapshotRecorder.
type RecordFunc func(ctx context.Context, snap videogen.Snapshot) error

func (f RecordFunc) RecordSnapshot(ctx context.Context, snap videogen.Snapshot) error {
	return f(ctx, snap)
}

// Recorder consumes status events and records them.
type Recorder struct {
	store SnapshotRecorder
}

func NewRecorder(store SnapshotRecorder) *Recorder {
	return &Recorder{store: store}
}

// Handle is a watermill NoPublishHandlerFunc.
func (r *Recorder) Handle(msg *message.Message) error {
	var event StatusEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return fmt.Errorf("failed to unmarshal status event: %w", err)
	}
	if event.JobID == "" {
		return fmt.Errorf("status event %s has no job id", msg.UUID)
	}

	if err := r.store.RecordSnapshot(msg.Context(), event.Snapshot()); err != nil {
		return err
	}

	log.Debug("status event recorded", "job_id", event.JobID, "status", event.Status)
	return nil
}
