package generationctrl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"storeclip/src/log"
	"storeclip/src/videogen"
)

// Generation is the local record of one polling session.
type Generation struct {
	ID           int64           `gorm:"primaryKey" json:"id,string"`
	JobID        string          `gorm:"uniqueIndex;not null" json:"job_id"`
	StoreID      string          `gorm:"index" json:"store_id"`
	Status       string          `gorm:"not null" json:"status"`
	ErrorMessage string          `json:"error_message,omitempty"`
	VideoURL     string          `json:"video_url,omitempty"`
	Attempts     int             `gorm:"not null;default:0" json:"attempts"`
	Payload      json.RawMessage `json:"payload,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

type GenerationService struct {
	db        *gorm.DB
	snowflake *snowflake.Node
}

func NewGenerationService(db *gorm.DB) (*GenerationService, error) {
	node, err := snowflake.NewNode(1)
	if err != nil {
		return nil, fmt.Errorf("failed to create snowflake node: %w", err)
	}

	return &GenerationService{
		db:        db,
		snowflake: node,
	}, nil
}

func (s *GenerationService) AutoMigrate() error {
	return s.db.AutoMigrate(&Generation{})
}

// Create registers a freshly submitted job as PENDING. Creating a job that
// is already recorded returns the existing row.
func (s *GenerationService) Create(ctx context.Context, jobID, storeID string) (*Generation, error) {
	var gen *Generation
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := findByJobID(tx, jobID)
		if err != nil {
			return err
		}
		if existing != nil {
			gen = existing
			return nil
		}

		gen = &Generation{
			ID:      s.snowflake.Generate().Int64(),
			JobID:   jobID,
			StoreID: storeID,
			Status:  string(videogen.StatusPending),
		}
		return tx.Create(gen).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create generation: %w", err)
	}
	return gen, nil
}

// RecordSnapshot stores snap as the latest known state of its job, creating
// the row when the job has not been seen before. Attempts mirrors
// snap.Attempt; a snapshot older than the stored one is ignored, so
// recording the same snapshot twice leaves the row unchanged.
func (s *GenerationService) RecordSnapshot(ctx context.Context, snap videogen.Snapshot) (*Generation, error) {
	var gen *Generation
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := findByJobID(tx, snap.JobID)
		if err != nil {
			return err
		}

		if existing == nil {
			gen = &Generation{
				ID:      s.snowflake.Generate().Int64(),
				JobID:   snap.JobID,
				StoreID: snap.StoreID,
			}
		} else {
			gen = existing
		}

		// redelivered or out-of-order events must not roll the row back
		if existing != nil && snap.Attempt < gen.Attempts {
			return nil
		}

		if gen.StoreID == "" {
			gen.StoreID = snap.StoreID
		}
		gen.Status = string(snap.Status.Status)
		gen.ErrorMessage = snap.Status.ErrorMessage
		gen.VideoURL = snap.Status.VideoURL
		gen.Payload = snap.Status.Payload
		gen.Attempts = snap.Attempt

		return tx.Save(gen).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record snapshot for job %s: %w", snap.JobID, err)
	}
	return gen, nil
}

// GetByJobID returns nil, nil when the job is unknown.
func (s *GenerationService) GetByJobID(ctx context.Context, jobID string) (*Generation, error) {
	gen, err := findByJobID(s.db.WithContext(ctx), jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to get generation: %w", err)
	}
	return gen, nil
}

// List returns a paginated list of generations, newest first
func (s *GenerationService) List(ctx context.Context, limit int, offset int) ([]Generation, error) {
	var gens []Generation

	result := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&gens)

	if result.Error != nil {
		return nil, fmt.Errorf("failed to list generations: %w", result.Error)
	}

	return gens, nil
}

func findByJobID(db *gorm.DB, jobID string) (*Generation, error) {
	var gen Generation
	result := db.Where("job_id = ?", jobID).First(&gen)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &gen, nil
}

// ObserveStatus implements videogen.StatusObserver so a poll can record
// straight into the ledger without going through the event bus.
func (s *GenerationService) ObserveStatus(ctx context.Context, snap videogen.Snapshot) {
	if _, err := s.RecordSnapshot(ctx, snap); err != nil {
		log.Error(err, "failed to record status snapshot", "job_id", snap.JobID)
	}
}
