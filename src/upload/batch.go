package upload

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ProgressStatus is the per-file state of a batch upload.
type ProgressStatus string

const (
	ProgressPending   ProgressStatus = "pending"
	ProgressUploading ProgressStatus = "uploading"
	ProgressCompleted ProgressStatus = "completed"
	ProgressError     ProgressStatus = "error"
)

// Progress is the state of one file within a batch.
type Progress struct {
	FileName string         `json:"fileName"`
	Progress int            `json:"progress"`
	Status   ProgressStatus `json:"status"`
	Error    string         `json:"error,omitempty"`
	Result   *Result        `json:"result,omitempty"`
}

// Batch uploads several files through one Uploader and reports per-file
// progress. OnProgress receives a fresh copy of the whole batch state after
// every change.
type Batch struct {
	uploader   Uploader
	onProgress func([]Progress)
}

func NewBatch(uploader Uploader, onProgress func([]Progress)) *Batch {
	return &Batch{
		uploader:   uploader,
		onProgress: onProgress,
	}
}

// Sequential uploads files one at a time. The first failure aborts the
// remaining files.
func (b *Batch) Sequential(ctx context.Context, files []File) ([]Result, error) {
	if len(files) == 0 {
		return nil, ErrNoFiles
	}

	t := b.newTracker(files)
	results := make([]Result, 0, len(files))
	for i, file := range files {
		res, err := t.upload(ctx, b.uploader, i, file)
		if err != nil {
			return nil, err
		}
		results = append(results, *res)
	}
	return results, nil
}

// Parallel uploads all files concurrently. The first failure cancels the
// uploads still in flight. Results keep the order of files.
func (b *Batch) Parallel(ctx context.Context, files []File) ([]Result, error) {
	if len(files) == 0 {
		return nil, ErrNoFiles
	}

	t := b.newTracker(files)
	results := make([]Result, len(files))
	g, gctx := errgroup.WithContext(ctx)
	for i, file := range files {
		g.Go(func() error {
			res, err := t.upload(gctx, b.uploader, i, file)
			if err != nil {
				return err
			}
			results[i] = *res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

type tracker struct {
	mu       sync.Mutex
	progress []Progress
	notify   func([]Progress)
}

func (b *Batch) newTracker(files []File) *tracker {
	t := &tracker{
		progress: make([]Progress, len(files)),
		notify:   b.onProgress,
	}
	for i, f := range files {
		t.progress[i] = Progress{FileName: f.Name, Status: ProgressPending}
	}
	t.mu.Lock()
	t.emitLocked()
	t.mu.Unlock()
	return t
}

func (t *tracker) upload(ctx context.Context, u Uploader, i int, file File) (*Result, error) {
	t.set(i, func(p *Progress) {
		p.Status = ProgressUploading
		p.Progress = 50
	})

	res, err := u.Upload(ctx, file)
	if err != nil {
		t.set(i, func(p *Progress) {
			p.Status = ProgressError
			p.Progress = 0
			p.Error = err.Error()
		})
		return nil, err
	}

	t.set(i, func(p *Progress) {
		p.Status = ProgressCompleted
		p.Progress = 100
		p.Result = res
	})
	return res, nil
}

func (t *tracker) set(i int, fn func(*Progress)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fn(&t.progress[i])
	t.emitLocked()
}

func (t *tracker) emitLocked() {
	if t.notify == nil {
		return
	}
	snapshot := make([]Progress, len(t.progress))
	copy(snapshot, t.progress)
	t.notify(snapshot)
}
