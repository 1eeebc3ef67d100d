package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventsite/cms/internal/models"
	"github.com/eventsite/cms/pkg/apperr"
	"github.com/eventsite/cms/pkg/queue"
	"github.com/eventsite/cms/pkg/storage"
)

// MediaStore is the part of the media repository the mirror needs.
type MediaStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Media, error)
	SwapURL(ctx context.Context, id uuid.UUID, prev, next string) (bool, error)
}

// LocalFiles reads and removes files in the upload directory.
type LocalFiles interface {
	Open(relPath string) (io.ReadCloser, int64, string, error)
	Remove(relPath string) error
}

// ObjectStore is the S3 media bucket.
type ObjectStore interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader, contentLength int64) (string, error)
	DeleteObject(ctx context.Context, key string) error
}

// JobQueue delivers mirror jobs.
type JobQueue interface {
	Dequeue(ctx context.Context) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job) error
}

// MirrorProcessor copies locally uploaded images to S3 and repoints media.url at the copy.
type MirrorProcessor struct {
	media   MediaStore
	local   LocalFiles
	objects ObjectStore
	queue   JobQueue
	logger  *zap.Logger
	backoff time.Duration
}

// NewMirrorProcessor creates a media mirror processor.
func NewMirrorProcessor(media MediaStore, local LocalFiles, objects ObjectStore, q JobQueue, logger *zap.Logger) *MirrorProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MirrorProcessor{media: media, local: local, objects: objects, queue: q, logger: logger, backoff: queue.RetryBackoff}
}

// Process executes one mirror job. Jobs whose media was deleted or re-pointed since enqueue are dropped.
func (p *MirrorProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeMediaMirror {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.MediaMirrorPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	log := p.logger.With(zap.String("job_id", job.ID), zap.String("media_id", payload.MediaID.String()))

	m, err := p.media.GetByID(ctx, payload.MediaID)
	if errors.Is(err, apperr.ErrNoRows) {
		log.Info("media deleted before mirror")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load media: %w", err)
	}
	if m.URL != payload.LocalPath {
		log.Info("media url changed, skipping mirror", zap.String("url", m.URL))
		return nil
	}

	f, size, contentType, err := p.local.Open(payload.LocalPath)
	if errors.Is(err, os.ErrNotExist) {
		log.Warn("local file missing", zap.String("path", payload.LocalPath))
		return nil
	}
	if err != nil {
		return fmt.Errorf("open local file: %w", err)
	}
	defer f.Close()

	key := storage.MediaKey(payload.MediaID.String(), payload.LocalPath)
	remote, err := p.objects.Upload(ctx, key, contentType, f, size)
	if err != nil {
		return fmt.Errorf("s3 upload: %w", err)
	}

	swapped, err := p.media.SwapURL(ctx, payload.MediaID, payload.LocalPath, remote)
	if err != nil {
		return fmt.Errorf("update media url: %w", err)
	}
	if !swapped {
		// Someone edited or deleted the record during the upload.
		log.Info("media changed during mirror, discarding copy", zap.String("key", key))
		if err := p.objects.DeleteObject(ctx, key); err != nil {
			log.Warn("delete orphaned object failed", zap.Error(err), zap.String("key", key))
		}
		return nil
	}
	if err := p.local.Remove(payload.LocalPath); err != nil {
		log.Warn("remove local copy failed", zap.Error(err))
	}
	log.Info("media mirrored", zap.String("url", remote))
	return nil
}

// Run dequeues and processes jobs until ctx is cancelled. Failed jobs are retried, then dead-lettered.
func (p *MirrorProcessor) Run(ctx context.Context) {
	for ctx.Err() == nil {
		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			p.sleep(ctx)
		}
	}
	p.logger.Info("mirror worker stopping")
}

func (p *MirrorProcessor) sleep(ctx context.Context) {
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
