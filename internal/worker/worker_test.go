package worker

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventsite/cms/internal/models"
	"github.com/eventsite/cms/pkg/apperr"
	"github.com/eventsite/cms/pkg/queue"
)

type fakeMedia struct {
	mu    sync.Mutex
	items map[uuid.UUID]models.Media
	// onSwap runs before the compare-and-set, simulating a concurrent edit.
	onSwap func()
}

func (f *fakeMedia) GetByID(_ context.Context, id uuid.UUID) (*models.Media, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.items[id]
	if !ok {
		return nil, apperr.ErrNoRows
	}
	return &m, nil
}

func (f *fakeMedia) SwapURL(_ context.Context, id uuid.UUID, prev, next string) (bool, error) {
	if f.onSwap != nil {
		f.onSwap()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.items[id]
	if !ok || m.URL != prev {
		return false, nil
	}
	m.URL = next
	f.items[id] = m
	return true, nil
}

type fakeLocal struct {
	files   map[string][]byte
	removed []string
}

func (f *fakeLocal) Open(p string) (io.ReadCloser, int64, string, error) {
	b, ok := f.files[p]
	if !ok {
		return nil, 0, "", &os.PathError{Op: "open", Path: p, Err: os.ErrNotExist}
	}
	return io.NopCloser(bytes.NewReader(b)), int64(len(b)), "image/jpeg", nil
}

func (f *fakeLocal) Remove(p string) error {
	f.removed = append(f.removed, p)
	delete(f.files, p)
	return nil
}

type fakeObjects struct {
	uploaded map[string][]byte
	deleted  []string
	err      error
}

func (f *fakeObjects) Upload(_ context.Context, key, _ string, body io.Reader, _ int64) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	b, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	f.uploaded[key] = b
	return "https://media.s3.us-east-1.amazonaws.com/" + key, nil
}

func (f *fakeObjects) DeleteObject(_ context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	return nil
}

type fakeQueue struct {
	mu      sync.Mutex
	jobs    []*queue.Job
	retried []*queue.Job
}

func (q *fakeQueue) Dequeue(ctx context.Context) (*queue.Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.jobs) == 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Millisecond):
			return nil, nil
		}
	}
	j := q.jobs[0]
	q.jobs = q.jobs[1:]
	return j, nil
}

func (q *fakeQueue) Retry(_ context.Context, job *queue.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	job.Attempt++
	q.retried = append(q.retried, job)
	return nil
}

func (q *fakeQueue) retries() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.retried)
}

type env struct {
	media   *fakeMedia
	local   *fakeLocal
	objects *fakeObjects
	queue   *fakeQueue
	p       *MirrorProcessor
	id      uuid.UUID
}

func newEnv() *env {
	id := uuid.New()
	e := &env{
		media:   &fakeMedia{items: map[uuid.UUID]models.Media{id: {ID: id, Type: models.MediaImage, URL: "uploads/a.jpg"}}},
		local:   &fakeLocal{files: map[string][]byte{"uploads/a.jpg": []byte("jpeg")}},
		objects: &fakeObjects{uploaded: map[string][]byte{}},
		queue:   &fakeQueue{},
		id:      id,
	}
	e.p = NewMirrorProcessor(e.media, e.local, e.objects, e.queue, nil)
	e.p.backoff = time.Millisecond
	return e
}

func (e *env) job(t *testing.T) *queue.Job {
	t.Helper()
	j, err := queue.NewJob(queue.JobTypeMediaMirror, queue.MediaMirrorPayload{MediaID: e.id, LocalPath: "uploads/a.jpg"})
	require.NoError(t, err)
	return j
}

func TestProcess_MirrorsAndRemovesLocalCopy(t *testing.T) {
	e := newEnv()
	require.NoError(t, e.p.Process(context.Background(), e.job(t)))

	key := "media/" + e.id.String() + ".jpg"
	assert.Equal(t, []byte("jpeg"), e.objects.uploaded[key])
	assert.Equal(t, "https://media.s3.us-east-1.amazonaws.com/"+key, e.media.items[e.id].URL)
	assert.Equal(t, []string{"uploads/a.jpg"}, e.local.removed)
}

func TestProcess_SkipsStaleJobs(t *testing.T) {
	t.Run("media deleted", func(t *testing.T) {
		e := newEnv()
		delete(e.media.items, e.id)
		require.NoError(t, e.p.Process(context.Background(), e.job(t)))
		assert.Empty(t, e.objects.uploaded)
	})
	t.Run("url changed", func(t *testing.T) {
		e := newEnv()
		m := e.media.items[e.id]
		m.URL = "uploads/b.jpg"
		e.media.items[e.id] = m
		require.NoError(t, e.p.Process(context.Background(), e.job(t)))
		assert.Empty(t, e.objects.uploaded)
		assert.Empty(t, e.local.removed)
	})
	t.Run("file missing", func(t *testing.T) {
		e := newEnv()
		e.local.files = map[string][]byte{}
		require.NoError(t, e.p.Process(context.Background(), e.job(t)))
		assert.Empty(t, e.objects.uploaded)
	})
}

func TestProcess_LostSwapDiscardsCopy(t *testing.T) {
	e := newEnv()
	e.media.onSwap = func() {
		e.media.mu.Lock()
		m := e.media.items[e.id]
		m.URL = "uploads/replacement.jpg"
		e.media.items[e.id] = m
		e.media.mu.Unlock()
	}
	require.NoError(t, e.p.Process(context.Background(), e.job(t)))
	assert.Equal(t, "uploads/replacement.jpg", e.media.items[e.id].URL)
	assert.Equal(t, []string{"media/" + e.id.String() + ".jpg"}, e.objects.deleted)
	assert.Empty(t, e.local.removed, "local file still backs the record")
}

func TestProcess_RejectsUnknownJobType(t *testing.T) {
	e := newEnv()
	err := e.p.Process(context.Background(), &queue.Job{Type: "other"})
	assert.ErrorContains(t, err, "unknown job type")
}

func TestRun_RetriesFailedJobsUntilCancelled(t *testing.T) {
	e := newEnv()
	e.objects.err = errors.New("s3 unavailable")
	e.queue.jobs = []*queue.Job{e.job(t)}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		e.p.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return e.queue.retries() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
	assert.Equal(t, "uploads/a.jpg", e.media.items[e.id].URL)
}
