package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/digkill/QuickAI/internal/clipdrop"
	"github.com/digkill/QuickAI/internal/entitlement"
	"github.com/digkill/QuickAI/internal/models"
	"github.com/digkill/QuickAI/internal/storage"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeText struct {
	reply   string
	err     error
	calls   int
	prompts []string
	tokens  []int
}

func (f *fakeText) CompleteText(_ context.Context, prompt string, _ float64, maxTokens int) (string, error) {
	f.calls++
	f.prompts = append(f.prompts, prompt)
	f.tokens = append(f.tokens, maxTokens)
	return f.reply, f.err
}

type fakeImages struct {
	calls int
	err   error
}

func (f *fakeImages) SynthesizeImage(context.Context, string) (*clipdrop.Image, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &clipdrop.Image{Bytes: []byte("png"), Mime: "image/png"}, nil
}

type fakeStore struct {
	calls      int
	transforms []storage.Transform
	sources    []storage.Source
	err        error
}

func (f *fakeStore) StoreImage(_ context.Context, src storage.Source, t storage.Transform) (string, error) {
	f.calls++
	f.sources = append(f.sources, src)
	f.transforms = append(f.transforms, t)
	if f.err != nil {
		return "", f.err
	}
	if t.IsZero() {
		return "https://cdn.test/img.png", nil
	}
	return "https://cdn.test/" + t.String() + "/img.png", nil
}

type fakeUsage struct {
	mu    sync.Mutex
	calls []int
	err   error
}

func (f *fakeUsage) SetFreeUsage(_ context.Context, _ string, n int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, n)
	return f.err
}

// memCreations is an in-memory CreationStore.
type memCreations struct {
	mu        sync.Mutex
	nextID    int64
	items     map[int64]*models.Creation
	insertErr error
}

func newMemCreations() *memCreations {
	return &memCreations{items: map[int64]*models.Creation{}}
}

func (m *memCreations) Insert(_ context.Context, c *models.Creation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return m.insertErr
	}
	m.nextID++
	c.ID = m.nextID
	cp := *c
	m.items[c.ID] = &cp
	return nil
}

func (m *memCreations) GetByID(_ context.Context, id int64) (*models.Creation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.items[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (m *memCreations) ListByUser(_ context.Context, userID string, limit, offset int) ([]models.Creation, error) {
	return m.filter(func(c *models.Creation) bool { return c.UserID == userID }, limit, offset), nil
}

func (m *memCreations) ListPublished(_ context.Context, kind models.TaskKind, limit, offset int) ([]models.Creation, error) {
	return m.filter(func(c *models.Creation) bool {
		return c.Publish && (kind == "" || c.Type == kind)
	}, limit, offset), nil
}

func (m *memCreations) Update(_ context.Context, c *models.Creation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[c.ID]; !ok {
		return errors.New("not found")
	}
	cp := *c
	m.items[c.ID] = &cp
	return nil
}

func (m *memCreations) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, id)
	return nil
}

func (m *memCreations) all() []models.Creation {
	return m.filter(func(*models.Creation) bool { return true }, 1000, 0)
}

func (m *memCreations) filter(keep func(*models.Creation) bool, limit, offset int) []models.Creation {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Creation
	for id := m.nextID; id > 0; id-- {
		c, ok := m.items[id]
		if !ok || !keep(c) {
			continue
		}
		out = append(out, *c)
	}
	if offset >= len(out) {
		return nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

type harness struct {
	svc       *TaskService
	text      *fakeText
	images    *fakeImages
	store     *fakeStore
	usage     *fakeUsage
	creations *memCreations
	docText   string
	docErr    error
	docCalls  int
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		text:      &fakeText{reply: "generated text"},
		images:    &fakeImages{},
		store:     &fakeStore{},
		usage:     &fakeUsage{},
		creations: newMemCreations(),
		docText:   "Jane Doe\nGo developer, 6 years",
	}
	log := quietLogger()
	h.svc = NewTaskService(log, TaskDeps{
		Gate:     entitlement.NewGate(entitlement.DefaultFreeLimit, h.usage, log),
		Text:     h.text,
		Images:   h.images,
		Store:    h.store,
		Recorder: NewCreationRecorder(h.creations, log),
		ReadDoc: func(string) (string, error) {
			h.docCalls++
			return h.docText, h.docErr
		},
		MaxUpload: 5 << 20,
	})
	return h
}

func (h *harness) providerCalls() int {
	return h.text.calls + h.images.calls + h.store.calls
}

func tempFile(t *testing.T, name string, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, make([]byte, size), 0o600); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func fileGone(t *testing.T, path string) bool {
	t.Helper()
	_, err := os.Stat(path)
	return errors.Is(err, os.ErrNotExist)
}

var (
	freeCaller    = models.Caller{UserID: "free-user", Plan: models.PlanFree, FreeUsage: 2}
	premiumCaller = models.Caller{UserID: "premium-user", Plan: models.PlanPremium, FreeUsage: 50}
)
