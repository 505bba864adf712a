package service

import (
	"bytes"
	"context"
	"io"
	"media-registry/dto"
	"media-registry/entities"
	"media-registry/repository"
	"media-registry/storage"
	"sort"
	"sync"
)

type memBlobs struct {
	mu        sync.Mutex
	blobs     map[string][]byte
	putErr    error
	deleteErr error
	afterPut  func()
	deletes   int
}

func newMemBlobs() *memBlobs {
	return &memBlobs{blobs: map[string][]byte{}}
}

func (m *memBlobs) Put(ctx context.Context, key string, r io.Reader, size int64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if m.putErr != nil {
		return "", m.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	if _, ok := m.blobs[key]; ok {
		m.mu.Unlock()
		return "", storage.ErrBlobExists
	}
	m.blobs[key] = data
	m.mu.Unlock()
	if m.afterPut != nil {
		m.afterPut()
	}
	return key, nil
}

func (m *memBlobs) Get(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.blobs[key]
	if !ok {
		return nil, storage.ErrBlobNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memBlobs) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes++
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.blobs, key)
	return nil
}

func (m *memBlobs) Exists(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.blobs[key]
	return ok, nil
}

func (m *memBlobs) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.blobs)
}

type memRepo struct {
	mu        sync.Mutex
	rows      map[int64]*entities.Recording
	nextID    int64
	insertErr error
	deleteErr error
	listErr   error
}

func newMemRepo() *memRepo {
	return &memRepo{rows: map[int64]*entities.Recording{}}
}

func (m *memRepo) Migrate(context.Context) error { return nil }

func (m *memRepo) Insert(ctx context.Context, rec *entities.Recording) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.insertErr != nil {
		return m.insertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	rec.ID = m.nextID
	cp := *rec
	m.rows[rec.ID] = &cp
	return nil
}

func (m *memRepo) ListAllDesc(context.Context) ([]*entities.Recording, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*entities.Recording, 0, len(m.rows))
	for _, r := range m.rows {
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memRepo) GetByID(_ context.Context, id int64) (*entities.Recording, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return nil, repository.ErrRecordNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memRepo) DeleteByID(_ context.Context, id int64) (int64, error) {
	if m.deleteErr != nil {
		return 0, m.deleteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return 0, nil
	}
	delete(m.rows, id)
	return 1, nil
}

func (m *memRepo) Close() error { return nil }

type recordingPublisher struct {
	mu     sync.Mutex
	events []dto.RecordingEvent
	err    error
}

func (p *recordingPublisher) PublishRecordingEvent(_ context.Context, event dto.RecordingEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}
