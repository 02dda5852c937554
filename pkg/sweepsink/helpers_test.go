package sweepsink_test

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"time"

	"github.com/illmade-knight/go-doccache/pkg/doccache"
	"github.com/illmade-knight/go-doccache/pkg/sweepsink"
)

var (
	sweepStart   = time.Date(2025, 6, 14, 0, 0, 0, 0, time.UTC)
	sampleReport = doccache.SweepReport{
		ID:         "sweep-123",
		StartedAt:  sweepStart,
		FinishedAt: sweepStart.Add(3 * time.Millisecond),
		Removed:    4,
		Remaining:  7,
	}
)

// --- GCS mocks ---

type mockGCSWriter struct {
	bytes.Buffer
	closed   bool
	closeErr error
}

func (m *mockGCSWriter) Close() error {
	m.closed = true
	return m.closeErr
}

type mockGCSObjectHandle struct {
	writer *mockGCSWriter
}

func (m *mockGCSObjectHandle) NewWriter(_ context.Context) sweepsink.GCSWriter {
	return m.writer
}

type mockGCSBucketHandle struct {
	mu       sync.Mutex
	closeErr error
	objects  map[string]*mockGCSObjectHandle
}

func (m *mockGCSBucketHandle) Object(name string) sweepsink.GCSObjectHandle {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[name]; !ok {
		m.objects[name] = &mockGCSObjectHandle{writer: &mockGCSWriter{closeErr: m.closeErr}}
	}
	return m.objects[name]
}

type mockGCSClient struct {
	mu       sync.Mutex
	buckets  map[string]*mockGCSBucketHandle
	closeErr error
}

func newMockGCSClient(closeErr error) *mockGCSClient {
	return &mockGCSClient{buckets: make(map[string]*mockGCSBucketHandle), closeErr: closeErr}
}

func (m *mockGCSClient) Bucket(name string) sweepsink.GCSBucketHandle {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.buckets[name]; !ok {
		m.buckets[name] = &mockGCSBucketHandle{objects: make(map[string]*mockGCSObjectHandle), closeErr: m.closeErr}
	}
	return m.buckets[name]
}

// --- Publisher mock ---

type publishedMessage struct {
	payload    []byte
	attributes map[string]string
}

type mockPublisher struct {
	mu       sync.Mutex
	messages []publishedMessage
	err      error
	stopped  bool
}

func (m *mockPublisher) Publish(_ context.Context, payload []byte, attributes map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.messages = append(m.messages, publishedMessage{payload: payload, attributes: attributes})
	return nil
}

func (m *mockPublisher) Stop(_ context.Context) error {
	m.stopped = true
	return nil
}

// --- Row inserter mock ---

type mockInserter struct {
	rows []*sweepsink.SweepRecord
	err  error
}

func (m *mockInserter) InsertBatch(_ context.Context, items []*sweepsink.SweepRecord) error {
	if m.err != nil {
		return m.err
	}
	m.rows = append(m.rows, items...)
	return nil
}

func (m *mockInserter) Close() error { return nil }

// --- Document store mock ---

type mockDocumentStore struct {
	docs   map[string]sweepsink.SweepRecord
	getErr error
}

func newMockDocumentStore() *mockDocumentStore {
	return &mockDocumentStore{docs: make(map[string]sweepsink.SweepRecord)}
}

func (m *mockDocumentStore) Set(_ context.Context, collection, id string, data any) error {
	rec, ok := data.(sweepsink.SweepRecord)
	if !ok {
		return errors.New("unexpected document type")
	}
	m.docs[collection+"/"+id] = rec
	return nil
}

func (m *mockDocumentStore) Get(_ context.Context, collection, id string, dst any) error {
	if m.getErr != nil {
		return m.getErr
	}
	rec, ok := m.docs[collection+"/"+id]
	if !ok {
		return sweepsink.ErrDocumentNotFound
	}
	*(dst.(*sweepsink.SweepRecord)) = rec
	return nil
}
