package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
)

type memObjectStore struct {
	objects map[string][]byte
	bucket  bool
}

func newMemObjectStore() *memObjectStore {
	return &memObjectStore{objects: make(map[string][]byte)}
}

func (m *memObjectStore) EnsureBucket(context.Context) error {
	m.bucket = true
	return nil
}

func (m *memObjectStore) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.objects[key] = data
	return nil
}

func (m *memObjectStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := m.objects[key]
	if !ok {
		return nil, errors.New("object not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memObjectStore) Delete(_ context.Context, key string) error {
	delete(m.objects, key)
	return nil
}

func (m *memObjectStore) Bucket() string { return "reports-test" }

func TestArchiveRoundtrip(t *testing.T) {
	backend := newMemObjectStore()
	archive := NewArchive(backend)
	ctx := context.Background()

	if err := archive.EnsureBucket(ctx); err != nil {
		t.Fatalf("ensure bucket: %v", err)
	}
	if !backend.bucket {
		t.Fatalf("bucket not created")
	}

	if err := archive.SaveReport(ctx, "leave-requests-2026-08-29.csv", "text/csv", []byte("a,b")); err != nil {
		t.Fatalf("save report: %v", err)
	}
	if _, ok := backend.objects["reports/leave-requests-2026-08-29.csv"]; !ok {
		t.Fatalf("report not stored under reports/ prefix, got keys %v", backend.objects)
	}

	reader, err := archive.OpenReport(ctx, "leave-requests-2026-08-29.csv")
	if err != nil {
		t.Fatalf("open report: %v", err)
	}
	data, err := io.ReadAll(reader)
	_ = reader.Close()
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if string(data) != "a,b" {
		t.Fatalf("report content = %q", data)
	}

	if err := archive.DeleteReport(ctx, "leave-requests-2026-08-29.csv"); err != nil {
		t.Fatalf("delete report: %v", err)
	}
	if len(backend.objects) != 0 {
		t.Fatalf("report not deleted, got keys %v", backend.objects)
	}
}

func TestArchiveWithoutBackend(t *testing.T) {
	ctx := context.Background()

	for _, archive := range []*Archive{nil, NewArchive(nil)} {
		if archive.Enabled() {
			t.Fatalf("archive reports enabled without backend")
		}
		if err := archive.EnsureBucket(ctx); err != nil {
			t.Fatalf("ensure bucket: %v", err)
		}
		if err := archive.SaveReport(ctx, "x.csv", "text/csv", []byte("a")); err != nil {
			t.Fatalf("save report: %v", err)
		}
		if _, err := archive.OpenReport(ctx, "x.csv"); !errors.Is(err, ErrDisabled) {
			t.Fatalf("open report err = %v, want ErrDisabled", err)
		}
		if err := archive.DeleteReport(ctx, "x.csv"); err != nil {
			t.Fatalf("delete report: %v", err)
		}
	}
}
