package upload

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/genbridge/types"
)

type fakeRecorder struct {
	mu       sync.Mutex
	stored   []int64
	released []bool
}

func (r *fakeRecorder) RecordUploadStored(n int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stored = append(r.stored, n)
}

func (r *fakeRecorder) RecordUploadReleased(ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.released = append(r.released, ok)
}

type failingReader struct {
	n int
}

func (r *failingReader) Read(p []byte) (int, error) {
	if r.n > 0 {
		r.n--
		return copy(p, "partial"), nil
	}
	return 0, errors.New("connection reset")
}

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "uploads"), zap.NewNop(), opts...)
	require.NoError(t, err)
	return s
}

func dirEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

// =============================================================================
// 🧪 Save 测试
// =============================================================================

func TestNewStore_CreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	s, err := NewStore(dir, nil)
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, dir, s.Dir())
}

func TestNewStore_EmptyDir(t *testing.T) {
	_, err := NewStore("  ", zap.NewNop())
	require.Error(t, err)
}

func TestStore_Save_WritesFullContent(t *testing.T) {
	rec := &fakeRecorder{}
	s := newTestStore(t, WithRecorder(rec))
	payload := bytes.Repeat([]byte("0123456789"), 10_000)

	u, err := s.Save(context.Background(), bytes.NewReader(payload), "report.PDF", "application/pdf")
	require.NoError(t, err)

	data, err := os.ReadFile(u.Path)
	require.NoError(t, err)
	assert.Equal(t, payload, data)
	assert.Equal(t, int64(len(payload)), u.Size)
	assert.Equal(t, "application/pdf", u.MIMEType)
	assert.Equal(t, "report.PDF", u.Filename)
	assert.Equal(t, ".pdf", filepath.Ext(u.Path))
	assert.Equal(t, s.Dir(), filepath.Dir(u.Path))
	assert.Equal(t, []int64{int64(len(payload))}, rec.stored)
}

func TestStore_Save_MIMEResolution(t *testing.T) {
	tests := []struct {
		name     string
		content  []byte
		declared string
		want     string
	}{
		{name: "declared wins", content: []byte("\xFF\xD8\xFF"), declared: "image/png", want: "image/png"},
		{name: "declared params stripped", content: []byte("abc"), declared: "Audio/MPEG; rate=44100", want: "audio/mpeg"},
		{name: "octet stream sniffed jpeg", content: []byte("\xFF\xD8\xFF"), declared: "application/octet-stream", want: "image/jpeg"},
		{name: "missing sniffed pdf", content: []byte("%PDF-1.7\n"), declared: "", want: "application/pdf"},
		{name: "missing sniffed text", content: []byte("hello world"), declared: "", want: "text/plain"},
		{name: "garbage declared sniffed", content: []byte("\x89PNG\r\n\x1a\n"), declared: ";;;", want: "image/png"},
	}

	s := newTestStore(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := s.Save(context.Background(), bytes.NewReader(tt.content), "blob", tt.declared)
			require.NoError(t, err)
			defer s.Release(u)
			assert.Equal(t, tt.want, u.MIMEType)
		})
	}
}

func TestStore_Save_UniquePathsUnderConcurrency(t *testing.T) {
	s := newTestStore(t)

	const n = 32
	paths := make([]string, n)
	var g errgroup.Group
	for i := 0; i < n; i++ {
		g.Go(func() error {
			u, err := s.Save(context.Background(), strings.NewReader("same"), "same.txt", "text/plain")
			if err != nil {
				return err
			}
			paths[i] = u.Path
			return nil
		})
	}
	require.NoError(t, g.Wait())

	seen := make(map[string]struct{}, n)
	for _, p := range paths {
		seen[p] = struct{}{}
	}
	assert.Len(t, seen, n)
	assert.Len(t, dirEntries(t, s.Dir()), n)
}

func TestStore_Save_FailedCopyLeavesNothing(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Save(context.Background(), &failingReader{n: 3}, "x.bin", "")
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrIO))
	assert.Empty(t, dirEntries(t, s.Dir()))
}

func TestStore_Save_CancelledContext(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Save(ctx, strings.NewReader("data"), "x.bin", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, dirEntries(t, s.Dir()))
}

func TestStore_Save_PreservesReaderError(t *testing.T) {
	s := newTestStore(t)
	sentinel := errors.New("body too large")

	_, err := s.Save(context.Background(), io.MultiReader(strings.NewReader("abc"), errReader{sentinel}), "x", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel)
}

type errReader struct{ err error }

func (r errReader) Read([]byte) (int, error) { return 0, r.err }

func TestSafeExt(t *testing.T) {
	tests := map[string]string{
		"photo.JPG":          ".jpg",
		"archive.tar.gz":     ".gz",
		"noext":              "",
		"../../etc/passwd":   "",
		"evil.p/hp":          "",
		"weird.exe ":         "",
		"long.abcdefghijklm": "",
		".hidden":            ".hidden",
	}
	for in, want := range tests {
		assert.Equal(t, want, safeExt(in), in)
	}
}

// =============================================================================
// 🧪 Release 测试
// =============================================================================

func TestStore_Release_RemovesFile(t *testing.T) {
	rec := &fakeRecorder{}
	s := newTestStore(t, WithRecorder(rec))

	u, err := s.Save(context.Background(), strings.NewReader("abc"), "a.txt", "text/plain")
	require.NoError(t, err)

	s.Release(u)

	_, statErr := os.Stat(u.Path)
	assert.True(t, os.IsNotExist(statErr))
	assert.Equal(t, []bool{true}, rec.released)
}

func TestStore_Release_MissingFileIsQuiet(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	s, err := NewStore(t.TempDir(), zap.New(core))
	require.NoError(t, err)

	s.Release(&Upload{Path: filepath.Join(s.Dir(), "gone")})
	s.Release(nil)
	s.Release(&Upload{})

	assert.Zero(t, logs.Len())
}

func TestStore_Release_FailureIsLoggedNotRaised(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	rec := &fakeRecorder{}
	s, err := NewStore(t.TempDir(), zap.New(core), WithRecorder(rec))
	require.NoError(t, err)

	// 非空目录无法被 os.Remove 删除
	blocked := filepath.Join(s.Dir(), "blocked")
	require.NoError(t, os.MkdirAll(filepath.Join(blocked, "child"), 0o700))

	assert.NotPanics(t, func() {
		s.Release(&Upload{Path: blocked})
	})

	entries := logs.FilterMessage("failed to delete upload").All()
	require.Len(t, entries, 1)
	assert.Equal(t, blocked, entries[0].ContextMap()["path"])
	assert.Equal(t, []bool{false}, rec.released)
}

// =============================================================================
// 🧪 DirCheck 测试
// =============================================================================

func TestDirCheck(t *testing.T) {
	s := newTestStore(t)
	check := s.HealthCheck()

	assert.Equal(t, "upload_dir", check.Name())
	require.NoError(t, check.Check(context.Background()))
	assert.Empty(t, dirEntries(t, s.Dir()))

	require.NoError(t, os.RemoveAll(s.Dir()))
	assert.Error(t, check.Check(context.Background()))
}
