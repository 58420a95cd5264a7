package segment

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/apod/internal/domain"
)

// shortFs hands out files that write at most chunk bytes per call and fail
// the first failures calls entirely.
type shortFs struct {
	afero.Fs
	chunk    int
	failures int
	calls    int
	mu       sync.Mutex
}

type shortFile struct {
	afero.File
	fs *shortFs
}

func (s *shortFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	f, err := s.Fs.OpenFile(name, flag, perm)
	if err != nil {
		return nil, err
	}
	return &shortFile{File: f, fs: s}, nil
}

var errDisk = errors.New("disk hiccup")

func (f *shortFile) Write(p []byte) (int, error) {
	f.fs.mu.Lock()
	f.fs.calls++
	fail := f.fs.calls <= f.fs.failures
	f.fs.mu.Unlock()
	if fail {
		return 0, errDisk
	}
	if len(p) > f.fs.chunk {
		n, err := f.File.Write(p[:f.fs.chunk])
		if err != nil {
			return n, err
		}
		return n, errDisk
	}
	return f.File.Write(p)
}

func readFile(t *testing.T, fs afero.Fs, path string) []byte {
	t.Helper()
	b, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	return b
}

func TestSaveStartsAtZero(t *testing.T) {
	fs := afero.NewMemMapFs()
	w := NewWriter(fs, 10, 0)

	path, err := w.Save(context.Background(), "rec", 0, []byte("chunk-0"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("rec", "video0_segment0.webm"), path)
	assert.Equal(t, []byte("chunk-0"), readFile(t, fs, path))
}

func TestSaveSkipsExistingSegments(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "rec/video2_segment0.webm", []byte("old0"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "rec/video2_segment1.webm", []byte("old1"), 0o644))
	w := NewWriter(fs, 10, 0)

	body := []byte{0x1a, 0x45, 0xdf, 0xa3, 0x00, 0xff}
	path, err := w.Save(context.Background(), "rec", 2, body)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join("rec", "video2_segment2.webm"), path)
	assert.Equal(t, body, readFile(t, fs, path))
	assert.Equal(t, []byte("old0"), readFile(t, fs, "rec/video2_segment0.webm"))
	assert.Equal(t, []byte("old1"), readFile(t, fs, "rec/video2_segment1.webm"))
}

func TestSaveSlotsAreIndependent(t *testing.T) {
	fs := afero.NewMemMapFs()
	w := NewWriter(fs, 10, 0)
	ctx := context.Background()

	p0, err := w.Save(ctx, "rec", 0, []byte("a"))
	require.NoError(t, err)
	p1, err := w.Save(ctx, "rec", 1, []byte("b"))
	require.NoError(t, err)
	p0b, err := w.Save(ctx, "rec", 0, []byte("c"))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join("rec", "video0_segment0.webm"), p0)
	assert.Equal(t, filepath.Join("rec", "video1_segment0.webm"), p1)
	assert.Equal(t, filepath.Join("rec", "video0_segment1.webm"), p0b)
}

func TestSaveResumesAfterPartialWrites(t *testing.T) {
	fs := &shortFs{Fs: afero.NewMemMapFs(), chunk: 3}
	w := NewWriter(fs, 10, 0)
	body := []byte("0123456789ab")

	path, err := w.Save(context.Background(), "rec", 1, body)
	require.NoError(t, err)
	assert.Equal(t, body, readFile(t, fs, path))
}

func TestSaveGivesUpAfterAttempts(t *testing.T) {
	fs := &shortFs{Fs: afero.NewMemMapFs(), chunk: 2, failures: 1}
	w := NewWriter(fs, 3, 0)
	body := []byte("abcdefghij")

	path, err := w.Save(context.Background(), "rec", 0, body)
	require.Error(t, err)
	assert.ErrorIs(t, err, errDisk)
	// one failed call, then two short writes of 2 bytes
	assert.Equal(t, []byte("abcd"), readFile(t, fs, path))
}

func TestSaveConcurrentSameSlotNeverCollides(t *testing.T) {
	fs := afero.NewBasePathFs(afero.NewOsFs(), t.TempDir())
	w := NewWriter(fs, 10, time.Millisecond)

	const n = 8
	var wg sync.WaitGroup
	paths := make([]string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := w.Save(context.Background(), "rec", 3, []byte{byte(i)})
			assert.NoError(t, err)
			paths[i] = p
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for _, p := range paths {
		assert.False(t, seen[p], p)
		seen[p] = true
	}
	for i := 0; i < n; i++ {
		ok, err := afero.Exists(fs, domain.SegmentPath("rec", 3, i))
		require.NoError(t, err)
		assert.True(t, ok)
	}
}

func TestSaveOnOsFs(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "rec")
	w := NewWriter(afero.NewOsFs(), 10, 0)

	path, err := w.Save(context.Background(), dir, 9, []byte("webm"))
	require.NoError(t, err)
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("webm"), b)
}
