// Package segment persists uploaded media chunks as numbered files.
package segment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"github.com/dkeye/apod/internal/domain"
)

// Writer stores each chunk as video{slot}_segment{index}.webm, picking the
// lowest index that does not exist yet. Existing files are never opened
// for writing.
type Writer struct {
	fs       afero.Fs
	attempts int
	delay    time.Duration
}

func NewWriter(fs afero.Fs, attempts int, delay time.Duration) *Writer {
	if attempts < 1 {
		attempts = 1
	}
	return &Writer{fs: fs, attempts: attempts, delay: delay}
}

// Save writes data to the next free segment of slot under dir and returns
// its path. On a write error the file keeps whatever was flushed.
func (w *Writer) Save(ctx context.Context, dir string, slot domain.ParticipantSlot, data []byte) (string, error) {
	if err := w.fs.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create save dir: %w", err)
	}

	f, path, err := w.createNext(dir, slot)
	if err != nil {
		return "", err
	}

	written, werr := w.writeAll(ctx, f, data)
	if err := f.Sync(); err != nil && werr == nil {
		werr = fmt.Errorf("sync %s: %w", path, err)
	}
	if err := f.Close(); err != nil && werr == nil {
		werr = fmt.Errorf("close %s: %w", path, err)
	}
	if werr != nil {
		return path, fmt.Errorf("wrote %d of %d bytes to %s: %w", written, len(data), path, werr)
	}
	return path, nil
}

func (w *Writer) createNext(dir string, slot domain.ParticipantSlot) (afero.File, string, error) {
	for index := 0; ; index++ {
		path := domain.SegmentPath(dir, slot, index)
		exists, err := afero.Exists(w.fs, path)
		if err != nil {
			return nil, "", fmt.Errorf("probe %s: %w", path, err)
		}
		if exists {
			continue
		}
		// O_EXCL closes the gap between probe and create for concurrent
		// uploads on one slot.
		f, err := w.fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return nil, "", fmt.Errorf("create %s: %w", path, err)
		}
		return f, path, nil
	}
}

// writeAll resumes at the offset already written after every short or
// failed write, up to w.attempts tries.
func (w *Writer) writeAll(ctx context.Context, f io.Writer, data []byte) (int, error) {
	written := 0
	op := func() error {
		n, err := f.Write(data[written:])
		written += n
		if written >= len(data) {
			return nil
		}
		if err == nil {
			err = io.ErrShortWrite
		}
		return err
	}

	var b backoff.BackOff = backoff.NewConstantBackOff(w.delay)
	b = backoff.WithMaxRetries(b, uint64(w.attempts-1))
	b = backoff.WithContext(b, ctx)

	err := backoff.RetryNotify(op, b, func(err error, _ time.Duration) {
		log.Warn().Err(err).Str("module", "app.segment").Int("written", written).Int("total", len(data)).Msg("partial write, retrying")
	})
	return written, err
}
