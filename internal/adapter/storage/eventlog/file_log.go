package eventlog

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"sync"

	"pix-reconciler/internal/core/domain"
	"pix-reconciler/pkg/apperror"

	"github.com/rs/zerolog"
	"github.com/zoobzio/clockz"
)

// FileLog implements ports.EventLog as a JSON Lines file.
// Appends are serialized in-process and each record is a single write on an
// O_APPEND descriptor. Readers never take the lock.
type FileLog struct {
	path  string
	clock clockz.Clock
	log   zerolog.Logger
	mu    sync.Mutex
}

// Option configures a FileLog.
type Option func(*FileLog)

// WithClock overrides the clock used to stamp appended events.
func WithClock(clock clockz.Clock) Option {
	return func(l *FileLog) {
		l.clock = clock
	}
}

// New creates a FileLog at path. The file and its directory are created on first append.
func New(path string, log zerolog.Logger, opts ...Option) *FileLog {
	l := &FileLog{
		path:  path,
		clock: clockz.RealClock,
		log:   log,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Path returns the backing file path.
func (l *FileLog) Path() string {
	return l.path
}

// Append stamps event with the current UTC time and writes it as one line.
func (l *FileLog) Append(_ context.Context, event *domain.PaymentEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	stamped := *event
	stamped.Timestamp = l.clock.Now().UTC()

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(stamped); err != nil {
		return apperror.ErrStorage(fmt.Errorf("encoding event: %w", err))
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return apperror.ErrStorage(fmt.Errorf("creating log directory: %w", err))
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return apperror.ErrStorage(fmt.Errorf("opening event log: %w", err))
	}

	n, err := f.Write(buf.Bytes())
	if err == nil && n < buf.Len() {
		err = io.ErrShortWrite
	}
	if err == nil {
		err = f.Sync()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return apperror.ErrStorage(fmt.Errorf("writing event log: %w", err))
	}

	event.Timestamp = stamped.Timestamp
	return nil
}

// ReadAll streams the events currently in the file. Every range reopens the file.
// A missing file is an empty log. Undecodable lines are skipped with a warning.
func (l *FileLog) ReadAll(ctx context.Context) iter.Seq2[domain.PaymentEvent, error] {
	return func(yield func(domain.PaymentEvent, error) bool) {
		f, err := os.Open(l.path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return
			}
			yield(domain.PaymentEvent{}, apperror.ErrStorage(fmt.Errorf("opening event log: %w", err)))
			return
		}
		defer f.Close()

		r := bufio.NewReader(f)
		lineNo := 0
		for {
			if err := ctx.Err(); err != nil {
				yield(domain.PaymentEvent{}, err)
				return
			}

			line, readErr := r.ReadBytes('\n')
			if len(line) > 0 {
				lineNo++
				if ev, ok := l.decode(line, lineNo); ok {
					if !yield(ev, nil) {
						return
					}
				}
			}

			if readErr == io.EOF {
				return
			}
			if readErr != nil {
				yield(domain.PaymentEvent{}, apperror.ErrStorage(fmt.Errorf("reading event log: %w", readErr)))
				return
			}
		}
	}
}

func (l *FileLog) decode(line []byte, lineNo int) (domain.PaymentEvent, bool) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return domain.PaymentEvent{}, false
	}

	ev, err := decodeRecord(line)
	if err != nil {
		l.log.Warn().Err(err).Str("path", l.path).Int("line", lineNo).Msg("skipping unreadable event log line")
		return domain.PaymentEvent{}, false
	}
	return ev, true
}

// Ping reports whether the log directory exists.
func (l *FileLog) Ping(_ context.Context) error {
	dir := filepath.Dir(l.path)
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("event log directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("event log directory %s is not a directory", dir)
	}
	return nil
}

// Name returns the dependency name.
func (l *FileLog) Name() string {
	return "eventlog"
}
