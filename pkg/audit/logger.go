package audit

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// ErrClosed is returned by Log after the logger was closed.
var ErrClosed = errors.New("audit log closed")

// Logger records audit events.
type Logger interface {
	Log(event *Event) error
	Close() error
}

// RotationConfig bounds the size of a FileLogger's output.
type RotationConfig struct {
	MaxSize    int64 // bytes in the active file before it is rotated; 0 never rotates
	MaxBackups int   // rotated files kept as <path>.1 (newest) to <path>.N; 0 keeps all
}

// FileLogger appends events as JSON lines. When the active file would grow
// past MaxSize it is renamed to <path>.1 and older backups shift up by one.
type FileLogger struct {
	mu       sync.Mutex
	path     string
	rotation RotationConfig
	file     *os.File
	size     int64
}

// NewFileLogger opens path for appending, creating its directory if needed.
func NewFileLogger(path string, rotation RotationConfig) (*FileLogger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating audit log directory: %w", err)
	}
	l := &FileLogger{path: path, rotation: rotation}
	if err := l.open(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *FileLogger) open() error {
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening audit log: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("opening audit log: %w", err)
	}
	l.file = f
	l.size = info.Size()
	return nil
}

// Log appends event as one line.
func (l *FileLogger) Log(event *Event) error {
	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding audit event: %w", err)
	}
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return ErrClosed
	}
	if l.rotation.MaxSize > 0 && l.size > 0 && l.size+int64(len(line)) > l.rotation.MaxSize {
		if err := l.rotate(); err != nil {
			return fmt.Errorf("rotating audit log: %w", err)
		}
	}
	n, err := l.file.Write(line)
	l.size += int64(n)
	return err
}

// Close closes the active file. Later calls to Log return ErrClosed.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

func (l *FileLogger) rotate() error {
	if err := l.file.Close(); err != nil {
		return err
	}
	l.file = nil

	indices, err := backupIndices(l.path)
	if err != nil {
		return err
	}
	// Highest first, so each rename targets a free name.
	sort.Sort(sort.Reverse(sort.IntSlice(indices)))
	for _, n := range indices {
		if l.rotation.MaxBackups > 0 && n >= l.rotation.MaxBackups {
			if err := os.Remove(backupName(l.path, n)); err != nil && !os.IsNotExist(err) {
				return err
			}
			continue
		}
		if err := os.Rename(backupName(l.path, n), backupName(l.path, n+1)); err != nil {
			return err
		}
	}
	if err := os.Rename(l.path, backupName(l.path, 1)); err != nil {
		return err
	}
	return l.open()
}

func backupName(path string, n int) string {
	return path + "." + strconv.Itoa(n)
}

// backupIndices lists the N of every <path>.N that exists, unordered.
func backupIndices(path string) ([]int, error) {
	matches, err := filepath.Glob(path + ".*")
	if err != nil {
		return nil, err
	}
	var indices []int
	for _, m := range matches {
		n, err := strconv.Atoi(strings.TrimPrefix(m, path+"."))
		if err != nil || n < 1 {
			continue
		}
		indices = append(indices, n)
	}
	return indices, nil
}

type loggerHolder struct{ Logger }

var defaultLogger atomic.Pointer[loggerHolder]

// SetDefaultLogger sets the logger used by Log. Passing nil disables it.
func SetDefaultLogger(logger Logger) {
	defaultLogger.Store(&loggerHolder{logger})
}

// Log records an event with the default logger. It is a no-op until
// SetDefaultLogger is called.
func Log(event *Event) error {
	h := defaultLogger.Load()
	if h == nil || h.Logger == nil {
		return nil
	}
	return h.Log(event)
}
