// Package chatlog keeps a durable per-session record of chat turns as JSON
// lines. Each session file is guarded by an advisory file lock so several
// server processes can share one directory.
package chatlog

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/MrSnakeDoc/mindhaven/internal/chat"
)

const (
	logExt     = ".jsonl"
	lockExt    = ".lock"
	retryDelay = 25 * time.Millisecond
)

// ErrInvalidSession is returned for ids that are not UUIDs.
var ErrInvalidSession = errors.New("invalid session id")

type FileLog struct {
	dir string
	now func() time.Time
}

// New opens (and creates if needed) the log directory.
func New(dir string) (*FileLog, error) {
	if dir == "" {
		return nil, fmt.Errorf("chat log directory is empty")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create chat log dir: %w", err)
	}
	return &FileLog{dir: dir, now: time.Now}, nil
}

func (l *FileLog) Dir() string { return l.dir }

func (l *FileLog) paths(sessionID string) (string, string, error) {
	id, err := uuid.Parse(sessionID)
	if err != nil {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidSession, sessionID)
	}
	base := filepath.Join(l.dir, id.String())
	return base + logExt, base + logExt + lockExt, nil
}

func (l *FileLog) withLock(ctx context.Context, lockPath string, fn func() error) error {
	fl := flock.New(lockPath)
	ok, err := fl.TryLockContext(ctx, retryDelay)
	if err != nil {
		return fmt.Errorf("acquire chat log lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("acquire chat log lock: %s busy", lockPath)
	}
	defer func() { _ = fl.Unlock() }()
	return fn()
}

// Append writes msgs at the end of the session log.
func (l *FileLog) Append(ctx context.Context, sessionID string, msgs ...chat.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	logPath, lockPath, err := l.paths(sessionID)
	if err != nil {
		return err
	}

	return l.withLock(ctx, lockPath, func() error {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
		if err != nil {
			return fmt.Errorf("open chat log: %w", err)
		}
		defer func() { _ = f.Close() }()

		w := bufio.NewWriter(f)
		enc := json.NewEncoder(w)
		for _, m := range msgs {
			if err := enc.Encode(m); err != nil {
				return fmt.Errorf("encode chat message: %w", err)
			}
		}
		if err := w.Flush(); err != nil {
			return fmt.Errorf("write chat log: %w", err)
		}
		return nil
	})
}

// Read returns every message logged for the session, oldest first. A session
// without a log yields an empty slice.
func (l *FileLog) Read(ctx context.Context, sessionID string) ([]chat.Message, error) {
	logPath, lockPath, err := l.paths(sessionID)
	if err != nil {
		return nil, err
	}

	msgs := make([]chat.Message, 0)
	err = l.withLock(ctx, lockPath, func() error {
		f, err := os.Open(logPath)
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("open chat log: %w", err)
		}
		defer func() { _ = f.Close() }()

		sc := bufio.NewScanner(f)
		sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for sc.Scan() {
			var m chat.Message
			if err := json.Unmarshal(sc.Bytes(), &m); err != nil {
				return fmt.Errorf("decode chat log line: %w", err)
			}
			msgs = append(msgs, m)
		}
		return sc.Err()
	})
	return msgs, err
}

// Remove deletes the session log, used when a conversation is reset. The
// lock file is kept so every writer locks the same inode.
func (l *FileLog) Remove(ctx context.Context, sessionID string) error {
	logPath, lockPath, err := l.paths(sessionID)
	if err != nil {
		return err
	}
	return l.withLock(ctx, lockPath, func() error {
		if err := os.Remove(logPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove chat log: %w", err)
		}
		return nil
	})
}

// Sweep removes session logs not written to for longer than retention and
// returns how many were removed. Logs locked by another writer are skipped.
// Lock files are never removed.
func (l *FileLog) Sweep(retention time.Duration) (int, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return 0, fmt.Errorf("read chat log dir: %w", err)
	}

	cutoff := l.now().Add(-retention)
	removed := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), logExt) {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}

		logPath := filepath.Join(l.dir, e.Name())
		fl := flock.New(logPath + lockExt)
		ok, err := fl.TryLock()
		if err != nil || !ok {
			continue
		}
		if err := os.Remove(logPath); err == nil {
			removed++
		}
		_ = fl.Unlock()
	}
	return removed, nil
}
