package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"dogeow-realtime/internal/realtime"
	"dogeow-realtime/pkg/jwt"
	"dogeow-realtime/pkg/log"
)

const reloadDebounce = 50 * time.Millisecond

// fileData is the on-disk session written by the login flow.
type fileData struct {
	Token  string `json:"token"`
	UserID *int64 `json:"user_id,omitempty"`
}

// ReadFile loads a session file. A missing or empty file, or one without a
// token, is a logged-out session. A missing user id is taken from the
// token's subject when the token is a JWT.
func ReadFile(path string) (realtime.Session, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return realtime.Session{}, nil
	}
	if err != nil {
		return realtime.Session{}, err
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return realtime.Session{}, nil
	}

	var d fileData
	if err := json.Unmarshal(raw, &d); err != nil {
		return realtime.Session{}, fmt.Errorf("parse session file %s: %w", path, err)
	}
	d.Token = strings.TrimSpace(d.Token)
	if d.Token == "" {
		return realtime.Session{}, nil
	}

	s := realtime.Session{IsAuthenticated: true, Token: d.Token, UserID: d.UserID}
	if s.UserID == nil {
		if claims, err := jwt.ParseUnverified(d.Token); err == nil {
			if id, err := claims.UserID(); err == nil {
				s.UserID = &id
			}
		}
	}
	return s, nil
}

// WriteFile atomically replaces the session file.
func WriteFile(path string, s realtime.Session) error {
	raw, err := json.MarshalIndent(fileData{Token: s.Token, UserID: s.UserID}, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".session-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(raw, '\n')); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// FileSource feeds a Store from a session file and keeps it in sync.
type FileSource struct {
	path   string
	store  Store
	logger log.Logger
}

func NewFileSource(path string, store Store, logger log.Logger) *FileSource {
	if logger == nil {
		logger = log.NewNop()
	}
	return &FileSource{path: filepath.Clean(path), store: store, logger: logger}
}

// Load reads the file once into the store. A read error leaves the store
// unchanged.
func (f *FileSource) Load(ctx context.Context) error {
	s, err := ReadFile(f.path)
	if err != nil {
		return err
	}
	if _, ok := s.Identity(); s.IsAuthenticated && !ok {
		f.logger.Warnf(ctx, "session: %s has a token but no user id", f.path)
	}
	f.store.Set(s)
	return nil
}

// Run watches the session file's directory and reloads on every change to
// the file until ctx is done. The directory is watched so that atomic
// replacement by rename is seen.
func (f *FileSource) Run(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	f.logger.Infof(ctx, "session: watching %s", f.path)

	timer := time.NewTimer(reloadDebounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != f.path {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(reloadDebounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			f.logger.Errorf(ctx, "session: watcher error: %v", err)
		case <-timer.C:
			if err := f.Load(ctx); err != nil {
				f.logger.Warnf(ctx, "session: reload failed, keeping previous session: %v", err)
			}
		}
	}
}
