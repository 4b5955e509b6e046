// Package session remembers which user is logged in to the command line.
//
// There is a single slot. Two processes sharing one marker file race on it;
// the tool is meant for one seat.
package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrNoSession is returned by Current when nobody is logged in.
var ErrNoSession = errors.New("no active session")

// Holder stores the email of the current user.
type Holder interface {
	Set(email string) error
	Current() (string, error)
	Clear() error
}

// FileHolder keeps the marker in one file so it survives restarts.
type FileHolder struct {
	path string
}

func NewFileHolder(path string) *FileHolder {
	return &FileHolder{path: path}
}

// Set replaces the marker atomically with a temp file and rename.
func (h *FileHolder) Set(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("set session: empty email")
	}

	dir := filepath.Dir(h.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create session directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".session-*")
	if err != nil {
		return fmt.Errorf("create session temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(email); err != nil {
		tmp.Close()
		return fmt.Errorf("write session: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close session temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), h.path); err != nil {
		return fmt.Errorf("replace session file: %w", err)
	}
	return nil
}

func (h *FileHolder) Current() (string, error) {
	b, err := os.ReadFile(h.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNoSession
	}
	if err != nil {
		return "", fmt.Errorf("read session: %w", err)
	}

	email := strings.TrimSpace(string(b))
	if email == "" {
		return "", ErrNoSession
	}
	return email, nil
}

// Clear removes the marker. Clearing an empty session is not an error.
func (h *FileHolder) Clear() error {
	if err := os.Remove(h.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}

// MemoryHolder keeps the marker in process memory.
type MemoryHolder struct {
	mu    sync.Mutex
	email string
}

func NewMemoryHolder() *MemoryHolder {
	return &MemoryHolder{}
}

func (h *MemoryHolder) Set(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("set session: empty email")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.email = email
	return nil
}

func (h *MemoryHolder) Current() (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.email == "" {
		return "", ErrNoSession
	}
	return h.email, nil
}

func (h *MemoryHolder) Clear() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.email = ""
	return nil
}
