package cryptox

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const pepperLength = 32

var (
	pepperMu sync.RWMutex
	pepper   string
)

// LoadPepper reads the pepper from path, creating the file with a fresh
// random value when it does not exist yet. Digests created under one pepper
// never verify under another, so the file must survive restarts.
func LoadPepper(path string) error {
	path = filepath.Clean(path)

	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		SetPepper(string(raw))
		return nil
	case !errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("cryptox: read pepper: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("cryptox: create pepper dir: %w", err)
	}

	buf := make([]byte, pepperLength)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Errorf("cryptox: generate pepper: %w", err)
	}
	value := base64.RawURLEncoding.EncodeToString(buf)

	if err := os.WriteFile(path, []byte(value), 0o600); err != nil {
		return fmt.Errorf("cryptox: write pepper: %w", err)
	}

	SetPepper(value)
	return nil
}

// SetPepper replaces the process-wide pepper. Tests use it directly.
func SetPepper(p string) {
	pepperMu.Lock()
	defer pepperMu.Unlock()
	pepper = p
}

func peppered(password string) []byte {
	pepperMu.RLock()
	defer pepperMu.RUnlock()
	return []byte(password + pepper)
}
