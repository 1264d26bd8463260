// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package cache

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/wneessen/easyfatt-export/internal/geocode"
	"github.com/wneessen/easyfatt-export/internal/logger"
)

const maxLineSize = 1024 * 1024

type entry struct {
	Key      string           `json:"key"`
	Location geocode.Location `json:"location"`
}

// File is an append-only JSON Lines store. The log is read once on open, every Put appends
// and syncs one line. Later lines win over earlier lines with the same key.
type File struct {
	mu      sync.Mutex
	path    string
	file    *os.File
	log     *logger.Logger
	entries map[string]geocode.Location
	lines   int
}

func OpenFile(log *logger.Logger, path string) (*File, error) {
	if path == "" {
		return nil, errors.New("file cache requires a path")
	}
	f := &File{
		path:    path,
		log:     log,
		entries: make(map[string]geocode.Location),
	}
	if err := f.load(); err != nil {
		return nil, err
	}
	if err := f.openAppend(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *File) load() error {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read geocoding cache: %w", err)
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var e entry
		if err = json.Unmarshal(raw, &e); err != nil || e.Key == "" {
			f.log.Warn("skipping unreadable geocoding cache line", "path", f.path, "line", line)
			continue
		}
		f.entries[e.Key] = e.Location
		f.lines++
	}
	if err = scanner.Err(); err != nil {
		return fmt.Errorf("failed to scan geocoding cache: %w", err)
	}

	// Terminate a truncated trailing line so the next append starts on its own line.
	if len(data) > 0 && data[len(data)-1] != '\n' {
		if err = appendNewline(f.path); err != nil {
			return err
		}
	}
	return nil
}

func appendNewline(path string) error {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open geocoding cache: %w", err)
	}
	if _, err = io.WriteString(file, "\n"); err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to repair geocoding cache: %w", err)
	}
	return file.Close()
}

func (f *File) openAppend() error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("failed to create geocoding cache directory: %w", err)
	}
	file, err := os.OpenFile(f.path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open geocoding cache: %w", err)
	}
	f.file = file
	return nil
}

func (f *File) Get(_ context.Context, key string) (geocode.Location, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	location, ok := f.entries[key]
	return location, ok, nil
}

func (f *File) Put(_ context.Context, key string, location geocode.Location) error {
	data, err := json.Marshal(entry{Key: key, Location: location})
	if err != nil {
		return fmt.Errorf("failed to encode geocoding cache entry: %w", err)
	}
	data = append(data, '\n')

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.file == nil {
		return errors.New("geocoding cache is closed")
	}
	if _, err = f.file.Write(data); err != nil {
		return fmt.Errorf("failed to append geocoding cache entry: %w", err)
	}
	if err = f.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync geocoding cache: %w", err)
	}
	f.entries[key] = location
	f.lines++
	return nil
}

// Len returns the number of distinct keys.
func (f *File) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}

// Compact rewrites the log with one line per key, sorted by key.
func (f *File) Compact() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.file == nil {
		return errors.New("geocoding cache is closed")
	}
	if f.lines == len(f.entries) {
		return nil
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary geocoding cache: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	keys := make([]string, 0, len(f.entries))
	for key := range f.entries {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	writer := bufio.NewWriter(tmp)
	encoder := json.NewEncoder(writer)
	for _, key := range keys {
		if err = encoder.Encode(entry{Key: key, Location: f.entries[key]}); err != nil {
			_ = tmp.Close()
			return fmt.Errorf("failed to encode geocoding cache entry: %w", err)
		}
	}
	if err = writer.Flush(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write temporary geocoding cache: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync temporary geocoding cache: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temporary geocoding cache: %w", err)
	}

	if err = f.file.Close(); err != nil {
		return fmt.Errorf("failed to close geocoding cache: %w", err)
	}
	f.file = nil
	if err = os.Rename(tmp.Name(), f.path); err != nil {
		_ = f.openAppend()
		return fmt.Errorf("failed to replace geocoding cache: %w", err)
	}
	f.log.Debug("compacted geocoding cache", "path", f.path, "removed_lines", f.lines-len(keys))
	f.lines = len(keys)
	return f.openAppend()
}

func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.file == nil {
		return nil
	}
	err := f.file.Close()
	f.file = nil
	return err
}
