package model

import (
	"bufio"
	"compress/gzip"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"os"
)

// FileName is the model file's name inside a model directory.
const FileName = "model.gob"

// FormatVersion is written into every model file; Load rejects other versions.
const FormatVersion = 1

// ErrFormat is returned when a model file is not a model or has an unknown version.
var ErrFormat = errors.New("unsupported model format")

type envelope struct {
	Version int
	Model   *Model
}

// Save writes m to w as a gzip-compressed gob envelope.
func Save(w io.Writer, m *Model) error {
	gz := gzip.NewWriter(w)
	if err := gob.NewEncoder(gz).Encode(envelope{Version: FormatVersion, Model: m}); err != nil {
		gz.Close()
		return fmt.Errorf("encode model: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("compress model: %w", err)
	}
	return nil
}

// Load reads a model written by Save.
func Load(r io.Reader) (*Model, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	defer gz.Close()
	var env envelope
	if err := gob.NewDecoder(gz).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	if env.Version != FormatVersion {
		return nil, fmt.Errorf("%w: version %d, want %d", ErrFormat, env.Version, FormatVersion)
	}
	if env.Model == nil || env.Model.Feature == nil {
		return nil, fmt.Errorf("%w: no feature transform", ErrFormat)
	}
	return env.Model, nil
}

// ReadFile loads the model stored at path.
func ReadFile(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(bufio.NewReader(f))
}
