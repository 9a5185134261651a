// Package reference persists the enrolled gesture as JSON.
package reference

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/verte-zerg/tuipass/internal/gesture"
)

//go:embed schema.json
var schemaJSON string

var schema = jsonschema.MustCompileString("reference.schema.json", schemaJSON)

// ErrMalformed is returned when the stored reference does not have the
// expected shape.
var ErrMalformed = errors.New("malformed reference file")

// PersistenceError reports a failed read or write of the reference file.
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to %s reference %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// File stores a single reference gesture at a fixed path.
type File struct {
	path string
}

// NewFile returns a File for path.
func NewFile(path string) *File {
	return &File{path: path}
}

// Path returns the file location.
func (f *File) Path() string {
	return f.path
}

// Load reads the stored reference. A missing file yields ok == false and no
// error.
func (f *File) Load() (gesture.Buffer, bool, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, &PersistenceError{Op: "read", Path: f.path, Err: err}
	}
	buf, err := Decode(data)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", f.path, err)
	}
	return buf, true, nil
}

// Decode validates and decodes a serialized reference.
func Decode(data []byte) (gesture.Buffer, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := schema.Validate(raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	var buf gesture.Buffer
	if err := json.Unmarshal(data, &buf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return buf, nil
}

// Save writes the reference atomically, creating the directory if needed.
func (f *File) Save(buf gesture.Buffer) error {
	if buf == nil {
		buf = gesture.Buffer{}
	}
	data, err := json.Marshal(buf)
	if err != nil {
		return &PersistenceError{Op: "encode", Path: f.path, Err: err}
	}
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &PersistenceError{Op: "write", Path: f.path, Err: err}
	}
	tmpFile, err := os.CreateTemp(dir, "reference-*.json")
	if err != nil {
		return &PersistenceError{Op: "write", Path: f.path, Err: err}
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return &PersistenceError{Op: "write", Path: f.path, Err: err}
	}
	if err := tmpFile.Close(); err != nil {
		return &PersistenceError{Op: "write", Path: f.path, Err: err}
	}
	if err := os.Rename(tmpPath, f.path); err != nil {
		return &PersistenceError{Op: "write", Path: f.path, Err: err}
	}
	return nil
}

// Remove deletes the stored reference. A missing file is not an error.
func (f *File) Remove() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return &PersistenceError{Op: "remove", Path: f.path, Err: err}
	}
	return nil
}
