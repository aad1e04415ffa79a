package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Marshal renders f as pretty-printed JSON with snake_case keys.
func Marshal(f File) ([]byte, error) {
	return json.MarshalIndent(f, "", "  ")
}

// WriteStdout writes f to stdout as a single JSON document.
func WriteStdout(f File) error {
	b, err := Marshal(f)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(append(b, '\n'))
	return err
}

// WriteDir writes one file per decoded slice to dir, named
// "<sha256>.json".
// Each file carries just that slice's own record; the whole-file document
// (fat index and archive-level unions) is not written.
func WriteDir(dir string, f File) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	slices := f.Slices
	if f.HeaderSlice != nil {
		slices = []Slice{*f.HeaderSlice}
	}
	for _, s := range slices {
		b, err := json.MarshalIndent(s, "", "  ")
		if err != nil {
			return err
		}
		name := fmt.Sprintf("%s.json", s.SHA256)
		if err := os.WriteFile(filepath.Join(dir, name), b, 0o644); err != nil {
			return err
		}
	}
	return nil
}
