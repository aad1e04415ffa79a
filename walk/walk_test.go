package walk

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/kimobu/machp/log"
)

func minimalThinMachO() []byte {
	b := make([]byte, 32)
	bo := binary.LittleEndian
	binary.BigEndian.PutUint32(b[0:4], 0xfeedfacf)
	bo.PutUint32(b[4:8], 0x01000007) // CPU_TYPE_X86_64
	bo.PutUint32(b[8:12], 3)
	bo.PutUint32(b[12:16], 2) // MH_EXECUTE
	bo.PutUint32(b[16:20], 0)
	bo.PutUint32(b[20:24], 0)
	bo.PutUint32(b[24:28], 0)
	return b
}

func TestFilesDecodesMinimalThinImage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "minimal")
	if err := os.WriteFile(path, minimalThinMachO(), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	r := Files(context.Background(), path, log.Noop())
	if r.Err != nil {
		t.Fatalf("unexpected error: %v", r.Err)
	}
	if len(r.File.Slices) != 1 {
		t.Fatalf("got %d slices, want 1", len(r.File.Slices))
	}
}

func TestFilesReportsFileNotFound(t *testing.T) {
	r := Files(context.Background(), "/nonexistent/path/does-not-exist", log.Noop())
	if r.Err == nil {
		t.Fatal("expected error for missing file")
	}
}
