package machoformat

import (
	"encoding/binary"
	"testing"

	"github.com/kimobu/machp/internal/reader"
)

// putCmd appends a generic (cmd, cmdsize) record of the given total size,
// zero-filling the payload.
func putCmd(buf []byte, cmd, size uint32, bo binary.ByteOrder) []byte {
	rec := make([]byte, size)
	bo.PutUint32(rec[0:4], cmd)
	bo.PutUint32(rec[4:8], size)
	return append(buf, rec...)
}

func TestLoadCommandConservation(t *testing.T) {
	bo := binary.LittleEndian
	var body []byte
	body = putCmd(body, lcDysymtab, 80, bo)
	body = putCmd(body, 0xfeedface, 16, bo) // unknown

	r := reader.New(body)
	lcs, err := WalkLoadCommands(r, 0, 2, uint32(len(body)), bo)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(lcs.Commands) != 2 {
		t.Fatalf("visited %d commands, want 2", len(lcs.Commands))
	}
	if lcs.Commands[1].Name == "" {
		t.Errorf("unknown command got empty name")
	}
}

func TestLoadCommandConservationMismatch(t *testing.T) {
	bo := binary.LittleEndian
	var body []byte
	body = putCmd(body, lcDysymtab, 80, bo)

	r := reader.New(body)
	_, err := WalkLoadCommands(r, 0, 1, 999, bo)
	if err == nil {
		t.Fatal("expected error for sizeofcmds mismatch")
	}
}

func TestLoadCommandTruncated(t *testing.T) {
	bo := binary.LittleEndian
	body := make([]byte, 8)
	bo.PutUint32(body[0:4], lcSegment64)
	bo.PutUint32(body[4:8], 72) // declares 72 bytes, only 8 present

	r := reader.New(body)
	_, err := WalkLoadCommands(r, 0, 1, 72, bo)
	if err == nil {
		t.Fatal("expected Parsing error for truncated command")
	}
	mErr, ok := err.(*Error)
	if !ok {
		t.Fatalf("error type = %T, want *Error", err)
	}
	if mErr.Kind != KindParsing {
		t.Errorf("error kind = %v, want Parsing", mErr.Kind)
	}
	if mErr.Offset != 0 {
		t.Errorf("error offset = %d, want 0", mErr.Offset)
	}
}

func TestDylibVersionRendering(t *testing.T) {
	if got := VersionString(0x00010203); got != "1.2.3" {
		t.Errorf("VersionString(0x10203) = %q, want 1.2.3", got)
	}
}
