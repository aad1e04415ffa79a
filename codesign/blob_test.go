package codesign

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/kimobu/machp/internal/reader"
)

func TestDecodeUnrecognizedMagic(t *testing.T) {
	b := make([]byte, 12)
	binary.BigEndian.PutUint32(b[0:4], 0xdeadbeef)
	binary.BigEndian.PutUint32(b[4:8], uint32(len(b)))
	binary.BigEndian.PutUint32(b[8:12], 0)

	_, err := Decode(reader.New(b), 0, uint32(len(b)))
	if err == nil {
		t.Fatal("expected error for unrecognized super-blob magic")
	}
	if !errors.Is(err, ErrUnrecognizedMagic) {
		t.Errorf("err = %v, want wrapping ErrUnrecognizedMagic", err)
	}
}

func TestDecodeSuperBlobWithCodeDirectory(t *testing.T) {
	cdBlob := buildCodeDirectory(t, 0, 0, 20, "com.example.app")

	const headerSize = 12
	const indexEntrySize = 8
	blobOffset := uint32(headerSize + indexEntrySize)
	total := int(blobOffset) + len(cdBlob)

	b := make([]byte, total)
	binary.BigEndian.PutUint32(b[0:4], magicSuperBlob)
	binary.BigEndian.PutUint32(b[4:8], uint32(total))
	binary.BigEndian.PutUint32(b[8:12], 1)
	binary.BigEndian.PutUint32(b[12:16], magicCodeDirectory)
	binary.BigEndian.PutUint32(b[16:20], blobOffset)
	copy(b[blobOffset:], cdBlob)

	cs, err := Decode(reader.New(b), 0, uint32(total))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cs.CodeDirectory == nil {
		t.Fatal("expected CodeDirectory to be populated")
	}
	if cs.CodeDirectory.Identifier != "com.example.app" {
		t.Errorf("identifier = %q, want com.example.app", cs.CodeDirectory.Identifier)
	}
}
