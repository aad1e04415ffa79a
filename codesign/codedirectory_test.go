package codesign

import (
	"crypto/sha1"
	"encoding/binary"
	"encoding/hex"
	"testing"

	"github.com/kimobu/machp/internal/reader"
)

// buildCodeDirectory assembles a minimal but structurally valid
// CodeDirectory blob: 44-byte CD header (starting with the 8-byte magic and
// length), nSpecialSlots hashes immediately preceding hashOffset, nCodeSlots
// hashes starting at hashOffset, then a NUL-terminated identifier.
func buildCodeDirectory(t *testing.T, nSpecial, nCode int, hashSize int, ident string) []byte {
	t.Helper()
	const cdHeaderSize = 44
	hashOffset := cdHeaderSize + nSpecial*hashSize
	identOffset := hashOffset + nCode*hashSize
	total := identOffset + len(ident) + 1

	b := make([]byte, total)
	bo := binary.BigEndian
	bo.PutUint32(b[0:4], magicCodeDirectory)
	bo.PutUint32(b[4:8], uint32(total))

	cd := b[8:]
	bo.PutUint32(cd[0:4], 0x20400) // version
	bo.PutUint32(cd[4:8], 0)       // flags
	bo.PutUint32(cd[8:12], uint32(hashOffset))
	bo.PutUint32(cd[12:16], uint32(identOffset))
	bo.PutUint32(cd[16:20], uint32(nSpecial))
	bo.PutUint32(cd[20:24], uint32(nCode))
	cd[28] = byte(hashSize) // blob offset 36

	// First special slot hash (closest to hashOffset, index 0 by this
	// package's labeling) is all non-zero so it renders as hex, not
	// "Not Bound".
	if nSpecial > 0 {
		slot0Off := hashOffset - hashSize
		for i := 0; i < hashSize; i++ {
			b[slot0Off+i] = 0xAB
		}
	}

	copy(b[identOffset:], ident)
	return b
}

func TestCodeDirectoryCDHash(t *testing.T) {
	blob := buildCodeDirectory(t, 1, 0, 20, "com.example.app")
	cd, err := decodeCodeDirectory(reader.New(blob))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := sha1.Sum(blob)
	if cd.CDHash != hex.EncodeToString(want[:]) {
		t.Errorf("cdHash = %s, want %s", cd.CDHash, hex.EncodeToString(want[:]))
	}
	if cd.Identifier != "com.example.app" {
		t.Errorf("identifier = %q, want com.example.app", cd.Identifier)
	}
}

func TestCodeDirectorySpecialSlotsCount(t *testing.T) {
	blob := buildCodeDirectory(t, 3, 0, 20, "id")
	cd, err := decodeCodeDirectory(reader.New(blob))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cd.SpecialSlots) != 3 {
		t.Fatalf("got %d special slots, want 3", len(cd.SpecialSlots))
	}
	if cd.SpecialSlots["Entitlements Blob"] == "" {
		t.Errorf("expected Entitlements Blob slot to be populated")
	}
}

func TestCodeDirectoryNotBoundSlot(t *testing.T) {
	blob := buildCodeDirectory(t, 1, 0, 20, "id")
	cd, err := decodeCodeDirectory(reader.New(blob))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_ = cd
	// buildCodeDirectory always writes a non-zero hash into slot 0;
	// verify the all-zero rendering path directly instead.
	if got := renderHash(make([]byte, 20)); got != "Not Bound" {
		t.Errorf("renderHash(zeroes) = %q, want Not Bound", got)
	}
}
