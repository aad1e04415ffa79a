package machoformat

import (
	"encoding/binary"
	"testing"

	"github.com/kimobu/machp/internal/reader"
)

// buildThinWithCodeSignature assembles a minimal 64-bit thin Mach-O image
// (32-byte header, no other load commands) carrying a single
// LC_CODE_SIGNATURE command that points at a trailing blob whose first four
// bytes are csMagic.
func buildThinWithCodeSignature(csMagic uint32) []byte {
	bo := binary.LittleEndian
	const headerSize = 32
	const lcSize = 16 // cmd, cmdsize, dataoff, datasize

	dataOff := uint32(headerSize + lcSize)
	blob := make([]byte, 12)
	binary.BigEndian.PutUint32(blob[0:4], csMagic)
	binary.BigEndian.PutUint32(blob[4:8], uint32(len(blob)))
	binary.BigEndian.PutUint32(blob[8:12], 0)

	b := make([]byte, int(dataOff)+len(blob))
	binary.BigEndian.PutUint32(b[0:4], Magic64)
	bo.PutUint32(b[4:8], uint32(CPUTypeX8664))
	bo.PutUint32(b[8:12], 3)
	bo.PutUint32(b[12:16], 2) // MH_EXECUTE
	bo.PutUint32(b[16:20], 1) // ncmds
	bo.PutUint32(b[20:24], lcSize)
	bo.PutUint32(b[24:28], 0)
	bo.PutUint32(b[28:32], 0)

	bo.PutUint32(b[32:36], lcCodeSignature)
	bo.PutUint32(b[36:40], lcSize)
	bo.PutUint32(b[40:44], dataOff)
	bo.PutUint32(b[44:48], uint32(len(blob)))

	copy(b[dataOff:], blob)
	return b
}

func TestDecodeSliceUnrecognizedSignatureMagicIsInvalidFormat(t *testing.T) {
	b := buildThinWithCodeSignature(0xdeadbeef)
	_, err := DecodeSlice(reader.New(b), 0, int64(len(b)), 0)
	if err == nil {
		t.Fatal("expected error for unrecognized super-blob magic")
	}
	mErr, ok := err.(*Error)
	if !ok {
		t.Fatalf("error type = %T, want *Error", err)
	}
	if mErr.Kind != KindInvalidFormat {
		t.Errorf("error kind = %v, want InvalidFormat", mErr.Kind)
	}
}
