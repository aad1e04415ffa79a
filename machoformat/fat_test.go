package machoformat

import (
	"encoding/binary"
	"testing"

	"github.com/kimobu/machp/internal/reader"
)

func TestDetectContainer(t *testing.T) {
	cases := []struct {
		name    string
		magic   uint32
		isFat   bool
		wantErr bool
	}{
		{"fat32", fatMagic32, true, false},
		{"fat64", fatMagic64, true, false},
		{"thin64 LE", Magic64, false, false},
		{"thin64 BE", Magic64BE, false, false},
		{"garbage", 0x12345678, false, true},
	}
	for _, c := range cases {
		b := make([]byte, 8)
		binary.BigEndian.PutUint32(b[0:4], c.magic)
		isFat, err := DetectContainer(reader.New(b))
		if (err != nil) != c.wantErr {
			t.Fatalf("%s: err = %v, wantErr %v", c.name, err, c.wantErr)
		}
		if err == nil && isFat != c.isFat {
			t.Errorf("%s: isFat = %v, want %v", c.name, isFat, c.isFat)
		}
	}
}

func TestFatSkipPolicy(t *testing.T) {
	// One 32-bit-only slice, one 64-bit slice, 64-bit fat container.
	buf := make([]byte, 8+2*32)
	binary.BigEndian.PutUint32(buf[0:4], fatMagic64)
	binary.BigEndian.PutUint32(buf[4:8], 2)

	// entry 0: i386, not ABI64
	binary.BigEndian.PutUint32(buf[8:12], 7) // CPU_TYPE_X86
	// entry 1: x86_64, ABI64 bit set
	binary.BigEndian.PutUint32(buf[40:44], 7|cpuArchABI64)

	fat, err := DecodeFat(reader.New(buf))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fat.Archs) != 2 {
		t.Fatalf("got %d archs, want 2", len(fat.Archs))
	}
	if !fat.Archs[0].Skipped {
		t.Errorf("32-bit arch should be skipped")
	}
	if fat.Archs[1].Skipped {
		t.Errorf("64-bit arch should not be skipped")
	}
}
