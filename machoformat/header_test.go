package machoformat

import (
	"encoding/binary"
	"testing"

	"github.com/kimobu/machp/internal/reader"
)

func buildHeader(bo binary.ByteOrder, magic, cpu, subcpu, filetype, ncmds, sizeofcmds, flags uint32) []byte {
	b := make([]byte, HeaderSize)
	binary.BigEndian.PutUint32(b[0:4], magic)
	bo.PutUint32(b[4:8], cpu)
	bo.PutUint32(b[8:12], subcpu)
	bo.PutUint32(b[12:16], filetype)
	bo.PutUint32(b[16:20], ncmds)
	bo.PutUint32(b[20:24], sizeofcmds)
	bo.PutUint32(b[24:28], flags)
	bo.PutUint32(b[28:32], 0)
	return b
}

func TestHeaderMagicAcceptance(t *testing.T) {
	cases := []struct {
		name    string
		magic   uint32
		wantErr bool
	}{
		{"64-bit LE", Magic64, false},
		{"64-bit BE", Magic64BE, false},
		{"32-bit", Magic32, true},
		{"fat 64", 0xcafebabf, true},
		{"garbage", 0xdeadbeef, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			bo := binary.LittleEndian
			if c.magic == Magic64BE {
				bo = binary.BigEndian
			}
			b := buildHeader(bo, c.magic, uint32(CPUTypeX8664), 3, 2, 0, 0, 0)
			_, err := DecodeHeader(reader.New(b))
			if (err != nil) != c.wantErr {
				t.Errorf("DecodeHeader(%#x) err = %v, wantErr %v", c.magic, err, c.wantErr)
			}
		})
	}
}

func TestHeaderFlagDecodingLaw(t *testing.T) {
	for _, fb := range flagTable {
		got := HeaderFlags(fb.bit).Names()
		if len(got) != 1 || got[0] != fb.name {
			t.Errorf("flags(%#x).Names() = %v, want [%s]", fb.bit, got, fb.name)
		}
	}
}

func TestHeaderFlagDecodingDistributesOverOr(t *testing.T) {
	combo := HeaderFlags(0x1 | 0x4 | 0x200000)
	want := []string{"MH_NOUNDEFS", "MH_DYLDLINK", "MH_PIE"}
	got := combo.Names()
	if len(got) != len(want) {
		t.Fatalf("Names() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Names()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestHeaderSizeOfCmdsOverflow(t *testing.T) {
	b := buildHeader(binary.LittleEndian, Magic64, uint32(CPUTypeX8664), 3, 2, 1, 1000, 0)
	_, err := DecodeHeader(reader.New(b))
	if err == nil {
		t.Fatal("expected error for sizeofcmds exceeding slice bounds")
	}
}
