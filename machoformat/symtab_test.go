package machoformat

import (
	"encoding/binary"
	"testing"

	"github.com/kimobu/machp/internal/reader"
)

func TestSymbolClassificationPartition(t *testing.T) {
	cases := []struct {
		name       string
		ntype      uint8
		nvalue     uint64
		imported   bool
		exported   bool
	}{
		{"undefined external", 0x01, 0, true, false},
		{"defined external", 0x0f, 0x1000, false, true},
		{"stab", 0xe1, 0, false, false},
		{"local defined", 0x0e, 0x1000, false, false},
	}
	for _, c := range cases {
		s := Symbol{Type: c.ntype, Value: c.nvalue}
		if s.isImported() != c.imported {
			t.Errorf("%s: isImported() = %v, want %v", c.name, s.isImported(), c.imported)
		}
		if s.isExported() != c.exported {
			t.Errorf("%s: isExported() = %v, want %v", c.name, s.isExported(), c.exported)
		}
		if s.isImported() && s.isExported() {
			t.Errorf("%s: symbol classified as both imported and exported", c.name)
		}
	}
}

func TestDecodeSymtabSkipsOutOfHeapNames(t *testing.T) {
	bo := binary.LittleEndian
	strHeap := []byte("\x00libfoo\x00")
	const symOff = 64
	slice := make([]byte, symOff+32)
	copy(slice[0:], strHeap)

	// symbol 0: valid name at offset 1 ("libfoo"), undefined external.
	bo.PutUint32(slice[symOff+0:], 1)
	slice[symOff+4] = 0x01
	bo.PutUint64(slice[symOff+8:], 0)

	// symbol 1: name offset past the string heap, should be skipped.
	bo.PutUint32(slice[symOff+16:], 9999)
	slice[symOff+20] = 0x01
	bo.PutUint64(slice[symOff+24:], 0)

	info := SymtabInfo{SymOff: symOff, NSyms: 2, StrOff: 0, StrSize: uint32(len(strHeap))}
	tab, err := DecodeSymtab(reader.New(slice), info, bo)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tab.Symbols) != 1 {
		t.Fatalf("got %d symbols, want 1 (out-of-heap symbol should be skipped)", len(tab.Symbols))
	}
	if tab.Symbols[0].Name != "libfoo" {
		t.Errorf("symbol name = %q, want libfoo", tab.Symbols[0].Name)
	}
}
