package machoformat

import (
	"encoding/binary"
	"unicode/utf8"

	"github.com/kimobu/machp/internal/reader"
)

const nlist64Size = 16

// Symbol is one decoded nlist_64 record.
type Symbol struct {
	Name   string
	Type   uint8
	Sect   uint8
	Desc   uint16
	Value  uint64
}

// isImported reports whether the symbol is a non-STAB undefined external
// reference: (n_type & 0xE0) == 0 ∧ (n_type & 0x0E) == 0 ∧
// (n_type & 0x01) == 1 ∧ n_value == 0.
func (s Symbol) isImported() bool {
	return !s.isStab() && s.Type&0x0e == 0 && s.Type&0x01 == 1 && s.Value == 0
}

// isExported reports whether the symbol is a defined external symbol:
// (n_type & 0xE0) == 0 ∧ (n_type & 0x01) == 1 ∧ (n_type & 0x0E) != 0.
func (s Symbol) isExported() bool {
	return s.Type&0xe0 == 0 && s.Type&0x01 == 1 && s.Type&0x0e != 0
}

// isStab reports whether the symbol is a debugger (STAB) symbol, which the
// classification partition excludes from both projections.
func (s Symbol) isStab() bool { return s.Type&0xe0 != 0 }

// Symtab is the full decode of an LC_SYMTAB's referenced records: the
// complete symbol list plus the imported/exported projections.
type Symtab struct {
	Symbols  []Symbol
	Imported []Symbol
	Exported []Symbol
}

// DecodeSymtab reads nsyms nlist_64 records at symoff and resolves each
// name against the string heap at [stroff, stroff+strsize). Offsets
// outside the string heap, or whose name fails UTF-8 validation, are
// rejected per-symbol rather than aborting the whole decode.
func DecodeSymtab(slice reader.Range, info SymtabInfo, bo binary.ByteOrder) (*Symtab, error) {
	strHeap, err := slice.Subrange(int64(info.StrOff), int64(info.StrOff)+int64(info.StrSize))
	if err != nil {
		return nil, parsing(int64(info.StrOff), "string heap [%d,%d) out of bounds", info.StrOff, int64(info.StrOff)+int64(info.StrSize))
	}

	out := &Symtab{}
	for i := uint32(0); i < info.NSyms; i++ {
		recOff := int64(info.SymOff) + int64(i)*nlist64Size
		strx, err := slice.ReadU32(recOff, bo)
		if err != nil {
			return nil, parsing(recOff, "nlist_64 record %d exceeds slice bounds", i)
		}
		ntype, err := slice.ReadU8(recOff + 4)
		if err != nil {
			return nil, err
		}
		nsect, err := slice.ReadU8(recOff + 5)
		if err != nil {
			return nil, err
		}
		ndesc, err := slice.ReadU16(recOff+6, bo)
		if err != nil {
			return nil, err
		}
		nvalue, err := slice.ReadU64(recOff+8, bo)
		if err != nil {
			return nil, err
		}

		if int64(strx) >= strHeap.Len() {
			continue
		}
		name, err := strHeap.ReadCString(int64(strx))
		if err != nil || !utf8.ValidString(name) {
			continue
		}

		sym := Symbol{Name: name, Type: ntype, Sect: nsect, Desc: ndesc, Value: nvalue}
		out.Symbols = append(out.Symbols, sym)
		if sym.isStab() {
			continue
		}
		if sym.isImported() {
			out.Imported = append(out.Imported, sym)
		} else if sym.isExported() {
			out.Exported = append(out.Exported, sym)
		}
	}
	return out, nil
}
