package machoformat

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sort"

	"github.com/kimobu/machp/codesign"
	"github.com/kimobu/machp/internal/reader"
)

// Slice is the fully decoded, per-architecture report.
type Slice struct {
	Offset   int64
	Size     int64
	CPUType  CPU
	CPUSub   CPUSubtype
	Align    uint32
	SHA256   string
	Entropy  float64

	Header   Header
	Segments []Segment
	Dylibs   []DylibRef

	SymtabCmd *SymtabInfo
	Symtab    *Symtab
	Dysymtab  *DysymtabInfo

	ImportedSymbols []string
	ExportedSymbols []string

	CodeSignature *codesign.CodeSignature
}

// DecodeSlice decodes one 64-bit thin Mach-O image living at
// file[offset:offset+size] within the larger file image. align is the fat
// entry's alignment (0 for a standalone thin file); the CPU type and
// subtype are always taken from the slice's own header.
func DecodeSlice(file reader.Range, offset, size int64, align uint32) (*Slice, error) {
	raw, err := file.Subrange(offset, offset+size)
	if err != nil {
		return nil, err
	}

	header, err := DecodeHeader(raw)
	if err != nil {
		return nil, err
	}
	bo := header.ByteOrder()

	cmds, err := WalkLoadCommands(raw, HeaderSize, header.NCommands, header.SizeCommands, bo)
	if err != nil {
		return nil, err
	}

	for i := range cmds.Segments {
		attachSegmentEntropy(&cmds.Segments[i], raw)
	}

	slice := &Slice{
		Offset: offset, Size: size,
		CPUType: header.CPU, CPUSub: header.SubCPU, Align: align,
		Header:   header,
		Segments: cmds.Segments,
		Dylibs:   cmds.Dylibs,
		Dysymtab: cmds.Dysymtab,
	}

	sum := sha256.Sum256(raw.Bytes())
	slice.SHA256 = hex.EncodeToString(sum[:])
	slice.Entropy = ShannonEntropy(raw.Bytes())

	if cmds.Symtab != nil {
		slice.SymtabCmd = cmds.Symtab
		symtab, err := DecodeSymtab(raw, *cmds.Symtab, bo)
		if err != nil {
			return nil, err
		}
		slice.Symtab = symtab
		slice.ImportedSymbols = symbolNames(symtab.Imported)
		slice.ExportedSymbols = symbolNames(symtab.Exported)
	}

	if cmds.CodeSignature != nil {
		cs, err := codesign.Decode(raw, cmds.CodeSignature.Offset, cmds.CodeSignature.Size)
		if err != nil {
			if errors.Is(err, codesign.ErrUnrecognizedMagic) {
				return nil, invalidFormat(int64(cmds.CodeSignature.Offset), "code signature: %v", err)
			}
			return nil, parsing(int64(cmds.CodeSignature.Offset), "code signature: %v", err)
		}
		slice.CodeSignature = cs
	}

	return slice, nil
}

func symbolNames(syms []Symbol) []string {
	names := make([]string, 0, len(syms))
	for _, s := range syms {
		names = append(names, s.Name)
	}
	return names
}

// UnionDylibs merges dylib references across slices, deduplicated by name,
// preserving first-seen order.
func UnionDylibs(slices []*Slice) []DylibRef {
	seen := map[string]bool{}
	var out []DylibRef
	for _, s := range slices {
		for _, d := range s.Dylibs {
			if seen[d.Name] {
				continue
			}
			seen[d.Name] = true
			out = append(out, d)
		}
	}
	return out
}

// UnionSymbols merges a symbol-name projection across slices, returned
// sorted ascending and deduplicated.
func UnionSymbols(lists [][]string) []string {
	seen := map[string]bool{}
	var out []string
	for _, list := range lists {
		for _, name := range list {
			if seen[name] {
				continue
			}
			seen[name] = true
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
