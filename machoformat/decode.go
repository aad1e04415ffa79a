package machoformat

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/kimobu/machp/internal/reader"
)

// File is the top-level decode result for one input file: either a fat
// archive descending into one or more 64-bit slices, or a single thin
// 64-bit image.
type File struct {
	SHA256  string
	Entropy float64
	Fat     *Fat
	Slices  []*Slice

	// UnionImportedSymbols, UnionExportedSymbols and UnionDylibs are
	// populated only when len(Slices) > 1.
	UnionImportedSymbols []string
	UnionExportedSymbols []string
	UnionDylibs          []DylibRef
}

// Decode runs the full pipeline over a whole file image: fat detection,
// per-64-bit-slice decode, and archive-level symbol/dylib unions.
func Decode(file reader.Range) (*File, error) {
	isFat, err := DetectContainer(file)
	if err != nil {
		return nil, err
	}

	sum := sha256.Sum256(file.Bytes())
	out := &File{SHA256: hex.EncodeToString(sum[:]), Entropy: ShannonEntropy(file.Bytes())}

	if !isFat {
		slice, err := DecodeSlice(file, 0, file.Len(), 0)
		if err != nil {
			return nil, err
		}
		out.Slices = []*Slice{slice}
		return out, nil
	}

	fat, err := DecodeFat(file)
	if err != nil {
		return nil, err
	}
	out.Fat = fat

	for _, arch := range fat.Archs {
		if arch.Skipped {
			continue
		}
		slice, err := DecodeSlice(file, int64(arch.Offset), int64(arch.Size), arch.Align)
		if err != nil {
			return nil, err
		}
		out.Slices = append(out.Slices, slice)
	}

	if len(out.Slices) > 1 {
		imported := make([][]string, len(out.Slices))
		exported := make([][]string, len(out.Slices))
		for i, s := range out.Slices {
			imported[i] = s.ImportedSymbols
			exported[i] = s.ExportedSymbols
		}
		out.UnionImportedSymbols = UnionSymbols(imported)
		out.UnionExportedSymbols = UnionSymbols(exported)
		out.UnionDylibs = UnionDylibs(out.Slices)
	}

	return out, nil
}
