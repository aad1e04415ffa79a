package machoformat

import (
	"encoding/binary"

	"github.com/kimobu/machp/internal/reader"
)

const (
	fatMagic32 uint32 = 0xcafebabe
	fatMagic64 uint32 = 0xcafebabf

	cpuArchABI64 uint32 = 0x01000000
)

// FatArch is one entry of a fat archive's architecture index.
type FatArch struct {
	CPUType    uint32
	CPUSubtype uint32
	Offset     uint64
	Size       uint64
	Align      uint32
	Is64       bool
	// Skipped is true when this arch is excluded from descent because it
	// is not a 64-bit ABI.
	Skipped bool
}

// Fat is the decoded result of reading a fat-archive header, before any
// slice has been descended into.
type Fat struct {
	Magic    uint32
	Is64Wide bool
	Archs    []FatArch
}

// DetectContainer reads the first 4 bytes of the file image and reports
// whether it is a fat archive, a thin 64-bit slice, or neither.
func DetectContainer(r reader.Range) (isFat bool, err error) {
	magic, err := r.ReadU32(0, binary.BigEndian)
	if err != nil {
		return false, parsing(0, "file too small for a magic number")
	}
	switch magic {
	case fatMagic32, fatMagic64:
		return true, nil
	case Magic64, Magic64BE:
		return false, nil
	default:
		return false, invalidFormat(0, "unrecognized top-level magic %#08x", magic)
	}
}

// DecodeFat reads a fat archive's header and architecture index. Entries
// are 20 bytes (32-bit fat) or 32 bytes (64-bit fat), all fields
// big-endian.
func DecodeFat(r reader.Range) (*Fat, error) {
	magic, err := r.ReadU32(0, binary.BigEndian)
	if err != nil {
		return nil, err
	}
	if magic != fatMagic32 && magic != fatMagic64 {
		return nil, invalidFormat(0, "unrecognized fat magic %#08x", magic)
	}
	nfat, err := r.ReadU32(4, binary.BigEndian)
	if err != nil {
		return nil, err
	}

	is64 := magic == fatMagic64
	entrySize := int64(20)
	if is64 {
		entrySize = 32
	}

	fat := &Fat{Magic: magic, Is64Wide: is64}
	cursor := int64(8)
	for i := uint32(0); i < nfat; i++ {
		if cursor+entrySize > r.Len() {
			return nil, parsing(cursor, "fat_arch entry %d exceeds file bounds", i)
		}
		cputype, err := r.ReadU32(cursor, binary.BigEndian)
		if err != nil {
			return nil, err
		}
		cpusubtype, err := r.ReadU32(cursor+4, binary.BigEndian)
		if err != nil {
			return nil, err
		}

		var offset, size uint64
		var align uint32
		if is64 {
			offset, err = r.ReadU64(cursor+8, binary.BigEndian)
			if err != nil {
				return nil, err
			}
			size, err = r.ReadU64(cursor+16, binary.BigEndian)
			if err != nil {
				return nil, err
			}
			align, err = r.ReadU32(cursor+24, binary.BigEndian)
			if err != nil {
				return nil, err
			}
		} else {
			off32, err := r.ReadU32(cursor+8, binary.BigEndian)
			if err != nil {
				return nil, err
			}
			size32, err := r.ReadU32(cursor+12, binary.BigEndian)
			if err != nil {
				return nil, err
			}
			align, err = r.ReadU32(cursor+16, binary.BigEndian)
			if err != nil {
				return nil, err
			}
			offset, size = uint64(off32), uint64(size32)
		}

		arch := FatArch{
			CPUType: cputype, CPUSubtype: cpusubtype,
			Offset: offset, Size: size, Align: align, Is64: is64,
		}
		arch.Skipped = cputype&cpuArchABI64 == 0
		fat.Archs = append(fat.Archs, arch)
		cursor += entrySize
	}
	return fat, nil
}
