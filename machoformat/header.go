package machoformat

import (
	"encoding/binary"
	"fmt"

	"github.com/kimobu/machp/internal/reader"
)

// Magic values of a thin Mach-O image. DecodeHeader accepts only the two
// 64-bit values.
const (
	Magic64    uint32 = 0xfeedfacf
	Magic64BE  uint32 = 0xcffaedfe
	Magic32    uint32 = 0xfeedface
	Magic32BE  uint32 = 0xcefaedfe
)

// HeaderSize is the fixed size in bytes of a 64-bit Mach-O header
// (magic, cputype, cpusubtype, filetype, ncmds, sizeofcmds, flags, reserved).
const HeaderSize = 32

// Header is the decoded 32-byte record at the start of a slice.
type Header struct {
	Magic        uint32
	CPU          CPU
	SubCPU       CPUSubtype
	FileType     FileType
	NCommands    uint32
	SizeCommands uint32
	Flags        HeaderFlags
	Reserved     uint32

	// BigEndian is true iff Magic == Magic64BE; it is the per-slice
	// endianness every subsequent decoder in this package must honor.
	BigEndian bool
}

// FileType is the Mach-O file type (executable, dylib, object file, ...).
type FileType uint32

const (
	FileTypeObject     FileType = 0x1
	FileTypeExecute    FileType = 0x2
	FileTypeFVMLib     FileType = 0x3
	FileTypeCore       FileType = 0x4
	FileTypePreload    FileType = 0x5
	FileTypeDylib      FileType = 0x6
	FileTypeDylinker   FileType = 0x7
	FileTypeBundle     FileType = 0x8
	FileTypeDylibStub  FileType = 0x9
	FileTypeDsym       FileType = 0xa
	FileTypeKextBundle FileType = 0xb
	FileTypeFileset    FileType = 0xc
)

var fileTypeNames = []intName{
	{uint32(FileTypeObject), "MH_OBJECT"},
	{uint32(FileTypeExecute), "MH_EXECUTE"},
	{uint32(FileTypeFVMLib), "MH_FVMLIB"},
	{uint32(FileTypeCore), "MH_CORE"},
	{uint32(FileTypePreload), "MH_PRELOAD"},
	{uint32(FileTypeDylib), "MH_DYLIB"},
	{uint32(FileTypeDylinker), "MH_DYLINKER"},
	{uint32(FileTypeBundle), "MH_BUNDLE"},
	{uint32(FileTypeDylibStub), "MH_DYLIB_STUB"},
	{uint32(FileTypeDsym), "MH_DSYM"},
	{uint32(FileTypeKextBundle), "MH_KEXT_BUNDLE"},
	{uint32(FileTypeFileset), "MH_FILESET"},
}

func (t FileType) String() string { return stringName(uint32(t), fileTypeNames, "MH") }

// HeaderFlags is the bitset decoded from the header's flags field. The
// fixed 29-entry bit->name mapping.
type HeaderFlags uint32

type flagBit struct {
	bit  uint32
	name string
}

// flagTable is iterated in this fixed order to produce a deterministic
// flag-name list.
var flagTable = []flagBit{
	{0x1, "MH_NOUNDEFS"},
	{0x2, "MH_INCRLINK"},
	{0x4, "MH_DYLDLINK"},
	{0x8, "MH_BINDATLOAD"},
	{0x10, "MH_PREBOUND"},
	{0x20, "MH_SPLIT_SEGS"},
	{0x40, "MH_LAZY_INIT"},
	{0x80, "MH_TWOLEVEL"},
	{0x100, "MH_FORCE_FLAT"},
	{0x200, "MH_NOMULTIDEFS"},
	{0x400, "MH_NOFIXPREBINDING"},
	{0x800, "MH_PREBINDABLE"},
	{0x1000, "MH_ALLMODSBOUND"},
	{0x2000, "MH_SUBSECTIONS_VIA_SYMBOLS"},
	{0x4000, "MH_CANONICAL"},
	{0x8000, "MH_WEAK_DEFINES"},
	{0x10000, "MH_BINDS_TO_WEAK"},
	{0x20000, "MH_ALLOW_STACK_EXECUTION"},
	{0x40000, "MH_ROOT_SAFE"},
	{0x80000, "MH_SETUID_SAFE"},
	{0x100000, "MH_NO_REEXPORTED_DYLIBS"},
	{0x200000, "MH_PIE"},
	{0x400000, "MH_DEAD_STRIPPABLE_DYLIB"},
	{0x800000, "MH_HAS_TLV_DESCRIPTORS"},
	{0x1000000, "MH_NO_HEAP_EXECUTION"},
	{0x02000000, "MH_APP_EXTENSION_SAFE"},
	{0x04000000, "MH_NLIST_OUTOFSYNC_WITH_DYLDINFO"},
	{0x08000000, "MH_SIM_SUPPORT"},
	{0x80000000, "MH_DYLIB_IN_CACHE"},
}

// Names returns the symbolic flag names set in f, in flagTable order.
func (f HeaderFlags) Names() []string {
	names := make([]string, 0, len(flagTable))
	for _, fb := range flagTable {
		if uint32(f)&fb.bit != 0 {
			names = append(names, fb.name)
		}
	}
	return names
}

// DecodeHeader reads the 32-byte Mach-O header at the start of r.
func DecodeHeader(r reader.Range) (Header, error) {
	if r.Len() < HeaderSize {
		return Header{}, parsing(0, "slice too small for header: %d bytes", r.Len())
	}
	magic, err := r.ReadU32(0, binary.BigEndian)
	if err != nil {
		return Header{}, err
	}

	var bo binary.ByteOrder
	var bigEndian bool
	switch magic {
	case Magic64:
		bo = binary.LittleEndian
		bigEndian = false
	case Magic64BE:
		bo = binary.BigEndian
		bigEndian = true
	default:
		return Header{}, invalidFormat(0, "unrecognized header magic %#08x", magic)
	}

	cpu, err := r.ReadU32(4, bo)
	if err != nil {
		return Header{}, err
	}
	subcpu, err := r.ReadU32(8, bo)
	if err != nil {
		return Header{}, err
	}
	filetype, err := r.ReadU32(12, bo)
	if err != nil {
		return Header{}, err
	}
	ncmds, err := r.ReadU32(16, bo)
	if err != nil {
		return Header{}, err
	}
	sizeofcmds, err := r.ReadU32(20, bo)
	if err != nil {
		return Header{}, err
	}
	flags, err := r.ReadU32(24, bo)
	if err != nil {
		return Header{}, err
	}
	reserved, err := r.ReadU32(28, bo)
	if err != nil {
		return Header{}, err
	}

	if int64(sizeofcmds) > r.Len()-HeaderSize {
		return Header{}, parsing(HeaderSize, "sizeofcmds %d exceeds remaining slice size %d", sizeofcmds, r.Len()-HeaderSize)
	}

	return Header{
		Magic:        magic,
		CPU:          CPU(cpu),
		SubCPU:       CPUSubtype(subcpu),
		FileType:     FileType(filetype),
		NCommands:    ncmds,
		SizeCommands: sizeofcmds,
		Flags:        HeaderFlags(flags),
		Reserved:     reserved,
		BigEndian:    bigEndian,
	}, nil
}

// ByteOrder returns the binary.ByteOrder implied by h.BigEndian, for use by
// later decode stages that operate on the same slice.
func (h Header) ByteOrder() binary.ByteOrder {
	if h.BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

func hexName(prefix string, i uint32) string {
	if prefix == "" {
		return fmt.Sprintf("0x%x", i)
	}
	return fmt.Sprintf("%s_0x%x", prefix, i)
}
