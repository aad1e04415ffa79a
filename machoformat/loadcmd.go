package machoformat

import (
	"encoding/binary"
	"fmt"

	"github.com/kimobu/machp/internal/reader"
)

// Load command opcodes this package recognizes. LC_REQ_DYLD is
// OR'd into several opcodes to mark "required to load"; the constants
// below carry that bit, so the dispatch switch matches the raw cmd value.
const (
	lcReqDyld uint32 = 0x80000000

	lcSegment        uint32 = 0x1
	lcSymtab         uint32 = 0x2
	lcThread         uint32 = 0x4
	lcUnixThread     uint32 = 0x5
	lcLoadFvmLib     uint32 = 0x6
	lcIDFvmLib       uint32 = 0x7
	lcIdent          uint32 = 0x8
	lcFvmFile        uint32 = 0x9
	lcPrepage        uint32 = 0xa
	lcDysymtab       uint32 = 0xb
	lcLoadDylib      uint32 = 0xc
	lcIDDylib        uint32 = 0xd
	lcLoadDylinker   uint32 = 0xe
	lcIDDylinker     uint32 = 0xf
	lcLoadWeakDylib  uint32 = 0x18 | lcReqDyld
	lcSegment64      uint32 = 0x19
	lcReexportDylib  uint32 = 0x1f | lcReqDyld
	lcLazyLoadDylib  uint32 = 0x20
	lcLoadUpwardDylib uint32 = 0x23 | lcReqDyld
	lcCodeSignature  uint32 = 0x1d
)

// dylibCommands is the set of opcodes the dylib aggregator unions across
// a slice.
var dylibCommands = map[uint32]bool{
	lcLoadDylib:       true,
	lcLoadWeakDylib:   true,
	lcReexportDylib:   true,
	lcLazyLoadDylib:   true,
	lcLoadUpwardDylib: true,
}

// LoadCommand is one decoded load-command record. Payload carries a
// type-specific decode for the commands this package understands; every
// other command is recorded with Name == "Unknown (0x........)".
type LoadCommand struct {
	Cmd     uint32
	CmdSize uint32
	Offset  int64
	Name    string

	Segment *Segment
	Symtab  *SymtabInfo
	Dysymtab *DysymtabInfo
	Dylib   *DylibRef
	Dylinker string
	CodeSignatureOffset uint32
	CodeSignatureSize   uint32
}

// SymtabInfo is the decoded LC_SYMTAB payload.
type SymtabInfo struct {
	SymOff  uint32
	NSyms   uint32
	StrOff  uint32
	StrSize uint32
}

// DysymtabInfo is the decoded LC_DYSYMTAB payload.
type DysymtabInfo struct {
	ILocalSym      uint32
	NLocalSym      uint32
	IExtDefSym     uint32
	NExtDefSym     uint32
	IUndefSym      uint32
	NUndefSym      uint32
	TOCOffset      uint32
	NTOC           uint32
	ModTabOff      uint32
	NModTab        uint32
	ExtRefSymOff   uint32
	NExtRefSyms    uint32
	IndirectSymOff uint32
	NIndirectSyms  uint32
	ExtRelOff      uint32
	NExtRel        uint32
	LocRelOff      uint32
	NLocRel        uint32
}

// DylibRef is a projected LC_LOAD_DYLIB-family command.
type DylibRef struct {
	Name              string
	Timestamp         uint32
	CurrentVersion    uint32
	CompatVersion     uint32
}

// VersionString renders a packed version u32 as "major.minor.patch".
func VersionString(v uint32) string {
	return fmt.Sprintf("%d.%d.%d", (v>>16)&0xFFFF, (v>>8)&0xFF, v&0xFF)
}

// LoadCommands is the full decode result of walking a slice's command
// stream.
type LoadCommands struct {
	Commands      []LoadCommand
	Segments      []Segment
	Symtab        *SymtabInfo
	Dysymtab      *DysymtabInfo
	Dylibs        []DylibRef
	CodeSignature *LinkEditData
}

// LinkEditData is the decoded payload shared by LC_CODE_SIGNATURE and its
// LinkEditDataCmd relatives: a (dataoff, datasize) pointer into the slice.
type LinkEditData struct {
	Offset uint32
	Size   uint32
}

// WalkLoadCommands iterates ncmds commands starting at offset (header+32),
// validating the cmdsize-conservation invariant as it goes.
func WalkLoadCommands(r reader.Range, offset int64, ncmds, sizeofcmds uint32, bo binary.ByteOrder) (*LoadCommands, error) {
	out := &LoadCommands{}
	cursor := offset
	var total uint32

	for i := uint32(0); i < ncmds; i++ {
		if cursor+8 > r.Len() {
			return nil, parsing(cursor, "load command %d: header exceeds slice bounds", i)
		}
		cmd, err := r.ReadU32(cursor, bo)
		if err != nil {
			return nil, err
		}
		cmdsize, err := r.ReadU32(cursor+4, bo)
		if err != nil {
			return nil, err
		}
		if cmdsize < 8 {
			return nil, parsing(cursor, "load command %d: cmdsize %d below minimum 8", i, cmdsize)
		}
		if cursor+int64(cmdsize) > r.Len() {
			return nil, parsing(cursor, "load command %d: cmdsize %d exceeds slice bounds", i, cmdsize)
		}

		body, err := r.Subrange(cursor, cursor+int64(cmdsize))
		if err != nil {
			return nil, err
		}

		lc := LoadCommand{Cmd: cmd, CmdSize: cmdsize, Offset: cursor}
		if err := decodeLoadCommand(&lc, body, bo); err != nil {
			return nil, err
		}
		out.Commands = append(out.Commands, lc)

		switch {
		case lc.Segment != nil:
			out.Segments = append(out.Segments, *lc.Segment)
		case lc.Symtab != nil:
			out.Symtab = lc.Symtab
		case lc.Dysymtab != nil:
			out.Dysymtab = lc.Dysymtab
		case lc.Dylib != nil && dylibCommands[cmd]:
			out.Dylibs = append(out.Dylibs, *lc.Dylib)
		case cmd == lcCodeSignature:
			out.CodeSignature = &LinkEditData{Offset: lc.CodeSignatureOffset, Size: lc.CodeSignatureSize}
		}

		total += cmdsize
		cursor += int64(cmdsize)
	}

	if total != sizeofcmds {
		return nil, parsing(offset, "sum of cmdsize %d does not match sizeofcmds %d", total, sizeofcmds)
	}
	return out, nil
}

func decodeLoadCommand(lc *LoadCommand, body reader.Range, bo binary.ByteOrder) error {
	switch lc.Cmd {
	case lcSegment:
		lc.Name = "LC_SEGMENT"
	case lcSegment64:
		lc.Name = "LC_SEGMENT_64"
		segBody, err := body.Subrange(8, body.Len())
		if err != nil {
			return err
		}
		seg, err := decodeSegment64(segBody, bo)
		if err != nil {
			return err
		}
		lc.Segment = seg
	case lcSymtab:
		lc.Name = "LC_SYMTAB"
		if body.Len() < 24 {
			return parsing(lc.Offset, "LC_SYMTAB command too short")
		}
		symoff, _ := body.ReadU32(8, bo)
		nsyms, _ := body.ReadU32(12, bo)
		stroff, _ := body.ReadU32(16, bo)
		strsize, _ := body.ReadU32(20, bo)
		lc.Symtab = &SymtabInfo{SymOff: symoff, NSyms: nsyms, StrOff: stroff, StrSize: strsize}
	case lcThread:
		lc.Name = "LC_THREAD"
	case lcUnixThread:
		lc.Name = "LC_UNIXTHREAD"
	case lcLoadFvmLib:
		lc.Name = "LC_LOADFVMLIB"
	case lcIDFvmLib:
		lc.Name = "LC_IDFVMLIB"
	case lcIdent:
		lc.Name = "LC_IDENT"
	case lcFvmFile:
		lc.Name = "LC_FVMFILE"
	case lcPrepage:
		lc.Name = "LC_PREPAGE"
	case lcDysymtab:
		lc.Name = "LC_DYSYMTAB"
		d, err := decodeDysymtab(body, bo)
		if err != nil {
			return err
		}
		lc.Dysymtab = d
	case lcLoadDylib, lcIDDylib, lcLoadWeakDylib, lcReexportDylib, lcLazyLoadDylib, lcLoadUpwardDylib:
		lc.Name = dylibCommandName(lc.Cmd)
		d, err := decodeDylib(body, bo)
		if err != nil {
			return err
		}
		lc.Dylib = d
	case lcLoadDylinker, lcIDDylinker:
		lc.Name = dylinkerCommandName(lc.Cmd)
		if body.Len() >= 12 {
			nameoff, _ := body.ReadU32(8, bo)
			if int64(nameoff) < body.Len() {
				name, _ := body.ReadFixedASCII(int64(nameoff), int(body.Len()-int64(nameoff)))
				lc.Dylinker = name
			}
		}
	case lcCodeSignature:
		lc.Name = "LC_CODE_SIGNATURE"
		if body.Len() < 16 {
			return parsing(lc.Offset, "LC_CODE_SIGNATURE command too short")
		}
		dataoff, _ := body.ReadU32(8, bo)
		datasize, _ := body.ReadU32(12, bo)
		lc.CodeSignatureOffset = dataoff
		lc.CodeSignatureSize = datasize
	default:
		lc.Name = fmt.Sprintf("Unknown (0x%08x)", lc.Cmd)
	}
	return nil
}

func dylibCommandName(cmd uint32) string {
	switch cmd {
	case lcLoadDylib:
		return "LC_LOAD_DYLIB"
	case lcIDDylib:
		return "LC_ID_DYLIB"
	case lcLoadWeakDylib:
		return "LC_LOAD_WEAK_DYLIB"
	case lcReexportDylib:
		return "LC_REEXPORT_DYLIB"
	case lcLazyLoadDylib:
		return "LC_LAZY_LOAD_DYLIB"
	case lcLoadUpwardDylib:
		return "LC_LOAD_UPWARD_DYLIB"
	default:
		return fmt.Sprintf("Unknown (0x%08x)", cmd)
	}
}

func dylinkerCommandName(cmd uint32) string {
	if cmd == lcLoadDylinker {
		return "LC_LOAD_DYLINKER"
	}
	return "LC_ID_DYLINKER"
}

// decodeDylib extracts a dylib_command's fixed fields plus its trailing
// name string.
func decodeDylib(body reader.Range, bo binary.ByteOrder) (*DylibRef, error) {
	if body.Len() < 24 {
		return nil, parsing(0, "dylib command too short")
	}
	nameoff, err := body.ReadU32(8, bo)
	if err != nil {
		return nil, err
	}
	timestamp, err := body.ReadU32(12, bo)
	if err != nil {
		return nil, err
	}
	current, err := body.ReadU32(16, bo)
	if err != nil {
		return nil, err
	}
	compat, err := body.ReadU32(20, bo)
	if err != nil {
		return nil, err
	}
	var name string
	if int64(nameoff) < body.Len() {
		name, _ = body.ReadFixedASCII(int64(nameoff), int(body.Len()-int64(nameoff)))
	}
	return &DylibRef{Name: name, Timestamp: timestamp, CurrentVersion: current, CompatVersion: compat}, nil
}

func decodeDysymtab(body reader.Range, bo binary.ByteOrder) (*DysymtabInfo, error) {
	if body.Len() < 80 {
		return nil, parsing(0, "LC_DYSYMTAB command too short")
	}
	vals := make([]uint32, 18)
	for i := range vals {
		v, err := body.ReadU32(int64(8+4*i), bo)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return &DysymtabInfo{
		ILocalSym: vals[0], NLocalSym: vals[1],
		IExtDefSym: vals[2], NExtDefSym: vals[3],
		IUndefSym: vals[4], NUndefSym: vals[5],
		TOCOffset: vals[6], NTOC: vals[7],
		ModTabOff: vals[8], NModTab: vals[9],
		ExtRefSymOff: vals[10], NExtRefSyms: vals[11],
		IndirectSymOff: vals[12], NIndirectSyms: vals[13],
		ExtRelOff: vals[14], NExtRel: vals[15],
		LocRelOff: vals[16], NLocRel: vals[17],
	}, nil
}
