// Package report builds the JSON-serializable tree fed to the output
// writer. It owns no decoding logic: every field here is a direct
// projection of a decoded machoformat.File/Slice.
package report

import (
	"github.com/kimobu/machp/codesign"
	"github.com/kimobu/machp/machoformat"
)

// File is the top-level report document.
type File struct {
	FilePath string  `json:"file_path"`
	FileSize int64   `json:"file_size"`
	Entropy  float64 `json:"entropy"`
	Fat      *Fat    `json:"fat,omitempty"`
	Parsed   bool    `json:"parsed"`

	Slices      []Slice `json:"slices,omitempty"`
	HeaderSlice *Slice  `json:"header_slice,omitempty"`

	UnionImportedSymbols []string `json:"union_imported_symbols,omitempty"`
	UnionExportedSymbols []string `json:"union_exported_symbols,omitempty"`
	UnionDylibs          []Dylib  `json:"union_dylibs,omitempty"`
}

// Fat mirrors the fat-archive index when the input is a multi-architecture
// container.
type Fat struct {
	Magic    string    `json:"magic"`
	NFatArch int       `json:"nfat_arch"`
	Archs    []FatArch `json:"archs"`
}

// FatArch is one fat_arch[_64] entry.
type FatArch struct {
	CPUType    string `json:"cpu_type"`
	CPUSubtype string `json:"cpu_subtype"`
	Offset     uint64 `json:"offset"`
	Size       uint64 `json:"size"`
	Align      uint32 `json:"align"`
	Skipped    bool   `json:"skipped"`
}

// Slice is the per-architecture decoded record.
type Slice struct {
	Offset  int64   `json:"offset"`
	Size    int64   `json:"size"`
	CPUType string  `json:"cputype"`
	CPUSub  string  `json:"cpusubtype"`
	Align   uint32  `json:"align"`
	SHA256  string  `json:"sha256"`
	Entropy float64 `json:"entropy"`

	Header Header `json:"header"`

	Dylibs []Dylib `json:"dylibs"`

	ImportedSymbols    []string `json:"imported_symbols"`
	NumImportedSymbols int      `json:"num_imported_symbols"`
	Exports            []string `json:"exports"`
	NumExports         int      `json:"num_exports"`

	Symtab   *Symtab   `json:"symtab,omitempty"`
	Dysymtab *Dysymtab `json:"dysymtab,omitempty"`

	Segments []Segment `json:"segments"`
}

// Header is the decoded Mach-O header.
type Header struct {
	Magic       string   `json:"magic"`
	CPUType     string   `json:"cputype"`
	CPUSubtype  string   `json:"cpusubtype"`
	FileType    string   `json:"filetype"`
	NCommands   uint32   `json:"ncmds"`
	SizeCmds    uint32   `json:"sizeofcmds"`
	Flags       []string `json:"flags"`
	BigEndian   bool     `json:"big_endian"`

	CodeSignature *CodeSignature `json:"code_signature,omitempty"`
}

// Segment is a decoded LC_SEGMENT_64.
type Segment struct {
	Name       string    `json:"name"`
	VMAddr     uint64    `json:"vmaddr"`
	VMSize     uint64    `json:"vmsize"`
	FileOffset uint64    `json:"fileoff"`
	FileSize   uint64    `json:"filesize"`
	MaxProt    int32     `json:"maxprot"`
	InitProt   int32     `json:"initprot"`
	Flags      uint32    `json:"flags"`
	Entropy    *float64  `json:"entropy,omitempty"`
	Sections   []Section `json:"sections"`
}

// Section is one 80-byte section record.
type Section struct {
	Name      string `json:"sectname"`
	SegName   string `json:"segname"`
	Addr      uint64 `json:"addr"`
	Size      uint64 `json:"size"`
	Offset    uint32 `json:"offset"`
	Align     uint32 `json:"align"`
	RelOff    uint32 `json:"reloff"`
	NReloc    uint32 `json:"nreloc"`
	Flags     uint32 `json:"flags"`
	Reserved1 uint32 `json:"reserved1"`
	Reserved2 uint32 `json:"reserved2"`
	Reserved3 uint32 `json:"reserved3"`
}

// Dylib is a projected dylib load command.
type Dylib struct {
	Name              string `json:"name"`
	Timestamp         uint32 `json:"timestamp"`
	CurrentVersion    string `json:"current_version"`
	CompatibleVersion string `json:"compatibility_version"`
}

// Symtab is the full symbol table projection.
type Symtab struct {
	SymOff  uint32 `json:"symoff"`
	NSyms   uint32 `json:"nsyms"`
	StrOff  uint32 `json:"stroff"`
	StrSize uint32 `json:"strsize"`
}

// Dysymtab mirrors LC_DYSYMTAB's 18 fields.
type Dysymtab struct {
	ILocalSym      uint32 `json:"ilocalsym"`
	NLocalSym      uint32 `json:"nlocalsym"`
	IExtDefSym     uint32 `json:"iextdefsym"`
	NExtDefSym     uint32 `json:"nextdefsym"`
	IUndefSym      uint32 `json:"iundefsym"`
	NUndefSym      uint32 `json:"nundefsym"`
	TOCOffset      uint32 `json:"tocoff"`
	NTOC           uint32 `json:"ntoc"`
	ModTabOff      uint32 `json:"modtaboff"`
	NModTab        uint32 `json:"nmodtab"`
	ExtRefSymOff   uint32 `json:"extrefsymoff"`
	NExtRefSyms    uint32 `json:"nextrefsyms"`
	IndirectSymOff uint32 `json:"indirectsymoff"`
	NIndirectSyms  uint32 `json:"nindirectsyms"`
	ExtRelOff      uint32 `json:"extreloff"`
	NExtRel        uint32 `json:"nextrel"`
	LocRelOff      uint32 `json:"locreloff"`
	NLocRel        uint32 `json:"nlocrel"`
}

// CodeSignature is the decoded code-signature super-blob.
type CodeSignature struct {
	CodeDirectory   *CodeDirectory    `json:"code_directory,omitempty"`
	Entitlements    []string          `json:"entitlements,omitempty"`
	EntitlementsDER []string          `json:"entitlements_der,omitempty"`
	Requirements    []string          `json:"requirements,omitempty"`
	Certificates    []string          `json:"certificates,omitempty"`
	OtherBlobs      map[string]string `json:"other_blobs,omitempty"`
}

// CodeDirectory is the decoded CodeDirectory blob.
type CodeDirectory struct {
	Identifier    string            `json:"identifier"`
	Version       uint32            `json:"version"`
	Flags         uint32            `json:"flags"`
	HashOffset    uint32            `json:"hash_offset"`
	NSpecialSlots uint32            `json:"n_special_slots"`
	NCodeSlots    uint32            `json:"n_code_slots"`
	CodeLimit     uint32            `json:"code_limit"`
	HashSize      uint8             `json:"hash_size"`
	HashType      uint8             `json:"hash_type"`
	Platform      uint8             `json:"platform"`
	PageSize      uint8             `json:"page_size"`
	CDHash        string            `json:"cd_hash"`
	SpecialSlots  map[string]string `json:"special_slots"`
}

// FromFile projects a decoded machoformat.File into the wire model.
func FromFile(path string, fileSize int64, f *machoformat.File) File {
	out := File{
		FilePath: path,
		FileSize: fileSize,
		Entropy:  f.Entropy,
		Parsed:   true,
	}
	if f.Fat != nil {
		out.Fat = fromFat(f.Fat)
	}
	slices := make([]Slice, 0, len(f.Slices))
	for _, s := range f.Slices {
		slices = append(slices, fromSlice(s))
	}
	if len(slices) == 1 && f.Fat == nil {
		out.HeaderSlice = &slices[0]
	} else {
		out.Slices = slices
	}
	out.UnionImportedSymbols = f.UnionImportedSymbols
	out.UnionExportedSymbols = f.UnionExportedSymbols
	for _, d := range f.UnionDylibs {
		out.UnionDylibs = append(out.UnionDylibs, fromDylib(d))
	}
	return out
}

func fromFat(fat *machoformat.Fat) *Fat {
	out := &Fat{NFatArch: len(fat.Archs)}
	if fat.Is64Wide {
		out.Magic = "0xcafebabf"
	} else {
		out.Magic = "0xcafebabe"
	}
	for _, a := range fat.Archs {
		out.Archs = append(out.Archs, FatArch{
			CPUType:    machoformat.CPU(a.CPUType).String(),
			CPUSubtype: machoformat.CPUSubtype(a.CPUSubtype).String(machoformat.CPU(a.CPUType)),
			Offset:     a.Offset, Size: a.Size, Align: a.Align,
			Skipped: a.Skipped,
		})
	}
	return out
}

func fromDylib(d machoformat.DylibRef) Dylib {
	return Dylib{
		Name:              d.Name,
		Timestamp:         d.Timestamp,
		CurrentVersion:    machoformat.VersionString(d.CurrentVersion),
		CompatibleVersion: machoformat.VersionString(d.CompatVersion),
	}
}

func fromSlice(s *machoformat.Slice) Slice {
	out := Slice{
		Offset: s.Offset, Size: s.Size,
		CPUType: s.CPUType.String(), CPUSub: s.CPUSub.String(s.CPUType),
		Align: s.Align, SHA256: s.SHA256, Entropy: s.Entropy,
		ImportedSymbols: s.ImportedSymbols, NumImportedSymbols: len(s.ImportedSymbols),
		Exports: s.ExportedSymbols, NumExports: len(s.ExportedSymbols),
	}
	out.Header = fromHeader(s.Header, s.CodeSignature)
	for _, d := range s.Dylibs {
		out.Dylibs = append(out.Dylibs, fromDylib(d))
	}
	for _, seg := range s.Segments {
		out.Segments = append(out.Segments, fromSegment(seg))
	}
	if s.SymtabCmd != nil {
		out.Symtab = &Symtab{
			SymOff: s.SymtabCmd.SymOff, NSyms: s.SymtabCmd.NSyms,
			StrOff: s.SymtabCmd.StrOff, StrSize: s.SymtabCmd.StrSize,
		}
	}
	if s.Dysymtab != nil {
		out.Dysymtab = fromDysymtab(s.Dysymtab)
	}
	return out
}

func fromHeader(h machoformat.Header, cs *codesign.CodeSignature) Header {
	out := Header{
		Magic:      hexMagic(h.Magic),
		CPUType:    h.CPU.String(),
		CPUSubtype: h.SubCPU.String(h.CPU),
		FileType:   h.FileType.String(),
		NCommands:  h.NCommands,
		SizeCmds:   h.SizeCommands,
		Flags:      h.Flags.Names(),
		BigEndian:  h.BigEndian,
	}
	if cs != nil {
		out.CodeSignature = fromCodeSignature(cs)
	}
	return out
}

func fromSegment(seg machoformat.Segment) Segment {
	out := Segment{
		Name: seg.Name, VMAddr: seg.VMAddr, VMSize: seg.VMSize,
		FileOffset: seg.FileOff, FileSize: seg.FileSize,
		MaxProt: seg.MaxProt, InitProt: seg.InitProt, Flags: seg.Flags,
	}
	if seg.HasEntropy {
		e := seg.Entropy
		out.Entropy = &e
	}
	for _, sect := range seg.Sections {
		out.Sections = append(out.Sections, Section{
			Name: sect.Name, SegName: sect.SegName, Addr: sect.Addr, Size: sect.Size,
			Offset: sect.Offset, Align: sect.Align, RelOff: sect.RelOff, NReloc: sect.NReloc,
			Flags: sect.Flags, Reserved1: sect.Reserved1, Reserved2: sect.Reserved2, Reserved3: sect.Reserved3,
		})
	}
	return out
}

func fromDysymtab(d *machoformat.DysymtabInfo) *Dysymtab {
	return &Dysymtab{
		ILocalSym: d.ILocalSym, NLocalSym: d.NLocalSym,
		IExtDefSym: d.IExtDefSym, NExtDefSym: d.NExtDefSym,
		IUndefSym: d.IUndefSym, NUndefSym: d.NUndefSym,
		TOCOffset: d.TOCOffset, NTOC: d.NTOC,
		ModTabOff: d.ModTabOff, NModTab: d.NModTab,
		ExtRefSymOff: d.ExtRefSymOff, NExtRefSyms: d.NExtRefSyms,
		IndirectSymOff: d.IndirectSymOff, NIndirectSyms: d.NIndirectSyms,
		ExtRelOff: d.ExtRelOff, NExtRel: d.NExtRel,
		LocRelOff: d.LocRelOff, NLocRel: d.NLocRel,
	}
}

func fromCodeSignature(cs *codesign.CodeSignature) *CodeSignature {
	out := &CodeSignature{
		Entitlements:    cs.Entitlements,
		EntitlementsDER: cs.EntitlementsDER,
		Requirements:    cs.Requirements,
		Certificates:    cs.Certificates,
		OtherBlobs:      cs.OtherBlobs,
	}
	if cs.CodeDirectory != nil {
		cd := cs.CodeDirectory
		out.CodeDirectory = &CodeDirectory{
			Identifier: cd.Identifier, Version: cd.Version, Flags: cd.Flags,
			HashOffset: cd.HashOffset, NSpecialSlots: cd.NSpecialSlots, NCodeSlots: cd.NCodeSlots,
			CodeLimit: cd.CodeLimit, HashSize: cd.HashSize, HashType: cd.HashType,
			Platform: cd.Platform, PageSize: cd.PageSize, CDHash: cd.CDHash,
			SpecialSlots: cd.SpecialSlots,
		}
	}
	return out
}

func hexMagic(m uint32) string {
	const hextable = "0123456789abcdef"
	b := make([]byte, 10)
	b[0], b[1] = '0', 'x'
	for i := 0; i < 8; i++ {
		shift := uint(28 - 4*i)
		b[2+i] = hextable[(m>>shift)&0xf]
	}
	return string(b)
}
