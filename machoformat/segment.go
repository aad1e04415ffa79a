package machoformat

import (
	"encoding/binary"

	"github.com/kimobu/machp/internal/reader"
)

// segment64HeaderSize is the fixed size of an LC_SEGMENT_64 command body,
// starting right after (cmd, cmdsize).
const segment64HeaderSize = 64 // body excludes the 8-byte (cmd,cmdsize) prefix already stripped by the caller

const sectionRecordSize = 80

// Segment is the decoded payload of one LC_SEGMENT_64 command plus its
// section array.
type Segment struct {
	Name     string
	VMAddr   uint64
	VMSize   uint64
	FileOff  uint64
	FileSize uint64
	MaxProt  int32
	InitProt int32
	Flags    uint32
	Sections []Section

	// Entropy is set only when FileSize > 0 and the range is in bounds.
	Entropy    float64
	HasEntropy bool
}

// Section is one 80-byte section record, scoped to its parent Segment.
type Section struct {
	Name     string
	SegName  string
	Addr     uint64
	Size     uint64
	Offset   uint32
	Align    uint32
	RelOff   uint32
	NReloc   uint32
	Flags    uint32
	Reserved1 uint32
	Reserved2 uint32
	Reserved3 uint32
}

// decodeSegment64 decodes an LC_SEGMENT_64 body (the bytes after cmd and
// cmdsize) into a Segment, including its trailing section_64 array.
// Entropy over the segment's file range is computed by the caller once the
// full slice bytes are available (see DecodeSlice), since body here is only
// the command's own sub-range.
func decodeSegment64(body reader.Range, bo binary.ByteOrder) (*Segment, error) {
	if body.Len() < segment64HeaderSize {
		return nil, parsing(0, "LC_SEGMENT_64 command too short")
	}
	name, err := body.ReadFixedASCII(0, 16)
	if err != nil {
		return nil, err
	}
	vmaddr, err := body.ReadU64(16, bo)
	if err != nil {
		return nil, err
	}
	vmsize, err := body.ReadU64(24, bo)
	if err != nil {
		return nil, err
	}
	fileoff, err := body.ReadU64(32, bo)
	if err != nil {
		return nil, err
	}
	filesize, err := body.ReadU64(40, bo)
	if err != nil {
		return nil, err
	}
	maxprot, err := body.ReadI32(48, bo)
	if err != nil {
		return nil, err
	}
	initprot, err := body.ReadI32(52, bo)
	if err != nil {
		return nil, err
	}
	nsects, err := body.ReadU32(56, bo)
	if err != nil {
		return nil, err
	}
	flags, err := body.ReadU32(60, bo)
	if err != nil {
		return nil, err
	}

	seg := &Segment{
		Name: name, VMAddr: vmaddr, VMSize: vmsize,
		FileOff: fileoff, FileSize: filesize,
		MaxProt: maxprot, InitProt: initprot, Flags: flags,
	}

	want := int64(segment64HeaderSize) + int64(nsects)*sectionRecordSize
	if want > body.Len() {
		return nil, parsing(segment64HeaderSize, "segment %q declares %d sections exceeding command bounds", name, nsects)
	}

	for i := uint32(0); i < nsects; i++ {
		off := int64(segment64HeaderSize) + int64(i)*sectionRecordSize
		sect, err := decodeSection64(body, off, bo)
		if err != nil {
			return nil, err
		}
		seg.Sections = append(seg.Sections, *sect)
	}
	return seg, nil
}

func decodeSection64(body reader.Range, off int64, bo binary.ByteOrder) (*Section, error) {
	sectname, err := body.ReadFixedASCII(off, 16)
	if err != nil {
		return nil, err
	}
	segname, err := body.ReadFixedASCII(off+16, 16)
	if err != nil {
		return nil, err
	}
	addr, err := body.ReadU64(off+32, bo)
	if err != nil {
		return nil, err
	}
	size, err := body.ReadU64(off+40, bo)
	if err != nil {
		return nil, err
	}
	offset, err := body.ReadU32(off+48, bo)
	if err != nil {
		return nil, err
	}
	align, err := body.ReadU32(off+52, bo)
	if err != nil {
		return nil, err
	}
	reloff, err := body.ReadU32(off+56, bo)
	if err != nil {
		return nil, err
	}
	nreloc, err := body.ReadU32(off+60, bo)
	if err != nil {
		return nil, err
	}
	flags, err := body.ReadU32(off+64, bo)
	if err != nil {
		return nil, err
	}
	r1, err := body.ReadU32(off+68, bo)
	if err != nil {
		return nil, err
	}
	r2, err := body.ReadU32(off+72, bo)
	if err != nil {
		return nil, err
	}
	r3, err := body.ReadU32(off+76, bo)
	if err != nil {
		return nil, err
	}
	return &Section{
		Name: sectname, SegName: segname, Addr: addr, Size: size,
		Offset: offset, Align: align, RelOff: reloff, NReloc: nreloc,
		Flags: flags, Reserved1: r1, Reserved2: r2, Reserved3: r3,
	}, nil
}

// attachSegmentEntropy computes Shannon entropy over [fileoff,
// fileoff+filesize) of the full slice and attaches it to seg. Called from
// the slice aggregator once the whole-slice Range is available.
func attachSegmentEntropy(seg *Segment, slice reader.Range) {
	if seg.FileSize == 0 {
		return
	}
	start := int64(seg.FileOff)
	end := start + int64(seg.FileSize)
	if start < 0 || end > slice.Len() {
		return
	}
	rng, err := slice.Subrange(start, end)
	if err != nil {
		return
	}
	seg.Entropy = ShannonEntropy(rng.Bytes())
	seg.HasEntropy = true
}
