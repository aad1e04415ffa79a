// Package codesign decodes the embedded code-signing super-blob of a
// Mach-O slice: the CodeDirectory, entitlements (XML and DER), designated
// requirements, and the CMS certificate chain.
//
// Every multi-byte integer inside code-signature data is big-endian
// regardless of the enclosing slice's own endianness; every reader.Range
// offset used in this package is relative to the super-blob's own start
// unless stated otherwise.
package codesign

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/kimobu/machp/internal/reader"
)

// ErrUnrecognizedMagic is returned when the super-blob's own magic number
// (read before any sub-blob is touched) doesn't match FADE0CC0/FADE0CC1.
// Callers distinguish this from a truncated/out-of-bounds sub-blob failure
// with errors.Is.
var ErrUnrecognizedMagic = errors.New("unrecognized super-blob magic")

const (
	magicSuperBlob          uint32 = 0xfade0cc0
	magicEmbeddedSignature  uint32 = 0xfade0cc1
	magicRequirement        uint32 = 0xfade0c00
	magicRequirementSet     uint32 = 0xfade0c01
	magicCodeDirectory      uint32 = 0xfade0c02
	magicEntitlementsXML    uint32 = 0xfade7171
	magicEntitlementsDER    uint32 = 0xfade7172
	magicCMS                uint32 = 0xfade0b01
)

// CodeSignature is the fully decoded super-blob contents for one slice.
type CodeSignature struct {
	CodeDirectory *CodeDirectory
	Entitlements  []string // sorted top-level keys, XML variant
	EntitlementsDER []string // key list in document order, DER variant
	Requirements  []string // one canonical/ASCII-fallback string per requirement blob, in index order
	Certificates  []string // subject-summary strings from the CMS wrapper
	OtherBlobs    map[string]string // "0xXXXXXXXX" -> base64(payload)
}

// blobIndexEntry is one 8-byte entry of the super-blob index.
type blobIndexEntry struct {
	SlotType uint32
	Offset   uint32
}

// Decode parses the code-signature super-blob found at cs_offset in the
// full slice bytes.
func Decode(slice reader.Range, csOffset, csSize uint32) (*CodeSignature, error) {
	cs, err := slice.Subrange(int64(csOffset), int64(csOffset)+int64(csSize))
	if err != nil {
		return nil, fmt.Errorf("code signature range out of bounds: %w", err)
	}

	magic, err := cs.ReadU32(0, binary.BigEndian)
	if err != nil {
		return nil, err
	}
	if magic != magicSuperBlob && magic != magicEmbeddedSignature {
		return nil, fmt.Errorf("%w %#08x", ErrUnrecognizedMagic, magic)
	}
	count, err := cs.ReadU32(8, binary.BigEndian)
	if err != nil {
		return nil, err
	}

	out := &CodeSignature{OtherBlobs: map[string]string{}}

	for i := uint32(0); i < count; i++ {
		entryOff := int64(12) + int64(i)*8
		slotType, err := cs.ReadU32(entryOff, binary.BigEndian)
		if err != nil {
			return nil, fmt.Errorf("blob index entry %d: %w", i, err)
		}
		blobOffset, err := cs.ReadU32(entryOff+4, binary.BigEndian)
		if err != nil {
			return nil, fmt.Errorf("blob index entry %d: %w", i, err)
		}
		_ = slotType // indicative, not authoritative

		if err := decodeSubBlob(cs, int64(blobOffset), out); err != nil {
			return nil, fmt.Errorf("blob at index %d: %w", i, err)
		}
	}
	return out, nil
}

func decodeSubBlob(cs reader.Range, offset int64, out *CodeSignature) error {
	blobMagic, err := cs.ReadU32(offset, binary.BigEndian)
	if err != nil {
		return err
	}
	blobLength, err := cs.ReadU32(offset+4, binary.BigEndian)
	if err != nil {
		return err
	}
	if blobLength < 8 {
		return fmt.Errorf("blob at offset %d: length %d below minimum 8", offset, blobLength)
	}
	whole, err := cs.Subrange(offset, offset+int64(blobLength))
	if err != nil {
		return fmt.Errorf("blob at offset %d: %w", offset, err)
	}
	payload, err := whole.Subrange(8, whole.Len())
	if err != nil {
		return err
	}

	switch blobMagic {
	case magicCodeDirectory:
		cd, err := decodeCodeDirectory(whole)
		if err != nil {
			return err
		}
		out.CodeDirectory = cd
	case magicEntitlementsXML:
		keys, err := decodeXMLEntitlements(payload.Bytes())
		if err != nil {
			return err
		}
		out.Entitlements = keys
	case magicEntitlementsDER:
		keys := decodeDEREntitlements(payload.Bytes())
		out.EntitlementsDER = keys
	case magicRequirement, magicRequirementSet:
		out.Requirements = append(out.Requirements, decodeRequirementBlob(payload.Bytes()))
	case magicCMS:
		out.Certificates = decodeCMS(payload.Bytes())
	default:
		out.OtherBlobs[fmt.Sprintf("0x%08x", blobMagic)] = base64.StdEncoding.EncodeToString(payload.Bytes())
	}
	return nil
}
