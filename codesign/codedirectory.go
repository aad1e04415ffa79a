package codesign

import (
	"crypto/sha1"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/kimobu/machp/internal/reader"
)

const codeDirectoryHeaderSize = 44

// specialSlotNames is the fixed, 0-indexed special-slot label table.
var specialSlotNames = []string{
	"Entitlements Blob",
	"Application Specific",
	"Resource Directory",
	"Requirements Blob",
	"Bound Info.plist",
}

// CodeDirectory is the decoded CodeDirectory blob.
type CodeDirectory struct {
	Identifier    string
	Version       uint32
	Flags         uint32
	HashOffset    uint32
	IdentOffset   uint32
	NSpecialSlots uint32
	NCodeSlots    uint32
	CodeLimit     uint32
	HashSize      uint8
	HashType      uint8
	Platform      uint8
	PageSize      uint8
	CDHash        string
	SpecialSlots  map[string]string
}

// decodeCodeDirectory decodes a whole CodeDirectory blob (44-byte CD header
// beginning with the 8-byte magic and length, then slot hashes and
// identifier), whole being the exact bytes as stored.
func decodeCodeDirectory(whole reader.Range) (*CodeDirectory, error) {
	if whole.Len() < int64(codeDirectoryHeaderSize) {
		return nil, fmt.Errorf("CodeDirectory blob too short: %d bytes", whole.Len())
	}
	bo := binary.BigEndian

	version, err := whole.ReadU32(8, bo)
	if err != nil {
		return nil, err
	}
	flags, err := whole.ReadU32(12, bo)
	if err != nil {
		return nil, err
	}
	hashOffset, err := whole.ReadU32(16, bo)
	if err != nil {
		return nil, err
	}
	identOffset, err := whole.ReadU32(20, bo)
	if err != nil {
		return nil, err
	}
	nSpecialSlots, err := whole.ReadU32(24, bo)
	if err != nil {
		return nil, err
	}
	nCodeSlots, err := whole.ReadU32(28, bo)
	if err != nil {
		return nil, err
	}
	codeLimit, err := whole.ReadU32(32, bo)
	if err != nil {
		return nil, err
	}
	hashSize, err := whole.ReadU8(36)
	if err != nil {
		return nil, err
	}
	hashType, err := whole.ReadU8(37)
	if err != nil {
		return nil, err
	}
	platform, err := whole.ReadU8(38)
	if err != nil {
		return nil, err
	}
	pageSize, err := whole.ReadU8(39)
	if err != nil {
		return nil, err
	}

	cd := &CodeDirectory{
		Version: version, Flags: flags,
		HashOffset: hashOffset, IdentOffset: identOffset,
		NSpecialSlots: nSpecialSlots, NCodeSlots: nCodeSlots,
		CodeLimit: codeLimit,
		HashSize:  hashSize, HashType: hashType,
		Platform: platform, PageSize: pageSize,
	}

	if identOffset != 0 && int64(identOffset) < whole.Len() {
		if ident, err := whole.ReadCString(int64(identOffset)); err == nil {
			cd.Identifier = ident
		}
	}

	sum := sha1.Sum(whole.Bytes())
	cd.CDHash = hex.EncodeToString(sum[:])

	cd.SpecialSlots = map[string]string{}
	hs := int64(hashSize)
	for i := uint32(0); i < nSpecialSlots && hs > 0; i++ {
		slotOff := int64(hashOffset) - int64(i+1)*hs
		label := specialSlotLabel(i)
		h, err := whole.ReadBytes(slotOff, int(hs))
		if err != nil {
			continue
		}
		cd.SpecialSlots[label] = renderHash(h)
	}

	return cd, nil
}

func specialSlotLabel(i uint32) string {
	if int(i) < len(specialSlotNames) {
		return specialSlotNames[i]
	}
	return fmt.Sprintf("Special Slot %d", i)
}

func renderHash(h []byte) string {
	allZero := true
	for _, b := range h {
		if b != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		return "Not Bound"
	}
	return hex.EncodeToString(h)
}
