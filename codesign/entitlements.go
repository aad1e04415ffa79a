package codesign

import (
	"sort"

	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"
	"howett.net/plist"
)

// decodeXMLEntitlements parses the XML-plist entitlements payload and
// returns its sorted top-level keys.
func decodeXMLEntitlements(payload []byte) ([]string, error) {
	var doc map[string]any
	if _, err := plist.Unmarshal(payload, &doc); err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// DER tag bytes for the Apple entitlements encoding: an
// APPLICATION-class, constructed SEQUENCE wrapping the whole document, and
// a context-specific, constructed tag-1 element holding the key/value
// dictionary.
const (
	derTagAppSequence cbasn1.Tag = 0x70 // APPLICATION | CONSTRUCTED | 16
	derTagDictionary  cbasn1.Tag = 0xa1 // CONTEXT | CONSTRUCTED | 1
)

// decodeDEREntitlements walks the DER entitlements payload: an
// application-tagged outer SEQUENCE, an INTEGER (version, skipped), and a
// context-tagged dictionary whose members are SEQUENCEs of
// (UTF8String key, value). Unknown tags terminate the walk gracefully,
// returning whatever keys were decoded so far.
func decodeDEREntitlements(payload []byte) []string {
	input := cryptobyte.String(payload)

	var outer cryptobyte.String
	if !input.ReadASN1(&outer, derTagAppSequence) {
		return nil
	}

	var version cryptobyte.String
	if !outer.ReadASN1(&version, cbasn1.INTEGER) {
		return nil
	}

	var dict cryptobyte.String
	if !outer.ReadASN1(&dict, derTagDictionary) {
		return nil
	}

	var keys []string
	for !dict.Empty() {
		var member cryptobyte.String
		if !dict.ReadASN1(&member, cbasn1.SEQUENCE) {
			break
		}
		var keyBytes cryptobyte.String
		if !member.ReadASN1(&keyBytes, cbasn1.UTF8String) {
			break
		}
		keys = append(keys, string(keyBytes))
		// The value element's type varies by entitlement; skip it
		// without interpreting it.
		if !member.Empty() {
			var tag cbasn1.Tag
			var value cryptobyte.String
			if !member.ReadAnyASN1Element(&value, &tag) {
				break
			}
		}
	}
	return keys
}
