package codesign

import (
	"fmt"

	"go.mozilla.org/pkcs7"
)

// decodeCMS parses the CMS wrapper payload (8-byte blob header already
// stripped) as a PKCS#7 SignedData structure and returns a subject-summary
// string per embedded certificate. Any parse failure yields an empty list
// rather than an error.
func decodeCMS(payload []byte) []string {
	p7, err := pkcs7.Parse(payload)
	if err != nil {
		return nil
	}
	summaries := make([]string, 0, len(p7.Certificates))
	for _, cert := range p7.Certificates {
		summaries = append(summaries, fmt.Sprintf("%s", cert.Subject))
	}
	return summaries
}
