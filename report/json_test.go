package report

import (
	"encoding/json"
	"testing"
)

func TestMarshalUsesSnakeCaseKeys(t *testing.T) {
	doc := File{
		FilePath: "/bin/ls",
		FileSize: 1234,
		Entropy:  6.5,
		Parsed:   true,
		HeaderSlice: &Slice{
			SHA256: "deadbeef",
			Header: Header{Magic: "0xfeedfacf", CPUType: "x86_64"},
		},
	}
	b, err := Marshal(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var round map[string]any
	if err := json.Unmarshal(b, &round); err != nil {
		t.Fatalf("invalid JSON produced: %v", err)
	}
	for _, key := range []string{"file_path", "file_size", "entropy", "parsed", "header_slice"} {
		if _, ok := round[key]; !ok {
			t.Errorf("missing expected key %q in %s", key, b)
		}
	}
}
