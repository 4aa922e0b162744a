package config

import (
	"encoding/json"
	"testing"
)

func TestStripJSONCLineComments(t *testing.T) {
	src := []byte(`{
		// a comment
		"a": 1
	}`)
	var v map[string]int
	if err := json.Unmarshal(StripJSONC(src), &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if v["a"] != 1 {
		t.Fatalf("got %v", v)
	}
}

func TestStripJSONCBlockComments(t *testing.T) {
	src := []byte(`{ /* block
	comment */ "a": 1 }`)
	var v map[string]int
	if err := json.Unmarshal(StripJSONC(src), &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
}

func TestStripJSONCTrailingCommas(t *testing.T) {
	src := []byte(`{"a": [1, 2, 3,], "b": 2,}`)
	var v map[string]any
	if err := json.Unmarshal(StripJSONC(src), &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
}

func TestStripJSONCLeavesSlashesInStringsAlone(t *testing.T) {
	src := []byte(`{"path": "http://example.com"}`)
	var v map[string]string
	if err := json.Unmarshal(StripJSONC(src), &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if v["path"] != "http://example.com" {
		t.Fatalf("got %q", v["path"])
	}
}
