package gen

import "testing"

func TestParseResponseStrict(t *testing.T) {
	result := ParseResponse(`{"Product Title": "Acme™"}`)
	if !result.Ok {
		t.Fatal("expected Ok parse")
	}
	if result.Value["Product Title"] != "Acme™" {
		t.Errorf("unexpected value: %v", result.Value)
	}
}

func TestParseResponseCodeFence(t *testing.T) {
	result := ParseResponse("```json\n{\"a\": 1}\n```")
	if !result.Ok {
		t.Fatal("expected Ok parse for fenced response")
	}
	if result.Value["a"].(float64) != 1 {
		t.Errorf("unexpected value: %v", result.Value)
	}
}

func TestParseResponseSurroundingProse(t *testing.T) {
	result := ParseResponse(`Sure, here is the content you asked for: {"a": "b"} hope this helps!`)
	if !result.Ok {
		t.Fatal("expected Ok parse with surrounding prose")
	}
	if result.Value["a"] != "b" {
		t.Errorf("unexpected value: %v", result.Value)
	}
}

func TestParseResponseMalformed(t *testing.T) {
	raw := "no json here at all"
	result := ParseResponse(raw)
	if result.Ok {
		t.Fatal("expected malformed result")
	}
	if result.RawText != raw {
		t.Errorf("raw text not preserved: %q", result.RawText)
	}
}

func TestParseResponseBrokenBraces(t *testing.T) {
	result := ParseResponse(`{"a": unterminated`)
	if result.Ok {
		t.Fatal("expected malformed result for invalid JSON")
	}
}
