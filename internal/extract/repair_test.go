package extract

import (
	"encoding/json"
	"testing"
)

func TestStripTrailingCommas(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"object", `{"a": 1,}`, `{"a": 1}`},
		{"array", `[1,2,]`, `[1,2]`},
		{"nested", `{"a": 1, "b": [1,2,],}`, `{"a": 1, "b": [1,2]}`},
		{"comma with newline before close", "{\"a\": 1,\n}", "{\"a\": 1\n}"},
		{"comma inside string untouched", `{"a": "x,}"}`, `{"a": "x,}"}`},
		{"no trailing comma", `{"a": 1, "b": 2}`, `{"a": 1, "b": 2}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := StripTrailingCommas(tc.in); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestTrailingCommaRepairParses(t *testing.T) {
	repaired := Repair(`{"a": 1, "b": [1,2,],}`)
	var got map[string]interface{}
	if err := json.Unmarshal([]byte(repaired), &got); err != nil {
		t.Fatalf("repaired JSON does not parse: %v (%q)", err, repaired)
	}
	if got["a"].(float64) != 1 {
		t.Fatalf("expected a=1, got %v", got["a"])
	}
	b := got["b"].([]interface{})
	if len(b) != 2 || b[0].(float64) != 1 || b[1].(float64) != 2 {
		t.Fatalf("expected b=[1,2], got %v", b)
	}
}

func TestRewriteNonFinite(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"nan", `{"a": NaN}`, `{"a": null}`},
		{"infinity", `{"a": Infinity}`, `{"a": null}`},
		{"negative infinity", `{"a": -Infinity}`, `{"a": null}`},
		{"inside string untouched", `{"a": "NaN"}`, `{"a": "NaN"}`},
		{"identifier not rewritten", `{"NaNValue": 1}`, `{"NaNValue": 1}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := RewriteNonFinite(tc.in); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestStripControlChars(t *testing.T) {
	in := "{\x00\"a\":\x01 1\x1f}"
	want := `{"a": 1}`
	if got := StripControlChars(in); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
	// Newlines and tabs survive.
	if got := StripControlChars("{\n\t\"a\": 1\n}"); got != "{\n\t\"a\": 1\n}" {
		t.Fatalf("whitespace was stripped: %q", got)
	}
}

func TestTrimBOM(t *testing.T) {
	if got := TrimBOM("\uFEFF{}"); got != "{}" {
		t.Fatalf("expected BOM stripped, got %q", got)
	}
	if got := TrimBOM("{}"); got != "{}" {
		t.Fatalf("expected input unchanged, got %q", got)
	}
}

func TestStripFenceMarkers(t *testing.T) {
	in := "```json\n{\"a\": 1}\n```"
	want := `{"a": 1}`
	if got := StripFenceMarkers(in); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestRepairDoesNotAlterValidJSON(t *testing.T) {
	in := `{"a": 1, "b": "text, with } braces", "c": [1, 2, 3]}`
	var before, after map[string]interface{}
	if err := json.Unmarshal([]byte(in), &before); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal([]byte(Repair(in)), &after); err != nil {
		t.Fatalf("repair broke valid JSON: %v", err)
	}
	if len(before) != len(after) || after["b"] != before["b"] {
		t.Fatalf("repair changed content: %v vs %v", before, after)
	}
}
