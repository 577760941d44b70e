package model

import (
	"testing"

	"github.com/goccy/go-json"
)

func TestParseOrdering(t *testing.T) {
	tests := []struct {
		raw   string
		valid bool
		value float64
	}{
		{"10", true, 10},
		{" 20 ", true, 20},
		{"2.5", true, 2.5},
		{"", false, 0},
		{"abc", false, 0},
		{"NaN", false, 0},
		{"Inf", false, 0},
	}
	for _, tt := range tests {
		got := ParseOrdering(tt.raw)
		if got.Valid != tt.valid || (tt.valid && got.Value != tt.value) {
			t.Errorf("ParseOrdering(%q) = %+v, want valid=%v value=%v", tt.raw, got, tt.valid, tt.value)
		}
	}
}

func TestOrderingJSONAcceptsNumbersAndStrings(t *testing.T) {
	var row struct {
		A Ordering `json:"a"`
		B Ordering `json:"b"`
		C Ordering `json:"c"`
	}
	if err := json.Unmarshal([]byte(`{"a": 30, "b": "40", "c": ""}`), &row); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if row.A.String() != "30" || row.B.String() != "40" || row.C.Valid {
		t.Errorf("got a=%q b=%q c=%+v", row.A.String(), row.B.String(), row.C)
	}
}

func TestPrefixFromID(t *testing.T) {
	tests := map[string]string{
		"testapp_richtext-0": "testapp_richtext",
		"text-12":            "text",
		"Bad-1":              "",
		"no_index":           "",
	}
	for id, want := range tests {
		if got := PrefixFromID(id); got != want {
			t.Errorf("PrefixFromID(%q) = %q, want %q", id, got, want)
		}
	}

	r := &Row{ID: "text-3"}
	if r.Type() != "text" {
		t.Errorf("Type() = %q, want text", r.Type())
	}
	r.Prefix = "other"
	if r.Type() != "other" {
		t.Errorf("explicit prefix should win, got %q", r.Type())
	}
}

func TestPluginAcceptsLongFormKeys(t *testing.T) {
	var p Plugin
	if err := json.Unmarshal([]byte(`{"prefix":"s","title":"Section","sectionDelta":1,"iconMarkup":"<b/>"}`), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p.Sections != 1 || p.Button != "<b/>" {
		t.Errorf("got %+v", p)
	}
	if p.Regions != nil {
		t.Errorf("absent regions must stay nil, got %v", p.Regions)
	}
}

func TestContextDefaults(t *testing.T) {
	var c Context
	if err := json.Unmarshal([]byte(`{"regions":[{"key":"main","title":"Main"}],"plugins":[]}`), &c); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !c.AllowChange {
		t.Error("allowChange should default to true")
	}
	if c.Message(MsgEmpty) == "" {
		t.Error("expected default message for empty")
	}

	if err := json.Unmarshal([]byte(`{"allowChange":false,"messages":{"empty":"Leer"}}`), &c); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if c.AllowChange {
		t.Error("allowChange=false must be honored")
	}
	if c.Message(MsgEmpty) != "Leer" {
		t.Errorf("Message(empty) = %q", c.Message(MsgEmpty))
	}
}
