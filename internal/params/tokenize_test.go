package params

import (
	"reflect"
	"testing"
)

func TestSplitAlternatives(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", []string{""}},
		{"a", []string{"a"}},
		{"a | b |c", []string{"a", "b", "c"}},
		{" a ||b ", []string{"a", "", "b"}},
		{"linux,debug | mac,release", []string{"linux,debug", "mac,release"}},
	}

	for _, tt := range tests {
		if got := SplitAlternatives(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("SplitAlternatives(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeKey(t *testing.T) {
	tests := map[string]string{
		"Key":                 "key",
		"  KEY  ":             "key",
		"listKeys, listKey2s": "listkeys,listkey2s",
		"A ,B":                "a,b",
		"":                    "",
		"PIP_Target":          "pip_target",
	}

	for in, want := range tests {
		if got := NormalizeKey(in); got != want {
			t.Errorf("NormalizeKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSplitLines(t *testing.T) {
	text := `
Key1 = v1
  spaced   =   padded value
listKeys, listKey2s = five,a | five,b
no equals sign here
 = missing key
fix a = b bug
a,,b = 1,2
url = http://host/?q=1
empty =
`
	got := SplitLines(text)
	want := []Assignment{
		{Key: "key1", Value: "v1"},
		{Key: "spaced", Value: "padded value"},
		{Key: "listkeys,listkey2s", Value: "five,a | five,b"},
		{Key: "url", Value: "http://host/?q=1"},
		{Key: "empty", Value: ""},
	}

	if !reflect.DeepEqual(got, want) {
		t.Fatalf("SplitLines mismatch\n got: %#v\nwant: %#v", got, want)
	}

	if got[0].IsCombination() {
		t.Error("key1 should not be a combination")
	}
	if !got[2].IsCombination() {
		t.Error("listkeys,listkey2s should be a combination")
	}
	if sub := got[2].SubKeys(); !reflect.DeepEqual(sub, []string{"listkeys", "listkey2s"}) {
		t.Errorf("SubKeys = %q", sub)
	}
}

func TestStripPreamble(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    string
	}{
		{
			name:    "empty",
			message: "",
			want:    "",
		},
		{
			name:    "no delimiter keeps everything",
			message: "key = value\n\nother = 1\n",
			want:    "key = value\nother = 1",
		},
		{
			name:    "prose before delimiter is dropped",
			message: "Bump the toolchain\nsee = ticket\n---\n\nkey = value\n",
			want:    "key = value",
		},
		{
			name:    "trailing delimiter with nothing after",
			message: "Some description\nkey = value\n--\n",
			want:    "Some description\nkey = value",
		},
		{
			name:    "delimiter with trailing whitespace",
			message: "text\n--   \nkey = value",
			want:    "key = value",
		},
		{
			name:    "only the first delimiter splits",
			message: "intro\n--\na = 1\n----\nb = 2",
			want:    "a = 1\nb = 2",
		},
		{
			name:    "single dash is not a delimiter",
			message: "-\nkey = value",
			want:    "-\nkey = value",
		},
		{
			name:    "crlf line endings",
			message: "intro\r\n--\r\nkey = value\r\n",
			want:    "key = value",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripPreamble(tt.message); got != tt.want {
				t.Errorf("StripPreamble() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSingular(t *testing.T) {
	tests := map[string]string{
		"targets":   "target",
		"listkey2s": "listkey2",
		"data":      "dat",
		"x":         "",
		"":          "",
		"cafés":     "café",
	}

	for in, want := range tests {
		if got := Singular(in); got != want {
			t.Errorf("Singular(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestValidKey(t *testing.T) {
	tests := map[string]bool{
		"targets":       true,
		" Target ,FLAV": true,
		"build.flavor":  true,
		"":              false,
		"a b":           false,
		"a,":            false,
	}
	for key, want := range tests {
		if got := ValidKey(key); got != want {
			t.Errorf("ValidKey(%q) = %v, want %v", key, got, want)
		}
	}
}
