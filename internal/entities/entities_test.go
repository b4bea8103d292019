package entities

import (
	"strings"
	"testing"
)

func TestInitialReadFlag(t *testing.T) {
	cases := []struct {
		sender SenderType
		read   bool
	}{
		{SenderCustomer, false},
		{SenderAgent, true},
		{SenderSystem, true},
		{SenderBot, true},
	}
	for _, tc := range cases {
		if got := tc.sender.InitialRead(); got != tc.read {
			t.Errorf("InitialRead(%s) = %v, want %v", tc.sender, got, tc.read)
		}
	}
}

func TestValidSenderType(t *testing.T) {
	if !ValidSenderType(SenderBot) {
		t.Error("bot should be a valid sender type")
	}
	if ValidSenderType("operator") {
		t.Error("operator should not be a valid sender type")
	}
}

func TestPreviewText(t *testing.T) {
	if got := PreviewText("  hello  "); got != "hello" {
		t.Errorf("expected trimmed preview, got %q", got)
	}

	long := strings.Repeat("a", 500)
	preview := PreviewText(long)
	if len([]rune(preview)) != previewMaxRunes+1 { // +1 for the ellipsis
		t.Errorf("expected %d runes, got %d", previewMaxRunes+1, len([]rune(preview)))
	}
	if !strings.HasSuffix(preview, "…") {
		t.Errorf("expected ellipsis suffix, got %q", preview)
	}

	// Multi-byte content must not be split mid-character.
	emoji := strings.Repeat("ü", 200)
	got := PreviewText(emoji)
	for _, r := range got {
		if r != 'ü' && r != '…' {
			t.Fatalf("preview corrupted multi-byte content: %q", r)
		}
	}
}

func TestMetadataAccessors(t *testing.T) {
	m := Metadata{
		"name":  "Ana",
		"count": float64(3), // decoded JSON number
		"flag":  true,
	}

	if got := m.String("name", "x"); got != "Ana" {
		t.Errorf("String = %q", got)
	}
	if got := m.String("missing", "fallback"); got != "fallback" {
		t.Errorf("String default = %q", got)
	}
	if got := m.Int("count", 0); got != 3 {
		t.Errorf("Int = %d", got)
	}
	if got := m.Int("name", 7); got != 7 {
		t.Errorf("Int wrong type should default, got %d", got)
	}
	if !m.Bool("flag", false) {
		t.Error("Bool = false, want true")
	}

	var nilMeta Metadata
	if got := nilMeta.String("k", "d"); got != "d" {
		t.Errorf("nil Metadata String = %q", got)
	}
	if got := nilMeta.Int("k", 9); got != 9 {
		t.Errorf("nil Metadata Int = %d", got)
	}
}
