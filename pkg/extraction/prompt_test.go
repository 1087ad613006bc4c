package extraction

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestBuildPrompt_TruncatesLongText(t *testing.T) {
	long := strings.Repeat("ä", MaxReceiptChars+500)
	prompt := BuildPrompt(long, "")

	if strings.Count(prompt, "ä") != MaxReceiptChars {
		t.Errorf("Expected %d receipt characters, got %d", MaxReceiptChars, strings.Count(prompt, "ä"))
	}
	if !utf8.ValidString(prompt) {
		t.Error("Truncation split a multi-byte character")
	}
}

func TestBuildPrompt_NoHint(t *testing.T) {
	prompt := BuildPrompt("MILK 1.20", "  ")
	if strings.Contains(prompt, "appears to be from") {
		t.Error("Blank hint should not add a note")
	}
	if !strings.Contains(prompt, "MILK 1.20") {
		t.Error("Prompt missing receipt text")
	}
}
