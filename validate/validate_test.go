package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeList(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "words.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}
	return path
}

func hasMessage(messages []string, substr string) bool {
	for _, m := range messages {
		if strings.Contains(m, substr) {
			return true
		}
	}
	return false
}

func TestValidateWords_ValidList(t *testing.T) {
	path := writeList(t, `{
		"adjectives": ["brave", "calm", "swift"],
		"animals": ["otter", "fox"]
	}`)

	result := validateWords(path)

	if !result.Valid {
		t.Fatalf("Expected valid list, got errors: %v", result.Errors)
	}
	if result.File != "words.json" {
		t.Errorf("Expected file name words.json, got %s", result.File)
	}
	if !hasMessage(result.Notes, "12 distinct room names") {
		t.Errorf("Expected name space note, got %v", result.Notes)
	}
	if !hasMessage(result.Notes, "Small vocabulary") {
		t.Errorf("Expected small vocabulary warning, got %v", result.Notes)
	}
}

func TestValidateWords_InvalidJSON(t *testing.T) {
	result := validateWords(writeList(t, `{"adjectives": [`))

	if result.Valid {
		t.Fatal("Expected invalid result for malformed JSON")
	}
	if !hasMessage(result.Errors, "Invalid JSON") {
		t.Errorf("Expected JSON error, got %v", result.Errors)
	}
}

func TestValidateWords_MissingFile(t *testing.T) {
	result := validateWords("/non/existent/words.json")

	if result.Valid {
		t.Fatal("Expected invalid result for missing file")
	}
	if !hasMessage(result.Errors, "Failed to read file") {
		t.Errorf("Expected read error, got %v", result.Errors)
	}
}

func TestValidateWords_Problems(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"no adjectives", `{"adjectives": [], "animals": ["fox"]}`, "no adjectives"},
		{"no animals", `{"adjectives": ["red"]}`, "no animals"},
		{"hyphenated word", `{"adjectives": ["light-blue"], "animals": ["fox"]}`, `bad word "light-blue"`},
		{"duplicate adjective", `{"adjectives": ["Red", "red"], "animals": ["fox"]}`, `Duplicate adjective "red"`},
		{"duplicate animal", `{"adjectives": ["red"], "animals": ["fox", "FOX"]}`, `Duplicate animal "FOX"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := validateWords(writeList(t, tt.content))
			if result.Valid {
				t.Fatal("Expected invalid result")
			}
			if !hasMessage(result.Errors, tt.want) {
				t.Errorf("Expected %q in %v", tt.want, result.Errors)
			}
		})
	}
}

func TestNameSpace(t *testing.T) {
	if got := nameSpace(80, 76); got != 80*79*76 {
		t.Errorf("nameSpace(80, 76) = %d", got)
	}
	if got := nameSpace(1, 5); got != 5 {
		t.Errorf("nameSpace(1, 5) = %d, want 5", got)
	}
}

func TestCollisionHorizon(t *testing.T) {
	// 365 days gives the classic birthday answer of 22-23
	if got := collisionHorizon(365); got != 22 {
		t.Errorf("collisionHorizon(365) = %d, want 22", got)
	}
}
