package naming

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestGenerator_Generate(t *testing.T) {
	generator := NewGenerator(DefaultWords())

	for i := 0; i < 100; i++ {
		name, err := generator.Generate(context.Background())
		if err != nil {
			t.Fatalf("Failed to generate name: %v", err)
		}
		parts := strings.Split(name, "-")
		if len(parts) != 3 {
			t.Fatalf("Expected adjective-adjective-animal, got %q", name)
		}
		if parts[0] == parts[1] {
			t.Errorf("Expected two different adjectives, got %q", name)
		}
	}
}

func TestGenerator_Deterministic(t *testing.T) {
	generator := NewGenerator(Words{
		Adjectives: []string{"brave", "calm"},
		Animals:    []string{"otter"},
	})
	generator.pick = func(n int) int { return 0 }

	name, err := generator.Generate(context.Background())
	if err != nil {
		t.Fatalf("Failed to generate name: %v", err)
	}
	if name != "brave-calm-otter" {
		t.Errorf("Expected 'brave-calm-otter', got %q", name)
	}
}

func TestGenerator_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewGenerator(DefaultWords()).Generate(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestGenerator_EmptyWords(t *testing.T) {
	tests := []struct {
		name  string
		words Words
	}{
		{"zero value", Words{}},
		{"no adjectives", Words{Animals: []string{"otter"}}},
		{"no animals", Words{Adjectives: []string{"brave"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, err := NewGenerator(tt.words).Generate(context.Background())
			if !errors.Is(err, ErrInvalidWords) {
				t.Fatalf("Expected ErrInvalidWords, got %v", err)
			}
			if name != "" {
				t.Errorf("Expected no name, got %q", name)
			}
		})
	}
}

func TestWords_Validate(t *testing.T) {
	if err := DefaultWords().Validate(); err != nil {
		t.Errorf("Built-in words should be valid: %v", err)
	}

	tests := []struct {
		name  string
		words Words
	}{
		{"no adjectives", Words{Animals: []string{"otter"}}},
		{"no animals", Words{Adjectives: []string{"brave"}}},
		{"hyphenated word", Words{Adjectives: []string{"well-known"}, Animals: []string{"otter"}}},
		{"empty word", Words{Adjectives: []string{""}, Animals: []string{"otter"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.words.Validate(); !errors.Is(err, ErrInvalidWords) {
				t.Errorf("Expected ErrInvalidWords, got %v", err)
			}
		})
	}
}

func TestLoader(t *testing.T) {
	dir := t.TempDir()
	valid := `{"adjectives": ["amber", "brisk"], "animals": ["crane"]}`
	if err := os.WriteFile(filepath.Join(dir, "birds.json"), []byte(valid), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "broken.json"), []byte(`{"adjectives": [`), 0644); err != nil {
		t.Fatal(err)
	}

	loader, err := NewLoader(dir)
	if err != nil {
		t.Fatalf("Failed to create loader: %v", err)
	}

	t.Run("load valid list", func(t *testing.T) {
		words, err := loader.Load("birds")
		if err != nil {
			t.Fatalf("Failed to load words: %v", err)
		}
		if len(words.Adjectives) != 2 || words.Animals[0] != "crane" {
			t.Errorf("Unexpected words: %+v", words)
		}
	})

	t.Run("cached after first load", func(t *testing.T) {
		os.Remove(filepath.Join(dir, "birds.json"))
		if _, err := loader.Load("birds"); err != nil {
			t.Errorf("Expected cached words, got %v", err)
		}
	})

	t.Run("missing list", func(t *testing.T) {
		if _, err := loader.Load("mammals"); !errors.Is(err, ErrWordsNotFound) {
			t.Errorf("Expected ErrWordsNotFound, got %v", err)
		}
	})

	t.Run("malformed list", func(t *testing.T) {
		if _, err := loader.Load("broken"); !errors.Is(err, ErrInvalidWords) {
			t.Errorf("Expected ErrInvalidWords, got %v", err)
		}
	})

	t.Run("list names", func(t *testing.T) {
		names, err := loader.List()
		if err != nil {
			t.Fatalf("Failed to list: %v", err)
		}
		if len(names) != 1 || names[0] != "broken" {
			t.Errorf("Expected [broken], got %v", names)
		}
	})
}

func TestNewLoader_MissingDir(t *testing.T) {
	if _, err := NewLoader("/non/existent/path"); err == nil {
		t.Error("Expected error for non-existent directory")
	}
}
