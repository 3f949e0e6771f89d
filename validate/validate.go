// Command validate checks the room name word lists in a directory. For every
// *.json file it reports:
//   - JSON structure and the adjectives/animals fields
//   - Words that cannot appear in a hyphenated room ID (empty, spaces, hyphens)
//   - Duplicate words, compared case-insensitively like room IDs
//   - How many distinct names the list can produce, and how many live rooms
//     it supports before a new room is likely to need a retry
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/wricardo/mcp-training/roombroker/game/naming"
)

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Notes contains informational messages; otherwise Errors
// lists the problems that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
	Notes  []string
}

func (r *ValidationResult) fail(format string, args ...any) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// validateWords loads and validates a single word list file
func validateWords(filePath string) ValidationResult {
	result := ValidationResult{
		File:  filepath.Base(filePath),
		Valid: true,
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.fail("Failed to read file: %v", err)
		return result
	}

	var words naming.Words
	if err := json.Unmarshal(data, &words); err != nil {
		result.fail("Invalid JSON: %v", err)
		return result
	}

	if err := words.Validate(); err != nil {
		if errors.Is(err, naming.ErrInvalidWords) {
			result.fail("%s", strings.TrimPrefix(err.Error(), naming.ErrInvalidWords.Error()+": "))
		} else {
			result.fail("%v", err)
		}
	}

	for _, dup := range duplicates(words.Adjectives) {
		result.fail("Duplicate adjective %q", dup)
	}
	for _, dup := range duplicates(words.Animals) {
		result.fail("Duplicate animal %q", dup)
	}

	if !result.Valid {
		return result
	}

	space := nameSpace(len(words.Adjectives), len(words.Animals))
	result.Notes = append(result.Notes,
		fmt.Sprintf("✓ %d adjectives, %d animals", len(words.Adjectives), len(words.Animals)),
		fmt.Sprintf("✓ %d distinct room names", space),
		fmt.Sprintf("✓ ~%d live rooms before a 50%% chance of a name collision", collisionHorizon(space)),
	)
	if space < 1000 {
		result.Notes = append(result.Notes, "⚠️  Small vocabulary; busy brokers will see create-room retries")
	}
	return result
}

// duplicates returns words that appear more than once, ignoring case
func duplicates(words []string) []string {
	seen := make(map[string]int, len(words))
	var dups []string
	for _, w := range words {
		key := strings.ToLower(w)
		seen[key]++
		if seen[key] == 2 {
			dups = append(dups, w)
		}
	}
	return dups
}

// nameSpace counts adjective-adjective-animal names with distinct adjectives.
// A single adjective can only repeat itself.
func nameSpace(adjectives, animals int) int {
	if adjectives == 1 {
		return animals
	}
	return adjectives * (adjectives - 1) * animals
}

// collisionHorizon is the birthday bound for a 50% chance of a repeat
func collisionHorizon(space int) int {
	return int(math.Sqrt(2 * float64(space) * math.Ln2))
}

// main scans a directory (default ./names) for *.json files and validates
// each one, printing a concise report and exiting with non-zero status if any
// are invalid.
func main() {
	dir := "names"
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		fmt.Printf("Error finding word lists: %v\n", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Printf("No word lists found in %s\n", dir)
		os.Exit(1)
	}

	allValid := true
	for _, file := range files {
		result := validateWords(file)

		fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Println("✅ VALID")
			for _, note := range result.Notes {
				fmt.Println("  " + note)
			}
		} else {
			fmt.Println("❌ INVALID")
			allValid = false
			for _, e := range result.Errors {
				fmt.Println("  ❌ " + e)
			}
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Println("✅ All word lists are valid!")
	} else {
		fmt.Println("❌ Some word lists have errors")
		os.Exit(1)
	}
}
