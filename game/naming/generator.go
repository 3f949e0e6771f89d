package naming

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
)

// Generator builds adjective-adjective-animal names
type Generator struct {
	words Words
	pick  func(n int) int
}

// NewGenerator creates a generator over the given vocabularies. Both lists
// must be non-empty; Generate reports ErrInvalidWords otherwise.
func NewGenerator(words Words) *Generator {
	return &Generator{
		words: words,
		pick:  rand.IntN,
	}
}

// Generate returns a candidate room name. Consecutive calls may return the
// same name.
func (g *Generator) Generate(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	adjectives := g.words.Adjectives
	if len(adjectives) == 0 || len(g.words.Animals) == 0 {
		return "", fmt.Errorf("%w: empty word list", ErrInvalidWords)
	}
	first := g.pick(len(adjectives))
	second := g.pick(len(adjectives))
	// Avoid "brave-brave-otter" when there is a choice
	if second == first && len(adjectives) > 1 {
		second = (second + 1) % len(adjectives)
	}
	animal := g.words.Animals[g.pick(len(g.words.Animals))]

	return strings.Join([]string{adjectives[first], adjectives[second], animal}, "-"), nil
}
