package naming

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var (
	ErrWordsNotFound = errors.New("word list not found")
	ErrInvalidWords  = errors.New("invalid word list")
)

// Words holds the vocabularies names are built from
type Words struct {
	Adjectives []string `json:"adjectives"`
	Animals    []string `json:"animals"`
}

// Validate checks that both vocabularies are usable in a name
func (w Words) Validate() error {
	if len(w.Adjectives) == 0 {
		return fmt.Errorf("%w: no adjectives", ErrInvalidWords)
	}
	if len(w.Animals) == 0 {
		return fmt.Errorf("%w: no animals", ErrInvalidWords)
	}
	for _, word := range append(append([]string{}, w.Adjectives...), w.Animals...) {
		if word == "" || strings.ContainsAny(word, "- \t\n") {
			return fmt.Errorf("%w: bad word %q", ErrInvalidWords, word)
		}
	}
	return nil
}

// DefaultWords returns the built-in vocabularies
func DefaultWords() Words {
	return Words{
		Adjectives: append([]string(nil), defaultAdjectives...),
		Animals:    append([]string(nil), defaultAnimals...),
	}
}

// Loader reads word lists from a directory and caches them
type Loader struct {
	dir   string
	cache map[string]Words
	mu    sync.RWMutex
}

// NewLoader creates a loader for dir, which must exist
func NewLoader(dir string) (*Loader, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("word list directory does not exist: %s", dir)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("word list path is not a directory: %s", dir)
	}
	return &Loader{
		dir:   dir,
		cache: make(map[string]Words),
	}, nil
}

// Load returns the word list stored as <name>.json
func (l *Loader) Load(name string) (Words, error) {
	l.mu.RLock()
	if words, ok := l.cache[name]; ok {
		l.mu.RUnlock()
		return words, nil
	}
	l.mu.RUnlock()

	l.mu.Lock()
	defer l.mu.Unlock()

	// Double-check after acquiring write lock
	if words, ok := l.cache[name]; ok {
		return words, nil
	}

	filename := name
	if !strings.HasSuffix(filename, ".json") {
		filename = name + ".json"
	}

	data, err := os.ReadFile(filepath.Join(l.dir, filename))
	if err != nil {
		if os.IsNotExist(err) {
			return Words{}, ErrWordsNotFound
		}
		return Words{}, fmt.Errorf("failed to read word list: %w", err)
	}

	var words Words
	if err := json.Unmarshal(data, &words); err != nil {
		return Words{}, fmt.Errorf("%w: %v", ErrInvalidWords, err)
	}
	if err := words.Validate(); err != nil {
		return Words{}, err
	}

	l.cache[name] = words
	return words, nil
}

// List returns the names of word lists available in the directory
func (l *Loader) List() ([]string, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read word list directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), ".json"))
	}
	return names, nil
}

var defaultAdjectives = []string{
	"agile", "amber", "ancient", "azure", "bold", "brave", "breezy", "bright",
	"brisk", "calm", "cheerful", "clever", "cosmic", "crimson", "curious", "dapper",
	"daring", "dazzling", "eager", "electric", "fancy", "fearless", "fierce", "fluffy",
	"frosty", "gentle", "giant", "gleaming", "golden", "grumpy", "happy", "hasty",
	"hidden", "humble", "icy", "jolly", "jumpy", "keen", "kind", "lively",
	"lucky", "mellow", "merry", "mighty", "misty", "noble", "nimble", "odd",
	"patient", "plucky", "polite", "proud", "quick", "quiet", "rapid", "rustic",
	"scarlet", "shiny", "silent", "silly", "sleepy", "sly", "smooth", "snowy",
	"sparkly", "speedy", "spicy", "steady", "stormy", "sunny", "swift", "tidy",
	"tiny", "velvet", "vivid", "wandering", "wild", "wise", "witty", "zesty",
}

var defaultAnimals = []string{
	"albatross", "alpaca", "antelope", "armadillo", "badger", "beaver", "bison", "bobcat",
	"buffalo", "camel", "capybara", "caribou", "cheetah", "chinchilla", "cobra", "cougar",
	"coyote", "crane", "dingo", "dolphin", "dragonfly", "eagle", "falcon", "ferret",
	"flamingo", "gazelle", "gecko", "gibbon", "giraffe", "gopher", "heron", "hedgehog",
	"ibis", "iguana", "jackal", "jaguar", "kangaroo", "kestrel", "koala", "lemur",
	"leopard", "llama", "lynx", "macaw", "meerkat", "mongoose", "moose", "narwhal",
	"ocelot", "octopus", "okapi", "otter", "owl", "panda", "pangolin", "pelican",
	"penguin", "puffin", "quokka", "raccoon", "raven", "salamander", "seal", "sloth",
	"sparrow", "squid", "stoat", "tapir", "tiger", "toucan", "turtle", "walrus",
	"weasel", "wombat", "yak", "zebra",
}
