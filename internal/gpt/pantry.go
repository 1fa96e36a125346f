package gpt

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

//go:embed pantry.toml
var defaultPantry string

// PantrySection is one group of household ingredients.
type PantrySection struct {
	Name  string   `toml:"name"`
	Items []string `toml:"items"`
}

// Pantry is the list of common household ingredients the model may assume
// the user already owns.
type Pantry struct {
	Sections []PantrySection `toml:"section"`
}

// DefaultPantry returns the built-in pantry list.
func DefaultPantry() Pantry {
	p, err := ParsePantry(defaultPantry)
	if err != nil {
		panic(fmt.Sprintf("gpt: embedded pantry is invalid: %v", err))
	}
	return p
}

// ParsePantry decodes a pantry list from TOML.
func ParsePantry(data string) (Pantry, error) {
	var p Pantry
	if _, err := toml.Decode(data, &p); err != nil {
		return Pantry{}, fmt.Errorf("gpt: parse pantry: %w", err)
	}
	return p, nil
}

// LoadPantry reads a user pantry file. An empty path yields the default.
func LoadPantry(path string) (Pantry, error) {
	if path == "" {
		return DefaultPantry(), nil
	}
	var p Pantry
	if _, err := toml.DecodeFile(path, &p); err != nil {
		return Pantry{}, fmt.Errorf("gpt: load pantry %s: %w", path, err)
	}
	return p, nil
}

// Len returns the total number of items.
func (p Pantry) Len() int {
	n := 0
	for _, s := range p.Sections {
		n += len(s.Items)
	}
	return n
}

// String renders the pantry as an indented bullet list for prompts.
func (p Pantry) String() string {
	var b strings.Builder
	for _, s := range p.Sections {
		fmt.Fprintf(&b, "%s:\n", s.Name)
		for _, item := range s.Items {
			fmt.Fprintf(&b, "    - %s\n", item)
		}
	}
	return b.String()
}
