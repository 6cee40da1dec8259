// Package deckfile reads deck lists used to spawn decks in the simulator and
// in tests.
package deckfile

import (
	"errors"
	"fmt"
	"os"

	"cardtable/internal/domain"

	"gopkg.in/yaml.v3"
)

// Entry is a card and how many copies the deck holds.
type Entry struct {
	Name  string `yaml:"name" json:"name"`
	Count int    `yaml:"count" json:"count"`
}

// List is a named deck list.
type List struct {
	Name  string  `yaml:"name" json:"name"`
	Cards []Entry `yaml:"cards" json:"cards"`
}

var ErrEmpty = errors.New("deck list has no cards")

// Load reads a deck list from a YAML file.
func Load(path string) (List, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return List{}, fmt.Errorf("read deck list: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a deck list. A missing count means one copy.
func Parse(data []byte) (List, error) {
	var l List
	if err := yaml.Unmarshal(data, &l); err != nil {
		return List{}, fmt.Errorf("parse deck list: %w", err)
	}
	for i := range l.Cards {
		e := &l.Cards[i]
		if e.Count == 0 {
			e.Count = 1
		}
		if e.Count < 0 {
			return List{}, fmt.Errorf("card %q: negative count %d", e.Name, e.Count)
		}
		if !domain.ValidName(e.Name) {
			return List{}, fmt.Errorf("card %d: invalid name %q", i, e.Name)
		}
	}
	if len(l.Cards) == 0 {
		return List{}, ErrEmpty
	}
	return l, nil
}

// Expand returns one name per copy, in list order. The first name is the
// top of the deck before any shuffle.
func (l List) Expand() []string {
	var out []string
	for _, e := range l.Cards {
		for i := 0; i < e.Count; i++ {
			out = append(out, e.Name)
		}
	}
	return out
}

// Size is the total number of cards.
func (l List) Size() int {
	n := 0
	for _, e := range l.Cards {
		n += e.Count
	}
	return n
}
