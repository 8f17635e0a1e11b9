package game

import "strings"

// Dictionary is the fixed word set a game judges plays against. All entries
// are uppercase.
type Dictionary []string

// DefaultDictionary returns the built-in word set. Small on purpose: the
// server does not provide a general lexicon.
func DefaultDictionary() Dictionary {
	return Dictionary{
		"BONJOUR", "MONDE", "PYTHON", "RESEAU", "SOCKET", "GHOST", "TEST",
		"MANGER", "TABLE", "CHAISE", "MAISON", "APPLE", "BANANA", "ORANGE",
	}
}

// Contains reports whether word is an exact entry.
func (d Dictionary) Contains(word string) bool {
	for _, w := range d {
		if w == word {
			return true
		}
	}
	return false
}

// HasPrefix reports whether any entry starts with the given fragment.
func (d Dictionary) HasPrefix(fragment string) bool {
	fragment = strings.ToUpper(fragment)
	for _, w := range d {
		if strings.HasPrefix(w, fragment) {
			return true
		}
	}
	return false
}
