// Package game holds the Ghost turn/word state machine for one room. It is
// pure: no I/O, no locks. The owning room serializes all calls.
package game

import (
	"errors"
	"strings"
)

// ghostLetters is the penalty sequence. Five letters eliminates a player.
const ghostLetters = "GHOST"

// WordThreshold is the fragment length above which an exact dictionary match
// counts as a completed word.
const WordThreshold = 3

var ErrInvalidLetter = errors.New("play must be a single letter A-Z")

// PlayResult classifies one played letter.
type PlayResult int

const (
	// Continue: the fragment is still open, the turn passes on.
	Continue PlayResult = iota
	// LoseWord: the letter completed a dictionary word longer than the
	// threshold. The acting player is penalized and the fragment cleared.
	LoseWord
	// LoseInvalid: strict mode only. No dictionary word starts with the new
	// fragment; the letter is rolled back and the acting player penalized.
	LoseInvalid
)

// ChallengeResult classifies a challenge.
type ChallengeResult int

const (
	// PreviousLoses: no word starts with the fragment, the accused player
	// was bluffing.
	PreviousLoses ChallengeResult = iota
	// ChallengerLoses: the fragment can still become a word.
	ChallengerLoses
)

// PunishResult classifies a penalty application.
type PunishResult int

const (
	Punished PunishResult = iota
	Eliminated
)

// State is the per-room game state.
type State struct {
	fragment  string
	turnOrder []string
	scores    map[string]string
	current   int
	strict    bool
	dict      Dictionary
}

// New builds an empty game over the default dictionary. strict enables the
// invalid-prefix loss rule.
func New(strict bool) *State {
	return &State{
		scores: make(map[string]string),
		strict: strict,
		dict:   DefaultDictionary(),
	}
}

// AddPlayer appends a pseudonym to the turn order. Duplicates are ignored.
func (s *State) AddPlayer(pseudonym string) {
	for _, p := range s.turnOrder {
		if p == pseudonym {
			return
		}
	}
	s.turnOrder = append(s.turnOrder, pseudonym)
	s.scores[pseudonym] = ""
}

// RemovePlayer drops a pseudonym from the turn order and scores, keeping the
// current-player index valid.
func (s *State) RemovePlayer(pseudonym string) {
	idx := -1
	for i, p := range s.turnOrder {
		if p == pseudonym {
			idx = i
			break
		}
	}
	if idx == -1 {
		return
	}
	s.turnOrder = append(s.turnOrder[:idx], s.turnOrder[idx+1:]...)
	delete(s.scores, pseudonym)
	if idx < s.current {
		s.current--
	}
	if s.current >= len(s.turnOrder) {
		s.current = 0
	}
}

// CurrentPlayer returns the pseudonym whose turn it is, or "" when the turn
// order is empty.
func (s *State) CurrentPlayer() string {
	if len(s.turnOrder) == 0 {
		return ""
	}
	return s.turnOrder[s.current]
}

// PreviousPlayer returns the player immediately before the current one in
// turn order, or "" with fewer than two players.
func (s *State) PreviousPlayer() string {
	if len(s.turnOrder) < 2 {
		return ""
	}
	return s.turnOrder[(s.current-1+len(s.turnOrder))%len(s.turnOrder)]
}

// NextTurn advances the current-player index.
func (s *State) NextTurn() {
	if len(s.turnOrder) == 0 {
		return
	}
	s.current = (s.current + 1) % len(s.turnOrder)
}

// PlayLetter appends the upper-cased letter to the fragment and classifies
// the result. On LoseWord the fragment is cleared; on LoseInvalid only the
// offending letter is rolled back.
func (s *State) PlayLetter(letter string) (PlayResult, error) {
	letter = strings.ToUpper(letter)
	if len(letter) != 1 || letter[0] < 'A' || letter[0] > 'Z' {
		return Continue, ErrInvalidLetter
	}
	s.fragment += letter

	if len(s.fragment) > WordThreshold && s.dict.Contains(s.fragment) {
		s.fragment = ""
		return LoseWord, nil
	}
	if s.strict && !s.dict.HasPrefix(s.fragment) {
		s.fragment = s.fragment[:len(s.fragment)-1]
		return LoseInvalid, nil
	}
	return Continue, nil
}

// Challenge tests whether any dictionary word starts with the fragment and
// clears the fragment either way. The caller advances the turn past the
// challenger.
func (s *State) Challenge() ChallengeResult {
	hasPrefix := s.dict.HasPrefix(s.fragment)
	s.fragment = ""
	if !hasPrefix {
		return PreviousLoses
	}
	return ChallengerLoses
}

// PunishPlayer appends the next G-H-O-S-T letter to the player's score.
// A fifth letter eliminates them.
func (s *State) PunishPlayer(pseudonym string) PunishResult {
	score, ok := s.scores[pseudonym]
	if !ok {
		return Punished
	}
	if len(score) < len(ghostLetters) {
		score += string(ghostLetters[len(score)])
		s.scores[pseudonym] = score
	}
	if len(score) >= len(ghostLetters) {
		return Eliminated
	}
	return Punished
}

// Fragment returns the in-progress word.
func (s *State) Fragment() string {
	return s.fragment
}

// Score returns the penalty letters of one player.
func (s *State) Score(pseudonym string) string {
	return s.scores[pseudonym]
}

// Scores returns a copy of the score table.
func (s *State) Scores() map[string]string {
	out := make(map[string]string, len(s.scores))
	for k, v := range s.scores {
		out[k] = v
	}
	return out
}

// Players returns a copy of the turn order.
func (s *State) Players() []string {
	out := make([]string, len(s.turnOrder))
	copy(out, s.turnOrder)
	return out
}
