package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlayLetter_CompletesWordExactlyAtDictionaryEntry(t *testing.T) {
	s := New(false)
	s.AddPlayer("alice")

	letters := []string{"B", "O", "N", "J", "O", "U"}
	for _, l := range letters {
		result, err := s.PlayLetter(l)
		require.NoError(t, err)
		assert.Equal(t, Continue, result, "fragment %q must not end the round", s.Fragment())
	}
	require.Equal(t, "BONJOU", s.Fragment())

	result, err := s.PlayLetter("R")
	require.NoError(t, err)
	assert.Equal(t, LoseWord, result)
	assert.Empty(t, s.Fragment(), "a completed word clears the fragment")
}

func TestPlayLetter_ShortWordsDoNotLose(t *testing.T) {
	// An exact match only counts past the length threshold.
	s := New(false)
	for _, l := range []string{"T", "E", "S"} {
		result, err := s.PlayLetter(l)
		require.NoError(t, err)
		assert.Equal(t, Continue, result)
	}
	result, err := s.PlayLetter("T")
	require.NoError(t, err)
	assert.Equal(t, LoseWord, result, "TEST is 4 letters and a dictionary entry")
}

func TestPlayLetter_Lowercase(t *testing.T) {
	s := New(false)
	result, err := s.PlayLetter("b")
	require.NoError(t, err)
	assert.Equal(t, Continue, result)
	assert.Equal(t, "B", s.Fragment())
}

func TestPlayLetter_RejectsNonLetters(t *testing.T) {
	s := New(false)
	for _, input := range []string{"", "AB", "1", "!", " "} {
		_, err := s.PlayLetter(input)
		assert.ErrorIs(t, err, ErrInvalidLetter, "input %q", input)
	}
	assert.Empty(t, s.Fragment(), "rejected input must not touch the fragment")
}

func TestPlayLetter_StrictModeRollsBackOneLetter(t *testing.T) {
	s := New(true)
	result, err := s.PlayLetter("B")
	require.NoError(t, err)
	require.Equal(t, Continue, result)

	// BZ is not a prefix of any dictionary word.
	result, err = s.PlayLetter("Z")
	require.NoError(t, err)
	assert.Equal(t, LoseInvalid, result)
	assert.Equal(t, "B", s.Fragment(), "only the offending letter is rolled back")
}

func TestPlayLetter_NonStrictAllowsImpossibleFragments(t *testing.T) {
	s := New(false)
	for _, l := range []string{"Z", "Z"} {
		result, err := s.PlayLetter(l)
		require.NoError(t, err)
		assert.Equal(t, Continue, result)
	}
	assert.Equal(t, "ZZ", s.Fragment())
}

func TestChallenge(t *testing.T) {
	tests := []struct {
		name     string
		fragment string
		want     ChallengeResult
	}{
		{name: "impossible fragment", fragment: "ZZ", want: PreviousLoses},
		{name: "open fragment", fragment: "BO", want: ChallengerLoses},
		{name: "empty fragment", fragment: "", want: ChallengerLoses},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(false)
			s.fragment = tt.fragment

			assert.Equal(t, tt.want, s.Challenge())
			assert.Empty(t, s.Fragment(), "challenge clears the fragment either way")
		})
	}
}

func TestPunishPlayer_SpellsGhost(t *testing.T) {
	s := New(false)
	s.AddPlayer("bob")

	expected := []string{"G", "GH", "GHO", "GHOS", "GHOST"}
	for i, want := range expected {
		result := s.PunishPlayer("bob")
		assert.Equal(t, want, s.Score("bob"))
		if i < 4 {
			assert.Equal(t, Punished, result, "penalty %d must not eliminate", i+1)
		} else {
			assert.Equal(t, Eliminated, result, "the fifth penalty eliminates")
		}
	}
}

func TestPunishPlayer_UnknownPseudonym(t *testing.T) {
	s := New(false)
	assert.Equal(t, Punished, s.PunishPlayer("nobody"))
	assert.Empty(t, s.Scores())
}

func TestTurnOrder(t *testing.T) {
	s := New(false)
	s.AddPlayer("a")
	s.AddPlayer("b")
	s.AddPlayer("c")

	assert.Equal(t, "a", s.CurrentPlayer())
	assert.Equal(t, "c", s.PreviousPlayer())

	s.NextTurn()
	assert.Equal(t, "b", s.CurrentPlayer())
	assert.Equal(t, "a", s.PreviousPlayer())

	s.NextTurn()
	s.NextTurn()
	assert.Equal(t, "a", s.CurrentPlayer(), "turn order wraps")
}

func TestAddPlayer_IgnoresDuplicates(t *testing.T) {
	s := New(false)
	s.AddPlayer("a")
	s.AddPlayer("a")
	assert.Equal(t, []string{"a"}, s.Players())
}

func TestRemovePlayer_KeepsCurrentIndexValid(t *testing.T) {
	tests := []struct {
		name        string
		players     []string
		advance     int
		remove      string
		wantCurrent string
	}{
		{
			name:        "removing before current decrements index",
			players:     []string{"a", "b", "c"},
			advance:     2, // current = c
			remove:      "a",
			wantCurrent: "c",
		},
		{
			name:        "removing current wraps to start when out of range",
			players:     []string{"a", "b", "c"},
			advance:     2, // current = c
			remove:      "c",
			wantCurrent: "a",
		},
		{
			name:        "removing after current leaves index alone",
			players:     []string{"a", "b", "c"},
			advance:     0,
			remove:      "b",
			wantCurrent: "a",
		},
		{
			name:        "removing unknown player is a no-op",
			players:     []string{"a", "b"},
			advance:     1,
			remove:      "x",
			wantCurrent: "b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(false)
			for _, p := range tt.players {
				s.AddPlayer(p)
			}
			for i := 0; i < tt.advance; i++ {
				s.NextTurn()
			}

			s.RemovePlayer(tt.remove)
			assert.Equal(t, tt.wantCurrent, s.CurrentPlayer())
		})
	}
}

func TestRemovePlayer_LastPlayer(t *testing.T) {
	s := New(false)
	s.AddPlayer("a")
	s.RemovePlayer("a")

	assert.Empty(t, s.CurrentPlayer())
	assert.Empty(t, s.PreviousPlayer())
	s.NextTurn() // must not panic on an empty turn order
}
