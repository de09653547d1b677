package statemachine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type light string

const (
	red    light = "red"
	green  light = "green"
	yellow light = "yellow"
	broken light = "broken"
)

func newLights() *Table[light] {
	return New[light]().
		Allow(red, green, broken).
		Allow(green, yellow, broken).
		Allow(yellow, red, broken).
		Terminal(broken)
}

func TestCanTransition(t *testing.T) {
	table := newLights()

	tests := []struct {
		from, to light
		want     bool
	}{
		{red, green, true},
		{green, yellow, true},
		{yellow, red, true},
		{red, yellow, false},
		{green, red, false},
		{broken, red, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, table.CanTransition(tt.from, tt.to))
		})
	}
}

func TestCheckReturnsTransitionError(t *testing.T) {
	table := newLights()

	require.NoError(t, table.Check(red, green))

	err := table.Check(red, yellow)
	require.Error(t, err)
	var te *TransitionError[light]
	require.True(t, errors.As(err, &te))
	assert.Equal(t, red, te.From)
	assert.Equal(t, yellow, te.To)
	assert.Equal(t, "invalid transition from red to yellow", err.Error())
}

func TestAllowIgnoresDuplicates(t *testing.T) {
	table := New[light]().Allow(red, green).Allow(red, green, yellow)
	assert.Equal(t, []light{green, yellow}, table.Targets(red))
	assert.True(t, newLights().IsTerminal(broken))
}
