package gamestate

import (
	"bytes"

	"Scorekeep/utils/apperr"

	"github.com/bytedance/sonic"
)

// strict rejects unknown fields on decode and sorts map keys on encode, so
// the stored bytes of a given state are always the same.
var strict = sonic.Config{
	SortMapKeys:           true,
	DisallowUnknownFields: true,
	ValidateString:        true,
	CopyString:            true,
}.Froze()

// Decode parses raw into the concrete state for gameType and validates it.
// A document without a gameType tag takes the one supplied.
func Decode(gameType string, raw []byte) (State, error) {
	s, err := empty(gameType)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, apperr.Validation("game state is empty")
	}
	if err := strict.Unmarshal(raw, s); err != nil {
		return nil, apperr.Validation("malformed %s game state: %v", gameType, err)
	}

	c := s.common()
	if c.Type == "" {
		c.Type = gameType
	}
	if c.Rounds == nil {
		c.Rounds = []Round{}
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// DecodeTagged reads the gameType tag out of raw before decoding it.
func DecodeTagged(raw []byte) (State, error) {
	node, err := sonic.Get(raw, "gameType")
	if err != nil {
		return nil, apperr.Validation("game state has no gameType tag")
	}
	gameType, err := node.String()
	if err != nil {
		return nil, apperr.Validation("gameType tag is not a string")
	}
	return Decode(gameType, raw)
}

func Encode(s State) ([]byte, error) {
	return strict.Marshal(s)
}

// Canonicalize decodes, validates and re-encodes raw.
func Canonicalize(gameType string, raw []byte) ([]byte, State, error) {
	s, err := Decode(gameType, raw)
	if err != nil {
		return nil, nil, err
	}
	out, err := Encode(s)
	if err != nil {
		return nil, nil, err
	}
	return out, s, nil
}
