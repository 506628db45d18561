package game

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Rules are fixed when a match is created and travel with its snapshot,
// so a config change never affects matches already in progress.
type Rules struct {
	SequenceLength  int  `json:"sequenceLength"`
	MinValue        int  `json:"minValue"`
	MaxValue        int  `json:"maxValue"`
	AllowRepeats    bool `json:"allowRepeats"`
	AlternateOpener bool `json:"alternateOpener"`
}

func DefaultRules() Rules {
	return Rules{
		SequenceLength:  5,
		MinValue:        0,
		MaxValue:        9,
		AllowRepeats:    true,
		AlternateOpener: true,
	}
}

func (r Rules) Validate() error {
	if r.SequenceLength < 1 {
		return errors.New("sequence length must be positive")
	}
	if r.MinValue > r.MaxValue {
		return fmt.Errorf("min value %d is greater than max value %d", r.MinValue, r.MaxValue)
	}
	if !r.AllowRepeats && r.MaxValue-r.MinValue+1 < r.SequenceLength {
		return fmt.Errorf("range %d..%d cannot fill %d distinct numbers", r.MinValue, r.MaxValue, r.SequenceLength)
	}
	return nil
}

func (r Rules) inRange(v int) bool {
	return v >= r.MinValue && v <= r.MaxValue
}

// ValidateSequence checks a secret sequence against the rules.
func (r Rules) ValidateSequence(seq []int) error {
	if len(seq) != r.SequenceLength {
		return fmt.Errorf("%w: sequence must have exactly %d numbers", ErrInvalidInput, r.SequenceLength)
	}
	seen := make(map[int]bool, len(seq))
	for _, v := range seq {
		if !r.inRange(v) {
			return fmt.Errorf("%w: numbers must be between %d and %d", ErrInvalidInput, r.MinValue, r.MaxValue)
		}
		if seen[v] && !r.AllowRepeats {
			return fmt.Errorf("%w: numbers must not repeat", ErrInvalidInput)
		}
		seen[v] = true
	}
	return nil
}

// ParseGuess turns raw user input into a guess value.
func (r Rules) ParseGuess(raw string) (int, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, fmt.Errorf("%w: guess is empty", ErrInvalidInput)
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: guess must be a number", ErrInvalidInput)
	}
	if !r.inRange(v) {
		return 0, fmt.Errorf("%w: guess must be between %d and %d", ErrInvalidInput, r.MinValue, r.MaxValue)
	}
	return v, nil
}
