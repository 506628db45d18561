package game

// Hint tells a player which way the hidden number lies after a miss.
type Hint string

const (
	HintNone   Hint = ""
	HintHigher Hint = "higher" // hidden number is greater than the guess
	HintLower  Hint = "lower"  // hidden number is smaller than the guess
)

// Compare checks a guess against the hidden target.
func Compare(target, guess int) (hit bool, hint Hint) {
	switch {
	case guess == target:
		return true, HintNone
	case guess < target:
		return false, HintHigher
	default:
		return false, HintLower
	}
}
