package game

import "strconv"

// MaxGuesses is the number of attempts per round.
const MaxGuesses = 3

// Outcome is the result of evaluating a single guess.
type Outcome struct {
	Correct  bool
	Points   int
	Terminal bool
}

// Evaluate maps a guess to an outcome. A correct guess is always terminal
// and scores by attempt: 3 points on the first, 2 on the second, 1 on the
// third. The third incorrect guess is terminal with 0 points.
func Evaluate(guessYear, correctYear, attempt int) Outcome {
	if guessYear == correctYear {
		return Outcome{
			Correct:  true,
			Points:   MaxGuesses - attempt + 1,
			Terminal: true,
		}
	}
	return Outcome{Terminal: attempt >= MaxGuesses}
}

// YearOf extracts the 4-digit year component of a catalog date string
// (e.g. "1977-05-08T00:00:00Z"). Sub-year precision is irrelevant to
// guess correctness. Returns 0 when the date has no leading year.
func YearOf(date string) int {
	if len(date) < 4 {
		return 0
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return year
}
