package quiz

import "math/rand"

// Score tallies an ordered answer sequence. Each answer increments its
// trait by exactly 1; there is no weighting or normalization, so the
// presentation order never changes the result. Zero answers yield an
// all-zero tally.
func Score(answers []Answer) Tally {
	traits := make([]Trait, len(answers))
	for i, a := range answers {
		traits[i] = a.Trait
	}
	return ScoreTraits(traits)
}

// ScoreTraits tallies a bare trait sequence, the shape the submit
// endpoint receives. Unknown traits are skipped.
func ScoreTraits(traits []Trait) Tally {
	tally := NewTally()
	for _, tr := range traits {
		if tr.Valid() {
			tally[tr]++
		}
	}
	return tally
}

// Shuffle returns the question bank in a fresh random order. Called
// once per quiz attempt; the tally is order-independent, the shuffle
// only varies presentation.
func Shuffle(questions []Question, rng *rand.Rand) []Question {
	out := make([]Question, len(questions))
	copy(out, questions)
	rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}
