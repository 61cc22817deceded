package quiz

import (
	"math/rand"
	"strings"
)

// Gender of a character record or inferred from a user name.
type Gender string

const (
	GenderMale    Gender = "male"
	GenderFemale  Gender = "female"
	GenderOther   Gender = "other"
	GenderUnknown Gender = "unknown"
)

// GenderRules is the data behind name-based gender inference: known
// exception names that break the letter-ending heuristic, the ending
// lists themselves, and honorific prefixes to skip. The lists are
// deliberately non-exhaustive and shipped as configuration, not logic.
type GenderRules struct {
	MaleNames     []string
	FemaleNames   []string
	FemaleEndings []string
	MaleEndings   []string
	SkipPrefixes  []string
}

// DefaultGenderRules carries the biblical name exceptions and the
// Portuguese ending heuristics the product launched with.
func DefaultGenderRules() GenderRules {
	return GenderRules{
		MaleNames: []string{
			"jonas", "isaías", "isaias", "josué", "josue", "noé", "noe",
			"calebe", "gideão", "gideao", "filipe", "josé", "tomé", "andré",
		},
		FemaleNames:   []string{"jael", "abigail", "ester", "raquel"},
		FemaleEndings: []string{"a", "e", "ã"},
		MaleEndings:   []string{"o", "ão", "r", "s", "l", "i", "u", "é"},
		SkipPrefixes:  []string{"apóstolo"},
	}
}

// InferGender guesses a gender from a display name's first word.
// Exception lists win over endings; anything unmatched is unknown.
func InferGender(name string, rules GenderRules) Gender {
	parts := strings.Fields(strings.ToLower(strings.TrimSpace(name)))
	if len(parts) == 0 {
		return GenderUnknown
	}
	first := parts[0]
	for _, p := range rules.SkipPrefixes {
		if first == p && len(parts) > 1 {
			first = parts[1]
			break
		}
	}
	for _, n := range rules.MaleNames {
		if first == n {
			return GenderMale
		}
	}
	for _, n := range rules.FemaleNames {
		if first == n {
			return GenderFemale
		}
	}
	for _, s := range rules.FemaleEndings {
		if strings.HasSuffix(first, s) {
			return GenderFemale
		}
	}
	for _, s := range rules.MaleEndings {
		if strings.HasSuffix(first, s) {
			return GenderMale
		}
	}
	return GenderUnknown
}

// PoolEntry is the slice of a character record the resolver needs.
type PoolEntry struct {
	MainTrait Trait
	Gender    Gender
}

// Resolve picks one character from the pool for the given tally and
// returns its index. Selection:
//
//  1. candidates are characters whose main trait is tied at the tally
//     maximum (every tied trait qualifies);
//  2. if the display name infers a gender, the candidate set narrows to
//     that gender, but only when at least one candidate remains;
//  3. the winner is uniform among candidates, falling back to a uniform
//     pick over the whole pool when no candidate matched.
//
// Returns ok=false only for an empty pool.
func Resolve(tally Tally, displayName string, pool []PoolEntry, rules GenderRules, rng *rand.Rand) (int, bool) {
	if len(pool) == 0 {
		return 0, false
	}

	leaders := tally.Leaders()
	leading := make(map[Trait]bool, len(leaders))
	for _, tr := range leaders {
		leading[tr] = true
	}

	var candidates []int
	for i, e := range pool {
		if leading[e.MainTrait] {
			candidates = append(candidates, i)
		}
	}

	if displayName != "" {
		if g := InferGender(displayName, rules); g != GenderUnknown {
			var narrowed []int
			for _, i := range candidates {
				if pool[i].Gender == g {
					narrowed = append(narrowed, i)
				}
			}
			if len(narrowed) > 0 {
				candidates = narrowed
			}
		}
	}

	if len(candidates) > 0 {
		return candidates[rng.Intn(len(candidates))], true
	}
	return rng.Intn(len(pool)), true
}
