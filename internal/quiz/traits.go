// Package quiz implements the trait scorer and the character resolver:
// the pure result-computation core of the test flow.
package quiz

// Trait is one of the nine fixed archetypes a quiz result maps to. The
// values mirror the identifiers used by the profile store.
type Trait string

const (
	Integro     Trait = "TIPO_UM_PERFECCIONISTA"
	Servo       Trait = "TIPO_DOIS_PRESTATIVO"
	Mordomo     Trait = "TIPO_TRES_BEM_SUCEDIDO"
	Adorador    Trait = "TIPO_QUATRO_INDIVIDUALISTA"
	Sabio       Trait = "TIPO_CINCO_INVESTIGADOR"
	Fiel        Trait = "TIPO_SEIS_LEAL"
	Celebrante  Trait = "TIPO_SETE_ENTUSIASTA"
	Protetor    Trait = "TIPO_OITO_DESAFIADOR"
	Pacificador Trait = "TIPO_NOVE_PACIFICADOR"
)

// AllTraits lists the traits in enneagram order (type 1 through 9).
var AllTraits = []Trait{
	Integro, Servo, Mordomo, Adorador, Sabio,
	Fiel, Celebrante, Protetor, Pacificador,
}

var traitNumbers = map[Trait]int{
	Integro: 1, Servo: 2, Mordomo: 3, Adorador: 4, Sabio: 5,
	Fiel: 6, Celebrante: 7, Protetor: 8, Pacificador: 9,
}

var traitNames = map[Trait]string{
	Integro:     "Íntegro",
	Servo:       "Servo",
	Mordomo:     "Mordomo",
	Adorador:    "Adorador",
	Sabio:       "Sábio",
	Fiel:        "Fiel",
	Celebrante:  "Celebrante",
	Protetor:    "Protetor",
	Pacificador: "Pacificador",
}

// Number returns the enneagram type number (1-9), or 0 for an unknown trait.
func (t Trait) Number() int { return traitNumbers[t] }

// DisplayName returns the Portuguese display name used in prompts.
func (t Trait) DisplayName() string {
	if n, ok := traitNames[t]; ok {
		return n
	}
	return string(t)
}

// Valid reports whether t is one of the nine known traits.
func (t Trait) Valid() bool { return traitNumbers[t] != 0 }

// TraitByNumber returns the trait for an enneagram type number.
func TraitByNumber(n int) (Trait, bool) {
	if n < 1 || n > len(AllTraits) {
		return "", false
	}
	return AllTraits[n-1], true
}

// Tally is the per-trait score accumulated during one quiz attempt.
// Counts only ever increase while the quiz runs.
type Tally map[Trait]int

// NewTally returns an all-zero tally over the nine traits.
func NewTally() Tally {
	t := make(Tally, len(AllTraits))
	for _, tr := range AllTraits {
		t[tr] = 0
	}
	return t
}

// Sum returns the total number of recorded answers.
func (t Tally) Sum() int {
	total := 0
	for _, tr := range AllTraits {
		total += t[tr]
	}
	return total
}

// Max returns the highest count, never less than 1 so percentage
// denominators stay safe for an unanswered quiz.
func (t Tally) Max() int {
	max := 1
	for _, tr := range AllTraits {
		if t[tr] > max {
			max = t[tr]
		}
	}
	return max
}

// Leaders returns every trait tied at the maximal count, in enneagram
// order. An all-zero tally makes all nine traits leaders.
func (t Tally) Leaders() []Trait {
	best := -1
	for _, tr := range AllTraits {
		if t[tr] > best {
			best = t[tr]
		}
	}
	var out []Trait
	for _, tr := range AllTraits {
		if t[tr] == best {
			out = append(out, tr)
		}
	}
	return out
}

// Ranked returns the traits sorted by count descending. Ties keep
// enneagram order, which makes secondary/tertiary selection stable.
func (t Tally) Ranked() []Trait {
	out := make([]Trait, len(AllTraits))
	copy(out, AllTraits)
	// insertion sort, stable over nine elements
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && t[out[j]] > t[out[j-1]]; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// Clone returns an independent copy of the tally.
func (t Tally) Clone() Tally {
	cp := make(Tally, len(t))
	for k, v := range t {
		cp[k] = v
	}
	return cp
}
