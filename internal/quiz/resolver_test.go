package quiz

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRNG() *rand.Rand { return rand.New(rand.NewSource(1)) }

func TestInferGender(t *testing.T) {
	rules := DefaultGenderRules()
	cases := []struct {
		name string
		want Gender
	}{
		{"Maria", GenderFemale},
		{"Pedro", GenderMale},
		{"Ester", GenderFemale},  // exception: 'r' ending would read male
		{"Jonas", GenderMale},    // exception: 's' is male anyway, list still wins
		{"Raquel", GenderFemale}, // exception: 'l' ending would read male
		{"Josué", GenderMale},
		{"Apóstolo Paulo", GenderMale}, // honorific skipped
		{"Débora Lima", GenderFemale},  // only the first word counts
		{"", GenderUnknown},
		{"Ruth", GenderUnknown},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, InferGender(c.name, rules), c.name)
	}
}

func TestResolveUniqueMaximum(t *testing.T) {
	pool := []PoolEntry{
		{MainTrait: Integro, Gender: GenderMale},
		{MainTrait: Integro, Gender: GenderFemale},
		{MainTrait: Servo, Gender: GenderMale},
	}
	tally := NewTally()
	tally[Integro] = 4
	tally[Servo] = 1

	rules := DefaultGenderRules()
	for i := 0; i < 30; i++ {
		idx, ok := Resolve(tally, "", pool, rules, testRNG())
		require.True(t, ok)
		assert.Equal(t, Integro, pool[idx].MainTrait)
	}
}

func TestResolveUniformAmongCandidates(t *testing.T) {
	pool := []PoolEntry{
		{MainTrait: Integro, Gender: GenderMale},
		{MainTrait: Integro, Gender: GenderMale},
		{MainTrait: Servo, Gender: GenderMale},
	}
	tally := NewTally()
	tally[Integro] = 4

	rng := rand.New(rand.NewSource(99))
	hits := map[int]int{}
	for i := 0; i < 2000; i++ {
		idx, ok := Resolve(tally, "", pool, DefaultGenderRules(), rng)
		require.True(t, ok)
		hits[idx]++
	}
	assert.Zero(t, hits[2], "non-leading trait must never win")
	assert.Greater(t, hits[0], 800)
	assert.Greater(t, hits[1], 800)
}

func TestResolveGenderNarrowsTiedLeaders(t *testing.T) {
	// Ester ties SABIO and FIEL; inference says female, so only the
	// female candidates of the tied traits may win.
	pool := []PoolEntry{
		{MainTrait: Sabio, Gender: GenderMale},
		{MainTrait: Sabio, Gender: GenderFemale},
		{MainTrait: Fiel, Gender: GenderFemale},
		{MainTrait: Fiel, Gender: GenderMale},
		{MainTrait: Protetor, Gender: GenderFemale},
	}
	tally := NewTally()
	tally[Sabio] = 3
	tally[Fiel] = 3
	tally[Servo] = 1

	rng := rand.New(rand.NewSource(5))
	for i := 0; i < 100; i++ {
		idx, ok := Resolve(tally, "Ester", pool, DefaultGenderRules(), rng)
		require.True(t, ok)
		assert.Contains(t, []int{1, 2}, idx)
	}
}

func TestResolveNeverNarrowsToZero(t *testing.T) {
	// All INTEGRO candidates are male; a female name must not empty the set.
	pool := []PoolEntry{
		{MainTrait: Integro, Gender: GenderMale},
		{MainTrait: Integro, Gender: GenderMale},
	}
	tally := NewTally()
	tally[Integro] = 2

	idx, ok := Resolve(tally, "Maria", pool, DefaultGenderRules(), testRNG())
	require.True(t, ok)
	assert.Equal(t, Integro, pool[idx].MainTrait)
}

func TestResolveFallbackToWholePool(t *testing.T) {
	// Pool has no character for the leading trait at all.
	pool := []PoolEntry{
		{MainTrait: Servo, Gender: GenderMale},
		{MainTrait: Fiel, Gender: GenderFemale},
	}
	tally := NewTally()
	tally[Pacificador] = 5

	_, ok := Resolve(tally, "", pool, DefaultGenderRules(), testRNG())
	assert.True(t, ok, "non-empty pool always resolves")
}

func TestResolveAllZeroTally(t *testing.T) {
	pool := []PoolEntry{{MainTrait: Servo, Gender: GenderMale}}
	_, ok := Resolve(NewTally(), "", pool, DefaultGenderRules(), testRNG())
	assert.True(t, ok)
}

func TestResolveEmptyPool(t *testing.T) {
	_, ok := Resolve(NewTally(), "", nil, DefaultGenderRules(), testRNG())
	assert.False(t, ok)
}
