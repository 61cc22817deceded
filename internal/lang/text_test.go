package lang

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetFallbackOrder(t *testing.T) {
	full := Localized(map[string]string{"pt": "olá", "en": "hello", "es": "hola"})
	assert.Equal(t, "hello", full.Get("en"))
	assert.Equal(t, "hello", full.Get("en-US"))

	noES := Localized(map[string]string{"pt": "olá", "en": "hello"})
	assert.Equal(t, "olá", noES.Get("es"), "missing language falls back to pt first")

	onlyEN := Localized(map[string]string{"en": "hello"})
	assert.Equal(t, "hello", onlyEN.Get("pt"))
}

func TestGetStrictNoFallback(t *testing.T) {
	noEN := Localized(map[string]string{"pt": "olá"})
	_, ok := noEN.GetStrict("en")
	assert.False(t, ok)

	v, ok := noEN.GetStrict("pt-BR")
	assert.True(t, ok)
	assert.Equal(t, "olá", v)
}

func TestPlainBehavesAsAnyLanguage(t *testing.T) {
	p := Plain("Davi")
	assert.Equal(t, "Davi", p.Get("en"))
	v, ok := p.GetStrict("es")
	assert.True(t, ok)
	assert.Equal(t, "Davi", v)
}

func TestNormalizeLegacyShapes(t *testing.T) {
	var fromString Text
	require.NoError(t, json.Unmarshal([]byte(`"Moisés"`), &fromString))
	assert.Equal(t, "Moisés", fromString.Get("pt"))

	var fromObject Text
	require.NoError(t, json.Unmarshal([]byte(`{"pt":"Moisés","en":"Moses"}`), &fromObject))
	assert.Equal(t, "Moses", fromObject.Get("en"))

	var fromNull Text
	require.NoError(t, json.Unmarshal([]byte(`null`), &fromNull))
	assert.True(t, fromNull.IsZero())
}

func TestMergeNeverDropsLanguages(t *testing.T) {
	existing := Localized(map[string]string{"pt": "texto antigo"})
	generated := Localized(map[string]string{"en": "new text"})

	merged := existing.Merge(generated)
	assert.Equal(t, "texto antigo", merged.Get("pt"))
	v, ok := merged.GetStrict("en")
	assert.True(t, ok)
	assert.Equal(t, "new text", v)
}

func TestMergePromotesPlainToPT(t *testing.T) {
	merged := Plain("antigo").Merge(Localized(map[string]string{"en": "new"}))
	v, ok := merged.GetStrict("pt")
	assert.True(t, ok)
	assert.Equal(t, "antigo", v)
}

func TestSQLRoundTrip(t *testing.T) {
	orig := Localized(map[string]string{"pt": "a", "en": "b"})
	val, err := orig.Value()
	require.NoError(t, err)

	var back Text
	require.NoError(t, back.Scan(val))
	assert.Equal(t, "a", back.Get("pt"))
	assert.Equal(t, "b", back.Get("en"))

	var null Text
	require.NoError(t, null.Scan(nil))
	assert.True(t, null.IsZero())
}
