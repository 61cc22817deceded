package report

import (
	"strings"
	"testing"

	"github.com/mrolimdev/qsb-teste/internal/lang"
	"github.com/mrolimdev/qsb-teste/internal/models"
	"github.com/mrolimdev/qsb-teste/internal/quiz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleCharacter() *models.Character {
	return &models.Character{
		ID:        "jose",
		Name:      lang.Localized(map[string]string{"pt": "José", "en": "Joseph", "es": "José"}),
		MainTrait: quiz.Mordomo,
		Tagline:   lang.Localized(map[string]string{"pt": "O sonhador fiel", "en": "The faithful dreamer"}),
		Description: lang.Localized(map[string]string{
			"pt": "José foi vendido pelos irmãos.",
			"en": "Joseph was sold by his brothers.",
		}),
		Analysis:          lang.Plain("Uma análise."),
		StrengthsInFaith:  lang.Plain("Perseverança."),
		AreasForVigilance: lang.Plain("Orgulho."),
		KeyVerses: models.KeyVerseList{
			{
				Texto:      lang.Localized(map[string]string{"pt": "Vós intentastes o mal contra mim"}),
				Referencia: lang.Localized(map[string]string{"pt": "Gênesis 50:20"}),
			},
		},
	}
}

func TestBuildPortugueseDocument(t *testing.T) {
	b := NewBuilder()
	html, err := b.Build(Input{
		Character:     sampleCharacter(),
		UserName:      "Ana",
		Language:      "pt-BR",
		Compatibility: "Ana, sua jornada lembra a de José.",
		Secondary:     "Seu mosaico combina três traços.",
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(html, "<!DOCTYPE html>"))
	assert.Contains(t, html, `<html lang="pt">`)
	assert.Contains(t, html, "Ana, você se parece com")
	assert.Contains(t, html, "José")
	assert.Contains(t, html, "Quem foi José?")
	assert.Contains(t, html, "Análise de Compatibilidade")
	assert.Contains(t, html, "Mosaico da Alma")
	assert.Contains(t, html, "Gênesis 50:20")
	assert.NotContains(t, html, "<script", "report must be script-free")
}

func TestBuildEnglishFallsBackPerField(t *testing.T) {
	b := NewBuilder()
	html, err := b.Build(Input{Character: sampleCharacter(), Language: "en"})
	require.NoError(t, err)

	assert.Contains(t, html, "Joseph was sold by his brothers.")
	assert.Contains(t, html, "You, you are like")
	// plain legacy fields answer any language
	assert.Contains(t, html, "Uma análise.")
	assert.NotContains(t, html, "Análise de Compatibilidade", "empty narrative skips its section")
}

func TestBuildUnknownLanguageUsesPortuguese(t *testing.T) {
	b := NewBuilder()
	html, err := b.Build(Input{Character: sampleCharacter(), Language: "fr"})
	require.NoError(t, err)
	assert.Contains(t, html, `<html lang="pt">`)
}

func TestBuildRendersTraitProfileBars(t *testing.T) {
	tally := quiz.NewTally()
	tally[quiz.Mordomo] = 4
	tally[quiz.Sabio] = 2

	b := NewBuilder()
	html, err := b.Build(Input{
		Character: sampleCharacter(),
		UserName:  "Ana",
		Language:  "pt",
		Tally:     tally,
	})
	require.NoError(t, err)

	assert.Contains(t, html, "Perfil de Traços")
	assert.Contains(t, html, "Mordomo (4)")
	assert.Contains(t, html, "width: 100%")
	assert.Contains(t, html, "Sábio (2)")
	assert.Contains(t, html, "width: 50%")
}

func TestBuildWithoutTallySkipsTraitProfile(t *testing.T) {
	b := NewBuilder()
	html, err := b.Build(Input{Character: sampleCharacter(), Language: "pt"})
	require.NoError(t, err)
	assert.NotContains(t, html, "Perfil de Traços")
}

func TestBuildEscapesUserContent(t *testing.T) {
	ch := sampleCharacter()
	b := NewBuilder()
	html, err := b.Build(Input{
		Character:     ch,
		UserName:      `<img src=x onerror=alert(1)>`,
		Language:      "pt",
		Compatibility: `<script>alert("x")</script>`,
	})
	require.NoError(t, err)
	assert.NotContains(t, html, "<script>")
	assert.NotContains(t, html, "<img src=x")
}

func TestBuildRequiresCharacter(t *testing.T) {
	_, err := NewBuilder().Build(Input{Language: "pt"})
	assert.Error(t, err)
}
