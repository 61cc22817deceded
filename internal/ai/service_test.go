package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJSONDirect(t *testing.T) {
	var m map[string]string
	err := ParseJSON(`{"pt":"olá","en":"hello"}`, &m)
	require.NoError(t, err)
	assert.Equal(t, "olá", m["pt"])
}

func TestParseJSONFencedBlock(t *testing.T) {
	raw := "Claro! Aqui está:\n```json\n{\"pt\":\"olá\",\"en\":\"hello\",\"es\":\"hola\"}\n```\nEspero que ajude."
	var m map[string]string
	err := ParseJSON(raw, &m)
	require.NoError(t, err)
	assert.Equal(t, "hola", m["es"])
}

func TestParseJSONFencedBlockUppercase(t *testing.T) {
	raw := "```JSON\n{\"sugestao\":\"Moisés\"}\n```"
	var out struct {
		Sugestao string `json:"sugestao"`
	}
	require.NoError(t, ParseJSON(raw, &out))
	assert.Equal(t, "Moisés", out.Sugestao)
}

func TestParseJSONGarbage(t *testing.T) {
	var m map[string]string
	err := ParseJSON("desculpe, não consegui gerar", &m)
	assert.ErrorIs(t, err, ErrBadResponse)
}

func TestParseJSONWhitespace(t *testing.T) {
	var m map[string]string
	require.NoError(t, ParseJSON("\n  {\"pt\":\"x\"}  \n", &m))
	assert.Equal(t, "x", m["pt"])
}
