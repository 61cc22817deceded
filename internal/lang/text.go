// Package lang holds the multi-language text type shared by character
// content, user narratives and the report builder.
//
// Legacy profile rows may hold either a bare string or a {pt,en,es}
// object in the same jsonb column. Text normalizes both shapes at the
// data boundary so the rest of the code never type-switches on raw JSON.
package lang

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// Supported languages, also the fallback order when the requested
// language is missing.
var Supported = []string{"pt", "en", "es"}

// Base strips a regional suffix: "pt-BR" -> "pt".
func Base(tag string) string {
	if i := strings.IndexByte(tag, '-'); i >= 0 {
		return tag[:i]
	}
	return tag
}

// Text is either a plain string or a per-language map.
type Text struct {
	plain string
	langs map[string]string
	kind  textKind
}

type textKind int

const (
	kindZero textKind = iota
	kindPlain
	kindLocalized
)

// Plain wraps a legacy single-language value.
func Plain(s string) Text {
	return Text{plain: s, kind: kindPlain}
}

// Localized wraps a language map. The map is copied.
func Localized(m map[string]string) Text {
	cp := make(map[string]string, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return Text{langs: cp, kind: kindLocalized}
}

func (t Text) IsZero() bool { return t.kind == kindZero }

// Get returns the value for the given language tag, falling back
// through pt, en, es when the requested language is absent. Plain
// values are returned as-is for any language.
func (t Text) Get(tag string) string {
	if s, ok := t.GetStrict(tag); ok {
		return s
	}
	if t.kind == kindLocalized {
		for _, l := range Supported {
			if v, ok := t.langs[l]; ok && v != "" {
				return v
			}
		}
	}
	return ""
}

// GetStrict returns the value for exactly the given language, with no
// fallback. Callers use the miss to decide a narrative still needs
// generation for that language.
func (t Text) GetStrict(tag string) (string, bool) {
	switch t.kind {
	case kindPlain:
		return t.plain, t.plain != ""
	case kindLocalized:
		v, ok := t.langs[Base(tag)]
		return v, ok && v != ""
	}
	return "", false
}

// Merge overlays other onto t, language by language. Languages present
// only in t survive; languages present in other win. A plain value is
// treated as pt before merging.
func (t Text) Merge(other Text) Text {
	out := map[string]string{}
	for k, v := range t.asMap() {
		out[k] = v
	}
	for k, v := range other.asMap() {
		out[k] = v
	}
	return Localized(out)
}

func (t Text) asMap() map[string]string {
	switch t.kind {
	case kindPlain:
		if t.plain == "" {
			return nil
		}
		return map[string]string{"pt": t.plain}
	case kindLocalized:
		return t.langs
	}
	return nil
}

// MarshalJSON emits the underlying shape unchanged: a JSON string for
// plain values, an object for localized ones, null for zero.
func (t Text) MarshalJSON() ([]byte, error) {
	switch t.kind {
	case kindPlain:
		return json.Marshal(t.plain)
	case kindLocalized:
		return json.Marshal(t.langs)
	}
	return []byte("null"), nil
}

// UnmarshalJSON is the single normalization point for the dual shape.
func (t *Text) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" || trimmed == "" {
		*t = Text{}
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Plain(s)
		return nil
	}
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("lang: text is neither string nor object: %w", err)
	}
	*t = Localized(m)
	return nil
}

// Value implements driver.Valuer so Text maps onto a jsonb column.
func (t Text) Value() (driver.Value, error) {
	if t.IsZero() {
		return nil, nil
	}
	b, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (t *Text) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*t = Text{}
		return nil
	case []byte:
		return t.UnmarshalJSON(v)
	case string:
		return t.UnmarshalJSON([]byte(v))
	}
	return fmt.Errorf("lang: cannot scan %T into Text", src)
}
