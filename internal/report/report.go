// Package report renders the emailed result document: one
// self-contained HTML page with inline styles and no scripts, in the
// language the user was reading when they asked for it.
package report

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/mrolimdev/qsb-teste/internal/lang"
	"github.com/mrolimdev/qsb-teste/internal/models"
	"github.com/mrolimdev/qsb-teste/internal/quiz"
)

type labels struct {
	Title         string
	YouAreLike    string
	TraitProfile  string
	WhoWas        string
	Personality   string
	Compatibility string
	Secondary     string
	Growth        string
	Strengths     string
	Vigilance     string
	KeyVerses     string
	You           string
	Footer        string
}

var labelSets = map[string]labels{
	"pt": {
		Title:         "Quem Sou Eu na Bíblia?",
		YouAreLike:    "%s, você se parece com",
		WhoWas:        "Quem foi %s?",
		Personality:   "Análise de Personalidade",
		Compatibility: "Análise de Compatibilidade",
		Secondary:     "Mosaico da Alma",
		Growth:        "Jornada de Crescimento",
		Strengths:     "Forças na Fé",
		Vigilance:     "Áreas de Vigilância",
		KeyVerses:     "Versículos-Chave",
		TraitProfile:  "Perfil de Traços",
		You:           "Você",
		Footer:        "Quem Sou Eu na Bíblia © 2025 - Todos os direitos reservados",
	},
	"en": {
		Title:         "Who Am I in the Bible?",
		YouAreLike:    "%s, you are like",
		WhoWas:        "Who was %s?",
		Personality:   "Personality Analysis",
		Compatibility: "Compatibility Analysis",
		Secondary:     "Soul Mosaic",
		Growth:        "Growth Journey",
		Strengths:     "Strengths in Faith",
		Vigilance:     "Areas for Vigilance",
		KeyVerses:     "Key Verses",
		TraitProfile:  "Trait Profile",
		You:           "You",
		Footer:        "Who Am I in the Bible © 2025 - All rights reserved",
	},
	"es": {
		Title:         "¿Quién Soy en la Biblia?",
		YouAreLike:    "%s, te pareces a",
		WhoWas:        "¿Quién fue %s?",
		Personality:   "Análisis de Personalidad",
		Compatibility: "Análisis de Compatibilidad",
		Secondary:     "Mosaico del Alma",
		Growth:        "Camino de Crecimiento",
		Strengths:     "Fortalezas en la Fe",
		Vigilance:     "Áreas de Vigilancia",
		KeyVerses:     "Versículos Clave",
		TraitProfile:  "Perfil de Rasgos",
		You:           "Tú",
		Footer:        "Quién Soy en la Biblia © 2025 - Todos los derechos reservados",
	},
}

const documentTemplate = `<!DOCTYPE html>
<html lang="{{.Lang}}">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.L.Title}}</title>
</head>
<body style="font-family: 'Poppins', sans-serif; background-color: #f5f5f4; color: #44403c; margin: 0; padding: 20px;">
<div style="max-width: 600px; margin: auto; background-color: #ffffff; border-radius: 12px; overflow: hidden; box-shadow: 0 4px 6px rgba(0,0,0,0.1);">
<div style="background-color: #fef3c7; padding: 20px; text-align: center;">
<h1 style="font-family: 'Merriweather', serif; font-size: 28px; color: #92400e; margin: 0;">{{.L.Title}}</h1>
</div>
<div style="padding: 20px 30px;">
<p style="text-align: center; font-size: 18px; color: #57534e;">{{.Intro}}</p>
<h2 style="font-family: 'Playfair Display', serif; font-size: 36px; color: #b45309; margin-top: 10px; margin-bottom: 5px; text-align: center;">{{.CharacterName}}</h2>
<p style="font-style: italic; font-size: 18px; color: #57534e; text-align: center; margin-bottom: 20px;">{{.Tagline}}</p>
{{range .Sections}}
<h3 style="font-family: 'Merriweather', serif; font-size: 20px; color: #1c1917; border-bottom: 2px solid #fcd34d; padding-bottom: 8px; margin-top: 20px; margin-bottom: 15px;">{{.Title}}</h3>
<p style="font-size: 16px; line-height: 1.6; color: #44403c; margin-bottom: 15px;">{{.Body}}</p>
{{end}}
<h3 style="font-family: 'Merriweather', serif; font-size: 20px; color: #1c1917; border-bottom: 2px solid #fcd34d; padding-bottom: 8px; margin-top: 20px; margin-bottom: 15px;">{{.L.Growth}}</h3>
<h4 style="font-weight: 700; font-size: 16px; color: #15803d;">{{.L.Strengths}}</h4>
<p style="font-size: 16px; line-height: 1.6; color: #44403c; margin-bottom: 15px;">{{.Strengths}}</p>
<h4 style="font-weight: 700; font-size: 16px; color: #b91c1c;">{{.L.Vigilance}}</h4>
<p style="font-size: 16px; line-height: 1.6; color: #44403c; margin-bottom: 15px;">{{.Vigilance}}</p>
{{if .Scores}}
<h3 style="font-family: 'Merriweather', serif; font-size: 20px; color: #1c1917; border-bottom: 2px solid #fcd34d; padding-bottom: 8px; margin-top: 20px; margin-bottom: 15px;">{{.L.TraitProfile}}</h3>
{{range .Scores}}
<div style="margin-bottom: 8px;">
<span style="font-size: 14px; color: #44403c;">{{.Name}} ({{.Score}})</span>
<div style="background-color: #e7e5e4; border-radius: 4px; height: 10px;">
<div style="background-color: #f59e0b; border-radius: 4px; height: 10px; width: {{.Percent}}%;"></div>
</div>
</div>
{{end}}
{{end}}
{{if .Verses}}
<h3 style="font-family: 'Merriweather', serif; font-size: 20px; color: #1c1917; border-bottom: 2px solid #fcd34d; padding-bottom: 8px; margin-top: 20px; margin-bottom: 15px;">{{.L.KeyVerses}}</h3>
{{range .Verses}}
<div style="background-color: #f5f5f4; padding: 15px; border-radius: 8px; margin-bottom: 10px;">
<blockquote style="font-style: italic; color: #57534e;">&ldquo;{{.Text}}&rdquo;</blockquote>
<p style="text-align: right; font-weight: 600; color: #b45309; margin-top: 5px;">{{.Reference}}</p>
</div>
{{end}}
{{end}}
</div>
<div style="text-align: center; padding: 20px; font-size: 12px; color: #78716c;">
<p>{{.L.Footer}}</p>
</div>
</div>
</body>
</html>`

type section struct {
	Title string
	Body  string
}

type verse struct {
	Text      string
	Reference string
}

type score struct {
	Name    string
	Score   int
	Percent int
}

type templateData struct {
	Lang          string
	L             labels
	Intro         string
	CharacterName string
	Tagline       string
	Sections      []section
	Strengths     string
	Vigilance     string
	Scores        []score
	Verses        []verse
}

type Builder struct {
	tmpl *template.Template
}

func NewBuilder() *Builder {
	return &Builder{tmpl: template.Must(template.New("report").Parse(documentTemplate))}
}

// Input carries everything the document shows. Compatibility and
// Secondary are the already-generated narratives; empty strings skip
// their sections.
type Input struct {
	Character     *models.Character
	UserName      string
	Language      string
	Tally         quiz.Tally
	Compatibility string
	Secondary     string
}

// Build renders the report document.
func (b *Builder) Build(in Input) (string, error) {
	if in.Character == nil {
		return "", fmt.Errorf("report: character is required")
	}
	base := lang.Base(in.Language)
	l, ok := labelSets[base]
	if !ok {
		base = "pt"
		l = labelSets[base]
	}

	userName := strings.TrimSpace(in.UserName)
	if userName == "" {
		userName = l.You
	}
	characterName := in.Character.Name.Get(base)

	data := templateData{
		Lang:          base,
		L:             l,
		Intro:         fmt.Sprintf(l.YouAreLike, userName),
		CharacterName: characterName,
		Tagline:       in.Character.Tagline.Get(base),
		Strengths:     in.Character.StrengthsInFaith.Get(base),
		Vigilance:     in.Character.AreasForVigilance.Get(base),
	}
	if desc := in.Character.Description.Get(base); desc != "" {
		data.Sections = append(data.Sections, section{Title: fmt.Sprintf(l.WhoWas, characterName), Body: desc})
	}
	if analysis := in.Character.Analysis.Get(base); analysis != "" {
		data.Sections = append(data.Sections, section{Title: l.Personality, Body: analysis})
	}
	if in.Compatibility != "" {
		data.Sections = append(data.Sections, section{Title: l.Compatibility, Body: in.Compatibility})
	}
	if in.Secondary != "" {
		data.Sections = append(data.Sections, section{Title: l.Secondary, Body: in.Secondary})
	}
	if len(in.Tally) > 0 {
		max := in.Tally.Max()
		for _, tr := range quiz.AllTraits {
			data.Scores = append(data.Scores, score{
				Name:    tr.DisplayName(),
				Score:   in.Tally[tr],
				Percent: in.Tally[tr] * 100 / max,
			})
		}
	}
	for _, kv := range in.Character.KeyVerses {
		data.Verses = append(data.Verses, verse{Text: kv.Texto.Get(base), Reference: kv.Referencia.Get(base)})
	}

	var sb strings.Builder
	if err := b.tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("report: render: %w", err)
	}
	return sb.String(), nil
}
