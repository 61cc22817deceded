// Package ai wraps the Gemini client behind the three generation
// operations the product needs. Responses are schema-constrained JSON;
// parsing still tolerates a fenced markdown block because the model
// occasionally wraps its output anyway.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/mrolimdev/qsb-teste/internal/lang"
	"github.com/mrolimdev/qsb-teste/internal/models"
	"github.com/mrolimdev/qsb-teste/internal/quiz"
	"google.golang.org/genai"
)

// Error kinds surfaced to the UI. A timeout is recoverable by retrying
// later; a bad response shape gets a diagnostic panel.
var (
	ErrTimeout     = errors.New("ai: request timed out")
	ErrNetwork     = errors.New("ai: request failed")
	ErrBadResponse = errors.New("ai: unparseable response")
)

const (
	defaultModel   = "gemini-2.5-flash"
	defaultTimeout = 90 * time.Second
	nameTimeout    = 30 * time.Second
)

type Service struct {
	client *genai.Client
	model  string
}

func NewService(ctx context.Context, apiKey string) (*Service, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Service{client: client, model: defaultModel}, nil
}

// generate runs one schema-constrained call with a bounded wait and
// returns the raw response text.
func (s *Service) generate(ctx context.Context, prompt string, schema *genai.Schema, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
		Temperature:      genai.Ptr[float32](0.7),
	}
	result, err := s.client.Models.GenerateContent(ctx, s.model, genai.Text(prompt), cfg)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return "", fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	text := result.Text()
	if text == "" {
		return "", fmt.Errorf("%w: empty response", ErrBadResponse)
	}
	return text, nil
}

var fencedJSON = regexp.MustCompile("(?is)```json\\s*(.*?)\\s*```")

// ParseJSON decodes an AI response into dst. Direct parse first; when
// that fails, a ```json fenced block is extracted and tried.
func ParseJSON(raw string, dst any) error {
	cleaned := strings.TrimSpace(raw)
	if err := json.Unmarshal([]byte(cleaned), dst); err == nil {
		return nil
	}
	if m := fencedJSON.FindStringSubmatch(cleaned); m != nil {
		if err := json.Unmarshal([]byte(m[1]), dst); err == nil {
			return nil
		}
	}
	return fmt.Errorf("%w: no valid JSON found", ErrBadResponse)
}

// textSchema is the {pt,en,es} string object every narrative uses.
func textSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"pt": {Type: genai.TypeString},
			"en": {Type: genai.TypeString},
			"es": {Type: genai.TypeString},
		},
		Required: []string{"pt", "en", "es"},
	}
}

func parseText(raw string) (lang.Text, error) {
	var m map[string]string
	if err := ParseJSON(raw, &m); err != nil {
		return lang.Text{}, err
	}
	return lang.Localized(m), nil
}

func orDefault(name string) string {
	if name == "" {
		return "o usuário"
	}
	return name
}

// GenerateCompatibility produces the compatibility-analysis narrative
// for a resolved character and tally, in all three languages.
func (s *Service) GenerateCompatibility(ctx context.Context, character *models.Character, tally quiz.Tally, userName string) (lang.Text, error) {
	ranked := tally.Ranked()
	var top []string
	for _, tr := range ranked[:3] {
		top = append(top, fmt.Sprintf("%s (Pontuação: %d)", tr.DisplayName(), tally[tr]))
	}
	charName := character.Name.Get("pt")

	prompt := fmt.Sprintf(`Aja como um conselheiro espiritual e escritor. Gere uma "Análise de Compatibilidade" para um usuário de um teste de personalidade bíblico.
A análise deve ser um parágrafo único, caloroso, encorajador e perspicaz, com aproximadamente 100-150 palavras.
Deve ser retornada como um objeto JSON com chaves "pt", "en" e "es", contendo as respectivas traduções.

CONTEXTO:
- Nome do usuário: %s
- Personagem Bíblico Resultante: %s (Traço Principal: %s)
- Principais Traços de Personalidade do Usuário (baseado nas pontuações): %s

INSTRUÇÕES:
1. Dirija-se ao usuário (usando o nome, se disponível) e reconheça sua conexão com %s.
2. Compare e contraste sutilmente os principais traços do usuário com a personalidade e história conhecidas do personagem.
3. Ofereça uma visão prática e inspiradora sobre como o usuário pode aplicar as lições da vida de %s em sua própria jornada de fé.
4. Mantenha um tom positivo e orientado para o crescimento.
5. CRUCIALMENTE, sua resposta inteira deve ser APENAS o objeto JSON válido, sem texto introdutório, markdown ou explicações.`,
		orDefault(userName), charName, character.MainTrait.DisplayName(),
		strings.Join(top, ", "), charName, charName)

	raw, err := s.generate(ctx, prompt, textSchema(), defaultTimeout)
	if err != nil {
		return lang.Text{}, err
	}
	return parseText(raw)
}

// GenerateSecondaryAnalysis produces the "soul mosaic" narrative for
// the user's top three traits. Secondary and tertiary characters may
// be nil when the pool has no persona for those traits.
func (s *Service) GenerateSecondaryAnalysis(ctx context.Context, userName string, main, secondary, tertiary *models.Character) (lang.Text, error) {
	name := func(c *models.Character) string {
		if c == nil {
			return "Nenhum"
		}
		return c.Name.Get("pt")
	}

	prompt := fmt.Sprintf(`Aja como um conselheiro espiritual e escritor. Gere uma análise "Mosaico da Alma" para um usuário.
A análise deve ser um parágrafo coeso e perspicaz (cerca de 120 palavras), explicando como seus três principais traços de personalidade, representados por personagens bíblicos, funcionam juntos.
A saída DEVE ser um objeto JSON com chaves "pt", "en" e "es" para as traduções.

CONTEXTO:
- Nome do Usuário: %s
- Personagem Principal (traço mais forte): %s
- Personagem Secundário (2º traço): %s
- Personagem Terciário (3º traço): %s

INSTRUÇÕES:
1. Comece reconhecendo a identificação principal do usuário com %s.
2. Descreva como as qualidades dos traços secundário e terciário adicionam profundidade e equilíbrio à personalidade principal.
3. Conclua com uma reflexão encorajadora sobre como esta tríade única forma uma identidade espiritual bela e complexa.
4. O tom deve ser inspirador e focado no crescimento.
5. CRUCIALMENTE, sua resposta inteira deve ser APENAS o objeto JSON válido, sem texto introdutório, markdown ou explicações.`,
		orDefault(userName), name(main), name(secondary), name(tertiary), name(main))

	raw, err := s.generate(ctx, prompt, textSchema(), defaultTimeout)
	if err != nil {
		return lang.Text{}, err
	}
	return parseText(raw)
}

func listSchema(items *genai.Schema, min, max int64) *genai.Schema {
	s := &genai.Schema{Type: genai.TypeArray, Items: items}
	if min > 0 {
		s.MinItems = genai.Ptr(min)
	}
	if max > 0 {
		s.MaxItems = genai.Ptr(max)
	}
	return s
}

func objectSchema(required []string, props map[string]*genai.Schema) *genai.Schema {
	return &genai.Schema{Type: genai.TypeObject, Properties: props, Required: required}
}

func characterProfileSchema() *genai.Schema {
	var traitValues []string
	for _, tr := range quiz.AllTraits {
		traitValues = append(traitValues, string(tr))
	}
	verse := objectSchema([]string{"texto", "referencia"}, map[string]*genai.Schema{
		"texto": textSchema(), "referencia": textSchema(),
	})
	relationship := objectSchema([]string{"title", "text"}, map[string]*genai.Schema{
		"title": textSchema(), "text": textSchema(),
	})
	devotional := objectSchema([]string{"verse", "reference", "reflection"}, map[string]*genai.Schema{
		"verse": textSchema(), "reference": textSchema(), "reflection": textSchema(),
	})
	reading := objectSchema([]string{"reference", "description"}, map[string]*genai.Schema{
		"reference": textSchema(), "description": textSchema(),
	})
	studyPlan := objectSchema([]string{"readings", "reflectionQuestions", "prayer"}, map[string]*genai.Schema{
		"readings":            listSchema(reading, 0, 0),
		"reflectionQuestions": listSchema(textSchema(), 0, 0),
		"prayer":              textSchema(),
	})

	return objectSchema(
		[]string{"name", "mainTrait", "tagline", "tags", "gender", "description", "analysis",
			"strengthsInFaith", "areasForVigilance", "keyVerses", "relationshipAnalyses",
			"dailyDevotionals", "studyPlan"},
		map[string]*genai.Schema{
			"name":                 textSchema(),
			"mainTrait":            {Type: genai.TypeString, Enum: traitValues},
			"tagline":              textSchema(),
			"tags":                 listSchema(textSchema(), 3, 5),
			"gender":               {Type: genai.TypeString, Enum: []string{"male", "female", "other"}},
			"description":          textSchema(),
			"analysis":             textSchema(),
			"strengthsInFaith":     textSchema(),
			"areasForVigilance":    textSchema(),
			"keyVerses":            listSchema(verse, 2, 3),
			"relationshipAnalyses": listSchema(relationship, 2, 2),
			"dailyDevotionals":     listSchema(devotional, 3, 3),
			"studyPlan":            studyPlan,
		})
}

// GenerateCharacterProfile builds a complete character record for the
// admin surface. The ID and image fields are left for the caller.
func (s *Service) GenerateCharacterProfile(ctx context.Context, characterName string) (*models.Character, error) {
	characterName = strings.TrimSpace(characterName)
	if characterName == "" {
		return nil, errors.New("ai: character name is required")
	}

	var traitValues []string
	for _, tr := range quiz.AllTraits {
		traitValues = append(traitValues, string(tr))
	}
	prompt := fmt.Sprintf(`Crie um perfil detalhado para o personagem bíblico "%s". O perfil deve ser otimista, inspirador e focado em lições de fé e crescimento pessoal. Gere todos os campos de texto (name, tagline, description, tags, etc.) como objetos com chaves "pt", "en", e "es", contendo as respectivas traduções.
O campo mainTrait deve ser um destes valores: %s.
Responda APENAS com JSON válido, sem texto adicional.`,
		characterName, strings.Join(traitValues, ", "))

	raw, err := s.generate(ctx, prompt, characterProfileSchema(), defaultTimeout)
	if err != nil {
		return nil, err
	}
	var c models.Character
	if err := ParseJSON(raw, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// SuggestCharacterName asks for one biblical character absent from the
// existing pool.
func (s *Service) SuggestCharacterName(ctx context.Context, existingNames []string, gender quiz.Gender) (string, error) {
	instruction := "masculino ou feminino"
	switch gender {
	case quiz.GenderMale:
		instruction = "masculino"
	case quiz.GenderFemale:
		instruction = "feminino"
	}

	prompt := fmt.Sprintf(`Sugira o nome de UM personagem bíblico que NÃO ESTEJA na seguinte lista: %s.
O personagem deve ser do gênero %s.
O personagem deve ser relevante, com uma história conhecida na Bíblia.
Responda APENAS com um objeto JSON contendo a chave "sugestao" com o nome do personagem, sem nenhuma outra palavra, explicação ou pontuação.`,
		strings.Join(existingNames, ", "), instruction)

	schema := objectSchema([]string{"sugestao"}, map[string]*genai.Schema{
		"sugestao": {Type: genai.TypeString},
	})
	raw, err := s.generate(ctx, prompt, schema, nameTimeout)
	if err != nil {
		return "", err
	}
	var out struct {
		Sugestao string `json:"sugestao"`
	}
	if err := ParseJSON(raw, &out); err != nil {
		return "", err
	}
	if strings.TrimSpace(out.Sugestao) == "" {
		return "", fmt.Errorf("%w: missing sugestao", ErrBadResponse)
	}
	return strings.TrimSpace(out.Sugestao), nil
}
