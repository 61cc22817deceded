package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mrolimdev/qsb-teste/internal/lang"
	"github.com/mrolimdev/qsb-teste/internal/quiz"
)

// Profile status values. Deletion is modeled as anonymization because
// the backing store forbids hard deletes for the app role.
const (
	StatusActive     = "active"
	StatusAnonymized = "anonymized"
)

// Access tier values stored in the acesso column.
const (
	AccessBasic   = "0"
	AccessPremium = "1"
)

// Profile is one row per verified email. The nine tipo_N columns are
// either all set (a completed quiz) or all null (no attempt); partial
// rows are not produced but the read path tolerates them.
type Profile struct {
	Email             string    `gorm:"primaryKey" json:"email"`
	Nome              *string   `json:"nome"`
	Acesso            *string   `json:"acesso"`
	Status            string    `gorm:"not null;default:active" json:"status"`
	Personagem        *string   `json:"personagem"`
	Tipos             *int      `json:"tipos"`
	Tipo1             *int      `gorm:"column:tipo_1" json:"tipo_1"`
	Tipo2             *int      `gorm:"column:tipo_2" json:"tipo_2"`
	Tipo3             *int      `gorm:"column:tipo_3" json:"tipo_3"`
	Tipo4             *int      `gorm:"column:tipo_4" json:"tipo_4"`
	Tipo5             *int      `gorm:"column:tipo_5" json:"tipo_5"`
	Tipo6             *int      `gorm:"column:tipo_6" json:"tipo_6"`
	Tipo7             *int      `gorm:"column:tipo_7" json:"tipo_7"`
	Tipo8             *int      `gorm:"column:tipo_8" json:"tipo_8"`
	Tipo9             *int      `gorm:"column:tipo_9" json:"tipo_9"`
	Relatorio         lang.Text `gorm:"type:jsonb" json:"relatorio"`
	SecondaryAnalysis lang.Text `gorm:"type:jsonb;column:secondary_analysis" json:"secondary_analysis"`
	CreatedAt         time.Time `json:"created_at"`
}

func (Profile) TableName() string { return "qsb_profiles" }

// DisplayName returns the stored name or empty.
func (p *Profile) DisplayName() string {
	if p.Nome == nil {
		return ""
	}
	return *p.Nome
}

// IsPremium reports whether the premium tier flag is set.
func (p *Profile) IsPremium() bool {
	return p.Acesso != nil && *p.Acesso == AccessPremium
}

// Tally reconstructs the trait tally from the tipo_N mirror columns.
// tipo_1 is the completion sentinel; when it is null the quiz was never
// finished and ok is false. Other null columns read as zero so a
// damaged partial row cannot break downstream math.
func (p *Profile) Tally() (quiz.Tally, bool) {
	if p.Tipo1 == nil {
		return nil, false
	}
	deref := func(v *int) int {
		if v == nil {
			return 0
		}
		return *v
	}
	t := quiz.NewTally()
	t[quiz.Integro] = deref(p.Tipo1)
	t[quiz.Servo] = deref(p.Tipo2)
	t[quiz.Mordomo] = deref(p.Tipo3)
	t[quiz.Adorador] = deref(p.Tipo4)
	t[quiz.Sabio] = deref(p.Tipo5)
	t[quiz.Fiel] = deref(p.Tipo6)
	t[quiz.Celebrante] = deref(p.Tipo7)
	t[quiz.Protetor] = deref(p.Tipo8)
	t[quiz.Pacificador] = deref(p.Tipo9)
	return t, true
}

// KeyVerse is one scriptural citation attached to a character.
type KeyVerse struct {
	Texto      lang.Text `json:"texto"`
	Referencia lang.Text `json:"referencia"`
}

// RelationshipAnalysis is one relationship note on a character.
type RelationshipAnalysis struct {
	Title lang.Text `json:"title"`
	Text  lang.Text `json:"text"`
}

// Devotional is one daily reflection entry.
type Devotional struct {
	Verse      lang.Text `json:"verse"`
	Reference  lang.Text `json:"reference"`
	Reflection lang.Text `json:"reflection"`
}

// StudyPlanReading is one reading inside a study plan.
type StudyPlanReading struct {
	Reference   lang.Text `json:"reference"`
	Description lang.Text `json:"description"`
}

// StudyPlan is the structured study content of a character.
type StudyPlan struct {
	Readings            []StudyPlanReading `json:"readings"`
	ReflectionQuestions []lang.Text        `json:"reflectionQuestions"`
	Prayer              lang.Text          `json:"prayer"`
}

// jsonb column wrappers for the nested content.

type KeyVerseList []KeyVerse
type RelationshipList []RelationshipAnalysis
type DevotionalList []Devotional
type TextList []lang.Text

func (l KeyVerseList) Value() (driver.Value, error)     { return jsonbValue(l) }
func (l *KeyVerseList) Scan(src any) error              { return jsonbScan(src, l) }
func (l RelationshipList) Value() (driver.Value, error) { return jsonbValue(l) }
func (l *RelationshipList) Scan(src any) error          { return jsonbScan(src, l) }
func (l DevotionalList) Value() (driver.Value, error)   { return jsonbValue(l) }
func (l *DevotionalList) Scan(src any) error            { return jsonbScan(src, l) }
func (l TextList) Value() (driver.Value, error)         { return jsonbValue(l) }
func (l *TextList) Scan(src any) error                  { return jsonbScan(src, l) }

func (p StudyPlan) Value() (driver.Value, error) { return jsonbValue(p) }
func (p *StudyPlan) Scan(src any) error          { return jsonbScan(src, p) }

func jsonbValue(v any) (driver.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func jsonbScan(src, dst any) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	}
	return fmt.Errorf("models: cannot scan %T", src)
}

// Character is one archetype persona. Created and edited by admins,
// read-only to the quiz flow.
type Character struct {
	ID                   string           `gorm:"primaryKey" json:"id"`
	Name                 lang.Text        `gorm:"type:jsonb" json:"name"`
	MainTrait            quiz.Trait       `gorm:"column:main_trait;not null" json:"mainTrait"`
	Tagline              lang.Text        `gorm:"type:jsonb" json:"tagline"`
	ImageURL             string           `gorm:"column:image_url" json:"imageUrl"`
	Tags                 TextList         `gorm:"type:jsonb" json:"tags"`
	Gender               quiz.Gender      `json:"gender"`
	Description          lang.Text        `gorm:"type:jsonb" json:"description"`
	Analysis             lang.Text        `gorm:"type:jsonb" json:"analysis"`
	StrengthsInFaith     lang.Text        `gorm:"type:jsonb;column:strengths_in_faith" json:"strengthsInFaith"`
	AreasForVigilance    lang.Text        `gorm:"type:jsonb;column:areas_for_vigilance" json:"areasForVigilance"`
	KeyVerses            KeyVerseList     `gorm:"type:jsonb;column:key_verses" json:"keyVerses"`
	RelationshipAnalyses RelationshipList `gorm:"type:jsonb;column:relationship_analyses" json:"relationshipAnalyses"`
	DailyDevotionals     DevotionalList   `gorm:"type:jsonb;column:daily_devotionals" json:"dailyDevotionals"`
	StudyPlan            StudyPlan        `gorm:"type:jsonb;column:study_plan" json:"studyPlan"`
	Audio                *string          `json:"audio"`
	CreatedAt            time.Time        `json:"created_at"`
}

func (Character) TableName() string { return "qsb_characters" }

// ConfigEntry is one named value in the read-only configuration table.
type ConfigEntry struct {
	NomeConfig  string `gorm:"primaryKey;column:nomeconfig"`
	ValorConfig string `gorm:"column:valorconfig"`
}

func (ConfigEntry) TableName() string { return "qsb_config" }
