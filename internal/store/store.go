// Package store is the gorm-backed profile and character repository.
// Every write is a blind partial update on purpose: the product accepts
// last-write-wins on a profile row (see the retake/narrative note in
// the controller).
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mrolimdev/qsb-teste/internal/lang"
	"github.com/mrolimdev/qsb-teste/internal/models"
	"github.com/mrolimdev/qsb-teste/internal/quiz"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PriceConfigName is the config row holding the payment display price.
const PriceConfigName = "valorpix"

// AnonymizedName replaces the display name of an anonymized profile.
const AnonymizedName = "Usuário Excluído"

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store { return &Store{db: db} }

// EmailKey normalizes an email into the store key form.
func EmailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// GetProfile returns the profile for an email, or nil when none exists.
func (s *Store) GetProfile(ctx context.Context, email string) (*models.Profile, error) {
	var p models.Profile
	err := s.db.WithContext(ctx).Where("email = ?", EmailKey(email)).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &p, nil
}

// UpsertProfile returns the existing profile or creates a fresh one
// with the basic access tier.
func (s *Store) UpsertProfile(ctx context.Context, email string) (*models.Profile, error) {
	if p, err := s.GetProfile(ctx, email); err != nil || p != nil {
		return p, err
	}
	basic := models.AccessBasic
	p := models.Profile{
		Email:  EmailKey(email),
		Acesso: &basic,
		Status: models.StatusActive,
	}
	if err := s.db.WithContext(ctx).Create(&p).Error; err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}
	return &p, nil
}

// UpdateName sets the display name, leaving everything else untouched.
func (s *Store) UpdateName(ctx context.Context, email, name string) error {
	err := s.db.WithContext(ctx).Model(&models.Profile{}).
		Where("email = ?", EmailKey(email)).
		Update("nome", name).Error
	if err != nil {
		return fmt.Errorf("update name: %w", err)
	}
	return nil
}

// SaveQuizResult writes the nine tally mirrors, the resolved character
// name and trait number. When no narrative is supplied this is a fresh
// result (or a retake) and both cached narratives are cleared.
func (s *Store) SaveQuizResult(ctx context.Context, email, characterName string, tally quiz.Tally, narrative lang.Text, tipos int) error {
	updates := map[string]any{
		"personagem": characterName,
		"tipos":      tipos,
		"tipo_1":     tally[quiz.Integro],
		"tipo_2":     tally[quiz.Servo],
		"tipo_3":     tally[quiz.Mordomo],
		"tipo_4":     tally[quiz.Adorador],
		"tipo_5":     tally[quiz.Sabio],
		"tipo_6":     tally[quiz.Fiel],
		"tipo_7":     tally[quiz.Celebrante],
		"tipo_8":     tally[quiz.Protetor],
		"tipo_9":     tally[quiz.Pacificador],
	}
	if narrative.IsZero() {
		updates["relatorio"] = nil
		updates["secondary_analysis"] = nil
	} else {
		updates["relatorio"] = narrative
	}

	err := s.db.WithContext(ctx).Model(&models.Profile{}).
		Where("email = ?", EmailKey(email)).
		Updates(updates).Error
	if err != nil {
		return fmt.Errorf("save quiz result: %w", err)
	}
	return nil
}

// SaveCompatibility persists the merged compatibility narrative only.
func (s *Store) SaveCompatibility(ctx context.Context, email string, merged lang.Text) error {
	err := s.db.WithContext(ctx).Model(&models.Profile{}).
		Where("email = ?", EmailKey(email)).
		Update("relatorio", merged).Error
	if err != nil {
		return fmt.Errorf("save compatibility narrative: %w", err)
	}
	return nil
}

// SaveSecondaryAnalysis persists the merged secondary-traits narrative only.
func (s *Store) SaveSecondaryAnalysis(ctx context.Context, email string, merged lang.Text) error {
	err := s.db.WithContext(ctx).Model(&models.Profile{}).
		Where("email = ?", EmailKey(email)).
		Update("secondary_analysis", merged).Error
	if err != nil {
		return fmt.Errorf("save secondary analysis: %w", err)
	}
	return nil
}

// GrantPremium flips the access tier, creating the profile if needed so
// a settled payment can never be lost to a missing row.
func (s *Store) GrantPremium(ctx context.Context, email string) error {
	premium := models.AccessPremium
	p := models.Profile{
		Email:  EmailKey(email),
		Acesso: &premium,
		Status: models.StatusActive,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoUpdates: clause.Assignments(map[string]any{"acesso": models.AccessPremium}),
	}).Create(&p).Error
	if err != nil {
		return fmt.Errorf("grant premium: %w", err)
	}
	return nil
}

// ListActiveProfiles returns every non-anonymized profile, newest first.
func (s *Store) ListActiveProfiles(ctx context.Context) ([]models.Profile, error) {
	var out []models.Profile
	err := s.db.WithContext(ctx).
		Where("status = ?", models.StatusActive).
		Order("created_at desc").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	return out, nil
}

// AnonymizeProfile is the soft delete: the row survives with a
// namespaced email placeholder, an explicit anonymized status, and all
// content fields nulled.
func (s *Store) AnonymizeProfile(ctx context.Context, email string) error {
	updates := map[string]any{
		"email":              fmt.Sprintf("deleted_%d_%s", time.Now().Unix(), EmailKey(email)),
		"status":             models.StatusAnonymized,
		"nome":               AnonymizedName,
		"acesso":             nil,
		"personagem":         nil,
		"relatorio":          nil,
		"secondary_analysis": nil,
		"tipos":              nil,
		"tipo_1":             nil, "tipo_2": nil, "tipo_3": nil,
		"tipo_4": nil, "tipo_5": nil, "tipo_6": nil,
		"tipo_7": nil, "tipo_8": nil, "tipo_9": nil,
	}
	res := s.db.WithContext(ctx).Model(&models.Profile{}).
		Where("email = ?", EmailKey(email)).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("anonymize profile: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("anonymize profile: no row for %q", email)
	}
	return nil
}

// Characters returns the full character pool.
func (s *Store) Characters(ctx context.Context) ([]models.Character, error) {
	var out []models.Character
	if err := s.db.WithContext(ctx).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list characters: %w", err)
	}
	return out, nil
}

// UpsertCharacter creates or fully replaces a character record.
func (s *Store) UpsertCharacter(ctx context.Context, c *models.Character) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(c).Error
	if err != nil {
		return fmt.Errorf("upsert character: %w", err)
	}
	return nil
}

// DeleteCharacter removes a character record.
func (s *Store) DeleteCharacter(ctx context.Context, id string) error {
	err := s.db.WithContext(ctx).Delete(&models.Character{}, "id = ?", id).Error
	if err != nil {
		return fmt.Errorf("delete character: %w", err)
	}
	return nil
}

// ConfigValue looks up one named configuration value. A missing row is
// not an error; callers fall back to their defaults.
func (s *Store) ConfigValue(ctx context.Context, name string) (string, error) {
	var entry models.ConfigEntry
	err := s.db.WithContext(ctx).Where("nomeconfig = ?", name).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("config value %s: %w", name, err)
	}
	return entry.ValorConfig, nil
}
