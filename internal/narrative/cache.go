// Package narrative caches AI-generated text per profile and language.
// Generation happens at most once per (profile, narrative, language);
// switching back to an already-generated language is a pure read.
package narrative

import (
	"context"
	"fmt"
	"sync"

	"github.com/mrolimdev/qsb-teste/internal/lang"
	"github.com/mrolimdev/qsb-teste/internal/models"
	"github.com/mrolimdev/qsb-teste/internal/quiz"
)

// Generator produces the two profile narratives.
type Generator interface {
	GenerateCompatibility(ctx context.Context, character *models.Character, tally quiz.Tally, userName string) (lang.Text, error)
	GenerateSecondaryAnalysis(ctx context.Context, userName string, main, secondary, tertiary *models.Character) (lang.Text, error)
}

// ProfileStore persists a merged narrative column.
type ProfileStore interface {
	SaveCompatibility(ctx context.Context, email string, merged lang.Text) error
	SaveSecondaryAnalysis(ctx context.Context, email string, merged lang.Text) error
}

type Cache struct {
	gen   Generator
	store ProfileStore

	mu       sync.Mutex
	inFlight map[string]*call
}

type call struct {
	done chan struct{}
	text string
	err  error
}

func NewCache(gen Generator, store ProfileStore) *Cache {
	return &Cache{gen: gen, store: store, inFlight: make(map[string]*call)}
}

// Compatibility returns the compatibility narrative for one language,
// generating and persisting it on a cache miss. The profile's cached
// column is updated in place so later lookups hit without a reload.
func (c *Cache) Compatibility(ctx context.Context, profile *models.Profile, language string, character *models.Character, tally quiz.Tally) (string, error) {
	base := lang.Base(language)
	if cached, ok := profile.Relatorio.GetStrict(base); ok {
		return cached, nil
	}
	key := "compat/" + profile.Email + "/" + base
	return c.once(ctx, key, func(ctx context.Context) (string, error) {
		generated, err := c.gen.GenerateCompatibility(ctx, character, tally, profile.DisplayName())
		if err != nil {
			return "", err
		}
		merged := profile.Relatorio.Merge(generated)
		if err := c.store.SaveCompatibility(ctx, profile.Email, merged); err != nil {
			return "", fmt.Errorf("persist compatibility: %w", err)
		}
		profile.Relatorio = merged
		return merged.Get(base), nil
	})
}

// SecondaryAnalysis is the per-language cache for the secondary-traits
// narrative. Secondary and tertiary characters may be nil.
func (c *Cache) SecondaryAnalysis(ctx context.Context, profile *models.Profile, language string, main, secondary, tertiary *models.Character) (string, error) {
	base := lang.Base(language)
	if cached, ok := profile.SecondaryAnalysis.GetStrict(base); ok {
		return cached, nil
	}
	key := "secondary/" + profile.Email + "/" + base
	return c.once(ctx, key, func(ctx context.Context) (string, error) {
		generated, err := c.gen.GenerateSecondaryAnalysis(ctx, profile.DisplayName(), main, secondary, tertiary)
		if err != nil {
			return "", err
		}
		merged := profile.SecondaryAnalysis.Merge(generated)
		if err := c.store.SaveSecondaryAnalysis(ctx, profile.Email, merged); err != nil {
			return "", fmt.Errorf("persist secondary analysis: %w", err)
		}
		profile.SecondaryAnalysis = merged
		return merged.Get(base), nil
	})
}

// once collapses concurrent requests for the same key into a single
// generation. Failed calls are not cached so a retry can regenerate.
func (c *Cache) once(ctx context.Context, key string, fn func(ctx context.Context) (string, error)) (string, error) {
	c.mu.Lock()
	if existing, ok := c.inFlight[key]; ok {
		c.mu.Unlock()
		select {
		case <-existing.done:
			return existing.text, existing.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	cl := &call{done: make(chan struct{})}
	c.inFlight[key] = cl
	c.mu.Unlock()

	cl.text, cl.err = fn(ctx)
	close(cl.done)

	c.mu.Lock()
	delete(c.inFlight, key)
	c.mu.Unlock()
	return cl.text, cl.err
}
