// Package controller coordinates one tab's journey through the app:
// screens, verification, quiz scoring, character resolution and the
// cached narratives. A controller is built per page load and holds no
// durable state, so a reload always lands back on welcome.
package controller

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/mrolimdev/qsb-teste/internal/lang"
	"github.com/mrolimdev/qsb-teste/internal/models"
	"github.com/mrolimdev/qsb-teste/internal/quiz"
	"go.uber.org/zap"
)

type Screen string

const (
	ScreenWelcome Screen = "welcome"
	ScreenEmail   Screen = "email"
	ScreenVerify  Screen = "verify"
	ScreenAskName Screen = "askName"
	ScreenQuiz    Screen = "quiz"
	ScreenResults Screen = "results"
	ScreenGallery Screen = "gallery"
	ScreenAbout   Screen = "about"
	ScreenAdmin   Screen = "admin"
)

// FallbackPrice keeps the payment button rendered when the remote
// config fetch fails at startup.
const FallbackPrice = "49,90"

var (
	ErrWrongScreen = errors.New("controller: action not allowed on this screen")
	ErrNotVerified = errors.New("controller: no verified session")
	ErrNotAdmin    = errors.New("controller: admin access required")
	// ErrStaleResult marks a narrative that finished after a retake or
	// logout invalidated the result it belongs to.
	ErrStaleResult = errors.New("controller: result superseded, narrative discarded")
	ErrNoResult    = errors.New("controller: no quiz result available")
)

// StoreAPI is the slice of the repository the controller touches.
type StoreAPI interface {
	UpdateName(ctx context.Context, email, name string) error
	SaveQuizResult(ctx context.Context, email, characterName string, tally quiz.Tally, narrative lang.Text, tipos int) error
	Characters(ctx context.Context) ([]models.Character, error)
	ConfigValue(ctx context.Context, name string) (string, error)
	GetProfile(ctx context.Context, email string) (*models.Profile, error)
}

// VerifyAPI is the email verification flow.
type VerifyAPI interface {
	SubmitEmail(ctx context.Context, email string) error
	Resend(ctx context.Context) error
	Verify(ctx context.Context, code string) (*models.Profile, error)
	Reset()
}

// NarrativeAPI is the per-language narrative cache.
type NarrativeAPI interface {
	Compatibility(ctx context.Context, profile *models.Profile, language string, character *models.Character, tally quiz.Tally) (string, error)
	SecondaryAnalysis(ctx context.Context, profile *models.Profile, language string, main, secondary, tertiary *models.Character) (string, error)
}

type Controller struct {
	store      StoreAPI
	flow       VerifyAPI
	narratives NarrativeAPI
	rules      quiz.GenderRules
	rng        *rand.Rand
	log        *zap.Logger
	adminEmail string
	priceName  string

	mu        sync.Mutex
	screen    Screen
	returnTo  Screen
	profile   *models.Profile
	tally     quiz.Tally
	character *models.Character
	pool      []models.Character
	price     string
	isAdmin   bool
	language  string
	epoch     int
}

type Options struct {
	AdminEmail      string
	PriceConfigName string
	GenderRules     *quiz.GenderRules
	Rand            *rand.Rand
}

func New(store StoreAPI, flow VerifyAPI, narratives NarrativeAPI, log *zap.Logger, opts Options) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	rules := quiz.DefaultGenderRules()
	if opts.GenderRules != nil {
		rules = *opts.GenderRules
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	priceName := opts.PriceConfigName
	if priceName == "" {
		priceName = "valorpix"
	}
	return &Controller{
		store:      store,
		flow:       flow,
		narratives: narratives,
		rules:      rules,
		rng:        rng,
		log:        log,
		adminEmail: strings.ToLower(strings.TrimSpace(opts.AdminEmail)),
		priceName:  priceName,
		screen:     ScreenWelcome,
		price:      FallbackPrice,
		language:   "pt",
	}
}

// Snapshot is the UI-facing view of the session.
type Snapshot struct {
	Screen    Screen             `json:"screen"`
	Email     string             `json:"email,omitempty"`
	Name      string             `json:"name,omitempty"`
	Premium   bool               `json:"premium"`
	Admin     bool               `json:"admin"`
	Language  string             `json:"language"`
	Price     string             `json:"price"`
	Tally     quiz.Tally         `json:"tally,omitempty"`
	Character *models.Character  `json:"character,omitempty"`
	Pool      []models.Character `json:"pool,omitempty"`
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := Snapshot{
		Screen:    c.screen,
		Admin:     c.isAdmin,
		Language:  c.language,
		Price:     c.price,
		Tally:     c.tally.Clone(),
		Character: c.character,
		Pool:      c.pool,
	}
	if c.profile != nil {
		snap.Email = c.profile.Email
		snap.Name = c.profile.DisplayName()
		snap.Premium = c.profile.IsPremium()
	}
	return snap
}

// Startup fetches the character pool and the display price in parallel.
// Either failure degrades rather than blocking the app: an empty pool
// or the fallback price, with the error logged.
func (c *Controller) Startup(ctx context.Context) {
	var wg sync.WaitGroup
	var pool []models.Character
	var poolErr error
	var price string
	var priceErr error

	wg.Add(2)
	go func() {
		defer wg.Done()
		pool, poolErr = c.store.Characters(ctx)
	}()
	go func() {
		defer wg.Done()
		price, priceErr = c.store.ConfigValue(ctx, c.priceName)
	}()
	wg.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()
	if poolErr != nil {
		c.log.Warn("character pool fetch failed, starting with empty pool", zap.Error(poolErr))
	} else {
		c.pool = pool
	}
	if priceErr != nil {
		c.log.Warn("price config fetch failed, using fallback", zap.Error(priceErr))
	} else if price != "" {
		c.price = price
	}
}

func (c *Controller) SetLanguage(tag string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	base := lang.Base(tag)
	for _, l := range lang.Supported {
		if l == base {
			c.language = base
			return
		}
	}
}

// Start leaves welcome. A fresh controller never has a session, so the
// first start always routes to email; after a verified session exists
// (logout not called), start routes by profile completeness.
func (c *Controller) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.screen != ScreenWelcome {
		return ErrWrongScreen
	}
	if c.profile == nil {
		c.screen = ScreenEmail
		return nil
	}
	c.routeVerifiedLocked()
	return nil
}

// SubmitEmail dispatches the verification code and advances to verify.
// A dispatch failure keeps the user on the email screen.
func (c *Controller) SubmitEmail(ctx context.Context, email string) error {
	c.mu.Lock()
	if c.screen != ScreenEmail {
		c.mu.Unlock()
		return ErrWrongScreen
	}
	c.mu.Unlock()

	if err := c.flow.SubmitEmail(ctx, email); err != nil {
		return err
	}
	c.mu.Lock()
	c.screen = ScreenVerify
	c.mu.Unlock()
	return nil
}

func (c *Controller) ResendCode(ctx context.Context) error {
	return c.flow.Resend(ctx)
}

// VerifyCode adopts the profile on a code match and routes by profile
// state: stored result to results, missing name to askName, otherwise
// straight to the quiz.
func (c *Controller) VerifyCode(ctx context.Context, code string) error {
	c.mu.Lock()
	if c.screen != ScreenVerify {
		c.mu.Unlock()
		return ErrWrongScreen
	}
	c.mu.Unlock()

	profile, err := c.flow.Verify(ctx, code)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.profile = profile
	c.isAdmin = c.adminEmail != "" && profile.Email == c.adminEmail
	c.routeVerifiedLocked()
	return nil
}

// routeVerifiedLocked applies the post-login routing rules.
func (c *Controller) routeVerifiedLocked() {
	if c.loadStoredResultLocked() {
		c.screen = ScreenResults
		return
	}
	if c.profile.DisplayName() == "" {
		c.screen = ScreenAskName
		return
	}
	c.screen = ScreenQuiz
}

// loadStoredResultLocked rebuilds local result state from the profile.
// The stored character name wins over recomputing from tallies; the
// tally recompute is only the fallback when no name reference exists.
func (c *Controller) loadStoredResultLocked() bool {
	tally, done := c.profile.Tally()
	if c.profile.Personagem != nil && *c.profile.Personagem != "" {
		if ch := c.findCharacterLocked(*c.profile.Personagem); ch != nil {
			c.character = ch
			if done {
				c.tally = tally
			}
			return true
		}
	}
	if done {
		idx, ok := quiz.Resolve(tally, c.profile.DisplayName(), poolEntries(c.pool), c.rules, c.rng)
		if !ok {
			return false
		}
		c.tally = tally
		c.character = &c.pool[idx]
		return true
	}
	// oldest rows carry only the main trait number in tipos
	if c.profile.Tipos != nil {
		if tr, ok := quiz.TraitByNumber(*c.profile.Tipos); ok {
			if ch := c.firstByTraitLocked(tr); ch != nil {
				c.character = ch
				return true
			}
		}
	}
	return false
}

func (c *Controller) findCharacterLocked(name string) *models.Character {
	for i := range c.pool {
		for _, l := range lang.Supported {
			if v, ok := c.pool[i].Name.GetStrict(l); ok && strings.EqualFold(v, name) {
				return &c.pool[i]
			}
		}
	}
	return nil
}

func poolEntries(pool []models.Character) []quiz.PoolEntry {
	entries := make([]quiz.PoolEntry, len(pool))
	for i, ch := range pool {
		entries[i] = quiz.PoolEntry{MainTrait: ch.MainTrait, Gender: ch.Gender}
	}
	return entries
}

// SubmitName persists the display name and advances to the quiz.
func (c *Controller) SubmitName(ctx context.Context, name string) error {
	c.mu.Lock()
	if c.screen != ScreenAskName {
		c.mu.Unlock()
		return ErrWrongScreen
	}
	if c.profile == nil {
		c.mu.Unlock()
		return ErrNotVerified
	}
	email := c.profile.Email
	epoch := c.epoch
	c.mu.Unlock()

	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("controller: name is required")
	}
	if err := c.store.UpdateName(ctx, email, name); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// a logout while the write was in flight invalidated the session;
	// the row is updated but the local state must not be resurrected
	if c.profile == nil || c.epoch != epoch {
		return ErrStaleResult
	}
	c.profile.Nome = &name
	c.screen = ScreenQuiz
	return nil
}

// CompleteQuiz scores the answers, resolves the character and persists
// the result with both narrative caches cleared. The persisted row is
// last-write-wins on purpose; an in-flight narrative for the previous
// attempt is discarded locally through the epoch guard.
func (c *Controller) CompleteQuiz(ctx context.Context, answers []quiz.Answer) error {
	c.mu.Lock()
	if c.screen != ScreenQuiz {
		c.mu.Unlock()
		return ErrWrongScreen
	}
	if c.profile == nil {
		c.mu.Unlock()
		return ErrNotVerified
	}

	tally := quiz.Score(answers)
	idx, ok := quiz.Resolve(tally, c.profile.DisplayName(), poolEntries(c.pool), c.rules, c.rng)
	if !ok {
		c.mu.Unlock()
		return errors.New("controller: character pool is empty")
	}
	resolved := &c.pool[idx]
	email := c.profile.Email
	charName := resolved.Name.Get("pt")
	epoch := c.epoch
	c.mu.Unlock()

	if err := c.store.SaveQuizResult(ctx, email, charName, tally, lang.Text{}, resolved.MainTrait.Number()); err != nil {
		return fmt.Errorf("persist quiz result: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// a logout (or any other supersession) during the save wins: the
	// result row is written, the local session stays cleared
	if c.profile == nil || c.epoch != epoch {
		return ErrStaleResult
	}
	c.tally = tally
	c.character = resolved
	c.epoch++
	c.profile.Personagem = &charName
	c.profile.Relatorio = lang.Text{}
	c.profile.SecondaryAnalysis = lang.Text{}
	applyTallyColumns(c.profile, tally)
	tipos := resolved.MainTrait.Number()
	c.profile.Tipos = &tipos
	c.screen = ScreenResults
	return nil
}

func applyTallyColumns(p *models.Profile, t quiz.Tally) {
	v := func(tr quiz.Trait) *int { n := t[tr]; return &n }
	p.Tipo1, p.Tipo2, p.Tipo3 = v(quiz.Integro), v(quiz.Servo), v(quiz.Mordomo)
	p.Tipo4, p.Tipo5, p.Tipo6 = v(quiz.Adorador), v(quiz.Sabio), v(quiz.Fiel)
	p.Tipo7, p.Tipo8, p.Tipo9 = v(quiz.Celebrante), v(quiz.Protetor), v(quiz.Pacificador)
}

// Retake clears the local result only and bumps the epoch so late
// narrative completions for the old result are discarded. The remote
// row is rewritten when the new attempt completes.
func (c *Controller) Retake() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.screen != ScreenResults {
		return ErrWrongScreen
	}
	c.tally = nil
	c.character = nil
	c.epoch++
	c.screen = ScreenQuiz
	return nil
}

// Logout clears every piece of local session state.
func (c *Controller) Logout() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.flow.Reset()
	c.profile = nil
	c.tally = nil
	c.character = nil
	c.isAdmin = false
	c.epoch++
	c.screen = ScreenWelcome
}

// ShowGallery and ShowAbout are overlays; Back returns to the screen
// they were opened from.
func (c *Controller) ShowGallery() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.screen != ScreenGallery && c.screen != ScreenAbout {
		c.returnTo = c.screen
	}
	c.screen = ScreenGallery
}

func (c *Controller) ShowAbout() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.screen != ScreenGallery && c.screen != ScreenAbout {
		c.returnTo = c.screen
	}
	c.screen = ScreenAbout
}

func (c *Controller) Back() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.screen == ScreenGallery || c.screen == ScreenAbout || c.screen == ScreenAdmin {
		if c.returnTo != "" {
			c.screen = c.returnTo
		} else {
			c.screen = ScreenWelcome
		}
	}
}

// OpenAdmin is only reachable with the admin flag set.
func (c *Controller) OpenAdmin() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.isAdmin {
		return ErrNotAdmin
	}
	c.returnTo = c.screen
	c.screen = ScreenAdmin
	return nil
}

// Compatibility returns the compatibility narrative for the active
// language, generating it on first request. A result superseded while
// the call was in flight is discarded.
func (c *Controller) Compatibility(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.profile == nil {
		c.mu.Unlock()
		return "", ErrNotVerified
	}
	if c.character == nil || c.tally == nil {
		c.mu.Unlock()
		return "", ErrNoResult
	}
	profile, language, character, tally := c.profile, c.language, c.character, c.tally.Clone()
	epoch := c.epoch
	c.mu.Unlock()

	text, err := c.narratives.Compatibility(ctx, profile, language, character, tally)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch {
		return "", ErrStaleResult
	}
	return text, nil
}

// SecondaryAnalysis returns the secondary-traits narrative for the
// active language. The secondary and tertiary personas come from the
// pool's first character for each of the runner-up traits.
func (c *Controller) SecondaryAnalysis(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.profile == nil {
		c.mu.Unlock()
		return "", ErrNotVerified
	}
	if c.character == nil || c.tally == nil {
		c.mu.Unlock()
		return "", ErrNoResult
	}
	profile, language, main := c.profile, c.language, c.character
	ranked := c.tally.Ranked()
	var secondary, tertiary *models.Character
	if len(ranked) > 1 {
		secondary = c.firstByTraitLocked(ranked[1])
	}
	if len(ranked) > 2 {
		tertiary = c.firstByTraitLocked(ranked[2])
	}
	epoch := c.epoch
	c.mu.Unlock()

	text, err := c.narratives.SecondaryAnalysis(ctx, profile, language, main, secondary, tertiary)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch {
		return "", ErrStaleResult
	}
	return text, nil
}

func (c *Controller) firstByTraitLocked(tr quiz.Trait) *models.Character {
	for i := range c.pool {
		if c.pool[i].MainTrait == tr {
			return &c.pool[i]
		}
	}
	return nil
}

// RefreshProfile reloads the profile row, used after a settled payment
// to pick up the new access tier.
func (c *Controller) RefreshProfile(ctx context.Context) error {
	c.mu.Lock()
	if c.profile == nil {
		c.mu.Unlock()
		return ErrNotVerified
	}
	email := c.profile.Email
	c.mu.Unlock()

	fresh, err := c.store.GetProfile(ctx, email)
	if err != nil {
		return err
	}
	if fresh == nil {
		return fmt.Errorf("controller: profile %q disappeared", email)
	}

	c.mu.Lock()
	c.profile = fresh
	c.mu.Unlock()
	return nil
}

// Profile exposes the current profile for the HTTP layer.
func (c *Controller) Profile() *models.Profile {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.profile
}

// Result returns the resolved character and tally, when present.
func (c *Controller) Result() (*models.Character, quiz.Tally, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.character == nil || c.tally == nil {
		return nil, nil, false
	}
	return c.character, c.tally.Clone(), true
}

// IsAdmin reports the admin flag for the verified email.
func (c *Controller) IsAdmin() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isAdmin
}

// Language returns the active language tag.
func (c *Controller) Language() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.language
}

// Price returns the configured display price.
func (c *Controller) Price() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.price
}
