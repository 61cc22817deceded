// Package handlers is the gin surface. Each browser tab gets its own
// server-side session (controller, verification flow, payment session)
// addressed by a uuid; the registry is in-memory on purpose, so a
// process restart logs everyone out just like a page reload does.
package handlers

import (
	"errors"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mrolimdev/qsb-teste/internal/ai"
	"github.com/mrolimdev/qsb-teste/internal/controller"
	"github.com/mrolimdev/qsb-teste/internal/middleware"
	"github.com/mrolimdev/qsb-teste/internal/narrative"
	"github.com/mrolimdev/qsb-teste/internal/notify"
	"github.com/mrolimdev/qsb-teste/internal/payment"
	"github.com/mrolimdev/qsb-teste/internal/quiz"
	"github.com/mrolimdev/qsb-teste/internal/report"
	"github.com/mrolimdev/qsb-teste/internal/store"
	"github.com/mrolimdev/qsb-teste/internal/verify"
)

type session struct {
	ctrl *controller.Controller

	mu  sync.Mutex
	pay *payment.Session
}

type Handler struct {
	Store      *store.Store
	AIService  *ai.Service
	Narratives *narrative.Cache
	Dispatcher *notify.Dispatcher
	Gateway    *payment.Gateway
	Reports    *report.Builder
	Log        *zap.Logger

	JWTSecret  string
	AdminEmail string
	PaymentCfg payment.Config

	mu       sync.Mutex
	sessions map[string]*session
}

func New(st *store.Store, aiService *ai.Service, dispatcher *notify.Dispatcher, gateway *payment.Gateway, log *zap.Logger, jwtSecret, adminEmail string) *Handler {
	return &Handler{
		Store:      st,
		AIService:  aiService,
		Narratives: narrative.NewCache(aiService, st),
		Dispatcher: dispatcher,
		Gateway:    gateway,
		Reports:    report.NewBuilder(),
		Log:        log,
		JWTSecret:  jwtSecret,
		AdminEmail: adminEmail,
		sessions:   make(map[string]*session),
	}
}

func (h *Handler) session(c *gin.Context) (*session, bool) {
	h.mu.Lock()
	s, ok := h.sessions[c.Param("sid")]
	h.mu.Unlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return nil, false
	}
	return s, true
}

// CreateSessionHandler opens a new tab session and runs the parallel
// startup fetch. The snapshot is returned along with the session id.
func (h *Handler) CreateSessionHandler(c *gin.Context) {
	flow := verify.NewFlow(h.Dispatcher, h.Store)
	ctrl := controller.New(h.Store, flow, h.Narratives, h.Log, controller.Options{
		AdminEmail: h.AdminEmail,
	})
	ctrl.Startup(c.Request.Context())

	id := uuid.NewString()
	h.mu.Lock()
	h.sessions[id] = &session{ctrl: ctrl}
	h.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"session_id": id, "state": ctrl.Snapshot()})
}

func (h *Handler) SessionStateHandler(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.ctrl.Snapshot())
}

// LogoutHandler clears the session server-side. The registry entry is
// removed entirely; the uuid cannot be reused.
func (h *Handler) LogoutHandler(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	s.ctrl.Logout()
	h.mu.Lock()
	delete(h.sessions, c.Param("sid"))
	h.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

func (h *Handler) StartHandler(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	if err := s.ctrl.Start(); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, s.ctrl.Snapshot())
}

func (h *Handler) SetLanguageHandler(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req struct {
		Language string `json:"language" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: language is required"})
		return
	}
	s.ctrl.SetLanguage(req.Language)
	c.JSON(http.StatusOK, s.ctrl.Snapshot())
}

func (h *Handler) SubmitEmailHandler(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: a valid email is required"})
		return
	}
	if err := s.ctrl.SubmitEmail(c.Request.Context(), req.Email); err != nil {
		if errors.Is(err, controller.ErrWrongScreen) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "Could not send verification code"})
		return
	}
	c.JSON(http.StatusOK, s.ctrl.Snapshot())
}

func (h *Handler) ResendCodeHandler(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	if err := s.ctrl.ResendCode(c.Request.Context()); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Could not resend verification code"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Code sent"})
}

// VerifyCodeHandler checks the submitted code. On success the response
// carries a signed session token for the authenticated routes.
func (h *Handler) VerifyCodeHandler(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req struct {
		Code string `json:"code" binding:"required,len=6"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: a 6-digit code is required"})
		return
	}
	if err := s.ctrl.VerifyCode(c.Request.Context(), req.Code); err != nil {
		switch {
		case errors.Is(err, verify.ErrInvalidCode):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Incorrect code"})
		case errors.Is(err, verify.ErrNoPendingCode):
			c.JSON(http.StatusConflict, gin.H{"error": "No code was sent for this session"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not verify code"})
		}
		return
	}

	profile := s.ctrl.Profile()
	token, err := middleware.IssueToken(h.JWTSecret, profile.Email, s.ctrl.IsAdmin())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not issue session token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "state": s.ctrl.Snapshot()})
}

func (h *Handler) SubmitNameHandler(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: name is required"})
		return
	}
	if err := s.ctrl.SubmitName(c.Request.Context(), req.Name); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, s.ctrl.Snapshot())
}

// QuestionsHandler returns the question bank, shuffled for a quiz
// attempt unless ordered=true is requested.
func (h *Handler) QuestionsHandler(c *gin.Context) {
	questions := quiz.Questions()
	if c.Query("ordered") != "true" {
		questions = quiz.Shuffle(questions, rand.New(rand.NewSource(time.Now().UnixNano())))
	}
	c.JSON(http.StatusOK, gin.H{"questions": questions})
}

// SubmitQuizHandler scores a full answer sheet and resolves the result.
func (h *Handler) SubmitQuizHandler(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req struct {
		Answers []string `json:"answers" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Answers) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: answers are required"})
		return
	}
	answers := make([]quiz.Answer, len(req.Answers))
	for i, a := range req.Answers {
		answers[i] = quiz.Answer{Trait: quiz.Trait(a)}
	}
	if err := s.ctrl.CompleteQuiz(c.Request.Context(), answers); err != nil {
		if errors.Is(err, controller.ErrWrongScreen) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not save quiz result"})
		return
	}
	c.JSON(http.StatusOK, s.ctrl.Snapshot())
}

func (h *Handler) RetakeHandler(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	if err := s.ctrl.Retake(); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, s.ctrl.Snapshot())
}

// CompatibilityHandler serves the compatibility narrative for the
// session's active language, generating it on first request.
func (h *Handler) CompatibilityHandler(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	text, err := s.ctrl.Compatibility(c.Request.Context())
	if err != nil {
		h.narrativeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"text": text})
}

func (h *Handler) SecondaryAnalysisHandler(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	text, err := s.ctrl.SecondaryAnalysis(c.Request.Context())
	if err != nil {
		h.narrativeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"text": text})
}

func (h *Handler) narrativeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, controller.ErrStaleResult):
		c.JSON(http.StatusGone, gin.H{"error": "Result was superseded"})
	case errors.Is(err, controller.ErrNoResult), errors.Is(err, controller.ErrNotVerified):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, ai.ErrTimeout):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "The analysis took too long, please try again"})
	default:
		h.Log.Warn("narrative generation failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Could not generate the analysis"})
	}
}

// SendReportHandler renders the report document in the active language
// and dispatches it to the report webhook.
func (h *Handler) SendReportHandler(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	profile := s.ctrl.Profile()
	if profile == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "No verified session"})
		return
	}
	character, tally, found := s.ctrl.Result()
	if !found {
		c.JSON(http.StatusConflict, gin.H{"error": "No quiz result to report"})
		return
	}

	language := s.ctrl.Language()
	compat, _ := profile.Relatorio.GetStrict(language)
	secondary, _ := profile.SecondaryAnalysis.GetStrict(language)

	html, err := h.Reports.Build(report.Input{
		Character:     character,
		UserName:      profile.DisplayName(),
		Language:      language,
		Tally:         tally,
		Compatibility: compat,
		Secondary:     secondary,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not build the report"})
		return
	}
	if err := h.Dispatcher.SendReport(c.Request.Context(), profile.Email, language, html); err != nil {
		h.Log.Warn("report dispatch failed", zap.String("email", profile.Email), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Could not send the report"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Report sent"})
}

// CharactersHandler is the public gallery listing.
func (h *Handler) CharactersHandler(c *gin.Context) {
	characters, err := h.Store.Characters(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not load characters"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"characters": characters})
}
