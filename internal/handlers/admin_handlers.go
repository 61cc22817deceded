package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mrolimdev/qsb-teste/internal/models"
	"github.com/mrolimdev/qsb-teste/internal/quiz"
)

// ListUsersHandler returns every active profile, newest first.
// Anonymized rows are excluded.
func (h *Handler) ListUsersHandler(c *gin.Context) {
	profiles, err := h.Store.ListActiveProfiles(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not list users"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": profiles})
}

// AnonymizeUserHandler is the GDPR-style soft delete.
func (h *Handler) AnonymizeUserHandler(c *gin.Context) {
	email := c.Param("email")
	if err := h.Store.AnonymizeProfile(c.Request.Context(), email); err != nil {
		h.Log.Warn("anonymize failed", zap.String("email", email), zap.Error(err))
		c.JSON(http.StatusNotFound, gin.H{"error": "Could not anonymize the user"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User anonymized"})
}

// GrantAccessHandler manually flips a profile to the premium tier.
func (h *Handler) GrantAccessHandler(c *gin.Context) {
	email := c.Param("email")
	if err := h.Store.GrantPremium(c.Request.Context(), email); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not grant access"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Access granted"})
}

// UpsertCharacterHandler creates or fully replaces a character record.
func (h *Handler) UpsertCharacterHandler(c *gin.Context) {
	var ch models.Character
	if err := c.ShouldBindJSON(&ch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid character payload"})
		return
	}
	if !ch.MainTrait.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: unknown main trait"})
		return
	}
	if ch.ID == "" {
		ch.ID = uuid.NewString()
	}
	if err := h.Store.UpsertCharacter(c.Request.Context(), &ch); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not save the character"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"character": ch})
}

func (h *Handler) DeleteCharacterHandler(c *gin.Context) {
	if err := h.Store.DeleteCharacter(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not delete the character"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Character deleted"})
}

// GenerateCharacterHandler drafts a full character record with the AI
// service. The draft is returned for review, not persisted.
func (h *Handler) GenerateCharacterHandler(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: name is required"})
		return
	}
	ch, err := h.AIService.GenerateCharacterProfile(c.Request.Context(), req.Name)
	if err != nil {
		h.Log.Warn("character generation failed", zap.String("name", req.Name), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Could not generate the character profile"})
		return
	}
	ch.ID = uuid.NewString()
	c.JSON(http.StatusOK, gin.H{"character": ch})
}

// SuggestCharacterNameHandler asks the AI for one biblical name not
// already in the pool, optionally constrained by gender.
func (h *Handler) SuggestCharacterNameHandler(c *gin.Context) {
	var req struct {
		Gender string `json:"gender"`
	}
	_ = c.ShouldBindJSON(&req)

	characters, err := h.Store.Characters(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not load the character pool"})
		return
	}
	var names []string
	for _, ch := range characters {
		names = append(names, ch.Name.Get("pt"))
	}

	suggestion, err := h.AIService.SuggestCharacterName(c.Request.Context(), names, quiz.Gender(strings.ToLower(req.Gender)))
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Could not suggest a name"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sugestao": suggestion})
}
