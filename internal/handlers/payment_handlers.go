package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mrolimdev/qsb-teste/internal/payment"
)

// OpenPaymentHandler creates (or retries) the payment session for the
// verified email, priced from the remote config value. Settlement
// grants the premium tier and resyncs the session profile.
func (h *Handler) OpenPaymentHandler(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	profile := s.ctrl.Profile()
	if profile == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "No verified session"})
		return
	}

	amountCents, err := payment.ParseAmountCents(s.ctrl.Price())
	if err != nil {
		h.Log.Error("configured price is malformed", zap.String("price", s.ctrl.Price()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Payment is misconfigured"})
		return
	}

	email := profile.Email
	ctrl := s.ctrl
	s.mu.Lock()
	if s.pay != nil && s.pay.Snapshot().State == payment.StateClosed {
		s.pay = nil
	}
	if s.pay == nil {
		s.pay = payment.NewSession(h.Gateway, email, amountCents, func(ctx context.Context) error {
			if err := h.Store.GrantPremium(ctx, email); err != nil {
				return err
			}
			return ctrl.RefreshProfile(ctx)
		}, h.PaymentCfg, h.Log)
	}
	pay := s.pay
	s.mu.Unlock()

	if err := pay.Open(c.Request.Context()); err != nil {
		if errors.Is(err, payment.ErrWrongState) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "Could not create the PIX charge", "state": pay.Snapshot()})
		return
	}
	c.JSON(http.StatusOK, pay.Snapshot())
}

func (h *Handler) paymentSession(c *gin.Context) (*payment.Session, bool) {
	s, ok := h.session(c)
	if !ok {
		return nil, false
	}
	s.mu.Lock()
	pay := s.pay
	s.mu.Unlock()
	if pay == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "No payment session open"})
		return nil, false
	}
	return pay, true
}

func (h *Handler) PaymentStateHandler(c *gin.Context) {
	pay, ok := h.paymentSession(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, pay.Snapshot())
}

// PaymentCheckHandler runs the user-triggered status check.
func (h *Handler) PaymentCheckHandler(c *gin.Context) {
	pay, ok := h.paymentSession(c)
	if !ok {
		return
	}
	if err := pay.ManualCheck(c.Request.Context()); err != nil {
		switch {
		case errors.Is(err, payment.ErrCheckInProgress):
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "A check is already running"})
		case errors.Is(err, payment.ErrWrongState):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusBadGateway, gin.H{"error": "Could not check the payment status"})
		}
		return
	}
	c.JSON(http.StatusOK, pay.Snapshot())
}

func (h *Handler) PaymentCloseHandler(c *gin.Context) {
	pay, ok := h.paymentSession(c)
	if !ok {
		return
	}
	if err := pay.Close(); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "The payment window cannot be closed right now"})
		return
	}
	c.JSON(http.StatusOK, pay.Snapshot())
}

// PaymentAcknowledgeHandler is the explicit exit from the paid state.
func (h *Handler) PaymentAcknowledgeHandler(c *gin.Context) {
	pay, ok := h.paymentSession(c)
	if !ok {
		return
	}
	if err := pay.Acknowledge(); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, pay.Snapshot())
}
