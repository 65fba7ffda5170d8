package server

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	billingdomain "github.com/quantica-hq/billing/internal/billing/domain"
)

type createCheckoutRequest struct {
	Provider   string            `json:"provider"`
	AmountCent int64             `json:"amount_cents"`
	Currency   string            `json:"currency"`
	UserID     string            `json:"user_id"`
	Tier       string            `json:"tier"`
	Metadata   map[string]string `json:"metadata"`
	ReturnURL  string            `json:"return_url"`
	CancelURL  string            `json:"cancel_url"`
}

type settlePaymentRequest struct {
	Reference  string `json:"reference"`
	UsageLimit *int64 `json:"usage_limit"`
}

type failPaymentRequest struct {
	Reason string `json:"reason"`
}

type validateKeyRequest struct {
	APIKey string `json:"api_key"`
}

func (s *Server) ListProviders(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"providers": s.billingSvc.Providers(c.Request.Context())})
}

func (s *Server) CreateCheckout(c *gin.Context) {
	var req createCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	provider, ok := billingdomain.ParseProviderKind(req.Provider)
	if !ok {
		AbortWithError(c, billingdomain.ErrProviderUnavailable(req.Provider))
		return
	}
	tier, ok := billingdomain.ParseTier(req.Tier)
	if !ok {
		AbortWithError(c, billingdomain.ErrValidation("unknown tier "+req.Tier))
		return
	}

	intent, err := s.billingSvc.CreateCheckout(c.Request.Context(), billingdomain.CheckoutRequest{
		Provider:   provider,
		AmountCent: req.AmountCent,
		Currency:   strings.TrimSpace(req.Currency),
		UserID:     strings.TrimSpace(req.UserID),
		Tier:       tier,
		Metadata:   req.Metadata,
		ReturnURL:  req.ReturnURL,
		CancelURL:  req.CancelURL,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, intent)
}

func (s *Server) SettlePayment(c *gin.Context) {
	var req settlePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	issued, err := s.billingSvc.SettlePayment(c.Request.Context(), c.Param("id"), req.Reference, req.UsageLimit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	// The plaintext key appears in this response and nowhere else.
	c.JSON(http.StatusOK, issued)
}

func (s *Server) MarkPaymentFailed(c *gin.Context) {
	var req failPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if err := s.billingSvc.MarkPaymentFailed(c.Request.Context(), c.Param("id"), req.Reason); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "failed"})
}

func (s *Server) ValidateAPIKey(c *gin.Context) {
	var req validateKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	record, err := s.billingSvc.ValidateAPIKey(c.Request.Context(), req.APIKey)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

func (s *Server) RevokeAPIKey(c *gin.Context) {
	record, err := s.billingSvc.RevokeAPIKey(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

func (s *Server) ListState(c *gin.Context) {
	state, err := s.billingSvc.ListState(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, state)
}

// HandleProviderWebhook verifies the provider signature and acknowledges
// the event. Settlement stays an explicit API call; the stub processors
// produce no events worth acting on.
func (s *Server) HandleProviderWebhook(c *gin.Context) {
	provider, ok := billingdomain.ParseProviderKind(c.Param("provider"))
	if !ok {
		AbortWithError(c, billingdomain.ErrProviderUnavailable(c.Param("provider")))
		return
	}

	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	signature := strings.TrimSpace(c.GetHeader("X-Webhook-Signature"))
	valid, err := s.billingSvc.ValidateWebhookSignature(c.Request.Context(), provider, signature, payload)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if !valid {
		AbortWithError(c, billingdomain.ErrValidation("invalid webhook signature"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
