package handlers

import (
	"context"
	"crypto/subtle"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"ai-videos-backend/internal/models"
	"ai-videos-backend/internal/webhook"
)

type Ingestor interface {
	Ingest(ctx context.Context, body []byte) (*webhook.Result, error)
}

type WebhookHandler struct {
	ingestor Ingestor
	secret   string
	logger   *slog.Logger
}

func NewWebhookHandler(ingestor Ingestor, secret string, logger *slog.Logger) *WebhookHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookHandler{
		ingestor: ingestor,
		secret:   secret,
		logger:   logger,
	}
}

// authorized checks the shared secret when one is configured. The provider
// sends it as "Bearer <secret>" or bare.
func (h *WebhookHandler) authorized(header string) bool {
	if h.secret == "" {
		return true
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	return subtle.ConstantTimeCompare([]byte(token), []byte(h.secret)) == 1
}

// HandleLeonardo godoc
// @Summary     Leonardo.AI webhook endpoint
// @Description Receives image_generation.complete callbacks, stores the images and completes the scene
// @Tags        webhooks
// @Accept      json
// @Produce     json
// @Param       Authorization header   string false "Webhook secret, when configured"
// @Success     200           {object} models.WebhookResponse
// @Failure     400           {object} models.ErrorResponse
// @Failure     401           {object} models.ErrorResponse
// @Failure     404           {object} models.ErrorResponse
// @Failure     500           {object} models.ErrorResponse
// @Router      /webhooks/leonardo [post]
func (h *WebhookHandler) HandleLeonardo(c *gin.Context) {
	if !h.authorized(c.GetHeader("Authorization")) {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{
			Message: "Invalid webhook",
			Error:   "invalid authorization token",
		})
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		respondBadRequest(c, "Invalid body", err)
		return
	}

	result, err := h.ingestor.Ingest(c.Request.Context(), body)
	if err != nil {
		status, message := webhookStatus(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("webhook processing failed", "error", err)
		}
		c.JSON(status, models.ErrorResponse{
			Message: message,
			Error:   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, models.WebhookResponse{
		Message: "Webhook received successfully",
		SceneID: result.SceneID,
		Images:  result.Images,
	})
}

func webhookStatus(err error) (int, string) {
	switch {
	case errors.Is(err, webhook.ErrMalformedPayload), errors.Is(err, webhook.ErrNoImages):
		return http.StatusBadRequest, "Invalid body"
	case errors.Is(err, webhook.ErrUnexpectedType):
		return http.StatusBadRequest, "Invalid webhook"
	case errors.Is(err, webhook.ErrUnknownGeneration):
		return http.StatusNotFound, "Scene not found"
	default:
		return http.StatusInternalServerError, "Error processing webhook"
	}
}
