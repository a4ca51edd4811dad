package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/voxlate/voxlate/domain/entities"
	"github.com/voxlate/voxlate/internal/gateway"
	"github.com/voxlate/voxlate/usecase"
)

// InitRoutes initializes all API routes
func InitRoutes(
	e *echo.Echo,
	gw *gateway.Gateway,
	conversations *usecase.ConversationService,
	texts *usecase.TextService,
	logger *zap.Logger,
) {
	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "voxlate",
		})
	})

	v1 := e.Group("/api/v1")

	// Voice catalog
	v1.GET("/voices", func(c echo.Context) error {
		return c.JSON(http.StatusOK, entities.Personas())
	})

	// Conversation history
	v1.GET("/history", func(c echo.Context) error {
		return c.JSON(http.StatusOK, conversations.History())
	})
	v1.DELETE("/history", func(c echo.Context) error {
		if err := conversations.ClearHistory(c.Request().Context()); err != nil {
			logger.Error("Failed to clear history", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, ErrorResponse{
				Error:   "internal_error",
				Message: "Failed to clear history",
			})
		}
		return c.NoContent(http.StatusNoContent)
	})

	// One-shot text translation
	v1.POST("/translate", func(c echo.Context) error {
		return translate(c, texts, logger)
	})

	// WebSocket endpoint for the live UI
	e.GET("/ws", gw.HandleWebSocket)
}

func translate(c echo.Context, texts *usecase.TextService, logger *zap.Logger) error {
	var req TranslateRequest
	if err := c.Bind(&req); err != nil {
		logger.Error("Failed to bind translate request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}
	if req.Text == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_fields",
			Message: "Text is required",
		})
	}

	persona := entities.FindPersona(req.VoiceID)
	result, err := texts.Translate(c.Request().Context(), req.Text, persona)
	if err != nil {
		logger.Error("Translation failed", zap.Error(err))
		return c.JSON(http.StatusBadGateway, ErrorResponse{
			Error:   "translation_failed",
			Message: "Translation service is unavailable",
		})
	}
	return c.JSON(http.StatusOK, result)
}
