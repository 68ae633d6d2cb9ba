package handlers

import (
	"errors"
	"net/http"

	"policydesk-backend/service"

	"github.com/gin-gonic/gin"
)

func respondOK(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

// failureStatus maps an orchestrator failure code to an HTTP status
func failureStatus(code string) int {
	switch code {
	case service.CodeInvalidRequest:
		return http.StatusBadRequest
	case service.CodeRetrievalFailed, service.CodeGenerationFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondServiceError renders err in the error envelope. Structured failures
// keep their code; anything else becomes INTERNAL_ERROR.
func respondServiceError(c *gin.Context, err error) {
	var fe *service.FailureError
	if errors.As(err, &fe) {
		respondError(c, failureStatus(fe.Code), fe.Code, fe.Message)
		return
	}
	respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "요청을 처리하지 못했습니다.")
}
