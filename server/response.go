package server

import (
	"github.com/gin-gonic/gin"

	"github.com/krau/bloodgroup/service"
)

const (
	msgModelNotLoaded = "Model not loaded"
	msgNoFile         = "No file uploaded"
	msgInvalidFile    = "Invalid file"
	msgTooLarge       = "File too large"
	msgUnauthorized   = "Unauthorized"
)

type PredictResponse struct {
	Success bool `json:"success"`
	*service.Prediction
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type HealthResponse struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
}

func respondError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Success: false, Error: message})
}
