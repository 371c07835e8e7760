package server

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"io/fs"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/krau/bloodgroup/service"
)

var (
	errUnauthorized = errors.New("unauthorized")
)

func (s *Server) authenticate(c *gin.Context) error {
	if s.token == "" {
		return nil
	}
	auth := c.GetHeader("Authorization")
	providedToken := ""
	if len(auth) > 7 && auth[:7] == "Bearer " {
		providedToken = auth[7:]
	}
	if subtle.ConstantTimeCompare([]byte(providedToken), []byte(s.token)) != 1 {
		return errUnauthorized
	}
	return nil
}

// requireModel rejects predictions before anything is read from the body.
func (s *Server) requireModel(c *gin.Context) {
	if s.model == nil {
		predictionErrors.WithLabelValues("not_loaded").Inc()
		respondError(c, http.StatusInternalServerError, msgModelNotLoaded)
		return
	}
	c.Next()
}

func (s *Server) Predict(c *gin.Context) {
	if s.model == nil {
		respondError(c, http.StatusInternalServerError, msgModelNotLoaded)
		return
	}

	if err := s.authenticate(c); err != nil {
		predictionErrors.WithLabelValues("unauthorized").Inc()
		respondError(c, http.StatusUnauthorized, msgUnauthorized)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			predictionErrors.WithLabelValues("too_large").Inc()
			respondError(c, http.StatusRequestEntityTooLarge, msgTooLarge)
			return
		}
		// A file input submitted with no selection arrives as filename="",
		// which the multipart reader files under form values.
		if errors.Is(err, http.ErrMissingFile) && c.Request.MultipartForm != nil {
			if _, ok := c.Request.MultipartForm.Value["file"]; ok {
				predictionErrors.WithLabelValues("invalid_file").Inc()
				respondError(c, http.StatusBadRequest, msgInvalidFile)
				return
			}
		}
		predictionErrors.WithLabelValues("no_file").Inc()
		respondError(c, http.StatusBadRequest, msgNoFile)
		return
	}

	if fileHeader.Filename == "" || !s.validator.Allowed(fileHeader.Filename) {
		predictionErrors.WithLabelValues("invalid_file").Inc()
		respondError(c, http.StatusBadRequest, msgInvalidFile)
		return
	}

	start := time.Now()
	pred, err := s.classifyUpload(c, fileHeader)
	inferenceDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		reason := "inference"
		if errors.Is(err, service.ErrPreprocess) {
			reason = "preprocess"
		}
		predictionErrors.WithLabelValues(reason).Inc()
		_ = c.Error(err)
		s.log.Error("Prediction failed",
			zap.String("request_id", c.GetString("request_id")),
			zap.String("filename", fileHeader.Filename),
			zap.Error(err),
		)
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}

	predictionsTotal.WithLabelValues(pred.Label).Inc()
	c.JSON(http.StatusOK, PredictResponse{Success: true, Prediction: pred})
}

// classifyUpload stores the upload under a per-request name and always removes
// it before returning.
func (s *Server) classifyUpload(c *gin.Context, fh *multipart.FileHeader) (*service.Prediction, error) {
	path := service.TempPath(s.uploadDir, fh.Filename)
	defer s.remove(c, path)

	if err := c.SaveUploadedFile(fh, path); err != nil {
		return nil, fmt.Errorf("failed to save upload: %w", err)
	}
	return service.Classify(c.Request.Context(), s.model, path)
}

func (s *Server) remove(c *gin.Context, path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.log.Warn("Failed to remove uploaded file",
			zap.String("request_id", c.GetString("request_id")),
			zap.String("path", path),
			zap.Error(err),
		)
	}
}

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:      "healthy",
		ModelLoaded: s.model != nil,
	})
}

func (s *Server) Index(c *gin.Context) {
	exts := make([]string, 0, len(s.extensions))
	for _, e := range s.extensions {
		exts = append(exts, "."+strings.ToLower(e))
	}
	c.HTML(http.StatusOK, "index.html", gin.H{
		"Accept":      strings.Join(exts, ","),
		"Extensions":  strings.ToUpper(strings.Join(s.extensions, ", ")),
		"MaxUploadMB": s.maxUpload >> 20,
		"ModelLoaded": s.model != nil,
	})
}
