package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Brownie44l1/malaria-api/internal/inference"
	"github.com/Brownie44l1/malaria-api/internal/metrics"
	"github.com/Brownie44l1/malaria-api/internal/model"
	"github.com/Brownie44l1/malaria-api/internal/preprocess"
)

// fileField is the form field clients upload under. Any other single file
// part is accepted as well.
const fileField = "file"

const uploadStage = "upload"

var errNoFile = errors.New("no file uploaded")

// Classifier is the request-handling core behind /predict.
type Classifier interface {
	Classify(ctx context.Context, raw []byte) (model.Prediction, error)
	Strategy() preprocess.Strategy
}

var _ Classifier = (*inference.Classifier)(nil)

type Handler struct {
	classifier     Classifier
	maxUploadBytes int64
	logger         *zap.Logger
}

func NewHandler(classifier Classifier, maxUploadBytes int64, logger *zap.Logger) *Handler {
	return &Handler{
		classifier:     classifier,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type HealthResponse struct {
	Status     string  `json:"status"`
	Mode       string  `json:"mode"`
	InputShape []int64 `json:"input_shape"`
}

// Health handles GET /health
func (h *Handler) Health(c *gin.Context) {
	strategy := h.classifier.Strategy()
	c.JSON(http.StatusOK, HealthResponse{
		Status:     "healthy",
		Mode:       string(strategy.Mode()),
		InputShape: strategy.Shape(),
	})
}

// Predict handles POST /predict
func (h *Handler) Predict(c *gin.Context) {
	raw, filename, err := h.readUpload(c)
	if err != nil {
		metrics.PredictionFailures.WithLabelValues(uploadStage).Inc()
		h.fail(c, uploadStage, err)
		return
	}

	h.logger.Debug("Received upload",
		zap.String("request_id", c.GetString(requestIDKey)),
		zap.String("filename", filename),
		zap.Int("bytes", len(raw)),
	)

	prediction, err := h.classifier.Classify(c.Request.Context(), raw)
	if err != nil {
		h.fail(c, inference.Stage(err), err)
		return
	}

	c.JSON(http.StatusOK, prediction)
}

func (h *Handler) readUpload(c *gin.Context) ([]byte, string, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	if err := c.Request.ParseMultipartForm(h.maxUploadBytes); err != nil {
		return nil, "", fmt.Errorf("failed to parse upload: %w", err)
	}
	defer c.Request.MultipartForm.RemoveAll()

	header := pickFile(c.Request.MultipartForm)
	if header == nil {
		return nil, "", errNoFile
	}

	file, err := header.Open()
	if err != nil {
		return nil, "", fmt.Errorf("failed to open upload: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read upload: %w", err)
	}
	return raw, header.Filename, nil
}

func pickFile(form *multipart.Form) *multipart.FileHeader {
	if files := form.File[fileField]; len(files) > 0 {
		return files[0]
	}
	for _, files := range form.File {
		if len(files) > 0 {
			return files[0]
		}
	}
	return nil
}

// fail logs a request-time error and answers 500. The process keeps serving.
func (h *Handler) fail(c *gin.Context, stage string, err error) {
	h.logger.Error("Prediction failed",
		zap.String("request_id", c.GetString(requestIDKey)),
		zap.String("stage", stage),
		zap.Error(err),
	)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
}
