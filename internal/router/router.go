package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Brownie44l1/malaria-api/internal/handlers"
)

// Setup creates and configures the Gin router
func Setup(classifier handlers.Classifier, maxUploadBytes int64, logger *zap.Logger) *gin.Engine {
	router := gin.New()

	router.Use(handlers.RequestID())
	router.Use(handlers.Logger(logger))
	router.Use(handlers.Recovery(logger))
	router.Use(handlers.CORS())

	h := handlers.NewHandler(classifier, maxUploadBytes, logger)
	router.POST("/predict", h.Predict)
	router.GET("/health", h.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}
