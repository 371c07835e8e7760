package server

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	requestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"path", "method", "status"},
	)
	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"path"},
	)
	predictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bloodgroup_predictions_total",
			Help: "Successful predictions by blood group",
		}, []string{"blood_group"},
	)
	predictionErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bloodgroup_prediction_errors_total",
			Help: "Rejected or failed prediction requests by reason",
		}, []string{"reason"},
	)
	inferenceDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bloodgroup_inference_duration_seconds",
			Help:    "Time spent preprocessing and running the model",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(requestCount, requestDuration, predictionsTotal, predictionErrors, inferenceDuration)
}

// Metrics records request count and latency per route.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		requestCount.WithLabelValues(path, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		requestDuration.WithLabelValues(path).Observe(time.Since(start).Seconds())
	}
}
