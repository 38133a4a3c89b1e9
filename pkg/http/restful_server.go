package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"

	"liyu1981.xyz/iwown-health-service/pkg/iot"
	"liyu1981.xyz/iwown-health-service/pkg/models"
	"liyu1981.xyz/iwown-health-service/pkg/observability"
)

type RestfulServer struct {
	Server *gin.Engine
	Iot    *iot.IOT
	// RateLimiterStore is shared with the post-processor; nil disables the limiter routes.
	RateLimiterStore *iot.RateLimiterStore
	// CorsOrigins defaults to all origins.
	CorsOrigins []string
}

func (rs *RestfulServer) SetLimiter(deviceID string, deviceRate float64, deviceBurst int) bool {
	if rs.RateLimiterStore == nil {
		return false
	}
	rs.RateLimiterStore.SetLimiter(deviceID, rate.Limit(deviceRate), deviceBurst)
	return true
}

func (rs *RestfulServer) Setup() {
	rs.Server.GET("/health", rs.HealthCheck)
	rs.Server.GET("/metrics", gin.WrapH(observability.MetricsHandler()))

	device := rs.Server.Group("/4g")
	{
		device.POST("/pb/upload", rs.upload(models.TopicHealth))
		device.POST("/alarm/upload", rs.upload(models.TopicAlarm))
		device.POST("/call_log/upload", rs.upload(models.TopicSOS))
		device.POST("/deviceinfo/upload", rs.upload(models.TopicDeviceInfo))
		device.POST("/status/notify", rs.upload(models.TopicStatus))
		device.POST("/health/sleep", rs.PostSleep)
	}

	api := rs.Server.Group("/api")
	{
		api.GET("/devices", rs.GetDevices)
		api.GET("/stats", rs.GetStats)
		api.GET("/device/:device_id/health", rs.history(models.TopicHealth, "Health"))
		api.GET("/device/:device_id/alarms", rs.history(models.TopicAlarm, "Alarm"))
		api.GET("/device/:device_id/sos", rs.history(models.TopicSOS, "SOS"))
		api.POST("/device/:device_id/limiter", rs.PostLimiter)
	}
}

// Handler is the engine wrapped in the CORS middleware; serve this, not Server.
func (rs *RestfulServer) Handler() http.Handler {
	origins := rs.CorsOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	})(rs.Server)
}
