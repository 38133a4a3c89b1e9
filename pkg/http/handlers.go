package http

import (
	"fmt"
	"net/http"
	"time"

	z "github.com/Oudwins/zog"
	"github.com/Oudwins/zog/zhttp"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"liyu1981.xyz/iwown-health-service/pkg/common"
	"liyu1981.xyz/iwown-health-service/pkg/iot"
	"liyu1981.xyz/iwown-health-service/pkg/models"
	"liyu1981.xyz/iwown-health-service/pkg/observability"
)

const (
	HeaderDeviceID  = "DeviceId"
	ackContentType  = "application/octet-stream"
	internalErrBody = "Internal server error"
)

var ackBody = []byte{0x00}

func getLogger() *zap.Logger {
	return common.GetLoggerWith(common.LoggerNameRestfulServer)
}

func readUpload(c *gin.Context) (*models.Upload, error) {
	body, err := c.GetRawData()
	if err != nil {
		return nil, fmt.Errorf("read request body: %w", err)
	}
	return &models.Upload{
		Endpoint:       c.FullPath(),
		HeaderDeviceID: c.GetHeader(HeaderDeviceID),
		ContentType:    c.GetHeader("Content-Type"),
		Body:           body,
	}, nil
}

func uploadFailed(topic models.Topic, upload *models.Upload, headerDeviceID string, err error) {
	deviceID := iot.ResolveDeviceID(headerDeviceID, nil)
	if upload != nil {
		deviceID = iot.ResolveDeviceID(upload.HeaderDeviceID, iot.ParsePayload(topic, upload))
	}
	getLogger().Error("Upload failed",
		zap.String("device_id", deviceID),
		zap.String("topic", string(topic)),
		zap.Error(err),
	)
	observability.UploadFailuresTotal.WithLabelValues(string(topic)).Inc()
}

// upload handles the device endpoints. Devices only understand the single
// 0x00 byte, so it is sent whatever happens to the upload.
func (rs *RestfulServer) upload(topic models.Topic) gin.HandlerFunc {
	return func(c *gin.Context) {
		var upload *models.Upload

		defer func() {
			if r := recover(); r != nil {
				uploadFailed(topic, upload, c.GetHeader(HeaderDeviceID), fmt.Errorf("panic: %v", r))
			}
			c.Data(http.StatusOK, ackContentType, ackBody)
		}()

		upload, err := readUpload(c)
		if err != nil {
			uploadFailed(topic, nil, c.GetHeader(HeaderDeviceID), err)
			return
		}

		if _, err := rs.Iot.Ingest.Ingest(c.Request.Context(), topic, upload); err != nil {
			uploadFailed(topic, upload, upload.HeaderDeviceID, err)
		}
	}
}

func (rs *RestfulServer) PostSleep(c *gin.Context) {
	var upload *models.Upload
	resp := models.SleepResponse{ReturnCode: 0, Data: map[string]any{}}

	defer func() {
		if r := recover(); r != nil {
			uploadFailed(models.TopicSleep, upload, c.GetHeader(HeaderDeviceID), fmt.Errorf("panic: %v", r))
			resp.Data = map[string]any{}
		}
		c.JSON(http.StatusOK, resp)
	}()

	upload, err := readUpload(c)
	if err != nil {
		uploadFailed(models.TopicSleep, nil, c.GetHeader(HeaderDeviceID), err)
		return
	}

	result, err := rs.Iot.Ingest.Sleep(c.Request.Context(), upload)
	if err != nil {
		uploadFailed(models.TopicSleep, upload, upload.HeaderDeviceID, err)
		return
	}
	resp.Data = result
}

func respond(c *gin.Context, message string, data any) {
	c.JSON(http.StatusOK, models.NewAPIResponse(message, data, common.FormatTimestamp(time.Now())))
}

func internalError(c *gin.Context, operation string, err error) {
	getLogger().Error("Dashboard read failed",
		zap.String("operation", operation),
		zap.Error(err),
	)
	observability.DashboardFailuresTotal.WithLabelValues(operation).Inc()
	c.JSON(http.StatusInternalServerError, gin.H{"detail": internalErrBody})
}

func (rs *RestfulServer) GetDevices(c *gin.Context) {
	devices, err := rs.Iot.Dashboard.ListDevices(c.Request.Context())
	if err != nil {
		internalError(c, "list_devices", err)
		return
	}
	respond(c, "Devices retrieved successfully", devices)
}

func (rs *RestfulServer) GetStats(c *gin.Context) {
	stats, err := rs.Iot.Dashboard.GetStats(c.Request.Context())
	if err != nil {
		internalError(c, "get_stats", err)
		return
	}
	respond(c, "Statistics retrieved successfully", stats)
}

func (rs *RestfulServer) history(topic models.Topic, label string) gin.HandlerFunc {
	operation := "history_" + string(topic)
	return func(c *gin.Context) {
		deviceID := c.Param("device_id")

		docs, err := rs.Iot.Dashboard.GetDeviceHistory(c.Request.Context(), topic, deviceID)
		if err != nil {
			internalError(c, operation, err)
			return
		}
		respond(c, fmt.Sprintf("%s data retrieved for device %s", label, deviceID), docs)
	}
}

type LimiterRequest struct {
	Rate  float64 `json:"rate"`
	Burst int     `json:"burst"`
}

var limiterRequestSchema = z.Struct(z.Shape{
	"rate":  z.Float64().Required().GTE(0),
	"burst": z.Int().Required().GT(0),
})

// PostLimiter replaces the post-processing limiter of one device.
func (rs *RestfulServer) PostLimiter(c *gin.Context) {
	deviceID := c.Param("device_id")

	var req LimiterRequest
	if err := limiterRequestSchema.Parse(zhttp.Request(c.Request), &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err})
		return
	}

	if !rs.SetLimiter(deviceID, req.Rate, req.Burst) {
		c.JSON(http.StatusNotFound, gin.H{"error": "post-processing limiter is disabled"})
		return
	}

	getLogger().Info("Device limiter updated",
		zap.String("device_id", deviceID),
		zap.Float64("rate", req.Rate),
		zap.Int("burst", req.Burst),
	)
	c.Status(http.StatusOK)
}

func (rs *RestfulServer) HealthCheck(c *gin.Context) {
	status := rs.Iot.Dashboard.StoreStatus(c.Request.Context())
	respond(c, fmt.Sprintf("API is running (Database: %s)", status), gin.H{"database_status": status})
}
