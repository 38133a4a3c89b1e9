package events

import (
	"context"
	"encoding/hex"
	"encoding/json"

	"liyu1981.xyz/iwown-health-service/pkg/models"
)

// HealthUploadEvent announces a stored health upload to downstream consumers.
type HealthUploadEvent struct {
	DeviceID  string `json:"device_id"`
	Timestamp string `json:"timestamp"`
	RawHex    string `json:"raw_hex"`
	Size      int    `json:"size"`
}

func NewHealthUploadEvent(job models.HealthUpload) HealthUploadEvent {
	return HealthUploadEvent{
		DeviceID:  job.DeviceID,
		Timestamp: job.Timestamp,
		RawHex:    hex.EncodeToString(job.Payload),
		Size:      len(job.Payload),
	}
}

func (e HealthUploadEvent) Encode() ([]byte, error) {
	return json.Marshal(e)
}

type Publisher interface {
	Name() string
	Publish(ctx context.Context, evt HealthUploadEvent) error
	Close() error
}
