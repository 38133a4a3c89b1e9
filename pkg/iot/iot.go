package iot

import (
	"context"
	"time"

	"liyu1981.xyz/iwown-health-service/pkg/common"
	"liyu1981.xyz/iwown-health-service/pkg/db"
	"liyu1981.xyz/iwown-health-service/pkg/models"
)

type IIngest interface {
	// Ingest shapes and persists one device upload. A nil record with a nil
	// error means the upload was acknowledged without being stored.
	Ingest(ctx context.Context, topic models.Topic, upload *models.Upload) (models.Record, error)
	Sleep(ctx context.Context, upload *models.Upload) (*models.SleepResult, error)
}

type IDashboard interface {
	ListDevices(ctx context.Context) ([]models.DeviceSummary, error)
	GetStats(ctx context.Context) (*models.SystemStats, error)
	GetDeviceHistory(ctx context.Context, topic models.Topic, deviceID string) ([]map[string]any, error)
	StoreStatus(ctx context.Context) string
}

type IPostProcessor interface {
	Enqueue(job models.HealthUpload) bool
}

type IOT struct {
	Store         db.Store
	Ingest        IIngest
	Dashboard     IDashboard
	PostProcessor IPostProcessor

	// Now defaults to time.Now.
	Now          func() time.Time
	HistoryLimit int64
}

type ServiceOpts struct {
	Ingest        IIngest
	Dashboard     IDashboard
	PostProcessor IPostProcessor
}

func (i *IOT) WithServices(opts ServiceOpts) *IOT {
	if opts.Ingest != nil {
		i.Ingest = opts.Ingest
	}
	if opts.Dashboard != nil {
		i.Dashboard = opts.Dashboard
	}
	if opts.PostProcessor != nil {
		i.PostProcessor = opts.PostProcessor
	}
	return i
}

func (i *IOT) now() time.Time {
	if i.Now != nil {
		return i.Now()
	}
	return time.Now()
}

func (i *IOT) historyLimit() int64 {
	if i.HistoryLimit > 0 {
		return i.HistoryLimit
	}
	return common.DefaultHistoryLimit
}
