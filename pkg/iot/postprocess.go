package iot

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"liyu1981.xyz/iwown-health-service/pkg/common"
	"liyu1981.xyz/iwown-health-service/pkg/events"
	"liyu1981.xyz/iwown-health-service/pkg/models"
	"liyu1981.xyz/iwown-health-service/pkg/observability"
)

// PostProcessor runs health post-processing jobs on a fixed pool of workers,
// detached from the upload requests that queued them.
type PostProcessor struct {
	jobs       chan models.HealthUpload
	workers    int
	limiters   *RateLimiterStore
	publishers []events.Publisher

	mu      sync.RWMutex
	closed  bool
	started bool
	wg      sync.WaitGroup
}

func NewPostProcessor(workers, queueSize int, limiters *RateLimiterStore, publishers ...events.Publisher) *PostProcessor {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	return &PostProcessor{
		jobs:       make(chan models.HealthUpload, queueSize),
		workers:    workers,
		limiters:   limiters,
		publishers: publishers,
	}
}

func (p *PostProcessor) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.closed {
		return
	}
	p.started = true

	for n := 0; n < p.workers; n++ {
		p.wg.Add(1)
		go p.run(ctx)
	}
}

// Enqueue never blocks: when the queue is full or the processor is stopped the
// job is dropped and false is returned.
func (p *PostProcessor) Enqueue(job models.HealthUpload) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		observability.PostProcessJobsTotal.WithLabelValues(observability.JobResultDropped).Inc()
		return false
	}

	select {
	case p.jobs <- job:
		return true
	default:
		observability.PostProcessJobsTotal.WithLabelValues(observability.JobResultDropped).Inc()
		return false
	}
}

// Stop rejects new jobs, waits for queued ones to finish and closes the publishers.
func (p *PostProcessor) Stop() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()

	p.wg.Wait()

	for _, pub := range p.publishers {
		if err := pub.Close(); err != nil {
			common.GetLoggerWith(common.LoggerNameEvents).Warn("Error closing publisher",
				zap.String("publisher", pub.Name()),
				zap.Error(err),
			)
		}
	}
}

func (p *PostProcessor) run(ctx context.Context) {
	defer p.wg.Done()
	for job := range p.jobs {
		p.process(ctx, job)
	}
}

func (p *PostProcessor) process(ctx context.Context, job models.HealthUpload) {
	logger := common.GetLoggerWith(
		common.LoggerNameIOTCore,
		zap.String(common.LoggerFieldIOTCategory, common.LoggerCategoryIOTPostProcess),
	)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Error processing health data",
				zap.String("device_id", job.DeviceID),
				zap.Any("panic", r),
			)
			observability.PostProcessJobsTotal.WithLabelValues(observability.JobResultFailed).Inc()
		}
	}()

	if !p.limiters.Allow(job.DeviceID) {
		logger.Warn("Health post-processing throttled", zap.String("device_id", job.DeviceID))
		observability.PostProcessJobsTotal.WithLabelValues(observability.JobResultThrottled).Inc()
		return
	}

	logger.Info("Processing health data",
		zap.String("device_id", job.DeviceID),
		zap.Int("size", len(job.Payload)),
	)

	evt := events.NewHealthUploadEvent(job)
	result := observability.JobResultProcessed
	for _, pub := range p.publishers {
		if err := pub.Publish(ctx, evt); err != nil {
			logger.Error("Error publishing health upload",
				zap.String("device_id", job.DeviceID),
				zap.String("publisher", pub.Name()),
				zap.Error(err),
			)
			result = observability.JobResultFailed
		}
	}
	observability.PostProcessJobsTotal.WithLabelValues(result).Inc()
}
