package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/teacher-dashboard-api/internal/models"
	"github.com/noah-isme/teacher-dashboard-api/pkg/jobs"
)

const auditWriteTimeout = 5 * time.Second

// AuditQueue writes audit entries in the background so roster requests do not
// wait on the audit table. It satisfies the same writer contract as the repository.
type AuditQueue struct {
	queue *jobs.Queue[*models.AuditLog]
}

// NewAuditQueue builds a queue that persists entries through writer.
func NewAuditQueue(writer auditLogWriter, cfg jobs.QueueConfig) *AuditQueue {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	handler := func(ctx context.Context, entry *models.AuditLog) error {
		writeCtx, cancel := context.WithTimeout(ctx, auditWriteTimeout)
		defer cancel()
		return writer.CreateAuditLog(writeCtx, entry)
	}
	return &AuditQueue{queue: jobs.NewQueue[*models.AuditLog]("audit", handler, cfg)}
}

// Start launches the workers.
func (a *AuditQueue) Start(ctx context.Context) {
	a.queue.Start(ctx)
}

// Stop flushes queued entries and stops the workers.
func (a *AuditQueue) Stop() {
	a.queue.Stop()
}

// CreateAuditLog queues entry for writing. The request context is not used by the write.
func (a *AuditQueue) CreateAuditLog(_ context.Context, entry *models.AuditLog) error {
	return a.queue.Enqueue(entry)
}
