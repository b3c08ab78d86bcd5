package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/fixflow/fixflow/internal/application/port"
	"github.com/fixflow/fixflow/internal/domain/entity"
	sqlitedb "github.com/fixflow/fixflow/internal/infrastructure/persistence/sqlite"
)

// RequestLogRepository implements port.LogRepository.
type RequestLogRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRequestLogRepository creates a new audit log repository.
func NewRequestLogRepository(db *sql.DB, logger *zap.Logger) port.LogRepository {
	return &RequestLogRepository{
		db:     db,
		logger: logger,
	}
}

// Append writes one audit entry. Entries are written inside the transaction
// of the status change they record, so a rolled-back transition leaves no
// trace.
func (r *RequestLogRepository) Append(ctx context.Context, log *entity.RequestLog) error {
	query := `
		INSERT INTO request_logs (request_id, action, old_status, new_status, note, actor_id)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		log.RequestID,
		log.Action,
		log.OldStatus,
		log.NewStatus,
		log.Note,
		log.ActorID,
	)
	if err != nil {
		r.logger.Error("Failed to append request log",
			zap.String("request_id", log.RequestID),
			zap.String("action", log.Action),
			zap.Error(err))
		return fmt.Errorf("failed to append request log: %w", err)
	}

	if id, err := result.LastInsertId(); err == nil {
		log.ID = id
	}
	return nil
}

// GetByRequestID retrieves the audit trail of a request in chronological
// order.
func (r *RequestLogRepository) GetByRequestID(ctx context.Context, requestID string) ([]*entity.RequestLog, error) {
	query := `
		SELECT id, request_id, action, old_status, new_status, note, actor_id, created_at
		FROM request_logs
		WHERE request_id = ?
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, requestID)
	if err != nil {
		r.logger.Error("Failed to get request logs", zap.String("request_id", requestID), zap.Error(err))
		return nil, fmt.Errorf("failed to get request logs: %w", err)
	}
	defer rows.Close()

	var logs []*entity.RequestLog
	for rows.Next() {
		var log entity.RequestLog
		err := rows.Scan(
			&log.ID,
			&log.RequestID,
			&log.Action,
			&log.OldStatus,
			&log.NewStatus,
			&log.Note,
			&log.ActorID,
			&log.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan request log: %w", err)
		}
		logs = append(logs, &log)
	}

	return logs, rows.Err()
}

func (r *RequestLogRepository) getExecutor(ctx context.Context) executor {
	if tx := sqlitedb.ExtractTx(ctx); tx != nil {
		return tx
	}
	return r.db
}

var _ port.LogRepository = (*RequestLogRepository)(nil)
