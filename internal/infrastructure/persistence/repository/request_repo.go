package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/fixflow/fixflow/internal/application/port"
	"github.com/fixflow/fixflow/internal/domain/entity"
	sqlitedb "github.com/fixflow/fixflow/internal/infrastructure/persistence/sqlite"
)

// RequestRepository implements port.RequestRepository.
type RequestRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRequestRepository creates a new request repository.
func NewRequestRepository(db *sql.DB, logger *zap.Logger) port.RequestRepository {
	return &RequestRepository{
		db:     db,
		logger: logger,
	}
}

const requestColumns = `
	id, request_number, title, description, status, category_id, location_id,
	requester_id, technician_id, assigned_at, started_at, completed_at,
	deleted_at, created_at, updated_at
`

// Create inserts a new request. A uniqueness conflict on request_number is
// mapped to port.ErrDuplicateRequestNumber so the caller can retry with the
// next sequence.
func (r *RequestRepository) Create(ctx context.Context, req *entity.Request) error {
	query := `
		INSERT INTO requests (
			id, request_number, title, description, status,
			category_id, location_id, requester_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.getExecutor(ctx).ExecContext(ctx, query,
		req.ID,
		req.RequestNumber,
		req.Title,
		req.Description,
		req.Status,
		req.CategoryID,
		req.LocationID,
		req.RequesterID,
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return fmt.Errorf("create request %s: %w", req.RequestNumber, port.ErrDuplicateRequestNumber)
		}
		r.logger.Error("Failed to create request", zap.Error(err))
		return fmt.Errorf("failed to create request: %w", err)
	}

	return nil
}

// GetByID retrieves an active request by ID. Soft-deleted requests are
// invisible here, which is what makes cancelled a terminal state for every
// transition path.
func (r *RequestRepository) GetByID(ctx context.Context, id string) (*entity.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM requests WHERE id = ? AND deleted_at IS NULL`

	req, err := r.scanRequest(r.getExecutor(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get request", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get request: %w", err)
	}
	return req, nil
}

// GetDetail retrieves a request with its relations loaded. Unlike GetByID
// this is a direct read and also returns cancelled (soft-deleted) requests,
// so the caller of cancel still receives the final state.
func (r *RequestRepository) GetDetail(ctx context.Context, id string) (*entity.RequestDetail, error) {
	query := `
		SELECT r.id, r.request_number, r.title, r.description, r.status,
			r.category_id, r.location_id, r.requester_id, r.technician_id,
			r.assigned_at, r.started_at, r.completed_at, r.deleted_at,
			r.created_at, r.updated_at,
			c.id, c.name,
			l.id, l.building, l.floor, l.room,
			req.id, req.name, req.role,
			t.id, t.name, t.role
		FROM requests r
		LEFT JOIN categories c ON c.id = r.category_id
		LEFT JOIN locations l ON l.id = r.location_id
		LEFT JOIN users req ON req.id = r.requester_id
		LEFT JOIN users t ON t.id = r.technician_id
		WHERE r.id = ?
	`

	var detail entity.RequestDetail
	var technicianID sql.NullString
	var assignedAt, startedAt, completedAt, deletedAt sql.NullTime
	var catID sql.NullInt64
	var catName sql.NullString
	var locID sql.NullInt64
	var locBuilding, locFloor, locRoom sql.NullString
	var reqID, reqName, reqRole sql.NullString
	var techID, techName, techRole sql.NullString

	err := r.getExecutor(ctx).QueryRowContext(ctx, query, id).Scan(
		&detail.ID,
		&detail.RequestNumber,
		&detail.Title,
		&detail.Description,
		&detail.Status,
		&detail.CategoryID,
		&detail.LocationID,
		&detail.RequesterID,
		&technicianID,
		&assignedAt,
		&startedAt,
		&completedAt,
		&deletedAt,
		&detail.CreatedAt,
		&detail.UpdatedAt,
		&catID, &catName,
		&locID, &locBuilding, &locFloor, &locRoom,
		&reqID, &reqName, &reqRole,
		&techID, &techName, &techRole,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get request detail", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get request detail: %w", err)
	}

	if technicianID.Valid {
		detail.TechnicianID = &technicianID.String
	}
	if assignedAt.Valid {
		detail.AssignedAt = &assignedAt.Time
	}
	if startedAt.Valid {
		detail.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		detail.CompletedAt = &completedAt.Time
	}
	if deletedAt.Valid {
		detail.DeletedAt = &deletedAt.Time
	}
	if catID.Valid {
		detail.Category = &entity.Category{ID: catID.Int64, Name: catName.String}
	}
	if locID.Valid {
		detail.Location = &entity.Location{
			ID:       locID.Int64,
			Building: locBuilding.String,
			Floor:    locFloor.String,
			Room:     locRoom.String,
		}
	}
	if reqID.Valid {
		detail.Requester = &entity.User{ID: reqID.String, Name: reqName.String, Role: entity.Role(reqRole.String)}
	}
	if techID.Valid {
		detail.Technician = &entity.User{ID: techID.String, Name: techName.String, Role: entity.Role(techRole.String)}
	}

	return &detail, nil
}

// CompareAndSetStatus applies the status transition only if the stored
// status still matches what the engine observed. RowsAffected == 0 means a
// concurrent transition won the race; the write is reported as stale, never
// overwritten.
func (r *RequestRepository) CompareAndSetStatus(ctx context.Context, id, expectedStatus string, update port.StatusUpdate) (bool, error) {
	sets := []string{"status = ?", "updated_at = CURRENT_TIMESTAMP"}
	args := []interface{}{update.Status}

	switch {
	case update.TechnicianID != nil:
		sets = append(sets, "technician_id = ?")
		args = append(args, *update.TechnicianID)
	case update.ClearTechnician:
		sets = append(sets, "technician_id = NULL")
	}

	switch {
	case update.AssignedAt != nil:
		sets = append(sets, "assigned_at = ?")
		args = append(args, *update.AssignedAt)
	case update.ClearAssignedAt:
		sets = append(sets, "assigned_at = NULL")
	}

	if update.StartedAt != nil {
		sets = append(sets, "started_at = ?")
		args = append(args, *update.StartedAt)
	}
	if update.CompletedAt != nil {
		sets = append(sets, "completed_at = ?")
		args = append(args, *update.CompletedAt)
	}
	if update.DeletedAt != nil {
		sets = append(sets, "deleted_at = ?")
		args = append(args, *update.DeletedAt)
	}

	query := fmt.Sprintf(
		"UPDATE requests SET %s WHERE id = ? AND status = ? AND deleted_at IS NULL",
		strings.Join(sets, ", "),
	)
	args = append(args, id, expectedStatus)

	result, err := r.getExecutor(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to compare-and-set status",
			zap.String("id", id),
			zap.String("expected_status", expectedStatus),
			zap.String("new_status", update.Status),
			zap.Error(err))
		return false, fmt.Errorf("failed to update status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return affected > 0, nil
}

// UpdateContent updates title/description, conditioned on the status being
// unchanged since the engine's legality check.
func (r *RequestRepository) UpdateContent(ctx context.Context, id, expectedStatus, title, description string) (bool, error) {
	query := `
		UPDATE requests
		SET title = ?, description = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = ? AND deleted_at IS NULL
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query, title, description, id, expectedStatus)
	if err != nil {
		r.logger.Error("Failed to update request content", zap.String("id", id), zap.Error(err))
		return false, fmt.Errorf("failed to update request: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return affected > 0, nil
}

// MaxSequenceForPrefix returns the highest sequence allocated for a day
// prefix. Soft-deleted requests keep their numbers, so they count here.
func (r *RequestRepository) MaxSequenceForPrefix(ctx context.Context, prefix string) (int, error) {
	query := `
		SELECT COALESCE(MAX(CAST(SUBSTR(request_number, LENGTH(?) + 2) AS INTEGER)), 0)
		FROM requests
		WHERE request_number LIKE ? || '-%'
	`

	var max int
	err := r.getExecutor(ctx).QueryRowContext(ctx, query, prefix, prefix).Scan(&max)
	if err != nil {
		r.logger.Error("Failed to read max sequence", zap.String("prefix", prefix), zap.Error(err))
		return 0, fmt.Errorf("failed to read max sequence: %w", err)
	}
	return max, nil
}

// List retrieves active requests with pagination, newest first.
func (r *RequestRepository) List(ctx context.Context, limit, offset int) ([]*entity.Request, error) {
	query := `SELECT ` + requestColumns + `
		FROM requests
		WHERE deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list requests", zap.Error(err))
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	defer rows.Close()

	var requests []*entity.Request
	for rows.Next() {
		req, err := r.scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan request: %w", err)
		}
		requests = append(requests, req)
	}

	return requests, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *RequestRepository) scanRequest(row rowScanner) (*entity.Request, error) {
	var req entity.Request
	var technicianID sql.NullString
	var assignedAt, startedAt, completedAt, deletedAt sql.NullTime

	err := row.Scan(
		&req.ID,
		&req.RequestNumber,
		&req.Title,
		&req.Description,
		&req.Status,
		&req.CategoryID,
		&req.LocationID,
		&req.RequesterID,
		&technicianID,
		&assignedAt,
		&startedAt,
		&completedAt,
		&deletedAt,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if technicianID.Valid {
		req.TechnicianID = &technicianID.String
	}
	if assignedAt.Valid {
		req.AssignedAt = &assignedAt.Time
	}
	if startedAt.Valid {
		req.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		req.CompletedAt = &completedAt.Time
	}
	if deletedAt.Valid {
		req.DeletedAt = &deletedAt.Time
	}

	return &req, nil
}

// getExecutor returns the ambient transaction when present, the pool
// otherwise.
func (r *RequestRepository) getExecutor(ctx context.Context) executor {
	if tx := sqlitedb.ExtractTx(ctx); tx != nil {
		return tx
	}
	return r.db
}

// executor interface covers both *sql.DB and *sql.Tx
type executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

var _ port.RequestRepository = (*RequestRepository)(nil)
