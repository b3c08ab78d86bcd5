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

// UserRepository implements port.UserRepository.
type UserRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewUserRepository creates a new user repository.
func NewUserRepository(db *sql.DB, logger *zap.Logger) port.UserRepository {
	return &UserRepository{
		db:     db,
		logger: logger,
	}
}

// GetByID retrieves a user by ID, nil when unknown.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	query := `SELECT id, name, email, role, available, created_at FROM users WHERE id = ?`

	var user entity.User
	err := r.getExecutor(ctx).QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Role,
		&user.Available,
		&user.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get user", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (r *UserRepository) getExecutor(ctx context.Context) executor {
	if tx := sqlitedb.ExtractTx(ctx); tx != nil {
		return tx
	}
	return r.db
}

var _ port.UserRepository = (*UserRepository)(nil)
