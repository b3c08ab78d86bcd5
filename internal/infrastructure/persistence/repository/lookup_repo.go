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

// CategoryRepository implements port.CategoryRepository.
type CategoryRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewCategoryRepository creates a new category repository.
func NewCategoryRepository(db *sql.DB, logger *zap.Logger) port.CategoryRepository {
	return &CategoryRepository{db: db, logger: logger}
}

func (r *CategoryRepository) GetByID(ctx context.Context, id int64) (*entity.Category, error) {
	query := `SELECT id, name FROM categories WHERE id = ?`

	var category entity.Category
	err := r.getExecutor(ctx).QueryRowContext(ctx, query, id).Scan(&category.ID, &category.Name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get category", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return &category, nil
}

func (r *CategoryRepository) getExecutor(ctx context.Context) executor {
	if tx := sqlitedb.ExtractTx(ctx); tx != nil {
		return tx
	}
	return r.db
}

// LocationRepository implements port.LocationRepository.
type LocationRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewLocationRepository creates a new location repository.
func NewLocationRepository(db *sql.DB, logger *zap.Logger) port.LocationRepository {
	return &LocationRepository{db: db, logger: logger}
}

func (r *LocationRepository) GetByID(ctx context.Context, id int64) (*entity.Location, error) {
	query := `SELECT id, building, floor, room FROM locations WHERE id = ?`

	var location entity.Location
	err := r.getExecutor(ctx).QueryRowContext(ctx, query, id).Scan(
		&location.ID,
		&location.Building,
		&location.Floor,
		&location.Room,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get location", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get location: %w", err)
	}
	return &location, nil
}

func (r *LocationRepository) getExecutor(ctx context.Context) executor {
	if tx := sqlitedb.ExtractTx(ctx); tx != nil {
		return tx
	}
	return r.db
}

var (
	_ port.CategoryRepository = (*CategoryRepository)(nil)
	_ port.LocationRepository = (*LocationRepository)(nil)
)
