package port

import (
	"context"
	"errors"
	"time"

	"github.com/fixflow/fixflow/internal/domain/entity"
)

// ErrDuplicateRequestNumber is returned by RequestRepository.Create when the
// allocated request number lost a uniqueness race. The caller retries with
// the next candidate sequence.
var ErrDuplicateRequestNumber = errors.New("duplicate request number")

// StatusUpdate carries the field changes applied together with a status
// transition. Only the fields relevant to the transition are set; the
// repository writes status plus exactly these fields in one statement.
type StatusUpdate struct {
	Status string

	TechnicianID    *string
	ClearTechnician bool

	AssignedAt      *time.Time
	ClearAssignedAt bool

	StartedAt   *time.Time
	CompletedAt *time.Time
	DeletedAt   *time.Time
}

// RequestRepository defines persistence operations for Request. Soft-deleted
// requests are invisible to every read.
type RequestRepository interface {
	Create(ctx context.Context, req *entity.Request) error
	GetByID(ctx context.Context, id string) (*entity.Request, error)
	GetDetail(ctx context.Context, id string) (*entity.RequestDetail, error)

	// CompareAndSetStatus applies the update only if the stored status still
	// equals expectedStatus and the request is not soft-deleted. It returns
	// false (and no error) when the conditional write matched no row, which
	// is how a lost transition race surfaces.
	CompareAndSetStatus(ctx context.Context, id, expectedStatus string, update StatusUpdate) (bool, error)

	// UpdateContent updates title/description, conditioned on the stored
	// status still being expectedStatus.
	UpdateContent(ctx context.Context, id, expectedStatus, title, description string) (bool, error)

	// MaxSequenceForPrefix returns the highest sequence already allocated
	// for a request-number day prefix, 0 if none.
	MaxSequenceForPrefix(ctx context.Context, prefix string) (int, error)

	List(ctx context.Context, limit, offset int) ([]*entity.Request, error)
}

// LogRepository is the audit log writer. The log is append-only: no update
// or delete operation exists.
type LogRepository interface {
	Append(ctx context.Context, log *entity.RequestLog) error
	GetByRequestID(ctx context.Context, requestID string) ([]*entity.RequestLog, error)
}

// UserRepository defines read operations for actors.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*entity.User, error)
}

// CategoryRepository defines read operations for categories.
type CategoryRepository interface {
	GetByID(ctx context.Context, id int64) (*entity.Category, error)
}

// LocationRepository defines read operations for locations.
type LocationRepository interface {
	GetByID(ctx context.Context, id int64) (*entity.Location, error)
}

// TransactionManager handles database transactions. The function runs with a
// transaction-carrying context; repository calls inside it join that
// transaction.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
