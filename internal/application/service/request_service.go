package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fixflow/fixflow/internal/application/dispatcher"
	"github.com/fixflow/fixflow/internal/application/port"
	appwf "github.com/fixflow/fixflow/internal/application/workflow"
	"github.com/fixflow/fixflow/internal/domain/entity"
	"github.com/fixflow/fixflow/internal/domain/event"
	"github.com/fixflow/fixflow/internal/domain/request"
	domainwf "github.com/fixflow/fixflow/internal/domain/workflow"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Actor is the identity invoking a transition, resolved by the calling
// layer before the engine runs.
type Actor struct {
	ID   string
	Name string
	Role entity.Role
}

// CreateInput carries the payload for creating a request.
type CreateInput struct {
	RequesterID string
	Title       string
	Description string
	CategoryID  int64
	LocationID  int64
}

// UpdateInput carries the editable fields of a request.
type UpdateInput struct {
	Title       string
	Description string
}

// RequestService is the request lifecycle engine. Every method validates the
// transition against the current state and the actor, persists the new state
// atomically together with one audit log entry, and dispatches a
// notification event after the transaction commits.
type RequestService interface {
	Create(ctx context.Context, in CreateInput) (*entity.RequestDetail, error)
	Assign(ctx context.Context, requestID string, actor Actor, technicianID string) (*entity.RequestDetail, error)
	Accept(ctx context.Context, requestID string, actor Actor) (*entity.RequestDetail, error)
	Reject(ctx context.Context, requestID string, actor Actor, reason string) (*entity.RequestDetail, error)
	Start(ctx context.Context, requestID string, actor Actor) (*entity.RequestDetail, error)
	Hold(ctx context.Context, requestID string, actor Actor, reason string) (*entity.RequestDetail, error)
	Resume(ctx context.Context, requestID string, actor Actor) (*entity.RequestDetail, error)
	Complete(ctx context.Context, requestID string, actor Actor, note string) (*entity.RequestDetail, error)
	Cancel(ctx context.Context, requestID string, actor Actor, reason string) (*entity.RequestDetail, error)
	Update(ctx context.Context, requestID string, actor Actor, in UpdateInput) (*entity.RequestDetail, error)

	Get(ctx context.Context, requestID string) (*entity.RequestDetail, error)
	GetLogs(ctx context.Context, requestID string) ([]*entity.RequestLog, error)
	List(ctx context.Context, limit, offset int) ([]*entity.Request, error)
}

// maxNumberAttempts bounds the retry loop for request-number allocation
// under concurrent creation.
const maxNumberAttempts = 10

type requestServiceImpl struct {
	requestRepo  port.RequestRepository
	logRepo      port.LogRepository
	userRepo     port.UserRepository
	categoryRepo port.CategoryRepository
	locationRepo port.LocationRepository
	txManager    port.TransactionManager
	dispatcher   dispatcher.Dispatcher
	logger       Logger
	now          func() time.Time
}

// ServiceOption configures the request service.
type ServiceOption func(*requestServiceImpl)

// WithClock overrides the time source, used in tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *requestServiceImpl) {
		s.now = now
	}
}

// NewRequestService creates the request lifecycle engine.
func NewRequestService(
	requestRepo port.RequestRepository,
	logRepo port.LogRepository,
	userRepo port.UserRepository,
	categoryRepo port.CategoryRepository,
	locationRepo port.LocationRepository,
	txManager port.TransactionManager,
	d dispatcher.Dispatcher,
	logger Logger,
	opts ...ServiceOption,
) RequestService {
	s := &requestServiceImpl{
		requestRepo:  requestRepo,
		logRepo:      logRepo,
		userRepo:     userRepo,
		categoryRepo: categoryRepo,
		locationRepo: locationRepo,
		txManager:    txManager,
		dispatcher:   d,
		logger:       logger,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create allocates a request number and inserts the request in pending
// state. The number allocation is a read-then-write race under concurrent
// creation; the unique index on request_number turns duplicates into
// ErrDuplicateRequestNumber and the loop retries with a fresh sequence.
func (s *requestServiceImpl) Create(ctx context.Context, in CreateInput) (*entity.RequestDetail, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, request.Validation("title is required")
	}
	if in.RequesterID == "" {
		return nil, request.Validation("requester id is required")
	}

	requester, err := s.userRepo.GetByID(ctx, in.RequesterID)
	if err != nil {
		return nil, fmt.Errorf("get requester: %w", err)
	}
	if requester == nil {
		return nil, request.Validation("requester does not exist")
	}

	// Reject unknown references up front so the caller sees a validation
	// error rather than a foreign-key failure from the insert.
	category, err := s.categoryRepo.GetByID(ctx, in.CategoryID)
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	if category == nil {
		return nil, request.Validation("category does not exist")
	}
	location, err := s.locationRepo.GetByID(ctx, in.LocationID)
	if err != nil {
		return nil, fmt.Errorf("get location: %w", err)
	}
	if location == nil {
		return nil, request.Validation("location does not exist")
	}

	now := s.now()
	req := &entity.Request{
		ID:          uuid.NewString(),
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Status:      entity.StatusPending,
		CategoryID:  in.CategoryID,
		LocationID:  in.LocationID,
		RequesterID: in.RequesterID,
	}

	prefix := NumberPrefix(now)
	var lastErr error
	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		lastErr = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
			seq, err := s.requestRepo.MaxSequenceForPrefix(txCtx, prefix)
			if err != nil {
				return fmt.Errorf("read number sequence: %w", err)
			}
			req.RequestNumber = FormatNumber(prefix, seq+1)

			if err := s.requestRepo.Create(txCtx, req); err != nil {
				return err
			}

			return s.logRepo.Append(txCtx, &entity.RequestLog{
				RequestID: req.ID,
				Action:    entity.ActionCreate,
				OldStatus: "",
				NewStatus: entity.StatusPending,
				ActorID:   in.RequesterID,
			})
		})
		if lastErr == nil {
			break
		}
		if !errors.Is(lastErr, port.ErrDuplicateRequestNumber) {
			return nil, lastErr
		}
	}
	if lastErr != nil {
		s.logger.Error("Request number allocation exhausted retries",
			"prefix", prefix, "error", lastErr)
		return nil, fmt.Errorf("allocate request number: %w", lastErr)
	}

	detail, err := s.requestRepo.GetDetail(ctx, req.ID)
	if err != nil {
		return nil, fmt.Errorf("load created request: %w", err)
	}

	s.emit(ctx, event.TypeCreated, detail, Actor{ID: in.RequesterID, Name: requester.Name, Role: requester.Role}, "", entity.StatusPending, "")

	s.logger.Info("Request created",
		"request_id", req.ID,
		"request_number", req.RequestNumber,
		"requester_id", in.RequesterID,
	)
	return detail, nil
}

// Assign puts a pending or rejected request in the hands of a technician.
func (s *requestServiceImpl) Assign(ctx context.Context, requestID string, actor Actor, technicianID string) (*entity.RequestDetail, error) {
	now := s.now()
	return s.transition(ctx, requestID, actor, transitionSpec{
		trigger:   domainwf.TriggerAssign,
		eventType: event.TypeAssigned,
		authorize: func(req *entity.Request) error {
			if actor.Role != entity.RoleAdmin {
				return request.Forbidden(entity.ActionAssign, actor.ID)
			}
			return nil
		},
		validate: func(ctx context.Context, req *entity.Request) error {
			if technicianID == "" {
				return request.Validation("technician id is required")
			}
			tech, err := s.userRepo.GetByID(ctx, technicianID)
			if err != nil {
				return fmt.Errorf("get technician: %w", err)
			}
			if tech == nil || tech.Role != entity.RoleTechnician || !tech.Available {
				return request.TechnicianNotFound(technicianID)
			}
			return nil
		},
		update: func() port.StatusUpdate {
			return port.StatusUpdate{
				TechnicianID: &technicianID,
				AssignedAt:   &now,
			}
		},
	})
}

// Accept confirms the assigned technician will take the work.
func (s *requestServiceImpl) Accept(ctx context.Context, requestID string, actor Actor) (*entity.RequestDetail, error) {
	return s.transition(ctx, requestID, actor, transitionSpec{
		trigger:   domainwf.TriggerAccept,
		eventType: event.TypeAccepted,
		authorize: func(req *entity.Request) error {
			return requireAssignedTechnician(actor, req, entity.ActionAccept)
		},
	})
}

// Reject returns an assigned request to the pool. The technician reference
// and assignment timestamp are cleared so the request can be assigned again;
// a non-empty reason is required.
func (s *requestServiceImpl) Reject(ctx context.Context, requestID string, actor Actor, reason string) (*entity.RequestDetail, error) {
	return s.transition(ctx, requestID, actor, transitionSpec{
		trigger:   domainwf.TriggerReject,
		eventType: event.TypeRejected,
		note:      reason,
		authorize: func(req *entity.Request) error {
			return requireAssignedTechnician(actor, req, entity.ActionReject)
		},
		validate: func(ctx context.Context, req *entity.Request) error {
			if strings.TrimSpace(reason) == "" {
				return request.Validation("rejection reason is required")
			}
			return nil
		},
		update: func() port.StatusUpdate {
			return port.StatusUpdate{
				ClearTechnician: true,
				ClearAssignedAt: true,
			}
		},
	})
}

// Start moves an accepted request into execution.
func (s *requestServiceImpl) Start(ctx context.Context, requestID string, actor Actor) (*entity.RequestDetail, error) {
	now := s.now()
	return s.transition(ctx, requestID, actor, transitionSpec{
		trigger:   domainwf.TriggerStart,
		eventType: event.TypeStarted,
		authorize: func(req *entity.Request) error {
			return requireAssignedTechnician(actor, req, entity.ActionStart)
		},
		update: func() port.StatusUpdate {
			return port.StatusUpdate{StartedAt: &now}
		},
	})
}

// Hold pauses work in progress.
func (s *requestServiceImpl) Hold(ctx context.Context, requestID string, actor Actor, reason string) (*entity.RequestDetail, error) {
	return s.transition(ctx, requestID, actor, transitionSpec{
		trigger:   domainwf.TriggerHold,
		eventType: event.TypeHeld,
		note:      reason,
		authorize: func(req *entity.Request) error {
			return requireAssignedTechnician(actor, req, entity.ActionHold)
		},
	})
}

// Resume continues work that was on hold.
func (s *requestServiceImpl) Resume(ctx context.Context, requestID string, actor Actor) (*entity.RequestDetail, error) {
	return s.transition(ctx, requestID, actor, transitionSpec{
		trigger:   domainwf.TriggerResume,
		eventType: event.TypeResumed,
		authorize: func(req *entity.Request) error {
			return requireAssignedTechnician(actor, req, entity.ActionResume)
		},
	})
}

// Complete finishes the work, from in_progress or on_hold. The note is
// optional and lands in the audit log and the notification payload.
func (s *requestServiceImpl) Complete(ctx context.Context, requestID string, actor Actor, note string) (*entity.RequestDetail, error) {
	now := s.now()
	return s.transition(ctx, requestID, actor, transitionSpec{
		trigger:   domainwf.TriggerComplete,
		eventType: event.TypeCompleted,
		note:      note,
		authorize: func(req *entity.Request) error {
			return requireAssignedTechnician(actor, req, entity.ActionComplete)
		},
		update: func() port.StatusUpdate {
			return port.StatusUpdate{CompletedAt: &now}
		},
	})
}

// Cancel soft-deletes the request. The requester may cancel while the
// request is pending or assigned; cancelled is terminal.
func (s *requestServiceImpl) Cancel(ctx context.Context, requestID string, actor Actor, reason string) (*entity.RequestDetail, error) {
	now := s.now()
	return s.transition(ctx, requestID, actor, transitionSpec{
		trigger:   domainwf.TriggerCancel,
		eventType: event.TypeCancelled,
		note:      reason,
		authorize: func(req *entity.Request) error {
			return requireOwner(actor, req, entity.ActionCancel)
		},
		update: func() port.StatusUpdate {
			return port.StatusUpdate{DeletedAt: &now}
		},
	})
}

// Update edits title/description while the request is still editable
// (pending or assigned). The status is unchanged, but the edit goes through
// the same legality and authorization checks as a transition and leaves an
// audit entry.
func (s *requestServiceImpl) Update(ctx context.Context, requestID string, actor Actor, in UpdateInput) (*entity.RequestDetail, error) {
	req, err := s.loadForTransition(ctx, requestID)
	if err != nil {
		return nil, err
	}

	machine := appwf.BuildRequestStateMachine(domainwf.State(req.Status))
	if !machine.CanFire(domainwf.TriggerUpdate) {
		return nil, request.IllegalTransition(entity.ActionUpdate, req.Status)
	}
	if err := requireOwner(actor, req, entity.ActionUpdate); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, request.Validation("title is required")
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		ok, err := s.requestRepo.UpdateContent(txCtx, requestID, req.Status, strings.TrimSpace(in.Title), in.Description)
		if err != nil {
			return fmt.Errorf("update content: %w", err)
		}
		if !ok {
			return request.IllegalTransition(entity.ActionUpdate, req.Status)
		}

		return s.logRepo.Append(txCtx, &entity.RequestLog{
			RequestID: requestID,
			Action:    entity.ActionUpdate,
			OldStatus: req.Status,
			NewStatus: req.Status,
			ActorID:   actor.ID,
		})
	})
	if err != nil {
		return nil, err
	}

	detail, err := s.requestRepo.GetDetail(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("load updated request: %w", err)
	}

	s.emit(ctx, event.TypeUpdated, detail, actor, req.Status, req.Status, "")
	return detail, nil
}

// Get returns the request with its relations loaded.
func (s *requestServiceImpl) Get(ctx context.Context, requestID string) (*entity.RequestDetail, error) {
	detail, err := s.requestRepo.GetDetail(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if detail == nil {
		return nil, request.NotFound(requestID)
	}
	return detail, nil
}

// GetLogs returns the audit trail of a request in CreatedAt order.
func (s *requestServiceImpl) GetLogs(ctx context.Context, requestID string) ([]*entity.RequestLog, error) {
	req, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, request.NotFound(requestID)
	}
	return s.logRepo.GetByRequestID(ctx, requestID)
}

// List returns active requests, newest first.
func (s *requestServiceImpl) List(ctx context.Context, limit, offset int) ([]*entity.Request, error) {
	return s.requestRepo.List(ctx, limit, offset)
}

// transitionSpec describes one lifecycle action for the shared transition
// skeleton: the machine trigger, the notification event, the authorization
// rule, optional payload validation, and the fields written alongside the
// status.
type transitionSpec struct {
	trigger   domainwf.Trigger
	eventType event.Type
	note      string
	authorize func(req *entity.Request) error
	validate  func(ctx context.Context, req *entity.Request) error
	update    func() port.StatusUpdate
}

// transition runs the shared skeleton. Preconditions are checked in a fixed
// order: existence, state legality, authorization, payload validity. The
// status write is a compare-and-set against the status observed at load
// time, so two concurrent transitions on the same request cannot both
// succeed; the loser surfaces the same illegal-transition error a stale
// caller would see.
func (s *requestServiceImpl) transition(ctx context.Context, requestID string, actor Actor, spec transitionSpec) (*entity.RequestDetail, error) {
	req, err := s.loadForTransition(ctx, requestID)
	if err != nil {
		return nil, err
	}

	action := spec.trigger.String()

	machine := appwf.BuildRequestStateMachine(domainwf.State(req.Status))
	if !machine.CanFire(spec.trigger) {
		return nil, request.IllegalTransition(action, req.Status)
	}
	if spec.authorize != nil {
		if err := spec.authorize(req); err != nil {
			return nil, err
		}
	}
	if spec.validate != nil {
		if err := spec.validate(ctx, req); err != nil {
			return nil, err
		}
	}

	if err := machine.Fire(ctx, spec.trigger); err != nil {
		return nil, fmt.Errorf("fire %s: %w", action, err)
	}
	newStatus := machine.State().String()

	update := port.StatusUpdate{}
	if spec.update != nil {
		update = spec.update()
	}
	update.Status = newStatus

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		ok, err := s.requestRepo.CompareAndSetStatus(txCtx, requestID, req.Status, update)
		if err != nil {
			return fmt.Errorf("compare-and-set status: %w", err)
		}
		if !ok {
			// A concurrent transition changed the status since we loaded it.
			return request.IllegalTransition(action, req.Status)
		}

		return s.logRepo.Append(txCtx, &entity.RequestLog{
			RequestID: requestID,
			Action:    action,
			OldStatus: req.Status,
			NewStatus: newStatus,
			Note:      spec.note,
			ActorID:   actor.ID,
		})
	})
	if err != nil {
		return nil, err
	}

	detail, err := s.requestRepo.GetDetail(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("load request after %s: %w", action, err)
	}

	s.emit(ctx, spec.eventType, detail, actor, req.Status, newStatus, spec.note)

	s.logger.Info("Request transition committed",
		"request_id", requestID,
		"action", action,
		"old_status", req.Status,
		"new_status", newStatus,
		"actor_id", actor.ID,
	)
	return detail, nil
}

// loadForTransition loads the request or reports NotFound, which also
// covers soft-deleted requests since the repository hides them.
func (s *requestServiceImpl) loadForTransition(ctx context.Context, requestID string) (*entity.Request, error) {
	req, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("get request: %w", err)
	}
	if req == nil {
		return nil, request.NotFound(requestID)
	}
	return req, nil
}

// emit builds the notification payload once and hands it to the dispatcher.
// Dispatch is fire-and-forget: it runs only after the transaction committed
// and its outcome never reaches the caller.
func (s *requestServiceImpl) emit(ctx context.Context, eventType event.Type, detail *entity.RequestDetail, actor Actor, oldStatus, newStatus, note string) {
	if s.dispatcher == nil || detail == nil {
		return
	}

	summary := event.Summary{
		RequestNumber: detail.RequestNumber,
		Title:         detail.Title,
		ActorName:     actor.Name,
		OldStatus:     oldStatus,
		NewStatus:     newStatus,
		Note:          note,
	}
	if detail.Category != nil {
		summary.Category = detail.Category.Name
	}
	summary.Location = detail.Location.Label()
	if detail.Requester != nil {
		summary.RequesterName = detail.Requester.Name
	}
	if detail.Technician != nil {
		summary.TechnicianName = detail.Technician.Name
	}

	// Delivery outlives the caller's request context; detach so handler
	// sends are not aborted when that context is cancelled.
	s.dispatcher.DispatchAsync(context.WithoutCancel(ctx), event.New(eventType, detail.ID, summary))
}

func requireAssignedTechnician(actor Actor, req *entity.Request, action string) error {
	if actor.Role != entity.RoleTechnician || req.TechnicianID == nil || *req.TechnicianID != actor.ID {
		return request.Forbidden(action, actor.ID)
	}
	return nil
}

func requireOwner(actor Actor, req *entity.Request, action string) error {
	if actor.ID != req.RequesterID {
		return request.Forbidden(action, actor.ID)
	}
	return nil
}
