package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fixflow/fixflow/internal/application/service"
	"github.com/fixflow/fixflow/internal/domain/entity"
	"github.com/fixflow/fixflow/internal/domain/request"
)

// mockRequestService implements service.RequestService with function fields.
type mockRequestService struct {
	createFunc   func(ctx context.Context, in service.CreateInput) (*entity.RequestDetail, error)
	assignFunc   func(ctx context.Context, requestID string, actor service.Actor, technicianID string) (*entity.RequestDetail, error)
	acceptFunc   func(ctx context.Context, requestID string, actor service.Actor) (*entity.RequestDetail, error)
	rejectFunc   func(ctx context.Context, requestID string, actor service.Actor, reason string) (*entity.RequestDetail, error)
	startFunc    func(ctx context.Context, requestID string, actor service.Actor) (*entity.RequestDetail, error)
	holdFunc     func(ctx context.Context, requestID string, actor service.Actor, reason string) (*entity.RequestDetail, error)
	resumeFunc   func(ctx context.Context, requestID string, actor service.Actor) (*entity.RequestDetail, error)
	completeFunc func(ctx context.Context, requestID string, actor service.Actor, note string) (*entity.RequestDetail, error)
	cancelFunc   func(ctx context.Context, requestID string, actor service.Actor, reason string) (*entity.RequestDetail, error)
	updateFunc   func(ctx context.Context, requestID string, actor service.Actor, in service.UpdateInput) (*entity.RequestDetail, error)
	getFunc      func(ctx context.Context, requestID string) (*entity.RequestDetail, error)
	getLogsFunc  func(ctx context.Context, requestID string) ([]*entity.RequestLog, error)
	listFunc     func(ctx context.Context, limit, offset int) ([]*entity.Request, error)
}

func detailFixture(id string) *entity.RequestDetail {
	return &entity.RequestDetail{Request: entity.Request{ID: id, RequestNumber: "REQ-20260829-0001", Status: entity.StatusPending}}
}

func (m *mockRequestService) Create(ctx context.Context, in service.CreateInput) (*entity.RequestDetail, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, in)
	}
	return detailFixture("req-1"), nil
}

func (m *mockRequestService) Assign(ctx context.Context, requestID string, actor service.Actor, technicianID string) (*entity.RequestDetail, error) {
	if m.assignFunc != nil {
		return m.assignFunc(ctx, requestID, actor, technicianID)
	}
	return detailFixture(requestID), nil
}

func (m *mockRequestService) Accept(ctx context.Context, requestID string, actor service.Actor) (*entity.RequestDetail, error) {
	if m.acceptFunc != nil {
		return m.acceptFunc(ctx, requestID, actor)
	}
	return detailFixture(requestID), nil
}

func (m *mockRequestService) Reject(ctx context.Context, requestID string, actor service.Actor, reason string) (*entity.RequestDetail, error) {
	if m.rejectFunc != nil {
		return m.rejectFunc(ctx, requestID, actor, reason)
	}
	return detailFixture(requestID), nil
}

func (m *mockRequestService) Start(ctx context.Context, requestID string, actor service.Actor) (*entity.RequestDetail, error) {
	if m.startFunc != nil {
		return m.startFunc(ctx, requestID, actor)
	}
	return detailFixture(requestID), nil
}

func (m *mockRequestService) Hold(ctx context.Context, requestID string, actor service.Actor, reason string) (*entity.RequestDetail, error) {
	if m.holdFunc != nil {
		return m.holdFunc(ctx, requestID, actor, reason)
	}
	return detailFixture(requestID), nil
}

func (m *mockRequestService) Resume(ctx context.Context, requestID string, actor service.Actor) (*entity.RequestDetail, error) {
	if m.resumeFunc != nil {
		return m.resumeFunc(ctx, requestID, actor)
	}
	return detailFixture(requestID), nil
}

func (m *mockRequestService) Complete(ctx context.Context, requestID string, actor service.Actor, note string) (*entity.RequestDetail, error) {
	if m.completeFunc != nil {
		return m.completeFunc(ctx, requestID, actor, note)
	}
	return detailFixture(requestID), nil
}

func (m *mockRequestService) Cancel(ctx context.Context, requestID string, actor service.Actor, reason string) (*entity.RequestDetail, error) {
	if m.cancelFunc != nil {
		return m.cancelFunc(ctx, requestID, actor, reason)
	}
	return detailFixture(requestID), nil
}

func (m *mockRequestService) Update(ctx context.Context, requestID string, actor service.Actor, in service.UpdateInput) (*entity.RequestDetail, error) {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, requestID, actor, in)
	}
	return detailFixture(requestID), nil
}

func (m *mockRequestService) Get(ctx context.Context, requestID string) (*entity.RequestDetail, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, requestID)
	}
	return detailFixture(requestID), nil
}

func (m *mockRequestService) GetLogs(ctx context.Context, requestID string) ([]*entity.RequestLog, error) {
	if m.getLogsFunc != nil {
		return m.getLogsFunc(ctx, requestID)
	}
	return []*entity.RequestLog{}, nil
}

func (m *mockRequestService) List(ctx context.Context, limit, offset int) ([]*entity.Request, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, limit, offset)
	}
	return []*entity.Request{}, nil
}

type mockUserRepo struct {
	getByIDFunc func(ctx context.Context, id string) (*entity.User, error)
}

func (m *mockUserRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return &entity.User{ID: id, Name: "User", Role: entity.RoleRequester}, nil
}

type mockLogger struct{}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {}

func newTestServer(svc service.RequestService, users *mockUserRepo) *Server {
	if users == nil {
		users = &mockUserRepo{}
	}
	return NewServer(DefaultServerConfig(), svc, users, &mockLogger{})
}

func doRequest(s *Server, method, path, actorID string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if actorID != "" {
		req.Header.Set(actorHeader, actorID)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	return resp
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(&mockRequestService{}, nil)

	w := doRequest(s, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("health status = %d, want 200", w.Code)
	}
}

func TestCreateRequest(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		var gotInput service.CreateInput
		svc := &mockRequestService{
			createFunc: func(ctx context.Context, in service.CreateInput) (*entity.RequestDetail, error) {
				gotInput = in
				return detailFixture("req-1"), nil
			},
		}
		s := newTestServer(svc, nil)

		w := doRequest(s, http.MethodPost, "/api/requests", "user-1", CreateRequestBody{
			Title:      "Broken radiator",
			CategoryID: 2,
			LocationID: 3,
		})
		if w.Code != http.StatusCreated {
			t.Fatalf("status = %d, want 201, body %s", w.Code, w.Body.String())
		}
		if gotInput.RequesterID != "user-1" {
			t.Errorf("requester = %v, want header actor", gotInput.RequesterID)
		}
	})

	t.Run("missing actor header", func(t *testing.T) {
		s := newTestServer(&mockRequestService{}, nil)

		w := doRequest(s, http.MethodPost, "/api/requests", "", CreateRequestBody{Title: "x"})
		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", w.Code)
		}
	})

	t.Run("unknown actor", func(t *testing.T) {
		users := &mockUserRepo{
			getByIDFunc: func(ctx context.Context, id string) (*entity.User, error) {
				return nil, nil
			},
		}
		s := newTestServer(&mockRequestService{}, users)

		w := doRequest(s, http.MethodPost, "/api/requests", "ghost", CreateRequestBody{Title: "x"})
		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", w.Code)
		}
	})

	t.Run("missing title", func(t *testing.T) {
		s := newTestServer(&mockRequestService{}, nil)

		w := doRequest(s, http.MethodPost, "/api/requests", "user-1", map[string]string{"description": "no title"})
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", request.NotFound("req-1"), http.StatusNotFound, "REQUEST_NOT_FOUND"},
		{"forbidden", request.Forbidden("accept", "user-2"), http.StatusForbidden, "FORBIDDEN"},
		{"illegal transition", request.IllegalTransition("accept", "pending"), http.StatusConflict, "CANNOT_ACCEPT"},
		{"validation", request.Validation("reason is required"), http.StatusBadRequest, "VALIDATION_ERROR"},
		{"technician not found", request.TechnicianNotFound("tech-9"), http.StatusBadRequest, "TECHNICIAN_NOT_FOUND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockRequestService{
				acceptFunc: func(ctx context.Context, requestID string, actor service.Actor) (*entity.RequestDetail, error) {
					return nil, tt.err
				},
			}
			s := newTestServer(svc, nil)

			w := doRequest(s, http.MethodPost, "/api/requests/req-1/accept", "user-1", nil)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}

			resp := decodeResponse(t, w)
			if resp.Success {
				t.Error("success = true on error response")
			}
			if resp.Error == nil || resp.Error.Code != tt.wantCode {
				t.Errorf("error = %+v, want code %s", resp.Error, tt.wantCode)
			}
		})
	}
}

func TestTransitionRoutes(t *testing.T) {
	// Each action route reaches its service method with the resolved actor.
	calls := map[string]bool{}
	svc := &mockRequestService{
		assignFunc: func(ctx context.Context, requestID string, actor service.Actor, technicianID string) (*entity.RequestDetail, error) {
			calls["assign"] = technicianID == "tech-1"
			return detailFixture(requestID), nil
		},
		rejectFunc: func(ctx context.Context, requestID string, actor service.Actor, reason string) (*entity.RequestDetail, error) {
			calls["reject"] = reason == "wrong trade"
			return detailFixture(requestID), nil
		},
		startFunc: func(ctx context.Context, requestID string, actor service.Actor) (*entity.RequestDetail, error) {
			calls["start"] = true
			return detailFixture(requestID), nil
		},
		holdFunc: func(ctx context.Context, requestID string, actor service.Actor, reason string) (*entity.RequestDetail, error) {
			calls["hold"] = true
			return detailFixture(requestID), nil
		},
		resumeFunc: func(ctx context.Context, requestID string, actor service.Actor) (*entity.RequestDetail, error) {
			calls["resume"] = true
			return detailFixture(requestID), nil
		},
		completeFunc: func(ctx context.Context, requestID string, actor service.Actor, note string) (*entity.RequestDetail, error) {
			calls["complete"] = note == "all fixed"
			return detailFixture(requestID), nil
		},
		cancelFunc: func(ctx context.Context, requestID string, actor service.Actor, reason string) (*entity.RequestDetail, error) {
			calls["cancel"] = true
			return detailFixture(requestID), nil
		},
	}
	s := newTestServer(svc, nil)

	steps := []struct {
		path string
		body interface{}
	}{
		{"/api/requests/req-1/assign", AssignRequestBody{TechnicianID: "tech-1"}},
		{"/api/requests/req-1/reject", ReasonBody{Reason: "wrong trade"}},
		{"/api/requests/req-1/start", nil},
		{"/api/requests/req-1/hold", nil},
		{"/api/requests/req-1/resume", nil},
		{"/api/requests/req-1/complete", NoteBody{Note: "all fixed"}},
		{"/api/requests/req-1/cancel", nil},
	}
	for _, step := range steps {
		if w := doRequest(s, http.MethodPost, step.path, "user-1", step.body); w.Code != http.StatusOK {
			t.Errorf("%s status = %d, want 200, body %s", step.path, w.Code, w.Body.String())
		}
	}

	for _, action := range []string{"assign", "reject", "start", "hold", "resume", "complete", "cancel"} {
		if !calls[action] {
			t.Errorf("action %s did not reach the service with expected payload", action)
		}
	}
}

func TestGetAndListRoutes(t *testing.T) {
	t.Run("get", func(t *testing.T) {
		s := newTestServer(&mockRequestService{}, nil)
		w := doRequest(s, http.MethodGet, "/api/requests/req-1", "", nil)
		if w.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", w.Code)
		}
	})

	t.Run("logs", func(t *testing.T) {
		s := newTestServer(&mockRequestService{}, nil)
		w := doRequest(s, http.MethodGet, "/api/requests/req-1/logs", "", nil)
		if w.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", w.Code)
		}
	})

	t.Run("list clamps limit", func(t *testing.T) {
		var gotLimit int
		svc := &mockRequestService{
			listFunc: func(ctx context.Context, limit, offset int) ([]*entity.Request, error) {
				gotLimit = limit
				return []*entity.Request{}, nil
			},
		}
		s := newTestServer(svc, nil)

		if w := doRequest(s, http.MethodGet, "/api/requests?limit=5000", "", nil); w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
		if gotLimit != 20 {
			t.Errorf("limit = %d, want clamped to 20", gotLimit)
		}
	})

	t.Run("patch", func(t *testing.T) {
		var gotTitle string
		svc := &mockRequestService{
			updateFunc: func(ctx context.Context, requestID string, actor service.Actor, in service.UpdateInput) (*entity.RequestDetail, error) {
				gotTitle = in.Title
				return detailFixture(requestID), nil
			},
		}
		s := newTestServer(svc, nil)

		w := doRequest(s, http.MethodPatch, "/api/requests/req-1", "user-1", UpdateRequestBody{Title: "New title"})
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
		if gotTitle != "New title" {
			t.Errorf("title = %q, want New title", gotTitle)
		}
	})
}
