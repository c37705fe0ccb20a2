package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/learnhub/learnhub/internal/model"
	"github.com/learnhub/learnhub/internal/service"
)

// stubUserDirectory is a stub implementation of UserDirectory for testing.
type stubUserDirectory struct {
	createFn     func(ctx context.Context, input service.CreateUserInput) (*model.User, error)
	getFn        func(ctx context.Context, id string) (*model.User, error)
	getByEmailFn func(ctx context.Context, email string) (*model.User, error)
	listFn       func(ctx context.Context, input service.ListUsersInput) (*service.ListUsersOutput, error)
	updateFn     func(ctx context.Context, input service.UpdateUserInput) (*model.User, error)
	deleteFn     func(ctx context.Context, id, actorID string) error

	viewedUserID string
}

func (s *stubUserDirectory) CreateUser(ctx context.Context, input service.CreateUserInput) (*model.User, error) {
	return s.createFn(ctx, input)
}

func (s *stubUserDirectory) GetUser(ctx context.Context, id string) (*model.User, error) {
	return s.getFn(ctx, id)
}

func (s *stubUserDirectory) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.getByEmailFn(ctx, email)
}

func (s *stubUserDirectory) ListUsers(ctx context.Context, input service.ListUsersInput) (*service.ListUsersOutput, error) {
	return s.listFn(ctx, input)
}

func (s *stubUserDirectory) UpdateUser(ctx context.Context, input service.UpdateUserInput) (*model.User, error) {
	return s.updateFn(ctx, input)
}

func (s *stubUserDirectory) DeleteUser(ctx context.Context, id, actorID string) error {
	return s.deleteFn(ctx, id, actorID)
}

func (s *stubUserDirectory) RecordProfileView(userID, actorID, userAgent, sourceIP string) {
	s.viewedUserID = userID
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testUser() *model.User {
	now := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	return &model.User{
		ID:        "01HTESTUSER000000000000000",
		Email:     "student@example.edu",
		FullName:  "Test Student",
		Roles:     []string{model.RoleStudent},
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func newUserRouter(svc UserDirectory) http.Handler {
	h := NewUserHandler(svc, testLogger())
	r := chi.NewRouter()
	r.Route("/api/users", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
		r.Patch("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
	return r
}

func TestUserHandler_List_DataEnvelope(t *testing.T) {
	stub := &stubUserDirectory{
		listFn: func(ctx context.Context, input service.ListUsersInput) (*service.ListUsersOutput, error) {
			return &service.ListUsersOutput{
				Users:      []*model.User{testUser()},
				NextCursor: "abc123",
				HasMore:    true,
			}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	rec := httptest.NewRecorder()

	newUserRouter(stub).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var response map[string]json.RawMessage
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	data, ok := response["data"]
	if !ok {
		t.Fatal("response missing 'data' key")
	}

	var users []map[string]any
	if err := json.Unmarshal(data, &users); err != nil {
		t.Fatalf("'data' is not an array: %v", err)
	}
	if len(users) != 1 {
		t.Fatalf("expected 1 user, got %d", len(users))
	}
	if users[0]["email"] != "student@example.edu" {
		t.Errorf("unexpected email: %v", users[0]["email"])
	}
	if _, hasHash := users[0]["password_hash"]; hasHash {
		t.Error("password_hash must never be serialized")
	}
}

func TestUserHandler_List_EmptyDataIsArray(t *testing.T) {
	stub := &stubUserDirectory{
		listFn: func(ctx context.Context, input service.ListUsersInput) (*service.ListUsersOutput, error) {
			return &service.ListUsersOutput{Users: nil}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	rec := httptest.NewRecorder()

	newUserRouter(stub).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	body := rec.Body.String()
	if !bytes.Contains([]byte(body), []byte(`"data":[]`)) {
		t.Errorf("empty list must serialize data as [], got: %s", body)
	}
}

func TestUserHandler_List_EmailLookup(t *testing.T) {
	user := testUser()
	stub := &stubUserDirectory{
		getByEmailFn: func(ctx context.Context, email string) (*model.User, error) {
			if email != user.Email {
				t.Errorf("unexpected email: %s", email)
			}
			return user, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/users?email=student%40example.edu", nil)
	rec := httptest.NewRecorder()

	newUserRouter(stub).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var response struct {
		Data []map[string]any `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(response.Data) != 1 {
		t.Fatalf("expected 1 user, got %d", len(response.Data))
	}
	if response.Data[0]["id"] != user.ID {
		t.Errorf("unexpected id: %v", response.Data[0]["id"])
	}
}

func TestUserHandler_List_EmailLookup_NotFound(t *testing.T) {
	stub := &stubUserDirectory{
		getByEmailFn: func(ctx context.Context, email string) (*model.User, error) {
			return nil, service.ErrUserNotFound
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/users?email=missing%40example.edu", nil)
	rec := httptest.NewRecorder()

	newUserRouter(stub).ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rec.Code)
	}
}

func TestUserHandler_List_InvalidCursor(t *testing.T) {
	stub := &stubUserDirectory{
		listFn: func(ctx context.Context, input service.ListUsersInput) (*service.ListUsersOutput, error) {
			return nil, service.ErrInvalidCursor
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/users?cursor=garbage", nil)
	rec := httptest.NewRecorder()

	newUserRouter(stub).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rec.Code)
	}
}

func TestUserHandler_Get_Found(t *testing.T) {
	user := testUser()
	stub := &stubUserDirectory{
		getFn: func(ctx context.Context, id string) (*model.User, error) {
			if id != user.ID {
				t.Errorf("unexpected id: %s", id)
			}
			return user, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/users/"+user.ID, nil)
	rec := httptest.NewRecorder()

	newUserRouter(stub).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var response map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response["status"] != "active" {
		t.Errorf("expected status 'active', got %v", response["status"])
	}

	if stub.viewedUserID != user.ID {
		t.Error("expected a profile view to be recorded")
	}
}

func TestUserHandler_Get_NotFound(t *testing.T) {
	stub := &stubUserDirectory{
		getFn: func(ctx context.Context, id string) (*model.User, error) {
			return nil, service.ErrUserNotFound
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/users/01HMISSING", nil)
	rec := httptest.NewRecorder()

	newUserRouter(stub).ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}

	var response map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response["code"] != "USER_NOT_FOUND" {
		t.Errorf("expected code USER_NOT_FOUND, got %s", response["code"])
	}
}

func TestUserHandler_Create(t *testing.T) {
	stub := &stubUserDirectory{
		createFn: func(ctx context.Context, input service.CreateUserInput) (*model.User, error) {
			if input.Email != "new@example.edu" {
				t.Errorf("unexpected email: %s", input.Email)
			}
			user := testUser()
			user.Email = input.Email
			user.FullName = input.FullName
			return user, nil
		},
	}

	body := bytes.NewBufferString(`{"email":"new@example.edu","full_name":"New Student"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/users", body)
	rec := httptest.NewRecorder()

	newUserRouter(stub).ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestUserHandler_Create_InvalidJSON(t *testing.T) {
	stub := &stubUserDirectory{}

	body := bytes.NewBufferString(`{not json`)
	req := httptest.NewRequest(http.MethodPost, "/api/users", body)
	rec := httptest.NewRecorder()

	newUserRouter(stub).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rec.Code)
	}
}

func TestUserHandler_Create_EmailTaken(t *testing.T) {
	stub := &stubUserDirectory{
		createFn: func(ctx context.Context, input service.CreateUserInput) (*model.User, error) {
			return nil, service.ErrEmailTaken
		},
	}

	body := bytes.NewBufferString(`{"email":"dup@example.edu","full_name":"Dup"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/users", body)
	rec := httptest.NewRecorder()

	newUserRouter(stub).ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Errorf("expected status 409, got %d", rec.Code)
	}
}

func TestUserHandler_Update_PassesActor(t *testing.T) {
	var gotActor string
	stub := &stubUserDirectory{
		updateFn: func(ctx context.Context, input service.UpdateUserInput) (*model.User, error) {
			gotActor = input.ActorID
			return testUser(), nil
		},
	}

	body := bytes.NewBufferString(`{"active":false}`)
	req := httptest.NewRequest(http.MethodPatch, "/api/users/01HTESTUSER000000000000000", body)
	req.Header.Set("X-Actor-ID", "01HADMIN")
	rec := httptest.NewRecorder()

	newUserRouter(stub).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if gotActor != "01HADMIN" {
		t.Errorf("expected actor 01HADMIN, got %q", gotActor)
	}
}

func TestUserHandler_Delete(t *testing.T) {
	stub := &stubUserDirectory{
		deleteFn: func(ctx context.Context, id, actorID string) error {
			return nil
		},
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/users/01HTESTUSER000000000000000", nil)
	rec := httptest.NewRecorder()

	newUserRouter(stub).ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("expected status 204, got %d", rec.Code)
	}
}

func TestUserHandler_Delete_NotFound(t *testing.T) {
	stub := &stubUserDirectory{
		deleteFn: func(ctx context.Context, id, actorID string) error {
			return service.ErrUserNotFound
		},
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/users/01HMISSING", nil)
	rec := httptest.NewRecorder()

	newUserRouter(stub).ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rec.Code)
	}
}
