package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GSPA2001/proyectoFinal-backEnd-ParedesAlvarez/internal/domain"
	"github.com/GSPA2001/proyectoFinal-backEnd-ParedesAlvarez/internal/repository"
)

type userRepoMock struct {
	mu       sync.Mutex
	user     *domain.User
	err      error
	setRoles []domain.UserRole
	deleted  int64
}

func (m *userRepoMock) GetUser(context.Context, string) (*domain.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.user, nil
}

func (m *userRepoMock) GetEmail(context.Context, string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return m.user.Email, nil
}

func (m *userRepoMock) ListUsers(context.Context, int, int, string) (*repository.UserPage, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &repository.UserPage{Users: []*domain.User{m.user}, Page: 1, TotalPages: 1, Total: 1}, nil
}

func (m *userRepoMock) CreateUser(context.Context, *domain.User) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return "u-new", nil
}

func (m *userRepoMock) UpdateUser(context.Context, *domain.User) error { return m.err }
func (m *userRepoMock) DeleteUser(context.Context, string) error       { return m.err }

func (m *userRepoMock) SetRole(_ context.Context, _ string, role domain.UserRole) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setRoles = append(m.setRoles, role)
	return nil
}

func (m *userRepoMock) AppendDocuments(context.Context, string, []domain.UserDocument) error {
	return m.err
}

func (m *userRepoMock) DeleteInactive(context.Context, time.Time) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	return m.deleted, nil
}

func newUserRouter(h *UserHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/api/users/{uid}", h.Get)
	r.Delete("/api/users/inactive", h.DeleteInactive)
	r.Post("/api/users/premium/{uid}", h.TogglePremium)
	r.Get("/api/users/mock/{qty}", h.Mock)
	return r
}

func TestGetUser_NotFound(t *testing.T) {
	handler := NewUserHandler(&userRepoMock{err: repository.ErrUserNotFound}, 5*time.Second)

	req := httptest.NewRequest(http.MethodGet, "/api/users/none", nil)
	rec := httptest.NewRecorder()
	newUserRouter(handler).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTogglePremium_PromotesUser(t *testing.T) {
	repo := &userRepoMock{user: &domain.User{ID: "u1", Email: "a@b.c", Role: domain.RoleUser}}
	handler := NewUserHandler(repo, 5*time.Second)

	req := httptest.NewRequest(http.MethodPost, "/api/users/premium/u1", nil)
	rec := httptest.NewRecorder()
	newUserRouter(handler).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, repo.setRoles, 1)
	assert.Equal(t, domain.RolePremium, repo.setRoles[0])
}

func TestTogglePremium_DemotesPremium(t *testing.T) {
	repo := &userRepoMock{user: &domain.User{ID: "u1", Email: "a@b.c", Role: domain.RolePremium}}
	handler := NewUserHandler(repo, 5*time.Second)

	req := httptest.NewRequest(http.MethodPost, "/api/users/premium/u1", nil)
	rec := httptest.NewRecorder()
	newUserRouter(handler).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, repo.setRoles, 1)
	assert.Equal(t, domain.RoleUser, repo.setRoles[0])
}

func TestTogglePremium_RejectsAdmin(t *testing.T) {
	repo := &userRepoMock{user: &domain.User{ID: "u1", Email: "a@b.c", Role: domain.RoleAdmin}}
	handler := NewUserHandler(repo, 5*time.Second)

	req := httptest.NewRequest(http.MethodPost, "/api/users/premium/u1", nil)
	rec := httptest.NewRecorder()
	newUserRouter(handler).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, repo.setRoles)
}

func TestDeleteInactive_ReportsCount(t *testing.T) {
	handler := NewUserHandler(&userRepoMock{deleted: 7}, 5*time.Second)

	req := httptest.NewRequest(http.MethodDelete, "/api/users/inactive", nil)
	rec := httptest.NewRecorder()
	newUserRouter(handler).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Deleted int64 `json:"deleted"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(7), resp.Deleted)
}

func TestMock_ValidatesQuantity(t *testing.T) {
	handler := NewUserHandler(&userRepoMock{}, 5*time.Second)

	for _, qty := range []string{"0", "501", "abc"} {
		req := httptest.NewRequest(http.MethodGet, "/api/users/mock/"+qty, nil)
		rec := httptest.NewRecorder()
		newUserRouter(handler).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "qty=%s", qty)
	}
}

func TestMock_GeneratesUsers(t *testing.T) {
	handler := NewUserHandler(&userRepoMock{}, 5*time.Second)

	req := httptest.NewRequest(http.MethodGet, "/api/users/mock/3", nil)
	rec := httptest.NewRecorder()
	newUserRouter(handler).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Users []UserResponseDTO `json:"users"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Users, 3)
}
