package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/GSPA2001/proyectoFinal-backEnd-ParedesAlvarez/internal/domain"
	"github.com/GSPA2001/proyectoFinal-backEnd-ParedesAlvarez/internal/mockdata"
	"github.com/GSPA2001/proyectoFinal-backEnd-ParedesAlvarez/internal/repository"
)

// inactivityWindow is how long a user may be idle before the bulk cleanup
// removes the account.
const inactivityWindow = 48 * time.Hour

type UserHandler struct {
	users   repository.UserRepository
	timeout time.Duration
}

func NewUserHandler(users repository.UserRepository, timeout time.Duration) *UserHandler {
	return &UserHandler{users: users, timeout: timeout}
}

type UserRequestDTO struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Age       int    `json:"age"`
}

type UserResponseDTO struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Age       int    `json:"age"`
	Role      string `json:"role"`
}

func toUserDTO(u *domain.User) UserResponseDTO {
	return UserResponseDTO{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Age:       u.Age,
		Role:      string(u.Role),
	}
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	result, err := h.users.ListUsers(ctx, 1, 100, "asc")
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to list users")
		return
	}

	dtos := make([]UserResponseDTO, 0, len(result.Users))
	for _, u := range result.Users {
		dtos = append(dtos, toUserDTO(u))
	}
	respondJSON(w, http.StatusOK, map[string]any{"users": dtos})
}

func (h *UserHandler) ListPaginated(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	page, limit, sort, ok := paginationParams(w, r)
	if !ok {
		return
	}

	result, err := h.users.ListUsers(ctx, page, limit, sort)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to list users")
		return
	}

	dtos := make([]UserResponseDTO, 0, len(result.Users))
	for _, u := range result.Users {
		dtos = append(dtos, toUserDTO(u))
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"users":       dtos,
		"page":        result.Page,
		"total_pages": result.TotalPages,
		"total":       result.Total,
	})
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := chi.URLParam(r, "uid")
	user, err := h.users.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			respondError(w, http.StatusNotFound, "user_not_found", "the user with id "+userID+" does not exist")
			return
		}
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to load user")
		return
	}
	respondJSON(w, http.StatusOK, toUserDTO(user))
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req UserRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Email == "" {
		respondError(w, http.StatusBadRequest, "missing_email", "email is required")
		return
	}

	id, err := h.users.CreateUser(ctx, &domain.User{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Age:       req.Age,
		Role:      domain.RoleUser,
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to create user")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := chi.URLParam(r, "uid")
	var req UserRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	err := h.users.UpdateUser(ctx, &domain.User{
		ID:        userID,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Age:       req.Age,
	})
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			respondError(w, http.StatusNotFound, "user_not_found", "the user with id "+userID+" does not exist")
			return
		}
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to update user")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := chi.URLParam(r, "uid")
	if err := h.users.DeleteUser(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			respondError(w, http.StatusNotFound, "user_not_found", "the user with id "+userID+" does not exist")
			return
		}
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to delete user")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// DeleteInactive removes accounts idle for longer than the inactivity window.
func (h *UserHandler) DeleteInactive(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	deleted, err := h.users.DeleteInactive(ctx, time.Now().Add(-inactivityWindow))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to delete inactive users")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"status": "success", "deleted": deleted})
}

// TogglePremium switches a user between the user and premium roles.
func (h *UserHandler) TogglePremium(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := chi.URLParam(r, "uid")
	user, err := h.users.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			respondError(w, http.StatusNotFound, "user_not_found", "the user with id "+userID+" does not exist")
			return
		}
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to load user")
		return
	}

	var next domain.UserRole
	switch user.Role {
	case domain.RoleUser:
		next = domain.RolePremium
	case domain.RolePremium:
		next = domain.RoleUser
	default:
		respondError(w, http.StatusBadRequest, "invalid_role", "only user and premium roles can be toggled")
		return
	}

	if err := h.users.SetRole(ctx, userID, next); err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to update role")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "success", "role": string(next)})
}

type UserDocumentDTO struct {
	Name      string `json:"name"`
	Reference string `json:"reference"`
}

// AppendDocuments attaches uploaded document references to the user record.
func (h *UserHandler) AppendDocuments(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := chi.URLParam(r, "uid")
	var req []UserDocumentDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if len(req) == 0 {
		respondError(w, http.StatusBadRequest, "empty_documents", "at least one document is required")
		return
	}

	now := time.Now().UTC()
	docs := make([]domain.UserDocument, 0, len(req))
	for _, d := range req {
		if d.Name == "" || d.Reference == "" {
			respondError(w, http.StatusBadRequest, "invalid_document", "document name and reference are required")
			return
		}
		docs = append(docs, domain.UserDocument{Name: d.Name, Reference: d.Reference, UploadedAt: now})
	}

	if err := h.users.AppendDocuments(ctx, userID, docs); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			respondError(w, http.StatusNotFound, "user_not_found", "the user with id "+userID+" does not exist")
			return
		}
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to attach documents")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// Mock returns generated users without persisting them.
func (h *UserHandler) Mock(w http.ResponseWriter, r *http.Request) {
	qty, err := strconv.Atoi(chi.URLParam(r, "qty"))
	if err != nil || qty < 1 || qty > 500 {
		respondError(w, http.StatusBadRequest, "invalid_qty", "qty must be between 1 and 500")
		return
	}

	users := mockdata.Users(qty)
	dtos := make([]UserResponseDTO, 0, len(users))
	for _, u := range users {
		dtos = append(dtos, toUserDTO(u))
	}
	respondJSON(w, http.StatusOK, map[string]any{"users": dtos})
}
