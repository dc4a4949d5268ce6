package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/Varun5711/tokenqueue/internal/auth"
	"github.com/Varun5711/tokenqueue/internal/commands"
	"github.com/Varun5711/tokenqueue/internal/logger"
	"github.com/Varun5711/tokenqueue/internal/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type UserHandler struct {
	commands CommandPublisher
	users    UserGetter
	validate *validator.Validate
	timeout  time.Duration
	log      *logger.Logger
}

func NewUserHandler(userCommands CommandPublisher, users UserGetter, timeout time.Duration, log *logger.Logger) *UserHandler {
	return &UserHandler{
		commands: userCommands,
		users:    users,
		validate: validator.New(),
		timeout:  timeout,
		log:      log,
	}
}

type CreateUserRequest struct {
	Name     string `json:"name" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type CreateUserResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type UserResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	CreatedAt int64  `json:"created_at"`
}

// CreateUser assigns the id up front and queues the command, so a client
// retry that reuses the id cannot create a second account.
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, validationMessage(err))
		return
	}
	// max counts runes; bcrypt counts bytes.
	if len(req.Password) > auth.MaxPasswordBytes {
		respondError(w, http.StatusBadRequest, "Password is too long")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id := uuid.NewString()
	err := h.commands.Publish(ctx, commands.TypeCreateUser, commands.CreateUserCommand{
		ID:       id,
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respondAppError(w, h.log, "publish create user", err, http.StatusBadRequest)
		return
	}

	respondJSON(w, http.StatusAccepted, CreateUserResponse{ID: id, Status: "processing"})
}

func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id != middleware.GetUserID(r.Context()) {
		respondError(w, http.StatusForbidden, "forbidden")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	u, err := h.users.Handle(ctx, id)
	if err != nil {
		respondAppError(w, h.log, "get user", err, http.StatusBadRequest)
		return
	}
	if u == nil {
		respondError(w, http.StatusNotFound, "user not found")
		return
	}

	respondJSON(w, http.StatusOK, UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		CreatedAt: u.CreatedAt.Unix(),
	})
}

func validationMessage(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return "invalid request"
	}

	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return "invalid email format"
	case "min":
		return fe.Field() + " is too short"
	case "max":
		return fe.Field() + " is too long"
	default:
		return "invalid " + fe.Field()
	}
}
