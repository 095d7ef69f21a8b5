package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/carehub/patienthub/internal/config"
	"github.com/carehub/patienthub/internal/domain/user"
	"github.com/carehub/patienthub/internal/repo/postgres"
	"github.com/carehub/patienthub/internal/security"
	"github.com/gin-gonic/gin"
)

type UserReader interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
}

type UserWriter interface {
	Create(ctx context.Context, email, passwordHash, name string, role user.Role) (user.User, error)
}

type TokenIssuer interface {
	Issue(ctx context.Context, userID string) (string, error)
}

type AuthHandler struct {
	users      UserReader
	userWriter UserWriter
	tokens     TokenIssuer
	cfg        config.Config
}

func NewAuthHandler(users UserReader, userWriter UserWriter, tokens TokenIssuer, cfg config.Config) *AuthHandler {
	return &AuthHandler{
		users:      users,
		userWriter: userWriter,
		tokens:     tokens,
		cfg:        cfg,
	}
}

type RegisterRequest struct {
	Name     string `json:"name" binding:"required,min=2,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role" binding:"omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Register(ctx *gin.Context) {
	var req RegisterRequest

	if !BindJSON(ctx, &req) {
		return
	}

	// an omitted role falls back to the configured least-privileged one;
	// anything outside the closed set is a validation failure
	roleStr := req.Role
	if roleStr == "" {
		roleStr = h.cfg.DefaultRole
	}

	role, ok := user.ParseRole(roleStr)

	if !ok {
		RespondValidation(ctx, "Registration failed, check your credentials", map[string]string{
			"role": "must be one of admin, doctor, nurse, patient",
		})
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	hash, err := security.HashPassword(req.Password)

	if err != nil {
		RespondInternal(ctx, "Could not create user")
		return
	}

	u, err := h.userWriter.Create(cctx, req.Email, hash, req.Name, role)

	if err != nil {
		if errors.Is(err, postgres.ErrEmailAlreadyUsed) {
			RespondValidation(ctx, "Registration failed, check your credentials", map[string]string{
				"email": "is already registered",
			})
			return
		}

		RespondInternal(ctx, "Could not create user")
		return
	}

	token, err := h.tokens.Issue(cctx, u.ID)

	if err != nil {
		RespondInternal(ctx, "Could not create session")
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully",
		"token":   token,
		"user":    u.Public(),
	})
}

// Login deliberately reports one generic failure for unknown email, wrong
// password and inactive account, so responses carry no enumeration signal.
func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	foundUser, err := h.users.GetByEmail(cctx, req.Email)

	if err != nil {
		// burn a compare so the miss is not cheaper than a wrong password
		security.CheckDummyPassword(req.Password)
		h.respondLoginFailed(ctx)
		return
	}

	err = security.CheckPassword(foundUser.PasswordHash, req.Password)

	if err != nil {
		h.respondLoginFailed(ctx)
		return
	}

	if !foundUser.Active {
		h.respondLoginFailed(ctx)
		return
	}

	token, err := h.tokens.Issue(cctx, foundUser.ID)

	if err != nil {
		RespondInternal(ctx, "Could not create session")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"token":   token,
		"user":    foundUser.Public(),
	})
}

func (h *AuthHandler) respondLoginFailed(ctx *gin.Context) {
	RespondValidation(ctx, "Login failed, check your credentials", map[string]string{
		"credentials": "Invalid email or password.",
	})
}
