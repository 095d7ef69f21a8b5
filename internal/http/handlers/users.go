package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/carehub/patienthub/internal/config"
	"github.com/carehub/patienthub/internal/domain/user"
	"github.com/gin-gonic/gin"
)

type UsersAdminStore interface {
	List(ctx context.Context) ([]user.User, error)
	Delete(ctx context.Context, id string) error
}

type TokenRevoker interface {
	RevokeForUser(ctx context.Context, userID string) error
}

// UsersHandler serves the admin-only user endpoints. The admin gate itself
// is middleware; these handlers assume it already ran.
type UsersHandler struct {
	users  UsersAdminStore
	tokens TokenRevoker
}

func NewUsersHandler(users UsersAdminStore, tokens TokenRevoker) *UsersHandler {
	return &UsersHandler{
		users:  users,
		tokens: tokens,
	}
}

func (h *UsersHandler) ListUsers(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	users, err := h.users.List(cctx)

	if err != nil {
		RespondInternal(ctx, "Could not list users")
		return
	}

	views := make([]user.PublicView, 0, len(users))

	for _, u := range users {
		views = append(views, u.Public())
	}

	ctx.JSON(http.StatusOK, gin.H{
		"items": views,
		"count": len(views),
	})
}

// DeleteUser hard-deletes a user; their patients and tokens cascade away
// with them.
func (h *UsersHandler) DeleteUser(ctx *gin.Context) {
	id := ctx.Param("id")

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	// kill live sessions first so a cached token cannot outlive the account
	err := h.tokens.RevokeForUser(cctx, id)

	if err != nil {
		RespondInternal(ctx, "Could not delete user")
		return
	}

	err = h.users.Delete(cctx, id)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}

		RespondInternal(ctx, "Could not delete user")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "User deleted successfully"})
}
