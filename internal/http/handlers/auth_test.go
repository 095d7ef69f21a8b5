package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/carehub/patienthub/internal/config"
	"github.com/carehub/patienthub/internal/domain/user"
	"github.com/carehub/patienthub/internal/http/handlers"
	"github.com/carehub/patienthub/internal/repo/postgres"
	"github.com/carehub/patienthub/internal/security"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type fakeUserStore struct {
	byEmail map[string]user.User

	lastCreatedRole user.Role
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{byEmail: make(map[string]user.User)}
}

func (f *fakeUserStore) GetByEmail(ctx context.Context, email string) (user.User, error) {
	u, ok := f.byEmail[email]

	if !ok {
		return user.User{}, user.ErrNotFound
	}

	return u, nil
}

func (f *fakeUserStore) Create(ctx context.Context, email, passwordHash, name string, role user.Role) (user.User, error) {
	if _, ok := f.byEmail[email]; ok {
		return user.User{}, postgres.ErrEmailAlreadyUsed
	}

	now := time.Now().UTC()

	u := user.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		Name:         name,
		Role:         role,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	f.byEmail[email] = u
	f.lastCreatedRole = role

	return u, nil
}

type fakeTokenIssuer struct {
	issued int
	fail   bool
}

func (f *fakeTokenIssuer) Issue(ctx context.Context, userID string) (string, error) {
	f.issued++

	if f.fail {
		return "", context.DeadlineExceeded
	}

	return "token-" + userID, nil
}

func testAuthConfig() config.Config {
	return config.Config{
		Env:         "test",
		DefaultRole: "patient",
	}
}

func authRouter(store *fakeUserStore, issuer *fakeTokenIssuer) *gin.Engine {
	r := gin.New()

	h := handlers.NewAuthHandler(store, store, issuer, testAuthConfig())
	r.POST("/register", h.Register)
	r.POST("/login", h.Login)

	return r
}

type authResponse struct {
	Message string            `json:"message"`
	Token   string            `json:"token"`
	User    user.PublicView   `json:"user"`
	Errors  map[string]string `json:"errors"`
}

func TestRegister(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		setup      func(*fakeUserStore)
		wantStatus int
		wantRole   user.Role
	}{
		{
			name:       "success_default_role",
			body:       `{"name": "Nina Vale", "email": "nina@example.com", "password": "s3cret-pass"}`,
			wantStatus: http.StatusCreated,
			wantRole:   user.RolePatient,
		},
		{
			name:       "success_explicit_role",
			body:       `{"name": "Nina Vale", "email": "nina@example.com", "password": "s3cret-pass", "role": "nurse"}`,
			wantStatus: http.StatusCreated,
			wantRole:   user.RoleNurse,
		},
		{
			name:       "unknown_role",
			body:       `{"name": "Nina Vale", "email": "nina@example.com", "password": "s3cret-pass", "role": "superuser"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing_fields",
			body:       `{"email": "nina@example.com"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "duplicate_email",
			body: `{"name": "Nina Vale", "email": "taken@example.com", "password": "s3cret-pass"}`,
			setup: func(f *fakeUserStore) {
				f.byEmail["taken@example.com"] = user.User{ID: uuid.NewString(), Email: "taken@example.com"}
			},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeUserStore()

			if tt.setup != nil {
				tt.setup(store)
			}

			issuer := &fakeTokenIssuer{}
			r := authRouter(store, issuer)

			w := doJSON(t, r, http.MethodPost, "/register", tt.body)

			if w.Code != tt.wantStatus {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatus, w.Body.String())
			}

			var resp authResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("bad response body: %v", err)
			}

			if tt.wantStatus == http.StatusCreated {
				if resp.Token == "" {
					t.Fatal("no token in register response")
				}

				if store.lastCreatedRole != tt.wantRole {
					t.Fatalf("created role %q, want %q", store.lastCreatedRole, tt.wantRole)
				}

				if resp.User.Email == "" || resp.User.RoleLabel == "" {
					t.Fatalf("incomplete public view: %+v", resp.User)
				}
			} else {
				if resp.Message == "" || len(resp.Errors) == 0 {
					t.Fatalf("error body must carry message and errors: %s", w.Body.String())
				}

				if issuer.issued != 0 {
					t.Fatal("token issued for failed registration")
				}
			}
		})
	}
}

func TestRegisterDuplicateLeavesFirstIntact(t *testing.T) {
	store := newFakeUserStore()
	r := authRouter(store, &fakeTokenIssuer{})

	body := `{"name": "First", "email": "dup@example.com", "password": "s3cret-pass"}`

	if w := doJSON(t, r, http.MethodPost, "/register", body); w.Code != http.StatusCreated {
		t.Fatalf("first register: %d", w.Code)
	}

	second := `{"name": "Second", "email": "dup@example.com", "password": "other-pass99"}`

	if w := doJSON(t, r, http.MethodPost, "/register", second); w.Code != http.StatusBadRequest {
		t.Fatalf("second register: %d, want 400", w.Code)
	}

	if got := store.byEmail["dup@example.com"].Name; got != "First" {
		t.Fatalf("first user's data changed: name=%q", got)
	}
}

func TestLogin(t *testing.T) {
	const password = "s3cret-pass"

	hash, err := security.HashPassword(password)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	active := user.User{
		ID:           uuid.NewString(),
		Email:        "valid@example.com",
		PasswordHash: hash,
		Name:         "Valid",
		Role:         user.RoleDoctor,
		Active:       true,
	}

	inactive := active
	inactive.ID = uuid.NewString()
	inactive.Email = "inactive@example.com"
	inactive.Active = false

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"success", `{"email": "valid@example.com", "password": "` + password + `"}`, http.StatusOK},
		{"wrong_password", `{"email": "valid@example.com", "password": "wrong-pass99"}`, http.StatusBadRequest},
		{"unknown_email", `{"email": "nobody@example.com", "password": "` + password + `"}`, http.StatusBadRequest},
		{"inactive_account", `{"email": "inactive@example.com", "password": "` + password + `"}`, http.StatusBadRequest},
	}

	var failureBodies []string

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeUserStore()
			store.byEmail[active.Email] = active
			store.byEmail[inactive.Email] = inactive

			r := authRouter(store, &fakeTokenIssuer{})

			w := doJSON(t, r, http.MethodPost, "/login", tt.body)

			if w.Code != tt.wantStatus {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatus, w.Body.String())
			}

			if tt.wantStatus == http.StatusOK {
				var resp authResponse
				if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
					t.Fatalf("bad response: %v", err)
				}

				if resp.Token == "" || resp.User.Role != user.RoleDoctor {
					t.Fatalf("incomplete login response: %s", w.Body.String())
				}
			} else {
				failureBodies = append(failureBodies, w.Body.String())
			}
		})
	}

	// every failure cause must be indistinguishable from the outside
	for i := 1; i < len(failureBodies); i++ {
		if failureBodies[i] != failureBodies[0] {
			t.Fatalf("login failures differ, enumeration signal:\n%s\n%s", failureBodies[0], failureBodies[i])
		}
	}
}
