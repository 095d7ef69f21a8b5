package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/carehub/patienthub/internal/access"
	"github.com/carehub/patienthub/internal/auth"
	"github.com/carehub/patienthub/internal/config"
	"github.com/carehub/patienthub/internal/domain/patient"
	"github.com/carehub/patienthub/internal/http/middlewares"
	"github.com/carehub/patienthub/internal/observability"
	"github.com/gin-gonic/gin"
)

type PatientsStore interface {
	Create(ctx context.Context, req patient.CreatePatientRequest, createdBy string) (patient.Patient, error)
	List(ctx context.Context, ownedBy *string) ([]patient.View, error)
	GetByID(ctx context.Context, id string) (patient.Patient, error)
	ViewByID(ctx context.Context, id string) (patient.View, error)
	Update(ctx context.Context, p patient.Patient) (patient.View, error)
	Delete(ctx context.Context, id string) error
}

type PatientsHandler struct {
	repo PatientsStore
	prom *observability.Prom
}

func NewPatientsHandler(repo PatientsStore, prom *observability.Prom) *PatientsHandler {
	return &PatientsHandler{
		repo: repo,
		prom: prom,
	}
}

func (h *PatientsHandler) observePolicy(op access.Operation, d access.Decision) {
	if h.prom != nil {
		h.prom.ObservePolicy(string(op), d.Allowed)
	}
}

func requesterIdentity(ctx *gin.Context) (auth.Identity, bool) {
	identity, ok := middlewares.IdentityFromContext(ctx)

	if !ok {
		// only reachable if a route skipped RequireAuth; treat as a wiring bug
		RespondInternal(ctx, "Missing identity context")
		return auth.Identity{}, false
	}

	return identity, true
}

// ListPatients scopes the query by role: privileged roles read the whole
// table, everyone else only rows they own. Rows outside the scope are
// never fetched.
func (h *PatientsHandler) ListPatients(ctx *gin.Context) {
	identity, ok := requesterIdentity(ctx)

	if !ok {
		return
	}

	var ownedBy *string

	if access.ScopeFor(identity.Role) == access.ScopeOwn {
		ownedBy = &identity.UserID
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	views, err := h.repo.List(cctx, ownedBy)

	if err != nil {
		RespondInternal(ctx, "Could not list patients")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"items": views,
		"count": len(views),
	})
}

// CreatePatient always records the authenticated requester as owner. The
// request payload has no owner field, so a client-supplied created_by is
// discarded before it can exist.
func (h *PatientsHandler) CreatePatient(ctx *gin.Context) {
	identity, ok := requesterIdentity(ctx)

	if !ok {
		return
	}

	var req patient.CreatePatientRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	p, err := h.repo.Create(cctx, req, identity.UserID)

	if err != nil {
		RespondInternal(ctx, "Could not create patient")
		return
	}

	view, err := h.repo.ViewByID(cctx, p.ID)

	if err != nil {
		RespondInternal(ctx, "Could not create patient")
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"message": "Patient created successfully",
		"patient": view,
	})
}

// fetchAndAuthorize loads the record and runs the policy. A record that
// exists but is out of reach answers 403, never 404; only a truly absent
// id answers 404.
func (h *PatientsHandler) fetchAndAuthorize(ctx *gin.Context, op access.Operation) (patient.Patient, bool) {
	identity, ok := requesterIdentity(ctx)

	if !ok {
		return patient.Patient{}, false
	}

	id := ctx.Param("id")

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	p, err := h.repo.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, patient.ErrNotFound) {
			RespondNotFound(ctx, "Patient not found")
			return patient.Patient{}, false
		}

		RespondInternal(ctx, "Could not fetch patient")
		return patient.Patient{}, false
	}

	decision := access.Can(identity.Role, identity.UserID, p.CreatedBy, op)
	h.observePolicy(op, decision)

	if !decision.Allowed {
		RespondForbidden(ctx, "Access denied")
		return patient.Patient{}, false
	}

	return p, true
}

func (h *PatientsHandler) GetPatient(ctx *gin.Context) {
	p, ok := h.fetchAndAuthorize(ctx, access.OpRead)

	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	view, err := h.repo.ViewByID(cctx, p.ID)

	if err != nil {
		RespondInternal(ctx, "Could not fetch patient")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Patient retrieved successfully",
		"patient": view,
	})
}

// UpdatePatient is a partial update: omitted fields keep their stored
// values. Ownership never changes here regardless of payload.
func (h *PatientsHandler) UpdatePatient(ctx *gin.Context) {
	p, ok := h.fetchAndAuthorize(ctx, access.OpUpdate)

	if !ok {
		return
	}

	var req patient.UpdatePatientRequest

	if !BindJSON(ctx, &req) {
		return
	}

	req.Apply(&p)

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	view, err := h.repo.Update(cctx, p)

	if err != nil {
		if errors.Is(err, patient.ErrNotFound) {
			RespondNotFound(ctx, "Patient not found")
			return
		}

		RespondInternal(ctx, "Could not update patient")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Patient updated successfully",
		"patient": view,
	})
}

func (h *PatientsHandler) DeletePatient(ctx *gin.Context) {
	p, ok := h.fetchAndAuthorize(ctx, access.OpDelete)

	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	err := h.repo.Delete(cctx, p.ID)

	if err != nil {
		if errors.Is(err, patient.ErrNotFound) {
			RespondNotFound(ctx, "Patient not found")
			return
		}

		RespondInternal(ctx, "Could not delete patient")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Patient deleted successfully"})
}
