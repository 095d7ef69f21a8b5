package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/carehub/patienthub/internal/auth"
	"github.com/carehub/patienthub/internal/domain/patient"
	"github.com/carehub/patienthub/internal/domain/user"
	"github.com/carehub/patienthub/internal/http/handlers"
	"github.com/carehub/patienthub/internal/http/middlewares"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Keep Gin quiet during tests

func init() {
	gin.SetMode(gin.TestMode)
}

// fakePatientsStore is an in-memory handlers.PatientsStore. Stateful so a
// flow test can create, fetch and mutate across requests.
type fakePatientsStore struct {
	byID map[string]patient.Patient

	// owner id -> display name/role for view rendering
	owners map[string]auth.Identity

	lastListOwnedBy  *string
	lastListCalled   bool
	lastCreatedOwner string
}

func newFakePatientsStore() *fakePatientsStore {
	return &fakePatientsStore{
		byID:   make(map[string]patient.Patient),
		owners: make(map[string]auth.Identity),
	}
}

func (f *fakePatientsStore) addOwner(id auth.Identity) {
	f.owners[id.UserID] = id
}

func (f *fakePatientsStore) view(p patient.Patient) patient.View {
	owner := f.owners[p.CreatedBy]

	return patient.View{
		ID:            p.ID,
		Name:          p.Name,
		Email:         p.Email,
		Phone:         p.Phone,
		Age:           p.Age,
		Diagnosis:     p.Diagnosis,
		Treatment:     p.Treatment,
		CreatedBy:     owner.Name,
		CreatedByRole: owner.Role.Label(),
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func (f *fakePatientsStore) Create(ctx context.Context, req patient.CreatePatientRequest, createdBy string) (patient.Patient, error) {
	now := time.Now().UTC()

	p := patient.Patient{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		Age:       *req.Age,
		Diagnosis: req.Diagnosis,
		Treatment: req.Treatment,
		CreatedBy: createdBy,
		CreatedAt: now,
		UpdatedAt: now,
	}

	f.byID[p.ID] = p
	f.lastCreatedOwner = createdBy

	return p, nil
}

func (f *fakePatientsStore) List(ctx context.Context, ownedBy *string) ([]patient.View, error) {
	f.lastListCalled = true
	f.lastListOwnedBy = ownedBy

	out := make([]patient.View, 0)

	for _, p := range f.byID {
		if ownedBy != nil && p.CreatedBy != *ownedBy {
			continue
		}
		out = append(out, f.view(p))
	}

	return out, nil
}

func (f *fakePatientsStore) GetByID(ctx context.Context, id string) (patient.Patient, error) {
	p, ok := f.byID[id]

	if !ok {
		return patient.Patient{}, patient.ErrNotFound
	}

	return p, nil
}

func (f *fakePatientsStore) ViewByID(ctx context.Context, id string) (patient.View, error) {
	p, ok := f.byID[id]

	if !ok {
		return patient.View{}, patient.ErrNotFound
	}

	return f.view(p), nil
}

func (f *fakePatientsStore) Update(ctx context.Context, p patient.Patient) (patient.View, error) {
	if _, ok := f.byID[p.ID]; !ok {
		return patient.View{}, patient.ErrNotFound
	}

	p.UpdatedAt = time.Now().UTC()
	f.byID[p.ID] = p

	return f.view(p), nil
}

func (f *fakePatientsStore) Delete(ctx context.Context, id string) error {
	if _, ok := f.byID[id]; !ok {
		return patient.ErrNotFound
	}

	delete(f.byID, id)
	return nil
}

// identityFor fabricates an authenticated identity with the given role.
func identityFor(name string, role user.Role) auth.Identity {
	return auth.Identity{
		UserID: uuid.NewString(),
		Email:  name + "@example.com",
		Name:   name,
		Role:   role,
	}
}

// patientsRouter mounts the patient routes behind a middleware that plants
// the given identity, the same way RequireAuth would.
func patientsRouter(store *fakePatientsStore, identity auth.Identity) *gin.Engine {
	r := gin.New()

	r.Use(func(c *gin.Context) {
		c.Set(middlewares.CtxIdentity, identity)
		c.Next()
	})

	h := handlers.NewPatientsHandler(store, nil)
	r.GET("/patients", h.ListPatients)
	r.POST("/patients", h.CreatePatient)
	r.GET("/patients/:id", h.GetPatient)
	r.PUT("/patients/:id", h.UpdatePatient)
	r.DELETE("/patients/:id", h.DeletePatient)

	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	return w
}

const patientBody = `{
	"name": "Jane Roe",
	"email": "jane.roe@example.com",
	"phone": "555-0100",
	"age": 42,
	"diagnosis": "hypertension",
	"treatment": "lisinopril 10mg"
}`

func seedPatient(t *testing.T, store *fakePatientsStore, owner auth.Identity) patient.Patient {
	t.Helper()

	store.addOwner(owner)

	var req patient.CreatePatientRequest
	if err := json.Unmarshal([]byte(patientBody), &req); err != nil {
		t.Fatalf("bad seed body: %v", err)
	}

	p, err := store.Create(context.Background(), req, owner.UserID)
	if err != nil {
		t.Fatalf("seed create: %v", err)
	}

	return p
}

func TestListPatientsScope(t *testing.T) {
	tests := []struct {
		name        string
		role        user.Role
		wantScoped  bool
	}{
		{"admin_sees_all", user.RoleAdmin, false},
		{"doctor_sees_all", user.RoleDoctor, false},
		{"nurse_sees_all", user.RoleNurse, false},
		{"patient_sees_own", user.RolePatient, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakePatientsStore()
			identity := identityFor("req", tt.role)
			r := patientsRouter(store, identity)

			w := doJSON(t, r, http.MethodGet, "/patients", "")

			if w.Code != http.StatusOK {
				t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
			}

			if !store.lastListCalled {
				t.Fatal("list was not delegated to the store")
			}

			scoped := store.lastListOwnedBy != nil

			if scoped != tt.wantScoped {
				t.Fatalf("ownedBy=%v, want scoped=%v", store.lastListOwnedBy, tt.wantScoped)
			}

			if scoped && *store.lastListOwnedBy != identity.UserID {
				t.Fatalf("scoped to %q, want requester %q", *store.lastListOwnedBy, identity.UserID)
			}
		})
	}
}

func TestCreatePatientForcesOwnership(t *testing.T) {
	store := newFakePatientsStore()
	identity := identityFor("creator", user.RolePatient)
	store.addOwner(identity)
	r := patientsRouter(store, identity)

	// a smuggled createdBy must not survive binding
	body := `{
		"name": "Jane Roe",
		"email": "jane.roe@example.com",
		"phone": "555-0100",
		"age": 42,
		"diagnosis": "hypertension",
		"treatment": "lisinopril 10mg",
		"createdBy": "someone-else"
	}`

	w := doJSON(t, r, http.MethodPost, "/patients", body)

	if w.Code != http.StatusCreated {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}

	if store.lastCreatedOwner != identity.UserID {
		t.Fatalf("owner = %q, want requester %q", store.lastCreatedOwner, identity.UserID)
	}
}

func TestCreatePatientValidation(t *testing.T) {
	store := newFakePatientsStore()
	r := patientsRouter(store, identityFor("creator", user.RolePatient))

	w := doJSON(t, r, http.MethodPost, "/patients", `{"name": "x"}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}

	var resp struct {
		Message string            `json:"message"`
		Errors  map[string]string `json:"errors"`
	}

	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad error body: %v", err)
	}

	if resp.Message == "" || len(resp.Errors) == 0 {
		t.Fatalf("expected message and errors map, got %s", w.Body.String())
	}
}

func TestCreatePatientAgeZero(t *testing.T) {
	store := newFakePatientsStore()
	identity := identityFor("creator", user.RolePatient)
	store.addOwner(identity)
	r := patientsRouter(store, identity)

	// a newborn: age 0 is present and valid, not a missing field
	body := `{
		"name": "Baby Roe",
		"email": "roe.family@example.com",
		"phone": "555-0100",
		"age": 0,
		"diagnosis": "jaundice",
		"treatment": "phototherapy"
	}`

	w := doJSON(t, r, http.MethodPost, "/patients", body)

	if w.Code != http.StatusCreated {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}

	var resp struct {
		Patient struct {
			Age int `json:"age"`
		} `json:"patient"`
	}

	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad body: %v", err)
	}

	if resp.Patient.Age != 0 {
		t.Fatalf("age = %d, want 0", resp.Patient.Age)
	}

	// omitting age entirely must still fail required validation
	w = doJSON(t, r, http.MethodPost, "/patients", `{
		"name": "Baby Roe",
		"email": "roe.family@example.com",
		"phone": "555-0100",
		"diagnosis": "jaundice",
		"treatment": "phototherapy"
	}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing age: got status %d, body=%s", w.Code, w.Body.String())
	}
}

func TestGetPatientAccess(t *testing.T) {
	owner := identityFor("owner", user.RolePatient)

	tests := []struct {
		name       string
		requester  auth.Identity
		wantStatus int
	}{
		{"owner_reads_own", owner, http.StatusOK},
		{"admin_reads_foreign", identityFor("admin", user.RoleAdmin), http.StatusOK},
		{"doctor_reads_foreign", identityFor("doc", user.RoleDoctor), http.StatusOK},
		{"nurse_reads_foreign", identityFor("nurse", user.RoleNurse), http.StatusOK},
		// forbidden, not 404: the record exists, the requester just may not see it
		{"stranger_reads_foreign", identityFor("other", user.RolePatient), http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakePatientsStore()
			p := seedPatient(t, store, owner)
			r := patientsRouter(store, tt.requester)

			w := doJSON(t, r, http.MethodGet, "/patients/"+p.ID, "")

			if w.Code != tt.wantStatus {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}
}

func TestGetPatientAbsent(t *testing.T) {
	store := newFakePatientsStore()
	r := patientsRouter(store, identityFor("admin", user.RoleAdmin))

	w := doJSON(t, r, http.MethodGet, "/patients/"+uuid.NewString(), "")

	if w.Code != http.StatusNotFound {
		t.Fatalf("got status %d, want 404, body=%s", w.Code, w.Body.String())
	}
}

func TestUpdatePatientAccess(t *testing.T) {
	owner := identityFor("owner", user.RolePatient)

	tests := []struct {
		name       string
		requester  auth.Identity
		wantStatus int
	}{
		{"owner_updates_own", owner, http.StatusOK},
		{"admin_updates_foreign", identityFor("admin", user.RoleAdmin), http.StatusOK},
		{"doctor_updates_foreign", identityFor("doc", user.RoleDoctor), http.StatusOK},
		// nurse can read anything but not mutate what they don't own
		{"nurse_updates_foreign", identityFor("nurse", user.RoleNurse), http.StatusForbidden},
		{"stranger_updates_foreign", identityFor("other", user.RolePatient), http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakePatientsStore()
			p := seedPatient(t, store, owner)
			r := patientsRouter(store, tt.requester)

			w := doJSON(t, r, http.MethodPut, "/patients/"+p.ID, `{"treatment": "amlodipine 5mg"}`)

			if w.Code != tt.wantStatus {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatus, w.Body.String())
			}

			if tt.wantStatus == http.StatusOK {
				got := store.byID[p.ID]

				if got.Treatment != "amlodipine 5mg" {
					t.Fatalf("treatment not updated: %q", got.Treatment)
				}

				// partial update keeps omitted fields
				if got.Name != p.Name || got.Age != p.Age {
					t.Fatalf("partial update clobbered other fields: %+v", got)
				}

				if got.CreatedBy != owner.UserID {
					t.Fatalf("ownership changed on update: %q", got.CreatedBy)
				}
			}
		})
	}
}

func TestDeletePatientAccess(t *testing.T) {
	owner := identityFor("owner", user.RolePatient)

	tests := []struct {
		name       string
		requester  auth.Identity
		wantStatus int
		wantGone   bool
	}{
		{"owner_deletes_own", owner, http.StatusOK, true},
		{"admin_deletes_foreign", identityFor("admin", user.RoleAdmin), http.StatusOK, true},
		{"nurse_deletes_foreign", identityFor("nurse", user.RoleNurse), http.StatusForbidden, false},
		{"stranger_deletes_foreign", identityFor("other", user.RolePatient), http.StatusForbidden, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakePatientsStore()
			p := seedPatient(t, store, owner)
			r := patientsRouter(store, tt.requester)

			w := doJSON(t, r, http.MethodDelete, "/patients/"+p.ID, "")

			if w.Code != tt.wantStatus {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatus, w.Body.String())
			}

			_, stillThere := store.byID[p.ID]

			if stillThere == tt.wantGone {
				t.Fatalf("record presence = %v, want gone = %v", stillThere, tt.wantGone)
			}
		})
	}
}

// A doctor creates a record; a nurse sees it in their list and by id but
// cannot update it; the doctor can.
func TestNurseDoctorFlow(t *testing.T) {
	store := newFakePatientsStore()

	doctor := identityFor("dr-d", user.RoleDoctor)
	nurse := identityFor("nurse-n", user.RoleNurse)
	store.addOwner(doctor)
	store.addOwner(nurse)

	// doctor creates
	w := doJSON(t, patientsRouter(store, doctor), http.MethodPost, "/patients", patientBody)

	if w.Code != http.StatusCreated {
		t.Fatalf("doctor create: status %d, body=%s", w.Code, w.Body.String())
	}

	var created struct {
		Patient patient.View `json:"patient"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("bad create body: %v", err)
	}

	nurseRouter := patientsRouter(store, nurse)

	// nurse lists: the doctor's patient is visible
	w = doJSON(t, nurseRouter, http.MethodGet, "/patients", "")

	if w.Code != http.StatusOK {
		t.Fatalf("nurse list: status %d", w.Code)
	}

	var listed struct {
		Items []patient.View `json:"items"`
		Count int            `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &listed); err != nil {
		t.Fatalf("bad list body: %v", err)
	}

	if listed.Count != 1 || listed.Items[0].ID != created.Patient.ID {
		t.Fatalf("nurse list missing doctor's patient: %+v", listed)
	}

	// nurse update is forbidden
	w = doJSON(t, nurseRouter, http.MethodPut, "/patients/"+created.Patient.ID, `{"age": 43}`)

	if w.Code != http.StatusForbidden {
		t.Fatalf("nurse update: status %d, want 403", w.Code)
	}

	// doctor update succeeds
	w = doJSON(t, patientsRouter(store, doctor), http.MethodPut, "/patients/"+created.Patient.ID, `{"age": 43}`)

	if w.Code != http.StatusOK {
		t.Fatalf("doctor update: status %d, body=%s", w.Code, w.Body.String())
	}
}
