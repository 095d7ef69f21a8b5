package patient

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("patient not found")

type Patient struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Age       int       `json:"age"`
	Diagnosis string    `json:"diagnosis"`
	Treatment string    `json:"treatment"`
	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// View is the API shape of a patient. The owner is rendered as display
// name plus role label rather than a bare user id.
type View struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone"`
	Age           int       `json:"age"`
	Diagnosis     string    `json:"diagnosis"`
	Treatment     string    `json:"treatment"`
	CreatedBy     string    `json:"createdBy"`
	CreatedByRole string    `json:"createdByRole"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// CreatePatientRequest deliberately has no owner field: ownership always
// comes from the authenticated requester, a client-supplied created_by is
// not even parsed. Age is a pointer so that 0 (a newborn) survives the
// required check, which treats an int zero value as absent.
type CreatePatientRequest struct {
	Name      string `json:"name" binding:"required,min=2,max=100"`
	Email     string `json:"email" binding:"required,email"`
	Phone     string `json:"phone" binding:"required,min=5,max=20"`
	Age       *int   `json:"age" binding:"required,min=0,max=150"`
	Diagnosis string `json:"diagnosis" binding:"required,max=200"`
	Treatment string `json:"treatment" binding:"required,max=200"`
}

// UpdatePatientRequest is a partial update: nil means keep the stored value.
type UpdatePatientRequest struct {
	Name      *string `json:"name" binding:"omitempty,min=2,max=100"`
	Email     *string `json:"email" binding:"omitempty,email"`
	Phone     *string `json:"phone" binding:"omitempty,min=5,max=20"`
	Age       *int    `json:"age" binding:"omitempty,min=0,max=150"`
	Diagnosis *string `json:"diagnosis" binding:"omitempty,max=200"`
	Treatment *string `json:"treatment" binding:"omitempty,max=200"`
}

// Apply overlays the non-nil fields of the request onto p.
func (req UpdatePatientRequest) Apply(p *Patient) {
	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.Email != nil {
		p.Email = *req.Email
	}
	if req.Phone != nil {
		p.Phone = *req.Phone
	}
	if req.Age != nil {
		p.Age = *req.Age
	}
	if req.Diagnosis != nil {
		p.Diagnosis = *req.Diagnosis
	}
	if req.Treatment != nil {
		p.Treatment = *req.Treatment
	}
}
