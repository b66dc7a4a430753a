package student

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/tabunganku/backend/core"
)

// parentEmailDomain backs the synthesized parent login identity; parents
// log in with their child's NISN, never a real email address. The mapping
// must stay deterministic so existing accounts remain reachable.
const parentEmailDomain = "tabunganku.com"

// ParentEmail maps a NISN to the parent account's login identifier.
func ParentEmail(nisn string) string {
	return fmt.Sprintf("nisn-%s@%s", core.CleanString(nisn, true /* lower */), parentEmailDomain)
}

type Student struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	NISN      string      `json:"nisn"`
	Class     string      `json:"class"`
	TeacherID null.String `json:"teacher_id"`
	ParentID  null.String `json:"parent_id"`
	CreatedAt time.Time   `json:"created_at"` // UTC
	UpdatedAt time.Time   `json:"updated_at"` // UTC
}

// Linked reports whether a parent account has claimed this student.
func (s *Student) Linked() bool { return s.ParentID.Valid }

// NewStudent contains information needed to register a new Student.
type NewStudent struct {
	Name  string `json:"name" validate:"required"`
	NISN  string `json:"nisn" validate:"required"`
	Class string `json:"class" validate:"required,class"`
}

func (ns *NewStudent) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	ns.NISN = core.CleanString(ns.NISN)
	ns.Class = core.CleanString(ns.Class)
	return validate.Struct(ns)
}

// UpdateStudent defines what information may be provided to modify an existing Student.
type UpdateStudent struct {
	Name  string `json:"name"`
	Class string `json:"class" validate:"omitempty,class"`
}

func (us *UpdateStudent) Validate(orig Student, validate *validator.Validate) error {
	us.Name = core.CleanString(us.Name)
	us.Class = core.CleanString(us.Class)
	if us.Name == "" {
		us.Name = orig.Name
	}
	if us.Class == "" {
		us.Class = orig.Class
	}
	return validate.Struct(us)
}

// RegistrationLookup is the payload a parent sees before claiming a student.
type RegistrationLookup struct {
	StudentID   string `json:"studentId"`
	StudentName string `json:"studentName"`
}

type QueryFilter struct {
	Search string `query:"search"`
	Class  string `query:"class"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Class = core.CleanString(qf.Class)
}

// GetFilter selects a single Student; the first non-empty field wins.
type GetFilter struct {
	ID   string
	NISN string
}
