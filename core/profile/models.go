package profile

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"
	"golang.org/x/crypto/bcrypt"

	"github.com/tabunganku/backend/core"
)

// Roles
const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
	RoleParent  = "parent"
)

var AllRoles = []string{RoleAdmin, RoleTeacher, RoleParent}

// RoleKnown reports whether role is one of AllRoles.
func RoleKnown(role string) bool {
	for _, r := range AllRoles {
		if role == r {
			return true
		}
	}
	return false
}

type Profile struct {
	ID           string      `json:"id"`
	Email        string      `json:"email"`
	FirstName    string      `json:"first_name"`
	LastName     string      `json:"last_name"`
	Role         string      `json:"role"`
	ClassTaught  null.String `json:"class_taught,omitempty"`
	IsActive     *bool       `json:"is_active"`
	PasswordHash []byte      `json:"-"`
	CreatedAt    time.Time   `json:"created_at"` // UTC
	UpdatedAt    time.Time   `json:"updated_at"` // UTC
	LastLogin    time.Time   `json:"last_login"` // UTC
}

// FullName joins first and last name; empty parts are dropped.
func (p *Profile) FullName() string {
	return core.CleanString(p.FirstName + " " + p.LastName)
}

func (p *Profile) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	p.PasswordHash = hash
	return nil
}

func (p *Profile) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(p.PasswordHash, []byte(pwd))
}

func (p *Profile) SetActive(active bool) { p.IsActive = &active }

func (p *Profile) Active() bool { return p.IsActive != nil && *p.IsActive }

func (p *Profile) IsAdmin() bool   { return p.Role == RoleAdmin }
func (p *Profile) IsTeacher() bool { return p.Role == RoleTeacher }
func (p *Profile) IsParent() bool  { return p.Role == RoleParent }

// SplitFullName breaks a display name into first name and last name;
// the first word becomes the first name, the remainder the last name.
func SplitFullName(fullName string) (string, string) {
	parts := strings.Fields(core.CleanString(fullName))
	if len(parts) == 0 {
		return "", ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

// NewProfile contains information needed to create a new Profile.
type NewProfile struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required"`
	Role        string `json:"role" validate:"required,approle"`
	FullName    string `json:"full_name" validate:"required"`
	ClassTaught string `json:"class_taught" validate:"omitempty,class"`
}

func (np *NewProfile) Validate(validate *validator.Validate, svc ServiceInterface) error {
	np.Email = core.CleanString(np.Email, true /* lower */)
	np.FullName = core.CleanString(np.FullName)
	np.ClassTaught = core.CleanString(np.ClassTaught)

	if err := validate.Struct(np); err != nil {
		return err
	}
	if np.Role != RoleTeacher && np.ClassTaught != "" {
		return core.NewValidationError(nil, core.FieldError{
			Field: "class_taught", Error: "only teachers may have a class assigned",
		})
	}
	return svc.CheckUniqueness(np.Email)
}

// UpdateProfile defines what information may be provided to modify an existing Profile.
// Role and class are admin-only edits; the handlers enforce that.
type UpdateProfile struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Role        string `json:"role" validate:"omitempty,approle"`
	ClassTaught string `json:"class_taught" validate:"omitempty,class"`
	IsActive    *bool  `json:"is_active"`
	Password    string `json:"password" validate:"omitempty"`
}

func (up *UpdateProfile) Validate(orig Profile, validate *validator.Validate) error {
	up.FirstName = core.CleanString(up.FirstName)
	up.LastName = core.CleanString(up.LastName)
	up.ClassTaught = core.CleanString(up.ClassTaught)

	if up.FirstName == "" {
		up.FirstName = orig.FirstName
	}
	if up.LastName == "" {
		up.LastName = orig.LastName
	}
	if up.Role == "" {
		up.Role = orig.Role
	}

	if err := validate.Struct(up); err != nil {
		return err
	}
	if up.Role != RoleTeacher && up.ClassTaught != "" {
		return core.NewValidationError(nil, core.FieldError{
			Field: "class_taught", Error: "only teachers may have a class assigned",
		})
	}
	return nil
}

type ChangePassword struct {
	OldPassword     string `json:"old_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=NewPassword"`
}

func (cp ChangePassword) Validate(validate *validator.Validate) error {
	return validate.Struct(cp)
}

type ResetProfilePassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required"`
	PasswordConfirm string `json:"password_confirm,omitempty" validate:"required,eqfield=Password"`
}

func (rp ResetProfilePassword) Validate(validate *validator.Validate) error {
	return validate.Struct(rp)
}

type QueryFilter struct {
	Search      string    `query:"search"`
	Role        string    `query:"role"`
	IsActive    *bool     `query:"is_active"`
	CreatedFrom time.Time `query:"created_from"`
	CreatedTo   time.Time `query:"created_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Role == "" && qf.IsActive == nil && qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Role = core.CleanString(qf.Role, true /* lower */)
}

// GetFilter selects a single Profile; the first non-empty field wins.
type GetFilter struct {
	ID    string
	Email string
}
