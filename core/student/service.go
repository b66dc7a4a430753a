package student

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/tabunganku/backend/core"
	"github.com/tabunganku/backend/core/authz"
)

var (
	// errors
	ErrNotFound      = core.NewNotFoundError("student not found")
	ErrNisnExists    = core.NewConflictError("a student with this NISN already exists")
	ErrAlreadyLinked = core.NewConflictError("student is already linked to another parent account")
)

type (
	Repository interface {
		CreateStudent(ctx context.Context, std Student, exec ...core.DBExecutor) (Student, error)
		QueryStudents(ctx context.Context, scope authz.Scope, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Student, error)
		GetStudent(ctx context.Context, scope authz.Scope, filter GetFilter, exec ...core.DBExecutor) (Student, error)
		UpdateStudent(ctx context.Context, std Student, exec ...core.DBExecutor) (Student, error)
		DeleteStudentsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error)
		// SetParentID sets parent_id on a student row only when it is still
		// NULL; it reports ErrAlreadyLinked otherwise. The conditional update
		// guards the race between the pre-link check and the link itself.
		SetParentID(ctx context.Context, studentID, parentID string, exec ...core.DBExecutor) error
	}

	ServiceInterface interface {
		Create(scope authz.Scope, ns NewStudent) (Student, error)
		Query(scope authz.Scope, filter *QueryFilter) ([]Student, error)
		GetByID(scope authz.Scope, id string) (Student, error)
		Update(scope authz.Scope, id string, us UpdateStudent) (Student, error)
		Delete(ids ...string) error
		GetForParentRegistration(nisn string) (RegistrationLookup, error)
		LinkToParent(studentID, parentID string) error
		Import(scope authz.Scope, teacherClass string, rows []NewStudent) core.BatchReport
	}

	service struct {
		db     core.DB
		repo   Repository
		logger core.Logger
	}
)

var _ ServiceInterface = (*service)(nil)

func NewService(db core.DB, repo Repository, logger core.Logger) *service {
	return &service{db: db, repo: repo, logger: logger}
}

// Create registers a student owned by the acting teacher.
func (svc *service) Create(scope authz.Scope, ns NewStudent) (Student, error) {
	now := time.Now().UTC()
	std := Student{
		Name:      ns.Name,
		NISN:      ns.NISN,
		Class:     ns.Class,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if scope.ProfileID != "" && !scope.Unrestricted() {
		std.TeacherID = null.StringFrom(scope.ProfileID)
	}
	return svc.repo.CreateStudent(context.Background(), std)
}

func (svc *service) Query(scope authz.Scope, filter *QueryFilter) ([]Student, error) {
	ordering := []core.DBOrdering{{Field: "class", Ascending: true}, {Field: "name", Ascending: true}}
	return svc.repo.QueryStudents(context.Background(), scope, filter, ordering)
}

func (svc *service) GetByID(scope authz.Scope, id string) (Student, error) {
	return svc.repo.GetStudent(context.Background(), scope, GetFilter{ID: id})
}

func (svc *service) Update(scope authz.Scope, id string, us UpdateStudent) (Student, error) {
	ctx := context.Background()
	std, err := svc.repo.GetStudent(ctx, scope, GetFilter{ID: id})
	if err != nil {
		return Student{}, errors.Wrap(err, "finding student by ID")
	}
	std.Name = us.Name
	std.Class = us.Class
	std.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateStudent(ctx, std)
}

func (svc *service) Delete(ids ...string) error {
	if _, err := svc.repo.DeleteStudentsByID(context.Background(), ids); err != nil {
		return errors.Wrap(err, "deleting students")
	}
	return nil
}

// GetForParentRegistration looks a student up by NISN for the parent
// registration form. An already-claimed student is a conflict.
func (svc *service) GetForParentRegistration(nisn string) (RegistrationLookup, error) {
	std, err := svc.repo.GetStudent(context.Background(), authz.Privileged(), GetFilter{NISN: core.CleanString(nisn)})
	if err != nil {
		return RegistrationLookup{}, err
	}
	if std.Linked() {
		return RegistrationLookup{}, ErrAlreadyLinked
	}
	return RegistrationLookup{StudentID: std.ID, StudentName: std.Name}, nil
}

// LinkToParent claims a student for a parent account. The null check runs
// inside the repository update so a concurrent claim loses cleanly.
func (svc *service) LinkToParent(studentID, parentID string) error {
	return svc.repo.SetParentID(context.Background(), studentID, parentID)
}

// Import registers rows one by one; a failed row never rolls back the rows
// before it. Row errors go to the diagnostic log, callers only see counts.
func (svc *service) Import(scope authz.Scope, teacherClass string, rows []NewStudent) core.BatchReport {
	report := core.RunBatch(len(rows), func(i int) error {
		ns := rows[i]
		if ns.Class != teacherClass {
			return core.NewValidationError(nil, core.FieldError{
				Field: "class", Error: "row class does not match the class you teach",
			})
		}
		_, err := svc.Create(scope, ns)
		return err
	})
	for _, fail := range report.Failed {
		svc.logger.Warn("student import row failed", map[string]interface{}{
			"row": fail.Index + 1, "error": fail.Err.Error(),
		})
	}
	return report
}
