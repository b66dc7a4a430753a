package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/tabunganku/backend/core"
	"github.com/tabunganku/backend/core/authz"
	"github.com/tabunganku/backend/core/student"
)

type studentRepository struct {
	exec core.DBExecutor
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(exec core.DBExecutor) *studentRepository {
	return &studentRepository{exec: exec}
}

type studentRow struct {
	ID        string      `db:"id"`
	Name      string      `db:"name"`
	NISN      string      `db:"nisn"`
	Class     string      `db:"class"`
	TeacherID null.String `db:"teacher_id"`
	ParentID  null.String `db:"parent_id"`
	CreatedAt time.Time   `db:"created_at"`
	UpdatedAt time.Time   `db:"updated_at"`
}

func (r studentRow) toCore() student.Student {
	return student.Student{
		ID:        r.ID,
		Name:      r.Name,
		NISN:      r.NISN,
		Class:     r.Class,
		TeacherID: r.TeacherID,
		ParentID:  r.ParentID,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

const studentColumns = "id, name, nisn, class, teacher_id, parent_id, created_at, updated_at"

// scopeCond narrows a students query to the rows the scope owns. The
// returned condition is empty for admins.
func scopeCond(scope authz.Scope, args *[]interface{}, ownerCol string) string {
	col, ok := scope.StudentColumn()
	if !ok {
		return ""
	}
	*args = append(*args, scope.ProfileID)
	if ownerCol != "" {
		col = ownerCol + "." + col
	}
	return col + " = " + placeholder(len(*args))
}

func (repo studentRepository) CreateStudent(ctx context.Context, std student.Student, exec ...core.DBExecutor) (student.Student, error) {
	std.ID = uuid.New().String()
	now := time.Now().UTC()
	std.CreatedAt, std.UpdatedAt = now, now

	query := `
		INSERT INTO students (id, name, nisn, class, teacher_id, parent_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := getExec(repo.exec, exec).ExecContext(ctx, query,
		std.ID, std.Name, std.NISN, std.Class, std.TeacherID, std.ParentID, std.CreatedAt, std.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return student.Student{}, student.ErrNisnExists
		}
		return student.Student{}, errors.Wrap(err, "inserting student")
	}
	return std, nil
}

func (repo studentRepository) QueryStudents(ctx context.Context, scope authz.Scope, filter *student.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]student.Student, error) {
	query := "SELECT " + studentColumns + " FROM students"
	var conds []string
	var args []interface{}

	if cond := scopeCond(scope, &args, ""); cond != "" {
		conds = append(conds, cond)
	}
	if filter != nil {
		if filter.Search != "" {
			args = append(args, "%"+filter.Search+"%")
			p := placeholder(len(args))
			conds = append(conds, "(name ILIKE "+p+" OR nisn ILIKE "+p+")")
		}
		if filter.Class != "" {
			args = append(args, filter.Class)
			conds = append(conds, "class = "+placeholder(len(args)))
		}
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += orderBy(ordering)

	var rows []studentRow
	if err := selectAll(ctx, getExec(repo.exec, exec), &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	students := make([]student.Student, 0, len(rows))
	for _, r := range rows {
		students = append(students, r.toCore())
	}
	return students, nil
}

func (repo studentRepository) GetStudent(ctx context.Context, scope authz.Scope, filter student.GetFilter, exec ...core.DBExecutor) (student.Student, error) {
	var conds []string
	var args []interface{}
	switch {
	case filter.ID != "":
		args = append(args, filter.ID)
		conds = append(conds, "id = $1")
	case filter.NISN != "":
		args = append(args, filter.NISN)
		conds = append(conds, "nisn = $1")
	default:
		return student.Student{}, student.ErrNotFound
	}
	if cond := scopeCond(scope, &args, ""); cond != "" {
		conds = append(conds, cond)
	}

	query := "SELECT " + studentColumns + " FROM students WHERE " + strings.Join(conds, " AND ")
	var rows []studentRow
	if err := selectAll(ctx, getExec(repo.exec, exec), &rows, query, args...); err != nil {
		return student.Student{}, errors.Wrap(err, "getting student")
	}
	if len(rows) == 0 {
		return student.Student{}, student.ErrNotFound
	}
	return rows[0].toCore(), nil
}

func (repo studentRepository) UpdateStudent(ctx context.Context, std student.Student, exec ...core.DBExecutor) (student.Student, error) {
	std.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE students
		SET name = $2, nisn = $3, class = $4, teacher_id = $5, updated_at = $6
		WHERE id = $1`
	res, err := getExec(repo.exec, exec).ExecContext(ctx, query,
		std.ID, std.Name, std.NISN, std.Class, std.TeacherID, std.UpdatedAt,
	)
	n, err := countRows(res, err, "updating student")
	if err != nil {
		if isUniqueViolation(err) {
			return student.Student{}, student.ErrNisnExists
		}
		return student.Student{}, err
	}
	if n == 0 {
		return student.Student{}, student.ErrNotFound
	}
	return std, nil
}

func (repo studentRepository) DeleteStudentsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	res, err := getExec(repo.exec, exec).ExecContext(ctx, "DELETE FROM students WHERE id = ANY($1)", pq.Array(ids))
	n, err := countRows(res, err, "deleting students")
	return int(n), err
}

func (repo studentRepository) SetParentID(ctx context.Context, studentID, parentID string, exec ...core.DBExecutor) error {
	// conditional update; losing the race leaves parent_id untouched
	query := "UPDATE students SET parent_id = $2, updated_at = $3 WHERE id = $1 AND parent_id IS NULL"
	res, err := getExec(repo.exec, exec).ExecContext(ctx, query, studentID, parentID, time.Now().UTC())
	n, err := countRows(res, err, "linking student to parent")
	if err != nil {
		return err
	}
	if n == 0 {
		return student.ErrAlreadyLinked
	}
	return nil
}
