package inmemdb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tabunganku/backend/core"
	"github.com/tabunganku/backend/core/authz"
	"github.com/tabunganku/backend/core/student"
)

type studentRepository struct {
	db *DB
}

var _ student.Repository = (*studentRepository)(nil)

func NewStudentRepository(db *DB) *studentRepository {
	return &studentRepository{db: db}
}

func (repo *studentRepository) all() []student.Student {
	students := make([]student.Student, 0, len(repo.db.students))
	for _, s := range repo.db.students {
		students = append(students, *s)
	}
	sort.Slice(students, func(i, j int) bool {
		if students[i].Class != students[j].Class {
			return students[i].Class < students[j].Class
		}
		return students[i].Name < students[j].Name
	})
	return students
}

func inScope(scope authz.Scope, std student.Student) bool {
	return scope.AllowsStudent(std.TeacherID.String, std.ParentID.String)
}

func (repo *studentRepository) CreateStudent(ctx context.Context, std student.Student, exec ...core.DBExecutor) (student.Student, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, s := range repo.db.students {
		if s.NISN == std.NISN {
			return student.Student{}, student.ErrNisnExists
		}
	}
	std.ID = uuid.New().String()
	now := time.Now().UTC()
	std.CreatedAt, std.UpdatedAt = now, now
	repo.db.students[std.ID] = &std
	return std, nil
}

func (repo *studentRepository) QueryStudents(ctx context.Context, scope authz.Scope, filter *student.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]student.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var students []student.Student
	for _, s := range repo.all() {
		if !inScope(scope, s) {
			continue
		}
		if filter != nil {
			if filter.Class != "" && s.Class != filter.Class {
				continue
			}
			if filter.Search != "" {
				needle := strings.ToLower(filter.Search)
				if !strings.Contains(strings.ToLower(s.Name), needle) && !strings.Contains(s.NISN, needle) {
					continue
				}
			}
		}
		students = append(students, s)
	}
	return students, nil
}

func (repo *studentRepository) GetStudent(ctx context.Context, scope authz.Scope, filter student.GetFilter, exec ...core.DBExecutor) (student.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, s := range repo.db.students {
		if (filter.ID != "" && s.ID == filter.ID) || (filter.NISN != "" && s.NISN == filter.NISN) {
			if !inScope(scope, *s) {
				return student.Student{}, student.ErrNotFound
			}
			return *s, nil
		}
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) UpdateStudent(ctx context.Context, std student.Student, exec ...core.DBExecutor) (student.Student, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	cur, ok := repo.db.students[std.ID]
	if !ok {
		return student.Student{}, student.ErrNotFound
	}
	for _, s := range repo.db.students {
		if s.ID != std.ID && s.NISN == std.NISN {
			return student.Student{}, student.ErrNisnExists
		}
	}
	std.ParentID = cur.ParentID // parent link is only written via SetParentID
	std.CreatedAt = cur.CreatedAt
	std.UpdatedAt = time.Now().UTC()
	repo.db.students[std.ID] = &std
	return std, nil
}

func (repo *studentRepository) DeleteStudentsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	n := 0
	for _, id := range ids {
		if _, ok := repo.db.students[id]; ok {
			delete(repo.db.students, id)
			n++
		}
	}
	return n, nil
}

func (repo *studentRepository) SetParentID(ctx context.Context, studentID, parentID string, exec ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	std, ok := repo.db.students[studentID]
	if !ok {
		return student.ErrNotFound
	}
	if std.ParentID.Valid {
		return student.ErrAlreadyLinked
	}
	std.ParentID.SetValid(parentID)
	std.UpdatedAt = time.Now().UTC()
	return nil
}
