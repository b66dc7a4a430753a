package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"

	"github.com/tabunganku/backend/core"
	"github.com/tabunganku/backend/core/authz"
	"github.com/tabunganku/backend/core/schedule"
)

type scheduleRepository struct {
	db *DB
}

var _ schedule.Repository = (*scheduleRepository)(nil)

func NewScheduleRepository(db *DB) *scheduleRepository {
	return &scheduleRepository{db: db}
}

func (repo *scheduleRepository) UpsertSchedule(ctx context.Context, sch schedule.Schedule, exec ...core.DBExecutor) (schedule.Schedule, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	now := time.Now().UTC()
	if cur, ok := repo.db.schedules[sch.StudentID]; ok {
		sch.ID = cur.ID
		sch.CreatedAt = cur.CreatedAt
	} else {
		sch.ID = uuid.New().String()
		sch.CreatedAt = now
	}
	sch.UpdatedAt = now
	repo.db.schedules[sch.StudentID] = &sch
	return sch, nil
}

func (repo *scheduleRepository) GetScheduleForStudent(ctx context.Context, studentID string, exec ...core.DBExecutor) (schedule.Schedule, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if sch, ok := repo.db.schedules[studentID]; ok {
		return *sch, nil
	}
	return schedule.Schedule{}, schedule.ErrNotFound
}

func (repo *scheduleRepository) teacherName(id null.String) null.String {
	if !id.Valid {
		return null.String{}
	}
	if p, ok := repo.db.profiles[id.String]; ok {
		return null.StringFrom(p.FullName())
	}
	return null.String{}
}

func (repo *scheduleRepository) QueryScheduleRows(ctx context.Context, scope authz.Scope, class string, exec ...core.DBExecutor) ([]schedule.Row, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var rows []schedule.Row
	for _, sch := range repo.db.schedules {
		std, ok := repo.db.students[sch.StudentID]
		if !ok || !inScope(scope, *std) {
			continue
		}
		if class != "" && sch.Class != class {
			continue
		}
		rows = append(rows, schedule.Row{Schedule: *sch, TeacherName: repo.teacherName(sch.TeacherID)})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Class != rows[j].Class {
			return rows[i].Class < rows[j].Class
		}
		return rows[i].CreatedAt.Before(rows[j].CreatedAt)
	})
	return rows, nil
}

func (repo *scheduleRepository) UpdateSchedulesByID(ctx context.Context, ids []string, changes schedule.NewSchedule, exec ...core.DBExecutor) (int64, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	idSet := make(map[string]bool, len(ids))
	for _, id := range ids {
		idSet[id] = true
	}

	var n int64
	for _, sch := range repo.db.schedules {
		if !idSet[sch.ID] {
			continue
		}
		sch.Class = changes.Class
		sch.AmountExpected = changes.AmountExpected
		sch.Frequency = changes.Frequency
		sch.DayOfWeek = null.NewString(changes.DayOfWeek, changes.DayOfWeek != "")
		sch.UpdatedAt = time.Now().UTC()
		n++
	}
	return n, nil
}

func (repo *scheduleRepository) DeleteSchedulesByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int64, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	var n int64
	for studentID, sch := range repo.db.schedules {
		for _, id := range ids {
			if sch.ID == id {
				delete(repo.db.schedules, studentID)
				n++
				break
			}
		}
	}
	return n, nil
}

func (repo *scheduleRepository) QueryClassStudentIDs(ctx context.Context, class string, exec ...core.DBExecutor) ([]string, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var ids []string
	for _, s := range repo.db.students {
		if s.Class == class {
			ids = append(ids, s.ID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}
