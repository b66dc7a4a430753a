// Package inmemdb backs the core repositories with in-process maps. It
// exists for tests and local tinkering; row-level scoping behaves exactly
// like the SQL implementation so handler tests exercise the same rules.
package inmemdb

import (
	"sync"

	"github.com/tabunganku/backend/core/profile"
	"github.com/tabunganku/backend/core/schedule"
	"github.com/tabunganku/backend/core/student"
	"github.com/tabunganku/backend/core/transaction"
)

type DB struct {
	mutex        sync.RWMutex
	profiles     map[string]*profile.Profile
	students     map[string]*student.Student
	transactions map[string]*transaction.Transaction
	schedules    map[string]*schedule.Schedule // keyed by student ID
}

func Open() *DB {
	return &DB{
		profiles:     make(map[string]*profile.Profile),
		students:     make(map[string]*student.Student),
		transactions: make(map[string]*transaction.Transaction),
		schedules:    make(map[string]*schedule.Schedule),
	}
}

// Reset empties every table.
func (db *DB) Reset() {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	db.profiles = make(map[string]*profile.Profile)
	db.students = make(map[string]*student.Student)
	db.transactions = make(map[string]*transaction.Transaction)
	db.schedules = make(map[string]*schedule.Schedule)
}
