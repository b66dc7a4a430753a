package inmemdb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tabunganku/backend/core"
	"github.com/tabunganku/backend/core/profile"
)

type profileRepository struct {
	db *DB
}

var _ profile.Repository = (*profileRepository)(nil)

func NewProfileRepository(db *DB) *profileRepository {
	return &profileRepository{db: db}
}

func (repo *profileRepository) all() []profile.Profile {
	profs := make([]profile.Profile, 0, len(repo.db.profiles))
	for _, p := range repo.db.profiles {
		profs = append(profs, *p)
	}
	sort.Slice(profs, func(i, j int) bool { return profs[i].CreatedAt.Before(profs[j].CreatedAt) })
	return profs
}

func (repo *profileRepository) CheckEmailUniqueness(ctx context.Context, email string, excluded []profile.Profile, exec ...core.DBExecutor) error {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, p := range repo.db.profiles {
		if p.Email != email {
			continue
		}
		isExcluded := false
		for _, ex := range excluded {
			if ex.ID == p.ID {
				isExcluded = true
				break
			}
		}
		if !isExcluded {
			return profile.ErrEmailExists
		}
	}
	return nil
}

func (repo *profileRepository) CreateProfile(ctx context.Context, prof profile.Profile, exec ...core.DBExecutor) (profile.Profile, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	prof.ID = uuid.New().String()
	now := time.Now().UTC()
	prof.CreatedAt, prof.UpdatedAt = now, now
	repo.db.profiles[prof.ID] = &prof
	return prof, nil
}

func (repo *profileRepository) QueryProfiles(ctx context.Context, filter *profile.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]profile.Profile, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var profs []profile.Profile
	for _, p := range repo.all() {
		if filter != nil && !matchProfile(p, filter) {
			continue
		}
		profs = append(profs, p)
	}
	return profs, nil
}

func matchProfile(p profile.Profile, filter *profile.QueryFilter) bool {
	if filter.Search != "" {
		s := strings.ToLower(filter.Search)
		hay := strings.ToLower(p.FirstName + " " + p.LastName + " " + p.Email)
		if !strings.Contains(hay, s) {
			return false
		}
	}
	if filter.Role != "" && p.Role != filter.Role {
		return false
	}
	if filter.IsActive != nil && p.Active() != *filter.IsActive {
		return false
	}
	if !filter.CreatedFrom.IsZero() && p.CreatedAt.Before(filter.CreatedFrom) {
		return false
	}
	if !filter.CreatedTo.IsZero() && p.CreatedAt.After(filter.CreatedTo) {
		return false
	}
	return true
}

func (repo *profileRepository) GetProfile(ctx context.Context, filter profile.GetFilter, exec ...core.DBExecutor) (profile.Profile, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if filter.ID != "" {
		if p, ok := repo.db.profiles[filter.ID]; ok {
			return *p, nil
		}
		return profile.Profile{}, profile.ErrNotFound
	}
	for _, p := range repo.db.profiles {
		if p.Email == filter.Email {
			return *p, nil
		}
	}
	return profile.Profile{}, profile.ErrNotFound
}

func (repo *profileRepository) GetAdminProfile(ctx context.Context, exec ...core.DBExecutor) (profile.Profile, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, p := range repo.all() {
		if p.IsAdmin() {
			return p, nil
		}
	}
	return profile.Profile{}, profile.ErrNotFound
}

func (repo *profileRepository) UpdateProfile(ctx context.Context, prof profile.Profile, exec ...core.DBExecutor) (profile.Profile, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.profiles[prof.ID]; !ok {
		return profile.Profile{}, profile.ErrNotFound
	}
	prof.UpdatedAt = time.Now().UTC()
	repo.db.profiles[prof.ID] = &prof
	return prof, nil
}

func (repo *profileRepository) DeleteProfilesByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	n := 0
	for _, id := range ids {
		if _, ok := repo.db.profiles[id]; ok {
			delete(repo.db.profiles, id)
			n++
		}
	}
	return n, nil
}
