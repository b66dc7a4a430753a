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
	"github.com/tabunganku/backend/core/profile"
)

type profileRepository struct {
	exec core.DBExecutor
}

var _ profile.Repository = (*profileRepository)(nil) // interface compliance check

func NewProfileRepository(exec core.DBExecutor) *profileRepository {
	return &profileRepository{exec: exec}
}

type profileRow struct {
	ID           string      `db:"id"`
	Email        string      `db:"email"`
	FirstName    string      `db:"first_name"`
	LastName     string      `db:"last_name"`
	Role         string      `db:"role"`
	ClassTaught  null.String `db:"class_taught"`
	IsActive     null.Bool   `db:"is_active"`
	PasswordHash []byte      `db:"password_hash"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
	LastLogin    null.Time   `db:"last_login"`
}

func (r profileRow) toCore() profile.Profile {
	return profile.Profile{
		ID:           r.ID,
		Email:        r.Email,
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		Role:         r.Role,
		ClassTaught:  r.ClassTaught,
		IsActive:     r.IsActive.Ptr(),
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
		LastLogin:    r.LastLogin.Time,
	}
}

func toCoreProfiles(rows []profileRow) []profile.Profile {
	profs := make([]profile.Profile, 0, len(rows))
	for _, r := range rows {
		profs = append(profs, r.toCore())
	}
	return profs
}

const profileColumns = "id, email, first_name, last_name, role, class_taught, is_active, password_hash, created_at, updated_at, last_login"

func (repo profileRepository) CheckEmailUniqueness(ctx context.Context, email string, excluded []profile.Profile, exec ...core.DBExecutor) error {
	query := "SELECT EXISTS(SELECT 1 FROM profiles WHERE email = $1"
	args := []interface{}{email}
	if len(excluded) > 0 {
		ids := make([]string, 0, len(excluded))
		for _, p := range excluded {
			ids = append(ids, p.ID)
		}
		query += " AND id != ALL($2)"
		args = append(args, pq.Array(ids))
	}
	query += ")"

	var exists bool
	if err := getExec(repo.exec, exec).QueryRowContext(ctx, query, args...).Scan(&exists); err != nil {
		return errors.Wrap(err, "checking profile uniqueness")
	}
	if exists {
		return profile.ErrEmailExists
	}
	return nil
}

func (repo profileRepository) CreateProfile(ctx context.Context, prof profile.Profile, exec ...core.DBExecutor) (profile.Profile, error) {
	prof.ID = uuid.New().String()
	now := time.Now().UTC()
	prof.CreatedAt, prof.UpdatedAt = now, now

	query := `
		INSERT INTO profiles (id, email, first_name, last_name, role, class_taught, is_active, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := getExec(repo.exec, exec).ExecContext(ctx, query,
		prof.ID, prof.Email, prof.FirstName, prof.LastName, prof.Role,
		prof.ClassTaught, prof.Active(), prof.PasswordHash, prof.CreatedAt, prof.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return profile.Profile{}, profile.ErrEmailExists
		}
		return profile.Profile{}, errors.Wrap(err, "inserting profile")
	}
	return prof, nil
}

func (repo profileRepository) QueryProfiles(ctx context.Context, filter *profile.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]profile.Profile, error) {
	query := "SELECT " + profileColumns + " FROM profiles"
	var conds []string
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return placeholder(len(args))
	}

	if filter != nil {
		if filter.Search != "" {
			p := arg("%" + filter.Search + "%")
			conds = append(conds, "(first_name ILIKE "+p+" OR last_name ILIKE "+p+" OR email ILIKE "+p+")")
		}
		if filter.Role != "" {
			conds = append(conds, "role = "+arg(filter.Role))
		}
		if filter.IsActive != nil {
			conds = append(conds, "is_active = "+arg(*filter.IsActive))
		}
		if !filter.CreatedFrom.IsZero() {
			conds = append(conds, "created_at >= "+arg(filter.CreatedFrom))
		}
		if !filter.CreatedTo.IsZero() {
			conds = append(conds, "created_at <= "+arg(filter.CreatedTo))
		}
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += orderBy(ordering)

	var rows []profileRow
	if err := selectAll(ctx, getExec(repo.exec, exec), &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying profiles")
	}
	return toCoreProfiles(rows), nil
}

func (repo profileRepository) GetProfile(ctx context.Context, filter profile.GetFilter, exec ...core.DBExecutor) (profile.Profile, error) {
	query := "SELECT " + profileColumns + " FROM profiles WHERE "
	var arg interface{}
	switch {
	case filter.ID != "":
		query += "id = $1"
		arg = filter.ID
	case filter.Email != "":
		query += "email = $1"
		arg = filter.Email
	default:
		return profile.Profile{}, profile.ErrNotFound
	}

	var rows []profileRow
	if err := selectAll(ctx, getExec(repo.exec, exec), &rows, query, arg); err != nil {
		return profile.Profile{}, errors.Wrap(err, "getting profile")
	}
	if len(rows) == 0 {
		return profile.Profile{}, profile.ErrNotFound
	}
	return rows[0].toCore(), nil
}

func (repo profileRepository) GetAdminProfile(ctx context.Context, exec ...core.DBExecutor) (profile.Profile, error) {
	query := "SELECT " + profileColumns + " FROM profiles WHERE role = $1 ORDER BY created_at LIMIT 1"

	var rows []profileRow
	if err := selectAll(ctx, getExec(repo.exec, exec), &rows, query, profile.RoleAdmin); err != nil {
		return profile.Profile{}, errors.Wrap(err, "getting admin profile")
	}
	if len(rows) == 0 {
		return profile.Profile{}, profile.ErrNotFound
	}
	return rows[0].toCore(), nil
}

func (repo profileRepository) UpdateProfile(ctx context.Context, prof profile.Profile, exec ...core.DBExecutor) (profile.Profile, error) {
	prof.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE profiles
		SET email = $2, first_name = $3, last_name = $4, role = $5, class_taught = $6,
		    is_active = $7, password_hash = $8, updated_at = $9, last_login = $10
		WHERE id = $1`
	lastLogin := null.NewTime(prof.LastLogin, !prof.LastLogin.IsZero())
	res, err := getExec(repo.exec, exec).ExecContext(ctx, query,
		prof.ID, prof.Email, prof.FirstName, prof.LastName, prof.Role, prof.ClassTaught,
		prof.Active(), prof.PasswordHash, prof.UpdatedAt, lastLogin,
	)
	n, err := countRows(res, err, "updating profile")
	if err != nil {
		if isUniqueViolation(err) {
			return profile.Profile{}, profile.ErrEmailExists
		}
		return profile.Profile{}, err
	}
	if n == 0 {
		return profile.Profile{}, profile.ErrNotFound
	}
	return prof, nil
}

func (repo profileRepository) DeleteProfilesByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	res, err := getExec(repo.exec, exec).ExecContext(ctx, "DELETE FROM profiles WHERE id = ANY($1)", pq.Array(ids))
	n, err := countRows(res, err, "deleting profiles")
	return int(n), err
}
