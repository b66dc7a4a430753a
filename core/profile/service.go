package profile

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/tabunganku/backend/core"
)

var (
	// errors
	ErrNotFound    = core.NewNotFoundError("profile not found")
	ErrEmailExists = core.NewConflictError("a user with this email already exists")
	ErrAdminExists = core.NewConflictError("an admin account already exists")
)

type (
	Repository interface {
		CheckEmailUniqueness(ctx context.Context, email string, excluded []Profile, exec ...core.DBExecutor) error
		CreateProfile(ctx context.Context, prof Profile, exec ...core.DBExecutor) (Profile, error)
		QueryProfiles(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Profile, error)
		GetProfile(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (Profile, error)
		// GetAdminProfile returns the first profile with the admin role.
		GetAdminProfile(ctx context.Context, exec ...core.DBExecutor) (Profile, error)
		UpdateProfile(ctx context.Context, prof Profile, exec ...core.DBExecutor) (Profile, error)
		DeleteProfilesByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error)
	}

	ServiceInterface interface {
		CheckUniqueness(email string, exclProfiles ...Profile) error
		Create(np NewProfile) (Profile, error)
		CreateAdmin(np NewProfile) (Profile, error)
		AdminExists() (bool, error)
		AdminName() (string, error)
		Query(filter *QueryFilter, ordering []core.DBOrdering) ([]Profile, error)
		GetByID(id string) (Profile, error)
		GetByEmail(email string) (Profile, error)
		Update(id string, up UpdateProfile) (Profile, error)
		SetLastLogin(prof Profile) (Profile, error)
		Delete(callerID string, ids ...string) error
		ChangePassword(prof Profile, cp ChangePassword) error
		RequestPasswordReset(email string) error
		ResetPassword(rp ResetProfilePassword) error
	}

	service struct {
		conf    *core.Config
		db      core.DB
		repo    Repository
		mailSvc core.EmailService
	}
)

var _ ServiceInterface = (*service)(nil)

func NewService(conf *core.Config, db core.DB, repo Repository, mailSvc core.EmailService) *service {
	return &service{
		conf:    conf,
		db:      db,
		repo:    repo,
		mailSvc: mailSvc,
	}
}

func (svc *service) CheckUniqueness(email string, exclProfiles ...Profile) error {
	if err := svc.repo.CheckEmailUniqueness(context.Background(), email, exclProfiles); err != nil {
		if errors.Cause(err) == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *service) Create(np NewProfile) (Profile, error) {
	now := time.Now().UTC()
	firstName, lastName := SplitFullName(np.FullName)
	prof := Profile{
		Email:     np.Email,
		FirstName: firstName,
		LastName:  lastName,
		Role:      np.Role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if np.Role == RoleTeacher && np.ClassTaught != "" {
		prof.ClassTaught.SetValid(np.ClassTaught)
	}
	prof.SetActive(true)
	if err := prof.SetPassword(np.Password); err != nil {
		return Profile{}, errors.Wrap(err, "setting password")
	}

	prof, err := svc.repo.CreateProfile(context.Background(), prof)
	if err != nil {
		return Profile{}, errors.Wrap(err, "creating profile")
	}

	svc.sendWelcomeEmail(prof)
	return prof, nil
}

// CreateAdmin provisions the one admin account; it fails with ErrAdminExists
// when an admin profile is already present.
func (svc *service) CreateAdmin(np NewProfile) (Profile, error) {
	exists, err := svc.AdminExists()
	if err != nil {
		return Profile{}, err
	}
	if exists {
		return Profile{}, ErrAdminExists
	}
	np.Role = RoleAdmin
	return svc.Create(np)
}

func (svc *service) AdminExists() (bool, error) {
	_, err := svc.repo.GetAdminProfile(context.Background())
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return false, nil
		}
		return false, errors.Wrap(err, "checking admin existence")
	}
	return true, nil
}

// AdminName returns the admin's display name; empty when no admin exists.
func (svc *service) AdminName() (string, error) {
	admin, err := svc.repo.GetAdminProfile(context.Background())
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return "", nil
		}
		return "", errors.Wrap(err, "finding admin profile")
	}
	return admin.FullName(), nil
}

func (svc *service) Query(filter *QueryFilter, ordering []core.DBOrdering) ([]Profile, error) {
	return svc.repo.QueryProfiles(context.Background(), filter, ordering)
}

func (svc *service) GetByID(id string) (Profile, error) {
	return svc.repo.GetProfile(context.Background(), GetFilter{ID: id})
}

func (svc *service) GetByEmail(email string) (Profile, error) {
	return svc.repo.GetProfile(context.Background(), GetFilter{Email: core.CleanString(email, true /* lower */)})
}

func (svc *service) Update(id string, up UpdateProfile) (Profile, error) {
	ctx := context.Background()
	orig, err := svc.repo.GetProfile(ctx, GetFilter{ID: id})
	if err != nil {
		return Profile{}, errors.Wrap(err, "finding profile by ID")
	}

	orig.FirstName = up.FirstName
	orig.LastName = up.LastName
	orig.Role = up.Role
	if up.Role == RoleTeacher {
		if up.ClassTaught != "" {
			orig.ClassTaught.SetValid(up.ClassTaught)
		}
	} else {
		orig.ClassTaught.Valid = false
	}
	if up.IsActive != nil {
		orig.IsActive = up.IsActive
	}
	if up.Password != "" {
		if err := orig.SetPassword(up.Password); err != nil {
			return Profile{}, errors.Wrap(err, "setting password")
		}
	}
	orig.UpdatedAt = time.Now().UTC()

	return svc.repo.UpdateProfile(ctx, orig)
}

func (svc *service) SetLastLogin(prof Profile) (Profile, error) {
	prof.LastLogin = time.Now().UTC()
	return svc.repo.UpdateProfile(context.Background(), prof)
}

// Delete removes profiles by id; the caller can never delete themselves.
func (svc *service) Delete(callerID string, ids ...string) error {
	for _, id := range ids {
		if id == callerID {
			return core.NewAuthorizationError("cannot delete own account")
		}
	}
	if _, err := svc.repo.DeleteProfilesByID(context.Background(), ids); err != nil {
		return errors.Wrap(err, "deleting profiles")
	}
	return nil
}

func (svc *service) ChangePassword(prof Profile, cp ChangePassword) error {
	if err := prof.CheckPassword(cp.OldPassword); err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "old_password", Error: "incorrect password"})
	}
	if err := prof.SetPassword(cp.NewPassword); err != nil {
		return errors.Wrap(err, "setting password")
	}
	prof.UpdatedAt = time.Now().UTC()
	_, err := svc.repo.UpdateProfile(context.Background(), prof)
	return errors.Wrap(err, "updating profile")
}

func (svc *service) RequestPasswordReset(email string) error {
	prof, err := svc.GetByEmail(email)
	if err != nil {
		return errors.Wrap(err, "finding profile by email")
	}

	token, err := MakeToken(svc.conf, prof)
	if err != nil {
		return errors.Wrap(err, "making reset token")
	}

	url := fmt.Sprintf("%s/change-password?uid=%s&token=%s", svc.conf.FrontendBaseURL, EncodeUID(prof), token)
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: prof.FullName(), Address: prof.Email}},
		Subject: "Atur Ulang Kata Sandi - " + svc.conf.AppName,
		BodyStr: "Gunakan tautan berikut untuk mengatur ulang kata sandi akun Anda:\n\n" + url,
	})
	return nil
}

func (svc *service) ResetPassword(rp ResetProfilePassword) error {
	ctx := context.Background()

	id, err := decodeUID(rp.UID)
	if err != nil {
		return core.NewValidationError(errInvalidToken)
	}
	prof, err := svc.repo.GetProfile(ctx, GetFilter{ID: id})
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return core.NewValidationError(errInvalidToken)
		}
		return errors.Wrap(err, "finding profile by ID")
	}

	if err := verifyToken(svc.conf, prof, rp.Token); err != nil {
		return core.NewValidationError(err)
	}
	if err := prof.SetPassword(rp.Password); err != nil {
		return errors.Wrap(err, "setting password")
	}
	prof.UpdatedAt = time.Now().UTC()
	if _, err := svc.repo.UpdateProfile(ctx, prof); err != nil {
		return errors.Wrap(err, "updating profile")
	}
	return nil
}

func (svc *service) sendWelcomeEmail(prof Profile) {
	if svc.mailSvc == nil {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: prof.FullName(), Address: prof.Email}},
		Subject: "Akun Anda Telah Dibuat - " + svc.conf.AppName,
		BodyStr: fmt.Sprintf(
			"Halo %s,\n\nAkun %s Anda untuk %s telah dibuat. Silakan masuk di %s.",
			prof.FullName(), prof.Role, svc.conf.AppName, svc.conf.FrontendBaseURL,
		),
	})
}
