package echoapi

import (
	"net/http"
	"sort"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/tabunganku/backend/core"
	"github.com/tabunganku/backend/core/profile"
	"github.com/tabunganku/backend/core/session"
	"github.com/tabunganku/backend/core/student"
)

var errProfNotFoundInCtx = errors.New("profile object not found in echo.Context")

type profileApi struct {
	conf       *core.Config
	svc        profile.ServiceInterface
	studentSvc student.ServiceInterface
	validate   *validator.Validate
	translator ut.Translator
}

func registerProfileAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts *Options) {
	api := profileApi{
		conf:       opts.Conf,
		svc:        opts.ProfileSvc,
		studentSvc: opts.StudentSvc,
		validate:   opts.Validate,
		translator: opts.Translator,
	}

	// the initial-setup endpoints are public so a fresh install can be
	// claimed; CreateAdmin itself rejects a second admin.
	adg := g.Group("/admin")
	adg.GET("/exists", api.adminExists)
	adg.GET("/name", api.adminName)
	adg.POST("/initial-setup", api.initialSetup)

	ug := g.Group("/users")

	// un-authed endpoints
	ug.POST("/login", api.login)
	ug.POST("/parent-login", api.parentLogin)
	ug.POST("/teacher-register", api.teacherRegister)
	ug.POST("/parent-register", api.parentRegister)
	ug.POST("/password-reset", api.resetPassword)
	ug.POST("/password-reset-confirm", api.confirmPasswordReset)

	// authed endpoints
	ag := ug.Group("", jwt)
	ag.POST("/token-refresh", api.refreshToken)
	ag.PUT("/password", api.changePassword)

	admin := adminMiddleware(api.svc)
	ag.POST("", api.create, admin)
	ag.GET("", api.query, admin)
	ag.DELETE("", api.destroyMultiple, admin)
	ag.GET("/roles", api.queryRoles, admin)

	// detail endpoints
	dg := ag.Group("/:id", ctxProfileOrAdminMiddleware(api.svc))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy, admin)
}

// Handlers

func (api *profileApi) adminExists(ctx echo.Context) error {
	exists, err := api.svc.AdminExists()
	if err != nil {
		return errors.Wrap(err, "checking admin account")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"exists": exists})
}

func (api *profileApi) adminName(ctx echo.Context) error {
	name, err := api.svc.AdminName()
	if err != nil {
		return errors.Wrap(err, "getting admin name")
	}
	var resp struct {
		Name *string `json:"name"`
	}
	if name != "" {
		resp.Name = &name
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (api *profileApi) initialSetup(ctx echo.Context) error {
	var data profile.NewProfile
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewProfile")
	}
	data.Role = profile.RoleAdmin
	if err := data.Validate(api.validate, api.svc); err != nil {
		return err
	}

	prof, err := api.svc.CreateAdmin(data)
	if err != nil {
		return errors.Wrap(err, "creating admin account")
	}
	return api.loginAs(ctx, prof, http.StatusCreated)
}

func (api *profileApi) create(ctx echo.Context) error {
	var data profile.NewProfile
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewProfile")
	}
	if err := data.Validate(api.validate, api.svc); err != nil {
		return err
	}
	if data.Role == profile.RoleAdmin {
		// the one admin account is claimed via initial-setup only
		return core.NewValidationError(nil, core.FieldError{Field: "role", Error: "cannot create another admin account"})
	}

	prof, err := api.svc.Create(data)
	if err != nil {
		return errors.Wrap(err, "creating profile")
	}
	return ctx.JSON(http.StatusCreated, prof)
}

func (api *profileApi) teacherRegister(ctx echo.Context) error {
	var data profile.NewProfile
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewProfile")
	}
	data.Role = profile.RoleTeacher
	if err := data.Validate(api.validate, api.svc); err != nil {
		return err
	}

	prof, err := api.svc.Create(data)
	if err != nil {
		return errors.Wrap(err, "registering teacher")
	}
	return api.loginAs(ctx, prof, http.StatusCreated)
}

func (api *profileApi) parentRegister(ctx echo.Context) error {
	var data ParentRegisterRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ParentRegisterRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	// NotFound and AlreadyLinked surface as 404/409 to the caller
	lookup, err := api.studentSvc.GetForParentRegistration(data.NISN)
	if err != nil {
		return errors.Wrap(err, "looking up student for registration")
	}

	prof, err := api.svc.Create(profile.NewProfile{
		Email:    student.ParentEmail(data.NISN),
		Password: data.Password,
		Role:     profile.RoleParent,
		FullName: "Orang Tua " + lookup.StudentName,
	})
	if err != nil {
		return errors.Wrap(err, "registering parent")
	}
	if err = api.studentSvc.LinkToParent(lookup.StudentID, prof.ID); err != nil {
		return errors.Wrap(err, "linking student to parent")
	}
	return api.loginAs(ctx, prof, http.StatusCreated)
}

func (api *profileApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := authenticate(api.conf, data.Email, data.Password, api.svc)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	return api.tokenResponse(ctx, claims, http.StatusOK)
}

func (api *profileApi) parentLogin(ctx echo.Context) error {
	var data ParentLoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ParentLoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := authenticateParent(api.conf, data.NISN, data.Password, api.svc)
	if err != nil {
		return errors.Wrap(err, "authenticating parent")
	}
	return api.tokenResponse(ctx, claims, http.StatusOK)
}

func (api *profileApi) loginAs(ctx echo.Context, prof profile.Profile, code int) error {
	return api.tokenResponse(ctx, GetProfileClaims(api.conf, prof), code)
}

func (api *profileApi) tokenResponse(ctx echo.Context, claims *Claims, code int) error {
	token, err := GenerateToken(api.conf, claims)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	home, _ := session.HomeFor(claims.Role)
	return ctx.JSON(code, LoginResponse{Token: token, Home: home})
}

func (api *profileApi) resetPassword(ctx echo.Context) error {
	var data PasswordResetRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PasswordResetRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.RequestPasswordReset(data.Email); !(err == nil || core.IsNotFound(errors.Cause(err))) {
		// do not return errors to attackers
		ctx.Logger().Errorf("%+v", errors.Wrap(err, "requesting password reset"))
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{
		Success: "If the email address supplied is associated with an active account on this system, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	})
}

func (api *profileApi) confirmPasswordReset(ctx echo.Context) error {
	var data profile.ResetProfilePassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetProfilePassword")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.ResetPassword(data); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Password has been reset with the new password."})
}

func (api *profileApi) changePassword(ctx echo.Context) error {
	var data profile.ChangePassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ChangePassword")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	prof, err := getContextProfile(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context profile")
	}
	if err = api.svc.ChangePassword(prof, data); err != nil {
		return errors.Wrap(err, "changing password")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Password has been changed."})
}

func (api *profileApi) query(ctx echo.Context) error {
	filter := new(profile.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []profile.Profile{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	profs, err := api.svc.Query(filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying profiles")
	}
	if profs == nil {
		profs = []profile.Profile{}
	}
	return ctx.JSON(http.StatusOK, profs)
}

func (api *profileApi) retrieve(ctx echo.Context) error {
	prof, ok := ctx.Get("object").(profile.Profile)
	if !ok {
		return errors.Wrap(errProfNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, prof)
}

func (api *profileApi) update(ctx echo.Context) error {
	prof, ok := ctx.Get("object").(profile.Profile)
	if !ok {
		return errors.Wrap(errProfNotFoundInCtx, "retrieving object from context")
	}

	var data profile.UpdateProfile
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateProfile")
	}

	ctxProf, err := getContextProfile(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context profile")
	}
	if !ctxProf.IsAdmin() {
		// `Role`, `ClassTaught` and `IsActive` can only be changed by admin
		if data.Role != "" || data.ClassTaught != "" || data.IsActive != nil {
			return errHttpForbidden
		}
	}

	if err := data.Validate(prof, api.validate); err != nil {
		return err
	}

	prof, err = api.svc.Update(prof.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating profile")
	}
	return ctx.JSON(http.StatusOK, prof)
}

func (api *profileApi) destroy(ctx echo.Context) error {
	prof, ok := ctx.Get("object").(profile.Profile)
	if !ok {
		return errors.Wrap(errProfNotFoundInCtx, "retrieving object from context")
	}

	ctxProf, err := getContextProfile(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context profile")
	}
	if err := api.svc.Delete(ctxProf.ID, prof.ID); err != nil {
		return errors.Wrap(err, "deleting profile")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *profileApi) destroyMultiple(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if query.IDs == nil {
		return ctx.NoContent(http.StatusNoContent)
	}

	ctxProf, err := getContextProfile(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context profile")
	}
	if err := api.svc.Delete(ctxProf.ID, query.IDs...); err != nil {
		return errors.Wrap(err, "deleting profiles")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *profileApi) queryRoles(ctx echo.Context) error {
	roles := append([]string(nil), profile.AllRoles...)
	sort.Strings(roles)
	return ctx.JSON(http.StatusOK, roles)
}

func (api *profileApi) refreshToken(ctx echo.Context) error {
	token, err := refreshToken(ctx, api.conf, api.svc)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func ctxProfileOrAdminMiddleware(svc profile.ServiceInterface) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			ctxProf, err := getContextProfile(ctx, svc)
			if err != nil {
				return errors.Wrap(err, "getting context profile")
			}

			if ctx.Param("id") == ctxProf.ID || ctxProf.IsAdmin() {
				if prof, err := svc.GetByID(ctx.Param("id")); err == nil {
					ctx.Set("object", prof)
					return next(ctx)
				} else if !core.IsNotFound(errors.Cause(err)) {
					return errors.Wrap(err, "finding profile by ID")
				}
			}
			return errHttpNotFound
		}
	}
}

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	ParentLoginRequest struct {
		NISN     string `json:"nisn" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	ParentRegisterRequest struct {
		NISN            string `json:"nisn" validate:"required"`
		Password        string `json:"password" validate:"required"`
		PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
	}

	LoginResponse struct {
		Token string `json:"token"`
		Home  string `json:"home,omitempty"`
	}

	PasswordResetRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}

	DestroyMultipleRequest struct {
		IDs []string `query:"id"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	return validate.Struct(lr)
}

func (pr *ParentLoginRequest) Validate(validate *validator.Validate) error {
	pr.NISN = core.CleanString(pr.NISN, true /* lower */)
	return validate.Struct(pr)
}

func (pr *ParentRegisterRequest) Validate(validate *validator.Validate) error {
	pr.NISN = core.CleanString(pr.NISN, true /* lower */)
	return validate.Struct(pr)
}

func (pr *PasswordResetRequest) Validate(validate *validator.Validate) error {
	pr.Email = core.CleanString(pr.Email, true /* lower */)
	return validate.Struct(pr)
}
