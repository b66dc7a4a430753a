package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/tabunganku/backend/core"
	"github.com/tabunganku/backend/core/profile"
	"github.com/tabunganku/backend/core/student"
)

type studentApi struct {
	svc        student.ServiceInterface
	profileSvc profile.ServiceInterface
	validate   *validator.Validate
}

func registerStudentAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts *Options) {
	api := studentApi{
		svc:        opts.StudentSvc,
		profileSvc: opts.ProfileSvc,
		validate:   opts.Validate,
	}

	sg := g.Group("/students")

	// parents look a student up by NISN before they have an account
	sg.GET("/registration-lookup", api.registrationLookup)

	ag := sg.Group("", jwt)
	ag.GET("", api.query)
	ag.POST("", api.create, teacherMiddleware(api.profileSvc))
	ag.POST("/import", api.importStudents, teacherMiddleware(api.profileSvc))
	ag.POST("/:id/link-parent", api.linkParent)
	ag.GET("/:id", api.retrieve)
	ag.PUT("/:id", api.update, teacherMiddleware(api.profileSvc))
	ag.DELETE("/:id", api.destroy, teacherMiddleware(api.profileSvc))
	ag.DELETE("", api.destroyMultiple, adminMiddleware(api.profileSvc))
}

// Handlers

func (api *studentApi) create(ctx echo.Context) error {
	var data student.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	scope, err := getContextScope(ctx, api.profileSvc)
	if err != nil {
		return errors.Wrap(err, "getting context scope")
	}
	std, err := api.svc.Create(scope, data)
	if err != nil {
		return errors.Wrap(err, "creating student")
	}
	return ctx.JSON(http.StatusCreated, std)
}

func (api *studentApi) query(ctx echo.Context) error {
	filter := new(student.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []student.Student{})
	}
	filter.Clean()

	scope, err := getContextScope(ctx, api.profileSvc)
	if err != nil {
		return errors.Wrap(err, "getting context scope")
	}
	stds, err := api.svc.Query(scope, filter)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	if stds == nil {
		stds = []student.Student{}
	}
	return ctx.JSON(http.StatusOK, stds)
}

func (api *studentApi) retrieve(ctx echo.Context) error {
	scope, err := getContextScope(ctx, api.profileSvc)
	if err != nil {
		return errors.Wrap(err, "getting context scope")
	}
	std, err := api.svc.GetByID(scope, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding student by ID")
	}
	return ctx.JSON(http.StatusOK, std)
}

func (api *studentApi) update(ctx echo.Context) error {
	var data student.UpdateStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStudent")
	}

	scope, err := getContextScope(ctx, api.profileSvc)
	if err != nil {
		return errors.Wrap(err, "getting context scope")
	}
	std, err := api.svc.GetByID(scope, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding student by ID")
	}
	if err := data.Validate(std, api.validate); err != nil {
		return err
	}

	std, err = api.svc.Update(scope, std.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating student")
	}
	return ctx.JSON(http.StatusOK, std)
}

func (api *studentApi) destroy(ctx echo.Context) error {
	scope, err := getContextScope(ctx, api.profileSvc)
	if err != nil {
		return errors.Wrap(err, "getting context scope")
	}
	// scoped lookup first so a teacher cannot delete another class's student
	std, err := api.svc.GetByID(scope, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding student by ID")
	}
	if err := api.svc.Delete(std.ID); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *studentApi) destroyMultiple(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if query.IDs == nil {
		return ctx.NoContent(http.StatusNoContent)
	}

	if err := api.svc.Delete(query.IDs...); err != nil {
		return errors.Wrap(err, "deleting students")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *studentApi) importStudents(ctx echo.Context) error {
	fileHdr, err := ctx.FormFile("file")
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "file", Error: "an .xlsx file is required"})
	}
	file, err := fileHdr.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	defer file.Close()

	rows, parseFails, err := student.ParseImportFile(file)
	if err != nil {
		return errors.Wrap(err, "parsing import file")
	}

	prof, err := getContextProfile(ctx, api.profileSvc)
	if err != nil {
		return errors.Wrap(err, "getting context profile")
	}
	scope, err := getContextScope(ctx, api.profileSvc)
	if err != nil {
		return errors.Wrap(err, "getting context scope")
	}

	report := api.svc.Import(scope, prof.ClassTaught.String, rows)
	return ctx.JSON(http.StatusOK, ImportResponse{
		Imported:   len(report.Succeeded),
		Skipped:    len(parseFails) + len(report.Failed),
		ParseRows:  batchRowErrors(parseFails),
		FailedRows: batchRowErrors(report.Failed),
	})
}

func (api *studentApi) registrationLookup(ctx echo.Context) error {
	nisn := core.CleanString(ctx.QueryParam("nisn"))
	if nisn == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "nisn", Error: "NISN is required"})
	}

	lookup, err := api.svc.GetForParentRegistration(nisn)
	if err != nil {
		return errors.Wrap(err, "looking up student for registration")
	}
	return ctx.JSON(http.StatusOK, lookup)
}

func (api *studentApi) linkParent(ctx echo.Context) error {
	prof, err := getContextProfile(ctx, api.profileSvc)
	if err != nil {
		return errors.Wrap(err, "getting context profile")
	}
	if prof.Role != profile.RoleParent {
		return errHttpForbidden
	}

	if err := api.svc.LinkToParent(ctx.Param("id"), prof.ID); err != nil {
		return errors.Wrap(err, "linking student to parent")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Student linked to your account."})
}

type (
	ImportResponse struct {
		Imported   int            `json:"imported"`
		Skipped    int            `json:"skipped"`
		ParseRows  []RowErrorInfo `json:"parse_errors,omitempty"`
		FailedRows []RowErrorInfo `json:"failed_rows,omitempty"`
	}

	RowErrorInfo struct {
		Row   int    `json:"row"`
		Error string `json:"error"`
	}
)

func batchRowErrors(fails []core.BatchError) []RowErrorInfo {
	if len(fails) == 0 {
		return nil
	}
	infos := make([]RowErrorInfo, 0, len(fails))
	for _, fail := range fails {
		// +1 converts a zero-based row index to the spreadsheet row label
		infos = append(infos, RowErrorInfo{Row: fail.Index + 1, Error: fail.Err.Error()})
	}
	return infos
}
