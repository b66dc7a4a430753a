package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/tabunganku/backend/core"
	"github.com/tabunganku/backend/core/profile"
	"github.com/tabunganku/backend/core/schedule"
)

type scheduleApi struct {
	svc        schedule.ServiceInterface
	profileSvc profile.ServiceInterface
	validate   *validator.Validate
}

func registerScheduleAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts *Options) {
	api := scheduleApi{
		svc:        opts.ScheduleSvc,
		profileSvc: opts.ProfileSvc,
		validate:   opts.Validate,
	}

	admin := adminMiddleware(api.profileSvc)

	sg := g.Group("/saving-schedules", jwt)
	sg.GET("", api.queryGrouped)
	sg.POST("", api.bulkCreate, admin)
	sg.PUT("/grouped", api.updateGrouped, admin)
	sg.DELETE("/grouped", api.destroyGrouped, admin)
	sg.GET("/student/:id", api.forStudent)
	sg.GET("/frequencies", api.queryFrequencies)
}

// Handlers

func (api *scheduleApi) bulkCreate(ctx echo.Context) error {
	var data schedule.NewSchedule
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSchedule")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	scope, err := getContextScope(ctx, api.profileSvc)
	if err != nil {
		return errors.Wrap(err, "getting context scope")
	}
	report, err := api.svc.BulkCreateForClass(scope, data)
	if err != nil {
		return errors.Wrap(err, "creating schedules for class")
	}
	return ctx.JSON(http.StatusCreated, BulkScheduleResponse{
		Created:    report.SuccessCount(),
		FailedRows: batchRowErrors(report.Failed),
	})
}

func (api *scheduleApi) queryGrouped(ctx echo.Context) error {
	scope, err := getContextScope(ctx, api.profileSvc)
	if err != nil {
		return errors.Wrap(err, "getting context scope")
	}
	groups, err := api.svc.QueryGrouped(scope, core.CleanString(ctx.QueryParam("class")))
	if err != nil {
		return errors.Wrap(err, "querying grouped schedules")
	}
	if groups == nil {
		groups = []schedule.Group{}
	}
	return ctx.JSON(http.StatusOK, groups)
}

func (api *scheduleApi) updateGrouped(ctx echo.Context) error {
	var data schedule.UpdateGroup
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateGroup")
	}
	data.Selector.Clean()
	if err := api.validate.Struct(&data.Selector); err != nil {
		return err
	}
	if err := data.Changes.Validate(api.validate); err != nil {
		return err
	}

	scope, err := getContextScope(ctx, api.profileSvc)
	if err != nil {
		return errors.Wrap(err, "getting context scope")
	}
	n, err := api.svc.UpdateGrouped(scope, data)
	if err != nil {
		return errors.Wrap(err, "updating grouped schedules")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"updated": n})
}

func (api *scheduleApi) destroyGrouped(ctx echo.Context) error {
	var sel schedule.GroupSelector
	if err := ctx.Bind(&sel); err != nil {
		return errors.Wrap(err, "binding to GroupSelector")
	}
	sel.Clean()
	if err := api.validate.Struct(&sel); err != nil {
		return err
	}

	scope, err := getContextScope(ctx, api.profileSvc)
	if err != nil {
		return errors.Wrap(err, "getting context scope")
	}
	n, err := api.svc.DeleteGrouped(scope, sel)
	if err != nil {
		return errors.Wrap(err, "deleting grouped schedules")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"deleted": n})
}

func (api *scheduleApi) forStudent(ctx echo.Context) error {
	sch, err := api.svc.GetForStudent(ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding schedule for student")
	}
	return ctx.JSON(http.StatusOK, sch)
}

func (api *scheduleApi) queryFrequencies(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, schedule.AllFrequencies)
}

type BulkScheduleResponse struct {
	Created    int            `json:"created"`
	FailedRows []RowErrorInfo `json:"failed_rows,omitempty"`
}
