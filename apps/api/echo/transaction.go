package echoapi

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/tabunganku/backend/core"
	"github.com/tabunganku/backend/core/authz"
	"github.com/tabunganku/backend/core/profile"
	"github.com/tabunganku/backend/core/report"
	"github.com/tabunganku/backend/core/student"
	"github.com/tabunganku/backend/core/transaction"
)

var errNotAWithdrawal = errors.New("Transaksi yang diminta bukan transaksi penarikan.")

type transactionApi struct {
	svc        transaction.ServiceInterface
	profileSvc profile.ServiceInterface
	studentSvc student.ServiceInterface
	validate   *validator.Validate
}

func registerTransactionAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts *Options) {
	api := transactionApi{
		svc:        opts.TransactionSvc,
		profileSvc: opts.ProfileSvc,
		studentSvc: opts.StudentSvc,
		validate:   opts.Validate,
	}

	admin := adminMiddleware(api.profileSvc)

	tg := g.Group("/transactions", jwt)
	tg.GET("", api.query)
	tg.POST("", api.create, teacherMiddleware(api.profileSvc))
	tg.GET("/:id/proof", api.withdrawalProof, teacherMiddleware(api.profileSvc))
	tg.DELETE("/:id", api.destroy, admin)
	tg.DELETE("", api.destroyAll, admin)

	g.GET("/balances", api.balances, jwt)
	g.GET("/stats", api.stats, jwt, admin)

	rg := g.Group("/recap", jwt)
	rg.GET("", api.recap)
	rg.GET("/export", api.exportRecap, admin)
}

// Handlers

func (api *transactionApi) create(ctx echo.Context) error {
	var data transaction.NewTransaction
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTransaction")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	scope, err := getContextScope(ctx, api.profileSvc)
	if err != nil {
		return errors.Wrap(err, "getting context scope")
	}
	txn, err := api.svc.Create(scope, data)
	if err != nil {
		return errors.Wrap(err, "creating transaction")
	}
	return ctx.JSON(http.StatusCreated, txn)
}

func (api *transactionApi) query(ctx echo.Context) error {
	var filter transaction.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []transaction.Transaction{})
	}
	filter.Clean()

	scope, err := getContextScope(ctx, api.profileSvc)
	if err != nil {
		return errors.Wrap(err, "getting context scope")
	}
	txns, err := api.svc.Query(scope, filter)
	if err != nil {
		return errors.Wrap(err, "querying transactions")
	}
	if txns == nil {
		txns = []transaction.Transaction{}
	}
	return ctx.JSON(http.StatusOK, txns)
}

// withdrawalProof renders the printable receipt of one withdrawal. Only
// the student's own teacher gets it; the parent and teacher names feed
// the signature blocks, falling back to generic labels when a profile is
// missing or unnamed.
func (api *transactionApi) withdrawalProof(ctx echo.Context) error {
	txn, err := api.svc.GetByID(ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting transaction")
	}
	if txn.Type != transaction.TypeWithdrawal {
		return core.NewValidationError(errNotAWithdrawal)
	}

	scope, err := getContextScope(ctx, api.profileSvc)
	if err != nil {
		return errors.Wrap(err, "getting context scope")
	}
	std, err := api.studentSvc.GetByID(authz.Privileged(), txn.StudentID)
	if err != nil {
		return errors.Wrap(err, "getting student")
	}
	if std.TeacherID.String != scope.ProfileID {
		return core.NewAuthorizationError("Akses ditolak. Anda bukan guru siswa ini.")
	}

	var parentName, teacherName string
	if std.ParentID.Valid {
		if parent, err := api.profileSvc.GetByID(std.ParentID.String); err == nil {
			parentName = parent.FullName()
		}
	}
	if teacher, err := api.profileSvc.GetByID(std.TeacherID.String); err == nil {
		teacherName = teacher.FullName()
	}

	var buf bytes.Buffer
	err = report.WriteProof(&buf, report.WithdrawalProof{
		TransactionID: txn.ID,
		Date:          txn.CreatedAt,
		StudentName:   std.Name,
		NISN:          std.NISN,
		Class:         std.Class,
		Amount:        txn.Amount,
		Description:   txn.Description.String,
		ParentName:    parentName,
		TeacherName:   teacherName,
	})
	if err != nil {
		return errors.Wrap(err, "rendering withdrawal proof")
	}

	ctx.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename=%q`, report.ProofFilename(std.Name, txn.ID)))
	return ctx.Blob(http.StatusOK, "application/pdf", buf.Bytes())
}

func (api *transactionApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting transaction")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *transactionApi) destroyAll(ctx echo.Context) error {
	n, err := api.svc.DeleteAll()
	if err != nil {
		return errors.Wrap(err, "deleting all transactions")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"deleted": n})
}

func (api *transactionApi) balances(ctx echo.Context) error {
	scope, err := getContextScope(ctx, api.profileSvc)
	if err != nil {
		return errors.Wrap(err, "getting context scope")
	}
	balances, err := api.svc.Balances(scope, core.CleanString(ctx.QueryParam("class")))
	if err != nil {
		return errors.Wrap(err, "querying balances")
	}
	if balances == nil {
		balances = []transaction.StudentBalance{}
	}
	return ctx.JSON(http.StatusOK, balances)
}

func (api *transactionApi) stats(ctx echo.Context) error {
	stats, err := api.svc.GlobalStats()
	if err != nil {
		return errors.Wrap(err, "querying global stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *transactionApi) recap(ctx echo.Context) error {
	window, err := bindWindow(ctx)
	if err != nil {
		return err
	}
	scope, err := getContextScope(ctx, api.profileSvc)
	if err != nil {
		return errors.Wrap(err, "getting context scope")
	}

	rows, totals, err := api.svc.Recap(scope, core.CleanString(ctx.QueryParam("class")), window)
	if err != nil {
		return errors.Wrap(err, "building recap")
	}
	if rows == nil {
		rows = []transaction.PeriodSummary{}
	}
	return ctx.JSON(http.StatusOK, RecapResponse{Rows: rows, Totals: totals})
}

func (api *transactionApi) exportRecap(ctx echo.Context) error {
	window, err := bindWindow(ctx)
	if err != nil {
		return err
	}
	format := core.CleanString(ctx.QueryParam("format"), true /* lower */)
	if format == "" {
		format = report.FormatPDF
	}
	if format != report.FormatPDF && format != report.FormatExcel {
		return core.NewValidationError(nil, core.FieldError{
			Field: "format", Error: "expected " + report.FormatPDF + " or " + report.FormatExcel,
		})
	}

	scope, err := getContextScope(ctx, api.profileSvc)
	if err != nil {
		return errors.Wrap(err, "getting context scope")
	}
	class := core.CleanString(ctx.QueryParam("class"))
	rows, totals, err := api.svc.Recap(scope, class, window)
	if err != nil {
		return errors.Wrap(err, "building recap")
	}

	var buf bytes.Buffer
	contentType := "application/pdf"
	if format == report.FormatExcel {
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		err = report.WriteExcel(&buf, class, window, rows, totals)
	} else {
		err = report.WritePDF(&buf, class, window, rows, totals)
	}
	if err != nil {
		return errors.Wrap(err, "rendering recap file")
	}

	ctx.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename=%q`, report.Filename(class, window, format)))
	return ctx.Blob(http.StatusOK, contentType, buf.Bytes())
}

type RecapResponse struct {
	Rows   []transaction.PeriodSummary `json:"rows"`
	Totals transaction.RecapTotals     `json:"totals"`
}
