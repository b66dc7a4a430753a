package echoapi

import (
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tabunganku/backend/core"
	"github.com/tabunganku/backend/core/transaction"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	data := ctx.QueryParams()
	if len(data) == 0 {
		return
	}
	val, ok := data[orderingParam]
	if !ok || len(val) == 0 || val[0] == "" {
		return
	}

	for _, field := range strings.Split(val[0], ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

const dateParamLayout = "2006-01-02"

// bindWindow reads the recap window from query params: a single `date`
// covers that whole day; otherwise `date_from`/`date_to` bound the window.
func bindWindow(ctx echo.Context) (transaction.Window, error) {
	var w transaction.Window

	if date := ctx.QueryParam("date"); date != "" {
		day, err := time.Parse(dateParamLayout, date)
		if err != nil {
			return w, core.NewValidationError(nil, core.FieldError{Field: "date", Error: "expected format " + dateParamLayout})
		}
		w.From = day
		w.To = day.AddDate(0, 0, 1).Add(-time.Nanosecond)
		return w, nil
	}

	if from := ctx.QueryParam("date_from"); from != "" {
		t, err := time.Parse(dateParamLayout, from)
		if err != nil {
			return w, core.NewValidationError(nil, core.FieldError{Field: "date_from", Error: "expected format " + dateParamLayout})
		}
		w.From = t
	}
	if to := ctx.QueryParam("date_to"); to != "" {
		t, err := time.Parse(dateParamLayout, to)
		if err != nil {
			return w, core.NewValidationError(nil, core.FieldError{Field: "date_to", Error: "expected format " + dateParamLayout})
		}
		w.To = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return w, nil
}
