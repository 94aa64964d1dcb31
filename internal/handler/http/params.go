package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/cmlabs-hris/hris-payroll-engine/internal/pkg/validator"
	"github.com/go-chi/chi/v5"
)

// periodFromPath reads {year} and {month} route params.
func periodFromPath(r *http.Request) (year, month int, err error) {
	return parsePeriod(chi.URLParam(r, "year"), chi.URLParam(r, "month"))
}

// periodFromQuery reads ?year=&month= query params.
func periodFromQuery(r *http.Request) (year, month int, err error) {
	q := r.URL.Query()
	return parsePeriod(q.Get("year"), q.Get("month"))
}

func parsePeriod(rawYear, rawMonth string) (int, int, error) {
	var errs validator.ValidationErrors

	year, err := strconv.Atoi(rawYear)
	if err != nil {
		errs.Add("year", "must be a number")
	}
	month, err := strconv.Atoi(rawMonth)
	if err != nil {
		errs.Add("month", "must be a number")
	}
	if err := errs.Err(); err != nil {
		return 0, 0, err
	}
	return year, month, nil
}

// decodeJSON decodes the request body. An empty body is allowed when
// optional is true.
func decodeJSON(r *http.Request, dst interface{}, optional bool) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if optional && errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
