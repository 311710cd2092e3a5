package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"lifedash/internal/analytics"
	"lifedash/internal/core"
)

// readBody reads the whole request body, bounded by the server limit.
func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, err
		}
		return nil, fmt.Errorf("read body: %w", err)
	}
	return raw, nil
}

// decodeJSON reads a JSON body into v. A malformed body is a validation
// error on "body"; an empty body leaves v untouched.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	raw, err := s.readBody(w, r)
	if err != nil {
		return err
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return core.NewValidationError("body", "must be valid JSON")
	}
	return nil
}

type reportRequest struct {
	Period    string `json:"period"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

// resolve returns the report range: explicit dates win, otherwise the named
// period (week by default) ending today.
func (req reportRequest) resolve(now time.Time, loc *time.Location) (time.Time, time.Time, error) {
	if req.StartDate != "" || req.EndDate != "" {
		verr := &core.ValidationError{}
		start, err := core.ParseTimestamp(req.StartDate, loc)
		if err != nil {
			verr.Add("startDate", "must be a date or timestamp")
		}
		end, err := core.ParseTimestamp(req.EndDate, loc)
		if err != nil {
			verr.Add("endDate", "must be a date or timestamp")
		}
		if err := verr.OrNil(); err != nil {
			return time.Time{}, time.Time{}, err
		}
		if end.Before(start) {
			return time.Time{}, time.Time{}, core.NewValidationError("endDate", "must not be before startDate")
		}
		return core.StartOfDay(start, loc), core.EndOfDay(end, loc), nil
	}

	period := analytics.Week
	if req.Period != "" {
		p, err := analytics.ParsePeriod(req.Period)
		if err != nil {
			return time.Time{}, time.Time{}, core.NewValidationError("period", "must be week, month or year")
		}
		period = p
	}
	return analytics.PeriodRange(period, now, loc)
}
