package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"ecommerce-dashboard/internal/errors"
	"ecommerce-dashboard/internal/models"
)

// resolveRange parses YYYY-MM-DD bounds. An empty bound falls back to the
// matching end of the loaded dataset. Only a pair of explicit bounds can be
// out of order; a single bound outside the data yields empty tables.
func resolveRange(start, end string, bounds models.DateRange) (models.DateRange, error) {
	r := bounds

	if start = strings.TrimSpace(start); start != "" {
		t, err := models.ParseDate(start)
		if err != nil {
			return models.DateRange{}, errors.BadRequestWrap(err, "start must be a YYYY-MM-DD date").ForParam("start")
		}
		r.Start = t
	}
	if end = strings.TrimSpace(end); end != "" {
		t, err := models.ParseDate(end)
		if err != nil {
			return models.DateRange{}, errors.BadRequestWrap(err, "end must be a YYYY-MM-DD date").ForParam("end")
		}
		r.End = t
	}

	if start != "" && end != "" && r.Start.After(r.End) {
		return models.DateRange{}, errors.Validation("start must not be after end").ForParam("start")
	}
	return r, nil
}

func rangeFromQuery(r *http.Request, bounds models.DateRange) (models.DateRange, error) {
	q := r.URL.Query()
	return resolveRange(q.Get("start"), q.Get("end"), bounds)
}

// limitFromQuery reads a non-negative row limit. Zero or absent means no
// limit and is reported as -1.
func limitFromQuery(r *http.Request, def int) (int, error) {
	s := r.URL.Query().Get("limit")
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, errors.Validation("limit must be a non-negative integer").ForParam("limit")
	}
	if n == 0 {
		return -1, nil
	}
	return n, nil
}
