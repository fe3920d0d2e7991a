package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/runnerr0/tabtime/internal/activity"
	"github.com/runnerr0/tabtime/internal/analytics"
	"github.com/runnerr0/tabtime/internal/storage"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 1000
	defaultKeepDays  = 30
)

// recordRequest is the ingestion body. Pointers distinguish a missing field
// from its zero value.
type recordRequest struct {
	Domain       *string    `json:"domain"`
	Duration     *int64     `json:"duration"`
	IsProductive *bool      `json:"isProductive"`
	URL          string     `json:"url"`
	Title        string     `json:"title"`
	Timestamp    *time.Time `json:"timestamp"`
	Date         string     `json:"date"`
}

func (r recordRequest) validate() error {
	var fields []string
	if r.Domain == nil || strings.TrimSpace(*r.Domain) == "" {
		fields = append(fields, "domain")
	}
	if r.Duration == nil || *r.Duration < 0 {
		fields = append(fields, "duration")
	}
	if r.IsProductive == nil {
		fields = append(fields, "isProductive")
	}
	// date is derived from timestamp; a client copy must agree with it.
	if r.Date != "" && (r.Timestamp == nil || !analytics.ValidateDate(r.Date) ||
		r.Date != activity.DateOnly(*r.Timestamp)) {
		fields = append(fields, "date")
	}
	if len(fields) > 0 {
		return invalid(fields...)
	}
	return nil
}

// bindJSON decodes the body, reporting malformed JSON as a validation error.
func bindJSON(c *gin.Context, v interface{}) error {
	if err := c.ShouldBindJSON(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return &ValidationError{Fields: []string{"body"}, Reason: "request body too large"}
		}
		return &ValidationError{Fields: []string{"body"}, Reason: "malformed JSON body"}
	}
	return nil
}

func (s *Server) createRecord(c *gin.Context) {
	var req recordRequest
	if err := bindJSON(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	if err := req.validate(); err != nil {
		s.fail(c, err)
		return
	}

	rec := &activity.Record{
		Domain:       strings.ToLower(strings.TrimSpace(*req.Domain)),
		Duration:     *req.Duration,
		IsProductive: *req.IsProductive,
		URL:          strings.TrimSpace(req.URL),
		Title:        strings.TrimSpace(req.Title),
		UserAgent:    c.Request.UserAgent(),
		IPAddress:    c.ClientIP(),
	}
	if req.Timestamp != nil {
		rec.Timestamp = *req.Timestamp
	} else {
		rec.Timestamp = s.now().In(s.loc)
	}
	rec.Date = activity.DateOnly(rec.Timestamp)

	if err := s.store.AddRecord(c.Request.Context(), rec); err != nil {
		s.fail(c, err)
		return
	}
	s.log.Debug("record ingested", "id", rec.ID, "domain", rec.Domain, "duration", rec.Duration)
	ok(c, http.StatusCreated, rec)
}

type pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int64 `json:"pages"`
}

type recordPage struct {
	TimeLogs   []activity.Record `json:"timeLogs"`
	Pagination pagination        `json:"pagination"`
}

func (s *Server) listRecords(c *gin.Context) {
	q, page, err := parseRecordQuery(c)
	if err != nil {
		s.fail(c, err)
		return
	}

	recs, total, err := s.store.ListRecords(c.Request.Context(), q)
	if err != nil {
		s.fail(c, err)
		return
	}

	pages := (total + int64(q.Limit) - 1) / int64(q.Limit)
	ok(c, http.StatusOK, recordPage{
		TimeLogs:   recs,
		Pagination: pagination{Page: page, Limit: q.Limit, Total: total, Pages: pages},
	})
}

func parseRecordQuery(c *gin.Context) (storage.RecordQuery, int, error) {
	var q storage.RecordQuery
	var fields []string

	if d := c.Query("date"); d != "" {
		if !analytics.ValidateDate(d) {
			fields = append(fields, "date")
		}
		q.Date = d
	}

	start, end := c.Query("startDate"), c.Query("endDate")
	if start != "" || end != "" {
		if !analytics.ValidateDate(start) {
			fields = append(fields, "startDate")
		}
		if !analytics.ValidateDate(end) {
			fields = append(fields, "endDate")
		}
		q.StartDate, q.EndDate = start, end
	}

	q.Domain = c.Query("domain")

	if v, present := c.GetQuery("isProductive"); present {
		b, err := strconv.ParseBool(v)
		if err != nil {
			fields = append(fields, "isProductive")
		} else {
			q.IsProductive = &b
		}
	}

	page, err := intParam(c, "page", 1)
	if err != nil || page < 1 {
		fields = append(fields, "page")
	}
	limit, err := intParam(c, "limit", defaultPageLimit)
	if err != nil || limit < 1 || limit > maxPageLimit {
		fields = append(fields, "limit")
	}

	if len(fields) > 0 {
		return q, 0, invalid(fields...)
	}

	q.Limit = limit
	q.Offset = (page - 1) * limit
	return q, page, nil
}

func (s *Server) deleteOldRecords(c *gin.Context) {
	days, err := intParam(c, "olderThanDays", defaultKeepDays)
	if err != nil || days < 1 {
		s.fail(c, invalid("olderThanDays"))
		return
	}

	cutoff := s.now().AddDate(0, 0, -days)
	n, err := s.store.PruneExpired(c.Request.Context(), cutoff)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.log.Info("pruned records", "older_than_days", days, "deleted", n)
	ok(c, http.StatusOK, gin.H{"deletedCount": n})
}

func (s *Server) getRecord(c *gin.Context) {
	rec, err := s.store.GetRecord(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, http.StatusOK, rec)
}

type patchRequest struct {
	Domain       *string `json:"domain"`
	Duration     *int64  `json:"duration"`
	IsProductive *bool   `json:"isProductive"`
	URL          *string `json:"url"`
	Title        *string `json:"title"`
}

func (s *Server) updateRecord(c *gin.Context) {
	var req patchRequest
	if err := bindJSON(c, &req); err != nil {
		s.fail(c, err)
		return
	}

	var fields []string
	if req.Domain != nil && strings.TrimSpace(*req.Domain) == "" {
		fields = append(fields, "domain")
	}
	if req.Duration != nil && *req.Duration < 0 {
		fields = append(fields, "duration")
	}
	if len(fields) > 0 {
		s.fail(c, invalid(fields...))
		return
	}

	rec, err := s.store.UpdateRecord(c.Request.Context(), c.Param("id"), storage.RecordPatch{
		Domain:       req.Domain,
		Duration:     req.Duration,
		IsProductive: req.IsProductive,
		URL:          req.URL,
		Title:        req.Title,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, http.StatusOK, rec)
}

func (s *Server) deleteRecord(c *gin.Context) {
	rec, err := s.store.DeleteRecord(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, http.StatusOK, rec)
}

// intParam reads an integer query parameter, returning def when absent.
func intParam(c *gin.Context, name string, def int) (int, error) {
	v := c.Query(name)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}
