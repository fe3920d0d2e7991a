package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/runnerr0/tabtime/internal/analytics"
)

func (s *Server) dailySummary(c *gin.Context) {
	date := c.Param("date")
	if !analytics.ValidateDate(date) {
		s.fail(c, invalid("date"))
		return
	}
	t, err := s.engine.DailySummary(c.Request.Context(), date)
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, http.StatusOK, t)
}

func (s *Server) weeklySummary(c *gin.Context) {
	start, end, err := dateRange(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	days, err := s.engine.WeeklySummary(c.Request.Context(), start, end)
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, http.StatusOK, days)
}

func (s *Server) topDomains(c *gin.Context) {
	date := c.Param("date")
	limit, err := intParam(c, "limit", analytics.DefaultTopDomainsLimit)
	switch {
	case !analytics.ValidateDate(date):
		s.fail(c, invalid("date"))
		return
	case err != nil || limit < 1:
		s.fail(c, invalid("limit"))
		return
	}

	top, err := s.engine.TopDomains(c.Request.Context(), date, limit)
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, http.StatusOK, top)
}

func (s *Server) productivity(c *gin.Context) {
	start, end, err := dateRange(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	p, err := s.engine.Productivity(c.Request.Context(), start, end)
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, http.StatusOK, p)
}

func (s *Server) domains(c *gin.Context) {
	start, end, err := dateRange(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	limit, err := intParam(c, "limit", analytics.DefaultDomainsLimit)
	if err != nil || limit < 1 {
		s.fail(c, invalid("limit"))
		return
	}

	stats, err := s.engine.Domains(c.Request.Context(), start, end, limit)
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, http.StatusOK, stats)
}

func (s *Server) hourlyPattern(c *gin.Context) {
	start, end, err := dateRange(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	hours, err := s.engine.HourlyPattern(c.Request.Context(), start, end)
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, http.StatusOK, hours)
}

func (s *Server) weeklyComparison(c *gin.Context) {
	weeks, err := intParam(c, "weeks", analytics.DefaultWeeks)
	if err != nil || weeks < 1 {
		s.fail(c, invalid("weeks"))
		return
	}
	buckets, err := s.engine.WeeklyComparison(c.Request.Context(), weeks)
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, http.StatusOK, buckets)
}

func (s *Server) insights(c *gin.Context) {
	start, end, err := dateRange(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	in, err := s.engine.Insights(c.Request.Context(), start, end)
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, http.StatusOK, in)
}

// dateRange reads the required startDate and endDate query parameters.
func dateRange(c *gin.Context) (string, string, error) {
	start, end := c.Query("startDate"), c.Query("endDate")

	var fields []string
	if !analytics.ValidateDate(start) {
		fields = append(fields, "startDate")
	}
	if !analytics.ValidateDate(end) {
		fields = append(fields, "endDate")
	}
	if len(fields) > 0 {
		return "", "", invalid(fields...)
	}
	return start, end, nil
}
