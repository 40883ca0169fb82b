package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	reportdomain "github.com/smallbiznis/ispreport/internal/report/domain"
	"github.com/smallbiznis/ispreport/internal/report/filter"
)

type dateFilterRequest struct {
	Enabled bool   `json:"enabled"`
	Op      string `json:"op"`
	Value   string `json:"value"`
	Start   string `json:"start"`
	End     string `json:"end"`
}

type createReportRequest struct {
	Creators   string                 `json:"creators"`
	Privileged bool                   `json:"privileged"`
	Limit      int                    `json:"limit"`
	Status     string                 `json:"status"`
	Serial     filter.NumericCriteria `json:"serial"`
	SibSerial  filter.NumericCriteria `json:"sib_serial"`
	Date       dateFilterRequest      `json:"date"`
	Summary    bool                   `json:"summary"`
	Totals     bool                   `json:"totals"`
}

func (s *Server) CreateReport(c *gin.Context) {
	var req createReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, badRequest())
		return
	}

	date, err := req.Date.criteria()
	if err != nil {
		AbortWithError(c, fieldError("date", "invalid_date", "invalid date"))
		return
	}

	result, err := s.reports.Generate(c.Request.Context(), reportdomain.Request{
		Tenant:     strings.TrimSpace(c.Param("tenant")),
		Creators:   req.Creators,
		Privileged: req.Privileged,
		Limit:      req.Limit,
		Criteria: filter.Criteria{
			Serial:    req.Serial,
			Date:      date,
			Status:    strings.TrimSpace(req.Status),
			SibSerial: req.SibSerial,
		},
		Summary: req.Summary,
		Totals:  req.Totals,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (r dateFilterRequest) criteria() (filter.DateCriteria, error) {
	value, err := parseOptionalDate(r.Value)
	if err != nil {
		return filter.DateCriteria{}, err
	}
	start, err := parseOptionalDate(r.Start)
	if err != nil {
		return filter.DateCriteria{}, err
	}
	end, err := parseOptionalDate(r.End)
	if err != nil {
		return filter.DateCriteria{}, err
	}
	return filter.DateCriteria{
		Enabled: r.Enabled,
		Op:      r.Op,
		Value:   value,
		Start:   start,
		End:     end,
	}, nil
}
