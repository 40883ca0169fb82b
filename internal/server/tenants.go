package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const defaultSyncRunLimit = 20

func (s *Server) ListTenants(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": s.tenants.Names()})
}

func (s *Server) ListSyncRuns(c *gin.Context) {
	limit, err := parseOptionalInt(c.Query("limit"))
	if err != nil || limit < 0 {
		AbortWithError(c, fieldError("limit", "invalid_limit", "invalid limit"))
		return
	}
	if limit == 0 {
		limit = defaultSyncRunLimit
	}

	runs, err := s.cache.ListSyncRuns(c.Request.Context(), strings.TrimSpace(c.Param("tenant")), limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": runs})
}
