package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/ispreport/internal/permcache/syncer"
	"github.com/smallbiznis/ispreport/internal/source"
	"go.uber.org/zap"
)

// SyncTenant refreshes one tenant's cache. A failed run is still returned so
// callers can read its error.
func (s *Server) SyncTenant(c *gin.Context) {
	tenant := strings.TrimSpace(c.Param("tenant"))
	run, err := s.syncer.SyncTenant(c.Request.Context(), tenant, syncer.TriggerManual)
	if err != nil {
		s.log.Warn("manual cache sync failed", zap.String("tenant", tenant), zap.Error(err))
		var cfgErr *source.ConfigurationError
		if run == nil || errors.As(err, &cfgErr) {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"data": run})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": run})
}

func (s *Server) SyncAllTenants(c *gin.Context) {
	runs, err := s.syncer.SyncAll(c.Request.Context(), syncer.TriggerManual)
	if err != nil && len(runs) == 0 {
		AbortWithError(c, err)
		return
	}

	status := http.StatusOK
	var failures []string
	if err != nil {
		status = http.StatusMultiStatus
		failures = splitJoined(err)
	}
	c.JSON(status, gin.H{"data": runs, "errors": failures})
}

func splitJoined(err error) []string {
	var joined interface{ Unwrap() []error }
	if !errors.As(err, &joined) {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(joined.Unwrap()))
	for _, e := range joined.Unwrap() {
		out = append(out, e.Error())
	}
	return out
}
