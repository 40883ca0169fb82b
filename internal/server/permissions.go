package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	permissiondomain "github.com/smallbiznis/ispreport/internal/permission/domain"
)

func (s *Server) GetResellerProfile(c *gin.Context) {
	profile, err := s.permissions.Profile(
		c.Request.Context(),
		strings.TrimSpace(c.Param("tenant")),
		c.Param("reseller"),
	)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": profile})
}

func (s *Server) GetVispDecision(c *gin.Context) {
	resellerID, err := parseID(c.Param("reseller"))
	if err != nil {
		AbortWithError(c, fieldError("reseller", "invalid_reseller", "invalid reseller id"))
		return
	}

	decision, err := s.permissions.ResolveVisps(c.Request.Context(), strings.TrimSpace(c.Param("tenant")), resellerID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": decision})
}

// ListResellerEntities resolves services, statuses or centers for the reseller's
// permitted visps. ?visps=1,2 narrows the set; ids outside the permit are dropped.
func (s *Server) ListResellerEntities(c *gin.Context) {
	resellerID, err := parseID(c.Param("reseller"))
	if err != nil {
		AbortWithError(c, fieldError("reseller", "invalid_reseller", "invalid reseller id"))
		return
	}
	requested, err := parseIDList(c.Query("visps"))
	if err != nil {
		AbortWithError(c, fieldError("visps", "invalid_visps", "invalid visp ids"))
		return
	}
	kind := permissiondomain.Kind(strings.ToLower(strings.TrimSpace(c.Param("kind"))))
	if !kind.Valid() {
		AbortWithError(c, permissiondomain.ErrInvalidKind)
		return
	}

	ctx := c.Request.Context()
	tenant := strings.TrimSpace(c.Param("tenant"))
	decision, err := s.permissions.ResolveVisps(ctx, tenant, resellerID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	vispIDs := decision.IDs()
	if len(requested) > 0 {
		vispIDs = lo.Filter(requested, func(id int64, _ int) bool { return decision.Allows(id) })
	}
	if len(vispIDs) == 0 {
		c.JSON(http.StatusOK, gin.H{"data": []permissiondomain.Entity{}})
		return
	}

	entities, err := s.permissions.ResolveEntities(ctx, kind, tenant, resellerID, vispIDs)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": entities})
}
