package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ufrn-horarios/horarios-api/internal/middleware"
	"github.com/ufrn-horarios/horarios-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		return nil
	}
	return claims
}

// pageParams reads the page and limit query parameters shared by list endpoints.
func pageParams(c *gin.Context) (int, int) {
	page, size := 1, 20
	if v, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		page = v
	}
	if v, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		size = v
	}
	return page, size
}

// optionalInt parses an optional integer query parameter.
func optionalInt(c *gin.Context, key string) (*int, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func requestMeta(c *gin.Context, cacheHit bool) map[string]interface{} {
	middleware.SetCacheHit(c, cacheHit)
	return middleware.ExtractMeta(c)
}
