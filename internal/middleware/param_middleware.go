package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// ExtractUintParam parses a positive integer path parameter into the context
// under ctxKey, aborting with 400 on garbage input.
func ExtractUintParam(paramName, ctxKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.Param(paramName)
		value, err := strconv.ParseUint(raw, 10, 32)
		if err != nil || value == 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error": "invalid " + paramName + " parameter",
			})
			return
		}
		c.Set(ctxKey, uint(value))
		c.Next()
	}
}

// GetUintParam reads a value stored by ExtractUintParam.
func GetUintParam(c *gin.Context, ctxKey string) (uint, bool) {
	value, exists := c.Get(ctxKey)
	if !exists {
		return 0, false
	}
	id, ok := value.(uint)
	return id, ok
}
