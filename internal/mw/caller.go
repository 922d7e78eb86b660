package mw

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

const callerKey = "callerID"

// CallerID requires a positive numeric user id in header and stores it on the
// context. The id is trusted as already verified by the gateway in front of
// the service.
func CallerID(header string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(header))
		id, err := strconv.ParseInt(raw, 10, 64)
		if raw == "" || err != nil || id <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "missing or invalid " + header + " header",
				"code":  "UNAUTHENTICATED",
			})
			return
		}
		c.Set(callerKey, id)
		c.Next()
	}
}

// Caller returns the id stored by CallerID.
func Caller(c *gin.Context) (int64, bool) {
	v, ok := c.Get(callerKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}
