package middleware

import "github.com/gin-gonic/gin"

// callerIDKey is the key used to store the authenticated caller's identity.
// Callers are peer services, not end users.
const callerIDKey = contextKey("callerID")

// GetCallerFromContext retrieves the authenticated caller identity from the
// Gin context. It returns the identity and a boolean indicating if it was
// found; requests on an unauthenticated deployment carry none.
func GetCallerFromContext(c *gin.Context) (string, bool) {
	if callerVal := c.Request.Context().Value(callerIDKey); callerVal != nil {
		caller, ok := callerVal.(string)
		return caller, ok
	}
	return "", false
}
