package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/eaglebank/ledger/shared/utils"
	"github.com/gin-gonic/gin"
)

// APIKeyHeader carries the shared key on every protected request.
const APIKeyHeader = "X-API-Key"

// APIKeyAuth rejects requests that do not present the shared API key. When
// hash is set the key is checked against it with bcrypt, otherwise it is
// compared with key in constant time.
func APIKeyAuth(key, hash string) gin.HandlerFunc {
	return func(c *gin.Context) {
		presented := c.GetHeader(APIKeyHeader)
		if presented == "" {
			c.Header("WWW-Authenticate", "ApiKey")
			RespondWithError(c, http.StatusUnauthorized, "API key is missing")
			c.Abort()
			return
		}

		if !validAPIKey(presented, key, hash) {
			RespondWithError(c, http.StatusForbidden, "Invalid API key")
			c.Abort()
			return
		}

		c.Next()
	}
}

func validAPIKey(presented, key, hash string) bool {
	if hash != "" {
		return utils.CheckAPIKey(presented, hash)
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(key)) == 1
}
