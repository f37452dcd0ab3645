package api

import (
	"time"

	"taskquest/domain/core"
	"taskquest/internal/errors"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// UserHeader carries the authenticated user ID set by the upstream gateway
const UserHeader = "X-User-ID"

const userKey = "userID"

// RequireUser rejects requests without a user with 401
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := core.ParseUserID(c.GetHeader(UserHeader))
		if err != nil {
			writeError(c, errors.Unauthenticated())
			c.Abort()
			return
		}
		c.Set(userKey, user)
		c.Next()
	}
}

// RequestLogger logs one line per request through logrus
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := log.WithFields(log.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start),
		})
		if len(c.Errors) > 0 {
			entry = entry.WithField("errors", c.Errors.String())
		}
		switch status := c.Writer.Status(); {
		case status >= 500:
			entry.Error("Request failed")
		case status >= 400:
			entry.Info("Request rejected")
		default:
			entry.Debug("Request served")
		}
	}
}

func userFrom(c *gin.Context) core.UserID {
	if v, ok := c.Get(userKey); ok {
		if user, ok := v.(core.UserID); ok {
			return user
		}
	}
	return ""
}

// errorResponse is the body of every non-2xx JSON response
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(c *gin.Context, err error) {
	status := errors.HTTPStatus(err)
	code := errors.GetCode(err)
	if status >= 500 {
		log.WithError(err).WithField("path", c.Request.URL.Path).Error("Request error")
	}
	_ = c.Error(err)
	c.JSON(status, errorResponse{Error: err.Error(), Code: code})
}
