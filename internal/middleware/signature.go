package middleware

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/apperr"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/config"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/security"
)

const defaultSignatureSkew = 5 * time.Minute

// MaxIngestBody caps sensor payload bodies, including the copy taken for signature checks.
const MaxIngestBody = 1 << 20

func NewReadCloser(b []byte) io.ReadCloser {
	return io.NopCloser(bytes.NewReader(b))
}

// Webhook authenticates device ingress. With neither an API key nor a signing
// secret configured every request passes.
func Webhook(cfg config.WebhookConfig, redisClient *redis.Client) gin.HandlerFunc {
	skew := cfg.MaxSkew
	if skew <= 0 {
		skew = defaultSignatureSkew
	}

	return func(c *gin.Context) {
		if cfg.APIKey != "" && !security.APIKeyMatches(cfg.APIKey, c.GetHeader(security.HeaderAPIKey)) {
			abort(c, apperr.Unauthorized("Invalid API key"))
			return
		}
		if cfg.SignatureSecret == "" {
			c.Next()
			return
		}

		date, nonce, signature, err := security.ExtractSignatureHeaders(c)
		if err != nil {
			abort(c, apperr.Unauthorized("Signature required"))
			return
		}

		requestTime, err := time.Parse(time.RFC3339, date)
		if err != nil {
			abort(c, apperr.Unauthorized("Invalid signature date"))
			return
		}
		if time.Since(requestTime) > skew || time.Until(requestTime) > skew {
			abort(c, apperr.Unauthorized("Request expired"))
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxIngestBody)
		rawBody, err := c.GetRawData()
		if err != nil {
			abort(c, apperr.Validation("Request body is unreadable or too large"))
			return
		}
		c.Request.Body = NewReadCloser(rawBody)

		if !security.ValidateSignature(cfg.SignatureSecret, signature, c.Request.Method, c.Request.URL.Path, rawBody, date, nonce) {
			abort(c, apperr.Unauthorized("Invalid signature"))
			return
		}

		if redisClient != nil {
			ok, err := redisClient.SetNX(c.Request.Context(), "webhook:nonce:"+nonce, "1", skew).Result()
			if err != nil {
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
					"success": false,
					"error":   "Replay guard unavailable",
					"message": apperr.KindUnavailable,
				})
				return
			}
			if !ok {
				abort(c, apperr.Unauthorized("Replay detected"))
				return
			}
		}

		c.Next()
	}
}
