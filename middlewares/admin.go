package middlewares

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"winzone/helpers"

	"github.com/gofiber/fiber/v2"
)

const SignatureHeader = "X-Signature"

// Sign returns the hex signature an admin client sends for a request.
func Sign(secret, method, uri string, body []byte) string {
	return hex.EncodeToString(mac(secret, method, uri, body))
}

// mac is HMAC-SHA256 over "METHOD URI\n" followed by the raw body.
func mac(secret, method, uri string, body []byte) []byte {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(method + " " + uri + "\n"))
	h.Write(body)
	return h.Sum(nil)
}

// AdminAuth accepts a request only when X-Signature carries the HMAC of its
// method, URI and raw body. With no secret configured every request is
// refused.
func AdminAuth(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if secret == "" {
			return helpers.JSONErrorStatus(c, fiber.StatusServiceUnavailable, "ADMIN_DISABLED")
		}

		got, err := hex.DecodeString(c.Get(SignatureHeader))
		if err != nil || len(got) == 0 {
			return helpers.JSONErrorStatus(c, fiber.StatusUnauthorized, "INVALID_SIGNATURE")
		}

		if !hmac.Equal(got, mac(secret, c.Method(), c.OriginalURL(), c.Body())) {
			return helpers.JSONErrorStatus(c, fiber.StatusUnauthorized, "INVALID_SIGNATURE")
		}

		return c.Next()
	}
}
