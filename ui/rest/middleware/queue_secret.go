package middleware

import (
	"crypto/subtle"

	pkgError "github.com/AzielCF/az-inbox/pkg/error"
	"github.com/gofiber/fiber/v2"
)

// QueueSecret guards the queue trigger. An empty secret disables the route.
func QueueSecret(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if secret == "" {
			panic(pkgError.ForbiddenError("queue trigger is disabled"))
		}
		token, ok := bearerToken(c)
		if !ok {
			panic(pkgError.AuthError("missing or malformed authorization header"))
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
			panic(pkgError.AuthError("invalid queue trigger token"))
		}
		return c.Next()
	}
}
