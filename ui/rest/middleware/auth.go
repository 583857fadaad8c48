package middleware

import (
	"strings"

	"github.com/AzielCF/az-inbox/core/tenant"
	pkgError "github.com/AzielCF/az-inbox/pkg/error"
	"github.com/AzielCF/az-inbox/pkg/security"
	"github.com/gofiber/fiber/v2"
)

// Locals keys set by JWTAuth.
const (
	LocalUserID   = "user_id"
	LocalTenantID = "tenant_id"
	LocalAdmin    = "admin"
)

// JWTAuth protects the agent API. The token subject becomes the acting user,
// the tenant_id claim the tenant, and the admin claim unlocks unscoped reads.
func JWTAuth(secret []byte) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := bearerToken(c)
		if !ok {
			// Browsers cannot set headers on a websocket handshake.
			token = c.Query("token")
		}
		if token == "" {
			panic(pkgError.AuthError("missing or malformed authorization header"))
		}

		claims, err := security.ValidateToken(secret, token)
		if err != nil {
			panic(pkgError.AuthError("invalid or expired token"))
		}
		if claims.TenantID == "" && !claims.Admin {
			panic(tenant.ErrTenantRequired)
		}

		ctx := tenant.WithUser(c.UserContext(), claims.Subject)
		if claims.TenantID != "" {
			ctx = tenant.WithTenant(ctx, claims.TenantID)
		}
		if claims.Admin {
			ctx = tenant.WithAdmin(ctx)
		}
		c.SetUserContext(ctx)

		c.Locals(LocalUserID, claims.Subject)
		c.Locals(LocalTenantID, claims.TenantID)
		c.Locals(LocalAdmin, claims.Admin)

		return c.Next()
	}
}

// RequireAdmin only lets administrative tokens through.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !tenant.IsAdmin(c.UserContext()) {
			panic(pkgError.ForbiddenError("administrative scope required"))
		}
		return c.Next()
	}
}

func bearerToken(c *fiber.Ctx) (string, bool) {
	parts := strings.SplitN(c.Get(fiber.HeaderAuthorization), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
