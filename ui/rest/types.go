package rest

import (
	"strconv"

	"github.com/AzielCF/az-inbox/core/tenant"
	pkgError "github.com/AzielCF/az-inbox/pkg/error"
	"github.com/gofiber/fiber/v2"
)

type setActiveRequest struct {
	Active bool `json:"active"`
}

type settingsRequest struct {
	InboxDefaultPriority *int `json:"inbox_default_priority"`
}

// parseBody decodes the JSON body into out; a malformed body is the
// caller's fault.
func parseBody(c *fiber.Ctx, out any) {
	if err := c.BodyParser(out); err != nil {
		panic(pkgError.ValidationError("invalid request body: " + err.Error()))
	}
}

// currentUser is the acting agent from the verified token.
func currentUser(c *fiber.Ctx) string {
	id, _ := tenant.UserFromContext(c.UserContext())
	return id
}

func queryInt(c *fiber.Ctx, key string, def int) int {
	v := c.Query(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		panic(pkgError.ValidationError(key + " must be an integer"))
	}
	return n
}
