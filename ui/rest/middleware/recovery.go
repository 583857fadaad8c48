package middleware

import (
	"fmt"

	"github.com/AzielCF/az-inbox/core/reporting"
	pkgError "github.com/AzielCF/az-inbox/pkg/error"
	"github.com/AzielCF/az-inbox/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

func Recovery() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		defer func() {
			err := recover()
			if err != nil {
				var res utils.ResponseData
				res.Status = 500
				res.Code = "INTERNAL_SERVER_ERROR"
				res.Message = fmt.Sprintf("%v", err)

				if e, ok := err.(error); ok {
					if generic, ok := pkgError.As(e); ok {
						res.Status = generic.StatusCode()
						res.Code = generic.ErrCode()
						res.Message = generic.Error()
					}
				}

				if res.Status >= 500 {
					logrus.Errorf("[REST] Panic recovered on %s %s: %v", ctx.Method(), ctx.Path(), err)
					reporting.CaptureError(fmt.Errorf("%v", err), "rest_panic", map[string]any{
						"method": ctx.Method(),
						"path":   ctx.Path(),
					})
				}

				_ = ctx.Status(res.Status).JSON(res)
			}
		}()

		return ctx.Next()
	}
}
