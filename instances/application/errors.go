package application

import (
	pkgError "github.com/AzielCF/az-inbox/pkg/error"
)

// wrapGatewayError turns upstream failures into 502s for synchronous callers.
func wrapGatewayError(err error) error {
	if err == nil {
		return nil
	}
	return pkgError.GatewayError(err.Error())
}
