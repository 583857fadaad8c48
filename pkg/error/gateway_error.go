package error

import "net/http"

// GatewayError is an upstream WhatsApp gateway failure surfaced to a
// synchronous caller.
type GatewayError string

func (err GatewayError) Error() string {
	return string(err)
}

func (err GatewayError) ErrCode() string {
	return "UPSTREAM_GATEWAY_ERROR"
}

func (err GatewayError) StatusCode() int {
	return http.StatusBadGateway
}
