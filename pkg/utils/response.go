package utils

import pkgError "github.com/AzielCF/az-inbox/pkg/error"

// ResponseData is the envelope every REST endpoint answers with. Status only
// drives the HTTP status code and is not serialized.
type ResponseData struct {
	Status  int    `json:"-"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Results any    `json:"results,omitempty"`
}

// PanicIfNeeded hands err to the Recovery middleware, which renders it.
func PanicIfNeeded(err error) {
	if err == nil {
		return
	}
	if generic, ok := pkgError.As(err); ok {
		panic(generic)
	}
	panic(err)
}
