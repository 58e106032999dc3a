package transport

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrUnsupportedMethod is returned when a request uses a method outside of the supported set.
var ErrUnsupportedMethod = errors.New("unsupported HTTP method")

// Method is a supported HTTP method.
type Method int

const (
	MethodGet     Method = iota + 1 // GET
	MethodHead                      // HEAD
	MethodPost                      // POST
	MethodPut                       // PUT
	MethodDelete                    // DELETE
	MethodConnect                   // CONNECT
	MethodPatch                     // PATCH
	MethodOptions                   // OPTIONS
	MethodTrace                     // TRACE
)

// ParseMethod returns the [Method] named by text, which must be lowercase as produced
// by the parser e.g. "get".
//
// Anything else returns an error wrapping [ErrUnsupportedMethod].
func ParseMethod(text string) (Method, error) {
	switch text {
	case "get":
		return MethodGet, nil
	case "head":
		return MethodHead, nil
	case "post":
		return MethodPost, nil
	case "put":
		return MethodPut, nil
	case "delete":
		return MethodDelete, nil
	case "connect":
		return MethodConnect, nil
	case "patch":
		return MethodPatch, nil
	case "options":
		return MethodOptions, nil
	case "trace":
		return MethodTrace, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedMethod, text)
	}
}

// String returns the method as used on the wire e.g. "GET".
func (m Method) String() string {
	switch m {
	case MethodGet:
		return http.MethodGet
	case MethodHead:
		return http.MethodHead
	case MethodPost:
		return http.MethodPost
	case MethodPut:
		return http.MethodPut
	case MethodDelete:
		return http.MethodDelete
	case MethodConnect:
		return http.MethodConnect
	case MethodPatch:
		return http.MethodPatch
	case MethodOptions:
		return http.MethodOptions
	case MethodTrace:
		return http.MethodTrace
	default:
		return fmt.Sprintf("Method(%d)", int(m))
	}
}
