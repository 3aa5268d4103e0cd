package permission

import (
	"net/http"
	"strings"
)

// ForMethod maps an HTTP method to the capability it requires. Matching ignores case,
// so "get" requires Read like "GET". Unknown methods map to None, which callers must
// treat as a denial.
func ForMethod(method string) Bits {
	switch strings.ToUpper(method) {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return Read
	case http.MethodPost:
		return Create
	case http.MethodPut, http.MethodPatch:
		return Update
	case http.MethodDelete:
		return Delete
	default:
		return None
	}
}
