package validators

import (
	"net/http"
	"strconv"
	"strings"

	pkgerrors "github.com/annetom/pizzaria-checkout/pkg/errors"
)

// ParseQueryBool reads an optional boolean flag such as ?force=true.
func ParseQueryBool(r *http.Request, key string) (bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return false, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "query parameter must be a boolean").WithDetails(map[string]any{"field": key})
	}
	return value, nil
}
