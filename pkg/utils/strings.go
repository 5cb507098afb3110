package utils

import (
	"path/filepath"
	"strings"
)

func IsNotNilOrEmptyString(v *string) bool {
	return v != nil && *v != ""
}

func IsNilOrEmptyString(v *string) bool {
	return v == nil || *v == ""
}

// BaseName strips directories and every extension from a filename,
// "models/churn.tar.gz" becomes "churn".
func BaseName(filename string) string {
	base := filepath.Base(filename)
	if base == "." || base == string(filepath.Separator) {
		return ""
	}

	if idx := strings.Index(base, "."); idx > 0 {
		base = base[:idx]
	}

	return base
}
