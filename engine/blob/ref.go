package blob

import (
	"fmt"
	"strings"
)

// Scheme is the opaque reference scheme node outputs use to point at
// stored artifacts instead of embedding them.
const Scheme = "blob://"

// IsRef reports whether value is a blob reference.
func IsRef(value string) bool {
	return strings.HasPrefix(value, Scheme)
}

// FormatRef builds a blob reference from its parts.
func FormatRef(container, name string) string {
	return Scheme + container + "/" + name
}

// ParseRef splits a blob reference into container and object name.
func ParseRef(ref string) (container, name string, err error) {
	if !IsRef(ref) {
		return "", "", fmt.Errorf("not a blob reference: %q", ref)
	}
	rest := strings.TrimPrefix(ref, Scheme)
	container, name, ok := strings.Cut(rest, "/")
	if !ok || container == "" || name == "" {
		return "", "", fmt.Errorf("malformed blob reference: %q", ref)
	}
	return container, name, nil
}
