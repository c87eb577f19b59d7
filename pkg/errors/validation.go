package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// maxNameLength mirrors the 63-byte limit the host applies to ID names.
const maxNameLength = 63

// ValidateNodeName validates a node name.
//
// Node names are part of override keys (`<node-name>.<field>`), so names
// containing the path separator, quotes or control characters are rejected:
//   - No empty names
//   - No control characters
//   - No '.', '"' or '[' ']'
//   - Maximum length of 63 bytes
func ValidateNodeName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidName, "node name cannot be empty")
	}
	if len(name) > maxNameLength {
		return New(ErrCodeInvalidName, "node name too long (max %d bytes)", maxNameLength)
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidName, "node name contains invalid control characters")
		}
	}
	if strings.ContainsAny(name, `"[]`) {
		return New(ErrCodeInvalidName, "node name contains invalid characters: %q", name)
	}
	// "Name.001" style suffixes are allowed, a dot anywhere else is not.
	if i := strings.IndexByte(name, '.'); i >= 0 && !isNumericSuffix(name[i+1:]) {
		return New(ErrCodeInvalidName, "node name may only use '.' for a numeric suffix: %q", name)
	}
	return nil
}

func isNumericSuffix(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ValidatePattern compiles an override key pattern for full-string matching.
// The returned expression is anchored at both ends.
func ValidatePattern(pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, New(ErrCodeInvalidPattern, "override pattern cannot be empty")
	}
	re, err := regexp.Compile(`^(?:` + pattern + `)$`)
	if err != nil {
		return nil, Wrap(ErrCodeInvalidPattern, err, "invalid override pattern %q", pattern)
	}
	return re, nil
}

// ValidatePath validates a document path given on the command line or in a
// merge request.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}
	return nil
}
