package util

import (
	"errors"
	"path"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxFileNameRunes caps the sanitized upload name. Longer names are cut
// before the extension.
const MaxFileNameRunes = 96

// ErrInvalidFileName is returned for names that cannot be stored.
var ErrInvalidFileName = errors.New("invalid file name")

// SanitizeFileName flattens an uploaded resume name into a single key
// segment: separators and whitespace become '_', control characters are
// dropped and traversal sequences are rejected.
func SanitizeFileName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.Contains(name, "..") || !utf8.ValidString(name) {
		return "", ErrInvalidFileName
	}

	var b strings.Builder
	for _, r := range name {
		switch {
		case r == '/' || r == '\\' || unicode.IsSpace(r):
			b.WriteRune('_')
		case unicode.IsControl(r):
		default:
			b.WriteRune(r)
		}
	}
	s := strings.Trim(b.String(), "_.")
	if s == "" {
		return "", ErrInvalidFileName
	}
	return truncateName(s), nil
}

func truncateName(s string) string {
	if utf8.RuneCountInString(s) <= MaxFileNameRunes {
		return s
	}
	ext := path.Ext(s)
	if utf8.RuneCountInString(ext) >= MaxFileNameRunes/2 {
		ext = ""
	}
	base := []rune(strings.TrimSuffix(s, ext))
	keep := MaxFileNameRunes - utf8.RuneCountInString(ext)
	return string(base[:keep]) + ext
}
