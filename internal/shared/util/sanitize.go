package util

import (
	"errors"
	"strings"
	"unicode"
)

const maxFileNameLen = 200

// SanitizeFileName removes path separators and control characters and
// rejects traversal patterns. Overlong names are truncated keeping the
// extension.
func SanitizeFileName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", errors.New("invalid file name")
	}
	s := strings.TrimSpace(name)
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	if s == "" {
		return "", errors.New("invalid file name")
	}
	if runes := []rune(s); len(runes) > maxFileNameLen {
		ext := ""
		if i := strings.LastIndexByte(s, '.'); i > 0 && len(s)-i <= 10 {
			ext = s[i:]
		}
		keep := maxFileNameLen - len([]rune(ext))
		s = string([]rune(strings.TrimSuffix(s, ext))[:keep]) + ext
	}
	return s, nil
}
