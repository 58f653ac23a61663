package service

import (
	"regexp"
	"strings"

	"github.com/mozillazg/go-unidecode"
)

var (
	slugInvalidChars = regexp.MustCompile(`[^a-z0-9]+`)
)

// Slugify 将标题转为 URL 友好的 slug，非 ASCII 字符先做音译。
func Slugify(s string) string {
	result := strings.ToLower(unidecode.Unidecode(strings.TrimSpace(s)))
	result = slugInvalidChars.ReplaceAllString(result, "-")
	result = strings.Trim(result, "-")
	if len(result) > 120 {
		result = strings.TrimRight(result[:120], "-")
	}
	return result
}
