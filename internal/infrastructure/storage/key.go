package storage

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/leafguard/backend/internal/domain"
)

// UploadPrefix is the key namespace for user uploads
const UploadPrefix = "uploads/"

var whitespaceRegex = regexp.MustCompile(`\s+`)

// ObjectKey builds the storage key for an uploaded file:
// uploads/<unix-millis>-<name with whitespace replaced by '-'>
func ObjectKey(name string, now time.Time) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		base = "upload"
	}
	base = whitespaceRegex.ReplaceAllString(base, "-")
	return fmt.Sprintf("%s%d-%s", UploadPrefix, now.UnixMilli(), base)
}

// ValidateKey rejects keys outside the upload namespace
func ValidateKey(key string) error {
	if !strings.HasPrefix(key, UploadPrefix) || len(key) == len(UploadPrefix) ||
		strings.Contains(key, "..") || strings.ContainsAny(key, "\\\x00") {
		return domain.InvalidRequest(domain.CodeBadRequest, "Invalid file key", map[string]interface{}{"key": key})
	}
	return nil
}
