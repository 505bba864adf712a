package service

import (
	"fmt"
	"github.com/google/uuid"
	"media-registry/constant"
	"path"
	"regexp"
	"strings"
	"time"
)

const maxNameLen = 200

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// NewStorageKey derives a blob key from the upload time and the client's file
// name. The random token separates uploads of the same name within one millisecond.
func NewStorageKey(now time.Time, originalName string) string {
	token := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%d_%s_%s", now.UnixMilli(), token, SanitizeName(originalName))
}

// SanitizeName reduces a client supplied file name to a safe single path segment.
func SanitizeName(name string) string {
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))
	name = unsafeNameChars.ReplaceAllString(name, "_")
	name = strings.TrimLeft(name, ".")
	if name == "" {
		return "upload"
	}
	if len(name) > maxNameLen {
		ext := path.Ext(name)
		if len(ext) > 16 {
			ext = ""
		}
		name = name[:maxNameLen-len(ext)] + ext
	}
	return name
}

// Locator is the relative URL a blob is served under.
func Locator(storageKey string) string {
	return constant.UploadsPrefix + storageKey
}
