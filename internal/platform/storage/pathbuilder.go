package storage

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var unsafeFileChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// TemplateObjectParams identify an uploaded template image.
type TemplateObjectParams struct {
	TemplateID string
	FileName   string
	UploadedAt time.Time
}

// TemplateObjectKey composes `<templateID>-<unixMillis>-<safe filename>`. The bucket is
// flat so every character outside [a-zA-Z0-9._-] in the filename becomes an underscore.
func TemplateObjectKey(params TemplateObjectParams) (string, error) {
	templateID, err := validateSegment("templateID", params.TemplateID)
	if err != nil {
		return "", err
	}
	name := strings.TrimSpace(params.FileName)
	if name == "" {
		return "", fmt.Errorf("storage: fileName is required")
	}
	if params.UploadedAt.IsZero() {
		return "", fmt.Errorf("storage: upload time is required")
	}
	return fmt.Sprintf("%s-%d-%s", templateID, params.UploadedAt.UnixMilli(), SanitizeFileName(name)), nil
}

// SanitizeFileName replaces characters that are unsafe in object keys.
func SanitizeFileName(name string) string {
	return unsafeFileChars.ReplaceAllString(name, "_")
}

func validateSegment(name, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("storage: %s is required", name)
	}
	if strings.ContainsAny(value, "/\\") {
		return "", fmt.Errorf("storage: %s contains invalid path characters", name)
	}
	if strings.Contains(value, "..") {
		return "", fmt.Errorf("storage: %s contains invalid traversal sequence", name)
	}
	return value, nil
}
