package storage

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"github.com/oklog/ulid/v2"
)

const maxBaseNameRunes = 60

// ImageObjectName composes "<prefix>/<unix-ms>_<ulid>_<slug>.<ext>" for an uploaded file.
// The base name is slugified so the object name is URL safe.
func ImageObjectName(prefix string, now time.Time, id ulid.ULID, fileName string) (string, error) {
	prefix, err := validatePrefix(prefix)
	if err != nil {
		return "", err
	}
	name, err := validateFileName(fileName)
	if err != nil {
		return "", err
	}

	ext := strings.ToLower(path.Ext(name))
	base := slug.Make(strings.TrimSuffix(name, path.Ext(name)))
	if base == "" {
		base = "imagen"
	}
	if runes := []rune(base); len(runes) > maxBaseNameRunes {
		base = strings.Trim(string(runes[:maxBaseNameRunes]), "-")
	}
	if ext != "" && slug.Make(ext) == "" {
		ext = ""
	}

	object := fmt.Sprintf("%d_%s_%s%s", now.UnixMilli(), strings.ToLower(id.String()), base, ext)
	if prefix == "" {
		return object, nil
	}
	return prefix + "/" + object, nil
}

func validatePrefix(value string) (string, error) {
	value = strings.Trim(strings.TrimSpace(value), "/")
	if strings.Contains(value, "..") || strings.Contains(value, "\\") {
		return "", fmt.Errorf("storage: prefix contains invalid path characters")
	}
	return value, nil
}

func validateFileName(value string) (string, error) {
	value = strings.TrimSpace(value)
	if i := strings.LastIndexAny(value, "/\\"); i >= 0 {
		value = value[i+1:]
	}
	if value == "" || value == "." || value == ".." {
		return "", fmt.Errorf("storage: fileName is required")
	}
	return value, nil
}
