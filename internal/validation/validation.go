// Package validation holds the pre-flight checks creation flows run before any
// write step. All failures here short-circuit the flow; no compensation is ever
// needed for them.
package validation

import (
	"fmt"
	"strconv"
	"strings"
)

// ValidationError reports a field-level constraint violation on local input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ReferenceError reports a selected id that is not in the previously fetched
// reference set (service type, store, ...).
type ReferenceError struct {
	Field string
	Value string
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("%s: value %q is not in the allowed set", e.Field, e.Value)
}

// FileConstraintError reports an uploaded file violating the type/size policy.
type FileConstraintError struct {
	Name   string
	Reason string
}

func (e *FileConstraintError) Error() string {
	return fmt.Sprintf("file %q rejected: %s", e.Name, e.Reason)
}

// MaxFileSizeBytes is the upload ceiling for attachments, logos and images.
const MaxFileSizeBytes = 5 << 20

var allowedContentTypes = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"application/pdf": ".pdf",
}

func MinLen(field, value string, min int) error {
	if len(strings.TrimSpace(value)) < min {
		return &ValidationError{Field: field, Reason: fmt.Sprintf("must be at least %d characters", min)}
	}
	return nil
}

func Required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{Field: field, Reason: "is required"}
	}
	return nil
}

// NonNegativeFloat parses raw as a number and rejects negatives.
func NonNegativeFloat(field, raw string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, &ValidationError{Field: field, Reason: "must be a number"}
	}
	if f < 0 {
		return 0, &ValidationError{Field: field, Reason: "must not be negative"}
	}
	return f, nil
}

func NonNegativeInt(field, raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, &ValidationError{Field: field, Reason: "must be an integer"}
	}
	if n < 0 {
		return 0, &ValidationError{Field: field, Reason: "must not be negative"}
	}
	return n, nil
}

func Email(field, value string) error {
	v := strings.TrimSpace(value)
	if v == "" {
		return nil
	}
	at := strings.Index(v, "@")
	if at <= 0 || at == len(v)-1 || !strings.Contains(v[at+1:], ".") {
		return &ValidationError{Field: field, Reason: "must be a valid email address"}
	}
	return nil
}

// KV is one entry of a custom key/value attribute list.
type KV struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// UniqueKeys rejects empty or duplicate keys within a custom attribute list.
func UniqueKeys(field string, pairs []KV) error {
	seen := make(map[string]bool, len(pairs))
	for _, kv := range pairs {
		key := strings.TrimSpace(kv.Key)
		if key == "" {
			return &ValidationError{Field: field, Reason: "attribute keys must not be empty"}
		}
		if seen[key] {
			return &ValidationError{Field: field, Reason: fmt.Sprintf("duplicate attribute key %q", key)}
		}
		seen[key] = true
	}
	return nil
}

// CheckFile enforces the upload policy and returns the storage extension for the
// content type.
func CheckFile(name, contentType string, size int64) (string, error) {
	ext, ok := allowedContentTypes[strings.ToLower(strings.TrimSpace(contentType))]
	if !ok {
		return "", &FileConstraintError{Name: name, Reason: fmt.Sprintf("content type %q not allowed", contentType)}
	}
	if size > MaxFileSizeBytes {
		return "", &FileConstraintError{Name: name, Reason: fmt.Sprintf("size %d exceeds limit of %d bytes", size, int64(MaxFileSizeBytes))}
	}
	return ext, nil
}
