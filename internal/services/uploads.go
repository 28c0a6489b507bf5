package services

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gestorbiz/gestor-backend/internal/validation"
)

// FileUpload is an optional file part of a multipart create request, fully
// buffered by the handler. Size is the declared part size and is validated
// against the real byte count.
type FileUpload struct {
	Name        string
	ContentType string
	Size        int64
	Content     []byte
}

// checkUpload runs the file policy and returns the storage extension.
func checkUpload(f *FileUpload) (string, error) {
	if f == nil {
		return "", nil
	}
	// The declared part size can understate the buffered bytes; check the
	// larger of the two so the limit cannot be bypassed.
	size := f.Size
	if buffered := int64(len(f.Content)); buffered > size {
		size = buffered
	}
	return validation.CheckFile(f.Name, f.ContentType, size)
}

// objectKey builds the storage key for an uploaded asset: prefix, parent id,
// then a random name so re-submissions never collide with a half-finished
// earlier attempt.
func objectKey(prefix string, parentID uuid.UUID, ext string) string {
	return fmt.Sprintf("%s/%s/%s%s", prefix, parentID.String(), uuid.New().String(), ext)
}

// marshalRow serializes a row for the cache and the change feed.
func marshalRow(row any) json.RawMessage {
	raw, err := json.Marshal(row)
	if err != nil {
		return nil
	}
	return raw
}

// applyOptimistic merges a freshly written row into the local cache without
// waiting for the realtime round-trip. The later realtime event replays the
// same row and is absorbed by the idempotent merge.
func applyOptimistic(cache *EntityCache, kind string, id uuid.UUID, row any, updatedAt time.Time) {
	if cache == nil {
		return
	}
	raw := marshalRow(row)
	if raw == nil {
		return
	}
	cache.Apply(kind, id, raw, updatedAt)
}

func uuidStrings(ids ...uuid.UUID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}
