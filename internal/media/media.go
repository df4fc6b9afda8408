// Package media validates and uploads draft images. Validation happens
// before any bytes leave the process: content is sniffed, never trusted
// from the filename, and oversized uploads are rejected outright.
package media

import (
	"context"
	"fmt"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"

	"github.com/inkwell-cms/inkwell/internal/model"
)

var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

type Uploader interface {
	Upload(ctx context.Context, name string, data []byte) (string, error)
}

// PendingUpload captures where an image belongs in the draft at the
// moment the upload starts. The content may move underneath an upload
// in flight; insertion happens at this recorded point, not at the
// cursor's position when the upload settles.
type PendingUpload struct {
	ID        string
	Name      string
	DraftID   model.DraftID
	InsertAt  int
	StartedAt time.Time
}

// ValidateImage sniffs the payload and enforces the size cap. It returns
// the detected extension for use in the stored object key.
func ValidateImage(data []byte, maxBytes int) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("empty upload")
	}
	if len(data) > maxBytes {
		return "", fmt.Errorf("upload of %d bytes exceeds limit of %d bytes", len(data), maxBytes)
	}

	detected := mimetype.Detect(data)
	ext, ok := allowedTypes[detected.String()]
	if !ok {
		return "", fmt.Errorf("unsupported content type %s", detected.String())
	}

	return ext, nil
}

var mediaLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	mediaLogger = l
}
