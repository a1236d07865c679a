package uploads

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"unicode"

	"github.com/google/uuid"

	pkgerrors "github.com/brandinbox/brandinbox-backend/pkg/errors"
)

// MaxUploadBytes caps a single upload. The HTTP layer enforces the same limit
// on the request body.
const MaxUploadBytes = 20 * 1024 * 1024

// Kind classifies what the uploaded image is for.
type Kind string

const (
	KindProductPhoto Kind = "product_photo"
	KindAvatar       Kind = "avatar"
)

var allowedMimeTypes = map[Kind][]string{
	KindProductPhoto: {"image/png", "image/jpeg", "image/webp"},
	KindAvatar:       {"image/png", "image/jpeg", "image/webp"},
}

// ParseKind validates a raw upload kind.
func ParseKind(value string) (Kind, error) {
	switch Kind(strings.TrimSpace(value)) {
	case KindProductPhoto:
		return KindProductPhoto, nil
	case KindAvatar:
		return KindAvatar, nil
	}
	return "", fmt.Errorf("invalid upload kind %q", value)
}

type objectUploader interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error)
}

// Service stores seller-provided images and returns their public URLs.
type Service interface {
	Store(ctx context.Context, userID uuid.UUID, input StoreInput) (*StoreOutput, error)
}

type service struct {
	uploader objectUploader
}

// NewService constructs an upload service backed by the provided object store.
func NewService(uploader objectUploader) (Service, error) {
	if uploader == nil {
		return nil, fmt.Errorf("object uploader required")
	}
	return &service{uploader: uploader}, nil
}

// StoreInput models a single incoming file.
type StoreInput struct {
	Kind        Kind
	FileName    string
	ContentType string
	SizeBytes   int64
	Body        io.Reader
}

// StoreOutput is returned to the client after the object lands in storage.
type StoreOutput struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
}

func (s *service) Store(ctx context.Context, userID uuid.UUID, input StoreInput) (*StoreOutput, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.Kind == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "upload kind is required")
	}
	if input.Body == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file content is required")
	}
	if input.SizeBytes <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file is empty")
	}
	if input.SizeBytes > MaxUploadBytes {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("file exceeds %d bytes", MaxUploadBytes))
	}

	contentType := strings.ToLower(strings.TrimSpace(input.ContentType))
	if !isAllowedMime(input.Kind, contentType) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "content type not allowed for upload kind")
	}

	key := buildObjectKey(input.Kind, userID, input.FileName)
	url, err := s.uploader.Upload(ctx, key, contentType, io.LimitReader(input.Body, MaxUploadBytes))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store upload")
	}

	return &StoreOutput{
		Key:         key,
		URL:         url,
		ContentType: contentType,
		SizeBytes:   input.SizeBytes,
	}, nil
}

func isAllowedMime(kind Kind, contentType string) bool {
	allowed, ok := allowedMimeTypes[kind]
	if !ok {
		return false
	}
	for _, candidate := range allowed {
		if candidate == contentType {
			return true
		}
	}
	return false
}

func buildObjectKey(kind Kind, userID uuid.UUID, fileName string) string {
	cleanName := sanitizeFileName(fileName)
	id := uuid.New()
	if cleanName == "" {
		cleanName = id.String()
	}
	return fmt.Sprintf("uploads/%s/%s/%s/%s", kind, userID.String(), id.String(), cleanName)
}

func sanitizeFileName(name string) string {
	if name == "" {
		return ""
	}
	clean := path.Base(strings.TrimSpace(name))
	if clean == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(clean))
	for _, r := range clean {
		switch {
		case r == '/' || r == '\\' || unicode.IsControl(r):
			continue
		case unicode.IsSpace(r):
			b.WriteRune('-')
		default:
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "-_.")
}
