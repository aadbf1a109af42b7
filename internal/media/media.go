// Package media validates uploaded images, normalises them and stores them
// on local disk.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	_ "golang.org/x/image/webp"

	"bitelogs/internal/apperr"
)

// Upload kinds, also used as storage sub-directories.
const (
	KindReview     = "reviews"
	KindRestaurant = "restaurants"
	KindMenuItem   = "menu-items"
	KindAvatar     = "avatars"
)

const (
	DefaultMaxSide = 1200
	DefaultQuality = 80
)

var allowedTypes = []string{"image/jpeg", "image/png", "image/webp"}

// Store persists an image and returns the reference clients use to fetch it.
type Store interface {
	Save(ctx context.Context, kind string, data []byte) (string, error)
	Remove(ctx context.Context, ref string) error
}

type LocalStore struct {
	Dir       string
	URLPrefix string
	MaxSide   int
	Quality   int
}

func NewLocalStore(dir, urlPrefix string) *LocalStore {
	return &LocalStore{
		Dir:       dir,
		URLPrefix: strings.TrimRight(urlPrefix, "/"),
		MaxSide:   DefaultMaxSide,
		Quality:   DefaultQuality,
	}
}

// Save sniffs the content type, shrinks the image to fit MaxSide x MaxSide
// and writes it as JPEG under Dir/kind.
func (s *LocalStore) Save(ctx context.Context, kind string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := CheckType(data); err != nil {
		return "", err
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return "", apperr.Validation("Image could not be decoded",
			apperr.FieldError{Field: "image", Message: "Image could not be decoded"})
	}

	b := img.Bounds()
	if b.Dx() > s.MaxSide || b.Dy() > s.MaxSide {
		img = imaging.Fit(img, s.MaxSide, s.MaxSide, imaging.Lanczos)
	}

	dir := filepath.Join(s.Dir, kind)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	name := uuid.NewString() + ".jpg"
	if err := imaging.Save(img, filepath.Join(dir, name), imaging.JPEGQuality(s.Quality)); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}

	return path.Join(s.URLPrefix, kind, name), nil
}

// Remove deletes a file previously returned by Save. Unknown or foreign
// references are ignored.
func (s *LocalStore) Remove(ctx context.Context, ref string) error {
	if ref == "" || !strings.HasPrefix(ref, s.URLPrefix+"/") {
		return nil
	}
	rel := strings.TrimPrefix(ref, s.URLPrefix+"/")
	if strings.Contains(rel, "..") {
		return nil
	}
	err := os.Remove(filepath.Join(s.Dir, filepath.FromSlash(rel)))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove image: %w", err)
	}
	return nil
}

// CheckType rejects anything that is not JPEG, PNG or WebP by content.
func CheckType(data []byte) error {
	mt := mimetype.Detect(data)
	for _, t := range allowedTypes {
		if mt.Is(t) {
			return nil
		}
	}
	return apperr.Validation("Only JPEG, PNG, and WebP images are allowed",
		apperr.FieldError{Field: FormField, Message: "Only JPEG, PNG, and WebP images are allowed"})
}

// FormField is the multipart field every upload endpoint reads.
const FormField = "image"

func imageRequired() error {
	return apperr.Validation("Image file is required",
		apperr.FieldError{Field: FormField, Message: "Image file is required"})
}

// FormImage reads the image field of a multipart request. A request without
// the field is a validation error; a body that fails to parse is a bad
// request carrying the parser's message.
func FormImage(r *http.Request, maxSize int64) ([]byte, error) {
	f, fh, err := r.FormFile(FormField)
	switch {
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		return nil, imageRequired()
	case err != nil:
		return nil, apperr.BadRequest(fmt.Sprintf("Invalid multipart body: %v", err))
	}
	_ = f.Close()
	return ReadUpload(fh, maxSize)
}

// ReadUpload reads a multipart file, enforcing maxSize bytes.
func ReadUpload(fh *multipart.FileHeader, maxSize int64) ([]byte, error) {
	if fh == nil {
		return nil, imageRequired()
	}
	if fh.Size > maxSize {
		return nil, tooLarge(maxSize)
	}

	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > maxSize {
		return nil, tooLarge(maxSize)
	}
	return data, nil
}

func tooLarge(maxSize int64) error {
	msg := fmt.Sprintf("File too large. Maximum size is %dMB", maxSize/(1024*1024))
	return apperr.Validation(msg, apperr.FieldError{Field: "image", Message: msg})
}
