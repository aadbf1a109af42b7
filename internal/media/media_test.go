package media

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bitelogs/internal/apperr"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x += 10 {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestSaveResizesAndStoresJPEG(t *testing.T) {
	dir := t.TempDir()
	s := NewLocalStore(dir, "/uploads/")

	ref, err := s.Save(context.Background(), KindReview, pngBytes(t, 2400, 1200))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ref, "/uploads/reviews/"))
	assert.True(t, strings.HasSuffix(ref, ".jpg"))

	img, err := imaging.Open(filepath.Join(dir, "reviews", filepath.Base(ref)))
	require.NoError(t, err)
	assert.Equal(t, 1200, img.Bounds().Dx())
	assert.Equal(t, 600, img.Bounds().Dy())
}

func TestSaveDoesNotEnlarge(t *testing.T) {
	dir := t.TempDir()
	s := NewLocalStore(dir, "/uploads")

	ref, err := s.Save(context.Background(), KindAvatar, pngBytes(t, 64, 32))
	require.NoError(t, err)

	img, err := imaging.Open(filepath.Join(dir, "avatars", filepath.Base(ref)))
	require.NoError(t, err)
	assert.Equal(t, 64, img.Bounds().Dx())
	assert.Equal(t, 32, img.Bounds().Dy())
}

func TestSaveRejectsNonImages(t *testing.T) {
	s := NewLocalStore(t.TempDir(), "/uploads")

	_, err := s.Save(context.Background(), KindReview, []byte("<html><body>hi</body></html>"))
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	// GIF is an image, but not an accepted one.
	_, err = s.Save(context.Background(), KindReview, []byte("GIF89a\x01\x00\x01\x00\x00\x00\x00;"))
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestRemove(t *testing.T) {
	dir := t.TempDir()
	s := NewLocalStore(dir, "/uploads")

	ref, err := s.Save(context.Background(), KindMenuItem, pngBytes(t, 10, 10))
	require.NoError(t, err)
	require.NoError(t, s.Remove(context.Background(), ref))

	_, err = os.Stat(filepath.Join(dir, "menu-items", filepath.Base(ref)))
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, s.Remove(context.Background(), "https://cdn.example.com/x.jpg"))
	assert.NoError(t, s.Remove(context.Background(), "/uploads/../secret"))
	assert.NoError(t, s.Remove(context.Background(), ""))
}

func fileHeader(t *testing.T, data []byte) *multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("image", "photo.png")
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))
	_, fh, err := req.FormFile("image")
	require.NoError(t, err)
	return fh
}

func TestReadUpload(t *testing.T) {
	data := pngBytes(t, 20, 20)

	got, err := ReadUpload(fileHeader(t, data), 1<<20)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	_, err = ReadUpload(fileHeader(t, data), 10)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = ReadUpload(nil, 10)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestFormImage(t *testing.T) {
	data := pngBytes(t, 20, 20)

	multipartReq := func(field string, payload []byte) *http.Request {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		fw, err := mw.CreateFormFile(field, "photo.png")
		require.NoError(t, err)
		_, err = fw.Write(payload)
		require.NoError(t, err)
		require.NoError(t, mw.Close())
		req := httptest.NewRequest(http.MethodPost, "/", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		return req
	}

	got, err := FormImage(multipartReq(FormField, data), 1<<20)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	// wrong field name
	_, err = FormImage(multipartReq("photo", data), 1<<20)
	require.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Equal(t, "Image file is required", err.Error())

	// not multipart at all
	_, err = FormImage(httptest.NewRequest(http.MethodPost, "/", nil), 1<<20)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	// multipart with a truncated body
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("--xyz\r\nContent-Disposition: form-data; name=\"image\"; filename=\"a.png\"\r\n\r\nabc"))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=xyz")
	_, err = FormImage(req, 1<<20)
	require.Equal(t, apperr.KindBadRequest, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "Invalid multipart body")
}
