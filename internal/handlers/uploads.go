package handlers

import (
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/nfnt/resize"
)

const (
	maxUploadBytes = 10 << 20 // 10MB
	maxImageWidth  = 800
	uploadURLPath  = "/static/uploads/"
)

var errUnsupportedImage = errors.New("unsupported image format. Only PNG, JPG, JPEG are allowed")

// parseProductForm accepts both urlencoded and multipart bodies.
func parseProductForm(r *http.Request) error {
	err := r.ParseMultipartForm(maxUploadBytes)
	if errors.Is(err, http.ErrNotMultipart) {
		return r.ParseForm()
	}
	return err
}

// uploadedImage stores the "image_file" upload, if any, and returns its
// public URL. It returns "" and no error when nothing was uploaded.
func uploadedImage(r *http.Request, dir string) (string, error) {
	file, header, err := r.FormFile("image_file")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	defer file.Close()
	return saveImage(file, header, dir)
}

// saveImage decodes a PNG or JPEG, shrinks it to maxImageWidth and writes
// it as <uuid>.jpg under dir.
func saveImage(file multipart.File, header *multipart.FileHeader, dir string) (string, error) {
	var (
		img image.Image
		err error
	)
	switch strings.ToLower(filepath.Ext(header.Filename)) {
	case ".png":
		img, err = png.Decode(file)
	case ".jpg", ".jpeg":
		img, err = jpeg.Decode(file)
	default:
		return "", errUnsupportedImage
	}
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}

	if img.Bounds().Dx() > maxImageWidth {
		img = resize.Resize(maxImageWidth, 0, img, resize.Lanczos3)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	filename := uuid.New().String() + ".jpg"
	if err := writeJPEG(filepath.Join(dir, filename), img); err != nil {
		return "", err
	}
	return uploadURLPath + filename, nil
}

// writeJPEG removes the file again if encoding or closing fails.
func writeJPEG(path string, img image.Image) (err error) {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(path)
		}
	}()

	if err := jpeg.Encode(out, img, &jpeg.Options{Quality: 80}); err != nil {
		return fmt.Errorf("failed to encode image: %w", err)
	}
	return nil
}
