package folio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/image/draw"
)

const (
	maxImageWidth = 1200
	jpegQuality   = 80
	maxUploadSize = 10 << 20 // 10MB
	uploadsPrefix = "/uploads/"
)

// processImage decodes an image from src, shrinks it to maxImageWidth when
// wider, and re-encodes it as JPEG.
func processImage(src io.Reader, originalName string, uploadedAt time.Time) (Image, []byte, error) {
	img, _, err := image.Decode(src)
	if err != nil {
		return Image{}, nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w > maxImageWidth {
		newH := h * maxImageWidth / w
		if newH < 1 {
			newH = 1
		}
		dst := image.NewRGBA(image.Rect(0, 0, maxImageWidth, newH))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
		w, h = maxImageWidth, newH
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return Image{}, nil, fmt.Errorf("encode jpeg: %w", err)
	}

	return Image{
		Filename:     imageBaseName(originalName) + ".jpg",
		OriginalName: originalName,
		Width:        w,
		Height:       h,
		Size:         buf.Len(),
		UploadedAt:   uploadedAt.UTC(),
	}, buf.Bytes(), nil
}

func imageBaseName(name string) string {
	base := Slugify(strings.TrimSuffix(filepath.Base(name), filepath.Ext(name)))
	if base == "" {
		return "image"
	}
	return base
}

// SaveImage records the metadata of an uploaded image.
func (s *Store) SaveImage(ctx context.Context, img Image) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO images (filename, original_name, width, height, size, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		img.Filename, img.OriginalName, img.Width, img.Height, img.Size, formatTime(img.UploadedAt))
	if err != nil {
		return fmt.Errorf("save image: %w", err)
	}
	return nil
}

// ListImages returns uploaded images, newest first.
func (s *Store) ListImages(ctx context.Context) ([]Image, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT filename, original_name, width, height, size, uploaded_at
		FROM images ORDER BY uploaded_at DESC, filename`)
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	defer rows.Close()

	images := make([]Image, 0)
	for rows.Next() {
		var (
			img        Image
			uploadedAt string
		)
		if err := rows.Scan(&img.Filename, &img.OriginalName, &img.Width, &img.Height, &img.Size, &uploadedAt); err != nil {
			return nil, err
		}
		img.UploadedAt = parseTime(uploadedAt)
		img.URL = uploadsPrefix + img.Filename
		images = append(images, img)
	}
	return images, rows.Err()
}

// ImageExists reports whether metadata for filename is stored.
func (s *Store) ImageExists(ctx context.Context, filename string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM images WHERE filename = ?`, filename).Scan(&n)
	return n > 0, err
}

// DeleteImage removes image metadata and reports whether a row existed.
func (s *Store) DeleteImage(ctx context.Context, filename string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM images WHERE filename = ?`, filename)
	if err != nil {
		return false, fmt.Errorf("delete image: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// createImageFile writes data under the upload dir as name, or as name with
// a counter appended when that is taken on disk or in the images table. The
// file is created exclusively, so concurrent uploads never share a name.
func (a *App) createImageFile(ctx context.Context, name string, data []byte) (string, error) {
	base := strings.TrimSuffix(name, ".jpg")
	candidate := name
	for counter := 2; ; counter, candidate = counter+1, fmt.Sprintf("%s-%d.jpg", base, counter) {
		exists, err := a.Store.ImageExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if exists {
			continue
		}

		path := filepath.Join(a.Config.UploadDir, candidate)
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("create image: %w", err)
		}
		_, err = f.Write(data)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(path)
			return "", fmt.Errorf("write image: %w", err)
		}
		return candidate, nil
	}
}

func validImageName(name string) bool {
	return name != "" && name == filepath.Base(name) && !strings.HasPrefix(name, ".")
}

func (a *App) handleImageUpload(c echo.Context) error {
	file, err := c.FormFile("image")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "No image file provided")
	}
	if file.Size > maxUploadSize {
		return echo.NewHTTPError(http.StatusBadRequest, "File too large (max 10MB)")
	}

	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	img, data, err := processImage(src, file.Filename, a.Store.now())
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid image")
	}

	ctx := c.Request().Context()
	if err := os.MkdirAll(a.Config.UploadDir, 0o755); err != nil {
		return fmt.Errorf("create uploads dir: %w", err)
	}
	if img.Filename, err = a.createImageFile(ctx, img.Filename, data); err != nil {
		return err
	}
	if err := a.Store.SaveImage(ctx, img); err != nil {
		_ = os.Remove(filepath.Join(a.Config.UploadDir, img.Filename))
		return err
	}
	img.URL = uploadsPrefix + img.Filename

	a.log.Info().Str("filename", img.Filename).Int("size", img.Size).Msg("image uploaded")
	return c.JSON(http.StatusCreated, echo.Map{"image": img})
}

func (a *App) handleImageList(c echo.Context) error {
	images, err := a.Store.ListImages(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"images": images})
}

func (a *App) handleImageDelete(c echo.Context) error {
	filename := c.Param("filename")
	if !validImageName(filename) {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid filename")
	}

	removed, err := a.Store.DeleteImage(c.Request().Context(), filename)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(a.Config.UploadDir, filename)); err != nil && !errors.Is(err, os.ErrNotExist) {
		a.log.Warn().Err(err).Str("filename", filename).Msg("remove image file")
	} else if err == nil {
		removed = true
	}
	if !removed {
		return echo.NewHTTPError(http.StatusNotFound, "Image not found")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}
