package agrosite

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

	"github.com/labstack/echo/v4"
	"golang.org/x/image/draw"

	"github.com/agrosite/agrosite/store"
)

const (
	maxImageWidth = 800
	jpegQuality   = 80
	maxUploadSize = 10 << 20 // 10MB
	uploadsPrefix = "/uploads/"

	maxNameAttempts = 1000
)

// processImage decodes an image from src, shrinks it to maxImageWidth when
// wider, and re-encodes it as JPEG.
func processImage(src io.Reader, originalName string) (store.Image, []byte, error) {
	img, _, err := image.Decode(src)
	if err != nil {
		return store.Image{}, nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	if w > maxImageWidth {
		newH := h * maxImageWidth / w
		dst := image.NewRGBA(image.Rect(0, 0, maxImageWidth, newH))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
		w = maxImageWidth
		h = newH
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return store.Image{}, nil, fmt.Errorf("encode jpeg: %w", err)
	}

	base := Slugify(strings.TrimSuffix(originalName, filepath.Ext(originalName)))
	if base == "" {
		base = "image"
	}
	return store.Image{
		Filename:     base + ".jpg",
		OriginalName: originalName,
		Width:        w,
		Height:       h,
		Size:         buf.Len(),
	}, buf.Bytes(), nil
}

// storeImage writes data under the first free variant of img.Filename and
// records it. Files are created with O_EXCL, so each name belongs to exactly
// one upload and a failed upload only ever removes its own file.
func (a *App) storeImage(ctx context.Context, img *store.Image, data []byte) error {
	if err := os.MkdirAll(a.Config.UploadDir, 0o755); err != nil {
		return fmt.Errorf("create uploads dir: %w", err)
	}
	base := strings.TrimSuffix(img.Filename, ".jpg")
	for counter := 1; counter <= maxNameAttempts; counter++ {
		candidate := base + ".jpg"
		if counter > 1 {
			candidate = fmt.Sprintf("%s-%d.jpg", base, counter)
		}
		taken, err := a.Services.Images.Exists(ctx, candidate)
		if err != nil {
			return err
		}
		if taken {
			continue
		}

		path := filepath.Join(a.Config.UploadDir, candidate)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("create image: %w", err)
		}
		_, err = f.Write(data)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(path)
			return fmt.Errorf("write image: %w", err)
		}

		img.Filename = candidate
		err = a.Services.Images.Save(ctx, img)
		if err == nil {
			return nil
		}
		_ = os.Remove(path)
		if !errors.Is(err, store.ErrConflict) {
			return err
		}
	}
	return fmt.Errorf("no free filename for %q", base)
}

func imageResponse(img store.Image) ImageResponse {
	return ImageResponse{Image: img, URL: uploadsPrefix + img.Filename}
}

func (a *App) handleImageUpload(c echo.Context) error {
	file, err := c.FormFile("image")
	if err != nil {
		return fieldError("image", "required")
	}
	if file.Size > maxUploadSize {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "file too large (max 10MB)")
	}

	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	img, data, err := processImage(src, filepath.Base(file.Filename))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid image: "+err.Error())
	}

	if err := a.storeImage(c.Request().Context(), &img, data); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, imageResponse(img))
}

func (a *App) handleImageDelete(c echo.Context) error {
	filename := c.Param("filename")
	if filename == "" || filename != filepath.Base(filename) || strings.HasPrefix(filename, ".") {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid filename")
	}

	if err := a.Services.Images.Delete(c.Request().Context(), filename); err != nil {
		return err
	}
	path := filepath.Join(a.Config.UploadDir, filename)
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		a.requestLogger(c).Warn().Err(err).Str("path", path).Msg("remove image file")
	}
	return c.NoContent(http.StatusNoContent)
}

func (a *App) handleImageList(c echo.Context) error {
	images, err := a.Services.Images.List(c.Request().Context())
	if err != nil {
		return err
	}
	out := make([]ImageResponse, 0, len(images))
	for _, img := range images {
		out = append(out, imageResponse(img))
	}
	return c.JSON(http.StatusOK, out)
}
