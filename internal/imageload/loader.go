package imageload

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"mime"
	"net/http"
	"strings"

	_ "golang.org/x/image/webp"
)

// DefaultMaxBytes потолок размера файла: 5 MiB.
const DefaultMaxBytes int64 = 5 * 1024 * 1024

var (
	ErrTooLarge = errors.New("image exceeds size limit")
	ErrNotImage = errors.New("file is not an image")
)

// TooLargeError сообщает действующий лимит; errors.Is(err, ErrTooLarge) для неё истинно.
type TooLargeError struct {
	Limit int64
	// Size 0, если размер не был объявлен заранее.
	Size int64
}

func (e *TooLargeError) Error() string {
	if e.Size > 0 {
		return fmt.Sprintf("%s: %d > %d bytes", ErrTooLarge, e.Size, e.Limit)
	}
	return fmt.Sprintf("%s: more than %d bytes", ErrTooLarge, e.Limit)
}

func (e *TooLargeError) Is(target error) bool {
	return target == ErrTooLarge
}

// Image загруженный файл: сырые байты, MIME-тип и data URI для показа.
type Image struct {
	Name       string `json:"name"`
	MIMEType   string `json:"mime_type"`
	Size       int64  `json:"size"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	DisplayURI string `json:"-"`
	Data       []byte `json:"-"`
}

// Base64 полезная нагрузка для отправки в модель (часть data URI после запятой).
func (img *Image) Base64() string {
	return base64.StdEncoding.EncodeToString(img.Data)
}

type Loader struct {
	MaxBytes int64
}

func NewLoader(maxBytes int64) *Loader {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Loader{MaxBytes: maxBytes}
}

// Load читает файл целиком. declaredSize < 0 означает, что размер заранее неизвестен;
// тогда лимит проверяется по фактически прочитанным байтам.
func (l *Loader) Load(ctx context.Context, r io.Reader, name, declaredMIME string, declaredSize int64) (*Image, error) {
	if declaredSize > l.MaxBytes {
		return nil, &TooLargeError{Limit: l.MaxBytes, Size: declaredSize}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(r, l.MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if int64(len(data)) > l.MaxBytes {
		return nil, &TooLargeError{Limit: l.MaxBytes}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mimeType := resolveMIME(declaredMIME, data)
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, fmt.Errorf("%w: %s", ErrNotImage, mimeType)
	}

	img := &Image{
		Name:     name,
		MIMEType: mimeType,
		Size:     int64(len(data)),
		Data:     data,
	}
	// Любой image/* принимается; размеры известны только для поддерживаемых форматов.
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		img.Width = cfg.Width
		img.Height = cfg.Height
	}
	img.DisplayURI = "data:" + mimeType + ";base64," + img.Base64()
	return img, nil
}

func resolveMIME(declared string, data []byte) string {
	if declared != "" {
		if mediaType, _, err := mime.ParseMediaType(declared); err == nil && mediaType != "application/octet-stream" {
			return strings.ToLower(mediaType)
		}
	}
	sniffed := http.DetectContentType(data)
	if mediaType, _, err := mime.ParseMediaType(sniffed); err == nil {
		return mediaType
	}
	return sniffed
}
