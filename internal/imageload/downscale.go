package imageload

import (
	"bytes"
	"fmt"
	"image/jpeg"

	"github.com/disintegration/imaging"
)

// Downscale уменьшает изображение по длинной стороне до maxDim и перекодирует в JPEG.
// Локальные vision-модели заметно быстрее на небольших кадрах.
// Если картинка уже маленькая или формат не декодируется, возвращается исходная.
func Downscale(img *Image, maxDim int) (*Image, error) {
	if img == nil || maxDim <= 0 {
		return img, nil
	}
	if img.Width > 0 && img.Width <= maxDim && img.Height <= maxDim {
		return img, nil
	}

	decoded, err := imaging.Decode(bytes.NewReader(img.Data), imaging.AutoOrientation(true))
	if err != nil {
		return img, nil
	}

	b := decoded.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxDim && h <= maxDim {
		return img, nil
	}
	if w >= h {
		decoded = imaging.Resize(decoded, maxDim, 0, imaging.Lanczos)
	} else {
		decoded = imaging.Resize(decoded, 0, maxDim, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, decoded, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("encode downscaled image: %w", err)
	}

	out := &Image{
		Name:     img.Name,
		MIMEType: "image/jpeg",
		Size:     int64(buf.Len()),
		Width:    decoded.Bounds().Dx(),
		Height:   decoded.Bounds().Dy(),
		Data:     buf.Bytes(),
	}
	out.DisplayURI = "data:image/jpeg;base64," + out.Base64()
	return out, nil
}
