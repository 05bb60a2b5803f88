package capture

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/artbeyondsight/sight/pkg/model"
	"github.com/artbeyondsight/sight/pkg/utils"
	xdraw "golang.org/x/image/draw"
)

const (
	DefaultMaxDimension = 1600
	DefaultJPEGQuality  = 80
	maxSourceBytes      = 25 * 1024 * 1024
)

type Options struct {
	MaxDimension int
	JPEGQuality  int
}

func (o Options) withDefaults() Options {
	if o.MaxDimension <= 0 {
		o.MaxDimension = DefaultMaxDimension
	}
	if o.JPEGQuality <= 0 || o.JPEGQuality > 100 {
		o.JPEGQuality = DefaultJPEGQuality
	}
	return o
}

// FromFile reads an image from disk and prepares it for upload. The absolute
// file URI becomes the image's cache key.
func FromFile(path string, opts Options) (model.Image, error) {
	if strings.TrimSpace(path) == "" {
		return model.Image{}, utils.WrapIfNotNil(model.ErrMissingImage)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return model.Image{}, utils.WrapIfNotNil(err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return model.Image{}, utils.WrapIfNotNil(fmt.Errorf("%w: %v", model.ErrMissingImage, err))
	}
	if info.Size() > maxSourceBytes {
		return model.Image{}, utils.WrapIfNotNil(fmt.Errorf("image %s is larger than %d bytes", absPath, maxSourceBytes))
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return model.Image{}, utils.WrapIfNotNil(err)
	}
	return FromBytes("file://"+absPath, data, opts)
}

// FromBytes decodes, downscales and re-encodes raw image bytes as JPEG.
func FromBytes(uri string, data []byte, opts Options) (model.Image, error) {
	if len(data) == 0 {
		return model.Image{}, utils.WrapIfNotNil(model.ErrMissingImage)
	}
	opts = opts.withDefaults()

	encoded, err := compressToJPEG(data, opts.MaxDimension, opts.JPEGQuality)
	if err != nil {
		return model.Image{}, utils.WrapIfNotNil(err)
	}

	dataURL := model.EncodeDataURL("image/jpeg", encoded)
	if strings.TrimSpace(uri) == "" {
		uri = dataURL
	}
	return model.Image{
		URI:      uri,
		DataURL:  dataURL,
		MIMEType: "image/jpeg",
		Data:     encoded,
	}, nil
}

// FromDataURL accepts an already encoded capture as-is; the data URL doubles as
// the cache key.
func FromDataURL(dataURL string) (model.Image, error) {
	mimeType, data, err := model.DecodeDataURL(dataURL)
	if err != nil {
		return model.Image{}, utils.WrapIfNotNil(fmt.Errorf("%w: %v", model.ErrMissingImage, err))
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return model.Image{}, utils.WrapIfNotNil(fmt.Errorf("data URL has non-image type %q", mimeType))
	}
	return model.Image{
		URI:      dataURL,
		DataURL:  dataURL,
		MIMEType: mimeType,
		Data:     data,
	}, nil
}

// SniffMIMEType reports the content type of raw image bytes.
func SniffMIMEType(data []byte) string {
	return http.DetectContentType(data)
}

func compressToJPEG(data []byte, maxDim int, quality int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image (%s): %w", SniffMIMEType(data), err)
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("invalid image bounds: %dx%d", w, h)
	}

	maxSide := max(w, h)
	if maxDim > 0 && maxSide > maxDim {
		scale := float64(maxDim) / float64(maxSide)
		nw := max(int(math.Round(float64(w)*scale)), 1)
		nh := max(int(math.Round(float64(h)*scale)), 1)

		dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
		img = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	if buf.Len() == 0 {
		return nil, errors.New("encoded image is empty")
	}
	return buf.Bytes(), nil
}
