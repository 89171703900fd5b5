// Package codec normalizes uploaded photos: HEIC/HEIF is converted to JPEG,
// the stored image is bounded to a maximum edge and re-encoded, and a square
// thumbnail is cut from the result.
//
// Only decoding and HEIC conversion are hard failures. Compression and
// thumbnail failures degrade to the original bytes and a missing thumbnail.
package codec

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"time"

	"github.com/disintegration/imaging"

	// Register additional decoders with the image package.
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"travellog/internal/metrics"
	"travellog/pkg/logger"
	"travellog/pkg/utils"
)

var (
	ErrEmpty             = errors.New("empty image payload")
	ErrUnsupportedFormat = errors.New("unsupported image format")
	ErrCorrupt           = errors.New("corrupt image data")
	ErrTooLarge          = errors.New("image dimensions exceed the allowed pixel count")
	ErrHEICConversion    = errors.New("heic conversion failed")
)

type Options struct {
	MaxEdge          int
	Quality          int
	ThumbnailSize    int
	ThumbnailQuality int
	MaxPixels        int
}

func DefaultOptions() Options {
	return Options{
		MaxEdge:          800,
		Quality:          85,
		ThumbnailSize:    100,
		ThumbnailQuality: 70,
		MaxPixels:        80_000_000,
	}
}

// Input is an uploaded file. DeclaredType and Filename come from the client
// and are only used as hints for HEIC detection.
type Input struct {
	Data         []byte
	DeclaredType string
	Filename     string
}

type Result struct {
	Primary     []byte
	PrimaryType string
	Thumbnail   []byte // nil when generation failed
	Width       int
	Height      int
	Compressed  bool // false when Primary holds the original bytes
}

type encodeFunc func(w io.Writer, img image.Image, quality int) error

type Codec struct {
	opts       Options
	encode     encodeFunc
	decodeHEIC func(r io.Reader) (image.Image, error)
}

func New(opts Options) *Codec {
	def := DefaultOptions()
	if opts.MaxEdge <= 0 {
		opts.MaxEdge = def.MaxEdge
	}
	if opts.Quality <= 0 {
		opts.Quality = def.Quality
	}
	if opts.ThumbnailSize <= 0 {
		opts.ThumbnailSize = def.ThumbnailSize
	}
	if opts.ThumbnailQuality <= 0 {
		opts.ThumbnailQuality = def.ThumbnailQuality
	}
	if opts.MaxPixels <= 0 {
		opts.MaxPixels = def.MaxPixels
	}
	return &Codec{
		opts:       opts,
		encode:     encodeJPEG,
		decodeHEIC: decodeHEIC,
	}
}

func (c *Codec) Options() Options {
	return c.opts
}

// Process runs the full pipeline on an upload.
func (c *Codec) Process(in Input) (*Result, error) {
	defer metrics.ObserveCodec("process", time.Now())

	if len(in.Data) == 0 {
		return nil, ErrEmpty
	}

	data := in.Data
	originalType := utils.DetectImageType(data)

	// The client's type and filename only decide when sniffing found no image.
	heic := utils.IsHEIF(data) ||
		(!utils.IsImageType(originalType) && utils.IsHEIFName(in.DeclaredType, in.Filename))
	if heic {
		converted, err := c.convertHEIC(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrHEICConversion, err)
		}
		data = converted
		originalType = "image/jpeg"
	}

	img, format, err := c.decode(data)
	if err != nil {
		return nil, err
	}
	if !utils.IsImageType(originalType) {
		originalType = "image/" + format
	}

	res := &Result{}
	base := img

	resized := imaging.Fit(img, c.opts.MaxEdge, c.opts.MaxEdge, imaging.Lanczos)
	primary, err := c.encodeImage(resized, c.opts.Quality)
	if err != nil {
		logger.LogWarn("Codec: compression failed, keeping original bytes (%s, %s): %v", originalType, utils.FormatBytes(int64(len(data))), err)
		metrics.CodecFallbacks.WithLabelValues("compress").Inc()
		res.Primary = data
		res.PrimaryType = originalType
	} else {
		res.Primary = primary
		res.PrimaryType = "image/jpeg"
		res.Compressed = true
		base = resized
	}
	res.Width, res.Height = base.Bounds().Dx(), base.Bounds().Dy()

	thumb, err := c.thumbnailFrom(base)
	if err != nil {
		logger.LogWarn("Codec: thumbnail generation failed: %v", err)
		metrics.CodecFallbacks.WithLabelValues("thumbnail").Inc()
	} else {
		res.Thumbnail = thumb
	}

	return res, nil
}

// Thumbnail derives a thumbnail from an already stored image.
func (c *Codec) Thumbnail(data []byte) ([]byte, error) {
	defer metrics.ObserveCodec("thumbnail", time.Now())

	if len(data) == 0 {
		return nil, ErrEmpty
	}
	img, _, err := c.decode(data)
	if err != nil {
		return nil, err
	}
	return c.thumbnailFrom(img)
}

func (c *Codec) decode(data []byte) (image.Image, string, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, "", ErrUnsupportedFormat
		}
		return nil, "", fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, "", ErrCorrupt
	}
	if cfg.Width*cfg.Height > c.opts.MaxPixels {
		return nil, "", fmt.Errorf("%w (%dx%d)", ErrTooLarge, cfg.Width, cfg.Height)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return img, format, nil
}

func (c *Codec) thumbnailFrom(img image.Image) ([]byte, error) {
	size := c.opts.ThumbnailSize
	thumb := imaging.Fill(img, size, size, imaging.Center, imaging.Lanczos)
	return c.encodeImage(thumb, c.opts.ThumbnailQuality)
}

func (c *Codec) encodeImage(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.encode(&buf, flatten(img), quality); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// flatten composites translucent images onto white, since JPEG has no alpha.
func flatten(img image.Image) image.Image {
	if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
		return img
	}
	b := img.Bounds()
	bg := imaging.New(b.Dx(), b.Dy(), color.White)
	return imaging.Overlay(bg, img, image.Pt(0, 0), 1.0)
}

func encodeJPEG(w io.Writer, img image.Image, quality int) error {
	return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(quality))
}
