package codec

import (
	"bytes"
	"errors"
	"image"
	"io"

	"github.com/gen2brain/heic"
)

func decodeHEIC(r io.Reader) (image.Image, error) {
	return heic.Decode(r)
}

// convertHEIC re-encodes a HEIC/HEIF still as JPEG at the primary quality.
func (c *Codec) convertHEIC(data []byte) ([]byte, error) {
	img, err := c.decodeHEIC(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if img == nil || img.Bounds().Empty() {
		return nil, errors.New("empty heic image")
	}
	b := img.Bounds()
	if b.Dx()*b.Dy() > c.opts.MaxPixels {
		return nil, ErrTooLarge
	}
	return c.encodeImage(img, c.opts.Quality)
}
