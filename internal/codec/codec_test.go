package codec

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"testing"
)

func makeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y += 7 {
		for x := 0; x < w; x += 7 {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), 120, 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return buf.Bytes()
}

func makePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	img.Set(1, 1, color.NRGBA{255, 0, 0, 128})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return buf.Bytes()
}

func dims(t *testing.T, data []byte) (int, int) {
	t.Helper()
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	return cfg.Width, cfg.Height
}

func TestProcessResizesLargeImage(t *testing.T) {
	c := New(DefaultOptions())

	res, err := c.Process(Input{Data: makeJPEG(t, 3000, 2000), DeclaredType: "image/jpeg", Filename: "big.jpg"})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if res.PrimaryType != "image/jpeg" || !res.Compressed {
		t.Errorf("PrimaryType = %q, Compressed = %v", res.PrimaryType, res.Compressed)
	}
	w, h := dims(t, res.Primary)
	if max(w, h) != 800 {
		t.Errorf("primary = %dx%d, want longer edge 800", w, h)
	}
	if h < 532 || h > 534 {
		t.Errorf("primary height = %d, want aspect ratio preserved (~533)", h)
	}
	if res.Width != w || res.Height != h {
		t.Errorf("Result dims = %dx%d, encoded %dx%d", res.Width, res.Height, w, h)
	}

	if res.Thumbnail == nil {
		t.Fatal("expected thumbnail")
	}
	tw, th := dims(t, res.Thumbnail)
	if tw != 100 || th != 100 {
		t.Errorf("thumbnail = %dx%d, want 100x100", tw, th)
	}
}

func TestProcessDoesNotUpscale(t *testing.T) {
	c := New(DefaultOptions())

	res, err := c.Process(Input{Data: makeJPEG(t, 400, 300)})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	w, h := dims(t, res.Primary)
	if w != 400 || h != 300 {
		t.Errorf("primary = %dx%d, want 400x300", w, h)
	}
}

func TestProcessConvertsPNGToJPEG(t *testing.T) {
	c := New(DefaultOptions())

	res, err := c.Process(Input{Data: makePNG(t, 50, 40), DeclaredType: "image/png"})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if res.PrimaryType != "image/jpeg" {
		t.Errorf("PrimaryType = %q", res.PrimaryType)
	}
	if _, err := jpeg.Decode(bytes.NewReader(res.Primary)); err != nil {
		t.Errorf("primary is not a JPEG: %v", err)
	}
}

func TestProcessRejectsNonImage(t *testing.T) {
	c := New(DefaultOptions())

	_, err := c.Process(Input{Data: []byte("definitely not an image"), DeclaredType: "image/jpeg"})
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("error = %v, want ErrUnsupportedFormat", err)
	}

	if _, err := c.Process(Input{}); !errors.Is(err, ErrEmpty) {
		t.Fatalf("error = %v, want ErrEmpty", err)
	}
}

func TestProcessRejectsTruncatedImage(t *testing.T) {
	c := New(DefaultOptions())
	data := makeJPEG(t, 300, 300)

	_, err := c.Process(Input{Data: data[:len(data)/3]})
	if !errors.Is(err, ErrCorrupt) {
		t.Fatalf("error = %v, want ErrCorrupt", err)
	}
}

func TestProcessRejectsOversizedDimensions(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxPixels = 100 * 100
	c := New(opts)

	_, err := c.Process(Input{Data: makeJPEG(t, 200, 200)})
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("error = %v, want ErrTooLarge", err)
	}
}

func TestProcessFallsBackWhenCompressionFails(t *testing.T) {
	c := New(DefaultOptions())
	c.encode = func(w io.Writer, img image.Image, quality int) error {
		if quality == c.opts.Quality {
			return errors.New("encoder exploded")
		}
		return encodeJPEG(w, img, quality)
	}

	original := makeJPEG(t, 1200, 900)
	res, err := c.Process(Input{Data: original})
	if err != nil {
		t.Fatalf("Process() error = %v, want soft fallback", err)
	}
	if res.Compressed {
		t.Error("Compressed = true, want false")
	}
	if !bytes.Equal(res.Primary, original) {
		t.Error("primary should be the original bytes")
	}
	if res.PrimaryType != "image/jpeg" {
		t.Errorf("PrimaryType = %q", res.PrimaryType)
	}
	if res.Thumbnail == nil {
		t.Error("thumbnail should still be produced from the original")
	}
}

func TestProcessToleratesThumbnailFailure(t *testing.T) {
	c := New(DefaultOptions())
	c.encode = func(w io.Writer, img image.Image, quality int) error {
		if quality == c.opts.ThumbnailQuality {
			return errors.New("thumbnail encoder exploded")
		}
		return encodeJPEG(w, img, quality)
	}

	res, err := c.Process(Input{Data: makeJPEG(t, 640, 480)})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if res.Thumbnail != nil {
		t.Error("Thumbnail should be nil")
	}
	if !res.Compressed {
		t.Error("primary should still be compressed")
	}
}

func heifHeader() []byte {
	return append([]byte{0, 0, 0, 24}, []byte("ftypheic\x00\x00\x00\x00mif1heic")...)
}

func TestProcessConvertsHEIC(t *testing.T) {
	c := New(DefaultOptions())
	c.decodeHEIC = func(r io.Reader) (image.Image, error) {
		return image.NewRGBA(image.Rect(0, 0, 1600, 1200)), nil
	}

	res, err := c.Process(Input{Data: heifHeader(), DeclaredType: "application/octet-stream", Filename: "IMG_0042.HEIC"})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if res.PrimaryType != "image/jpeg" {
		t.Errorf("PrimaryType = %q", res.PrimaryType)
	}
	w, h := dims(t, res.Primary)
	if w != 800 || h != 600 {
		t.Errorf("primary = %dx%d, want 800x600", w, h)
	}
}

func TestProcessHEICFailureIsHard(t *testing.T) {
	c := New(DefaultOptions())
	c.decodeHEIC = func(r io.Reader) (image.Image, error) {
		return nil, errors.New("bad hevc stream")
	}

	_, err := c.Process(Input{Data: heifHeader(), Filename: "broken.heic"})
	if !errors.Is(err, ErrHEICConversion) {
		t.Fatalf("error = %v, want ErrHEICConversion", err)
	}
}

func TestProcessIgnoresHEICHintForSniffedImages(t *testing.T) {
	c := New(DefaultOptions())
	c.decodeHEIC = func(r io.Reader) (image.Image, error) {
		t.Error("HEIC decoder called for a JPEG/PNG payload")
		return nil, errors.New("not heic")
	}

	inputs := []Input{
		{Data: makeJPEG(t, 640, 480), DeclaredType: "image/heic", Filename: "IMG_1234.heic"},
		{Data: makePNG(t, 40, 30), DeclaredType: "image/heif", Filename: "scan.HEIF"},
	}
	for _, in := range inputs {
		res, err := c.Process(in)
		if err != nil {
			t.Fatalf("Process(%s) error = %v", in.Filename, err)
		}
		if res.PrimaryType != "image/jpeg" {
			t.Errorf("Process(%s) PrimaryType = %q", in.Filename, res.PrimaryType)
		}
	}
}

func TestThumbnailFromStoredImage(t *testing.T) {
	c := New(DefaultOptions())

	thumb, err := c.Thumbnail(makeJPEG(t, 800, 533))
	if err != nil {
		t.Fatalf("Thumbnail() error = %v", err)
	}
	w, h := dims(t, thumb)
	if w != 100 || h != 100 {
		t.Errorf("thumbnail = %dx%d", w, h)
	}

	if _, err := c.Thumbnail(nil); !errors.Is(err, ErrEmpty) {
		t.Errorf("Thumbnail(nil) error = %v", err)
	}
}
