package utils

import "testing"

func TestIsHEIF(t *testing.T) {
	heic := append([]byte{0, 0, 0, 24}, []byte("ftypheic\x00\x00\x00\x00mif1heic")...)
	if !IsHEIF(heic) {
		t.Error("expected heic brand to be detected")
	}
	mp4 := append([]byte{0, 0, 0, 24}, []byte("ftypisom\x00\x00\x00\x00")...)
	if IsHEIF(mp4) {
		t.Error("mp4 must not be detected as HEIF")
	}
	if IsHEIF([]byte("short")) {
		t.Error("short input must not be detected as HEIF")
	}
}

func TestIsHEIFName(t *testing.T) {
	if !IsHEIFName("", "IMG_0001.HEIC") {
		t.Error("expected .HEIC extension to match")
	}
	if !IsHEIFName("image/heif", "photo") {
		t.Error("expected image/heif to match")
	}
	if IsHEIFName("image/jpeg", "photo.jpg") {
		t.Error("jpeg must not match")
	}
}

func TestDetectImageType(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	if got := DetectImageType(png); got != "image/png" {
		t.Errorf("DetectImageType(png) = %q", got)
	}
	if got := DetectImageType([]byte("hello world")); IsImageType(got) {
		t.Errorf("plain text detected as image: %q", got)
	}
}
