package utils

import (
	"bytes"
	"net/http"
	"path/filepath"
	"strings"
)

// heifBrands are the ISO-BMFF major brands used by HEIC/HEIF stills.
var heifBrands = [][]byte{
	[]byte("heic"), []byte("heix"), []byte("hevc"), []byte("hevx"),
	[]byte("heim"), []byte("heis"), []byte("mif1"), []byte("msf1"),
}

// IsHEIF checks the ftyp box at the start of data for a HEIF brand.
func IsHEIF(data []byte) bool {
	if len(data) < 12 || !bytes.Equal(data[4:8], []byte("ftyp")) {
		return false
	}
	brand := data[8:12]
	for _, b := range heifBrands {
		if bytes.Equal(brand, b) {
			return true
		}
	}
	return false
}

// IsHEIFName reports whether the declared type or file extension names HEIC/HEIF.
func IsHEIFName(declaredType, filename string) bool {
	switch strings.ToLower(strings.TrimSpace(declaredType)) {
	case "image/heic", "image/heif", "image/heic-sequence", "image/heif-sequence":
		return true
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".heic", ".heif":
		return true
	}
	return false
}

// DetectImageType sniffs the content type of data. HEIF content is reported
// as image/heic, anything else as reported by http.DetectContentType.
func DetectImageType(data []byte) string {
	if IsHEIF(data) {
		return "image/heic"
	}
	ct := http.DetectContentType(data)
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return ct
}

// IsImageType reports whether a sniffed type is an image/* type.
func IsImageType(contentType string) bool {
	return strings.HasPrefix(contentType, "image/")
}
