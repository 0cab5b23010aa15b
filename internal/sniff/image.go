package sniff

import "bytes"

var pngMagic = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

// ImageMIME returns the MIME type for embedded cover art. Anything that is
// not PNG is reported as JPEG, matching what the NCM container ships.
func ImageMIME(data []byte) string {
	if bytes.HasPrefix(data, pngMagic) {
		return "image/png"
	}
	return "image/jpeg"
}
