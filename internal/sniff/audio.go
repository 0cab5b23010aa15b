package sniff

import "bytes"

// NCM payloads are only ever MP3 or FLAC, so the audio side of this package
// is just the two header checks the decoder and tag writer need.

// IsFLAC reports whether header starts a FLAC stream.
// ref: https://xiph.org/flac/format.html
func IsFLAC(header []byte) bool {
	return bytes.HasPrefix(header, []byte("fLaC"))
}

// IsID3 reports whether header starts an ID3v2-tagged MP3 stream.
func IsID3(header []byte) bool {
	return bytes.HasPrefix(header, []byte("ID3"))
}
