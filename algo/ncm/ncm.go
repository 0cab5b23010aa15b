package ncm

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"io"

	"ncmdump.dev/cli/internal/pool"
	"ncmdump.dev/cli/internal/sniff"
)

// magicHeader is the NCM container magic, "CTENFDAM".
var magicHeader = []byte{0x43, 0x54, 0x45, 0x4E, 0x46, 0x44, 0x41, 0x4D}

const (
	keyPrefixLen  = 17 // "neteasecloudmusic"
	metaPrefixLen = 22 // "163 key(Don't modify):"

	dumpBufferSize = 0x8000
)

// Format is the audio container wrapped inside an NCM file.
type Format int

const (
	Mp3 Format = iota
	Flac
)

// Extension returns the output file extension without the dot.
func (f Format) Extension() string {
	if f == Flac {
		return "flac"
	}
	return "mp3"
}

func (f Format) String() string { return f.Extension() }

// File is a parsed NCM container. All fields are plain values owned by the
// caller; nothing refers back to the reader Parse consumed.
type File struct {
	KeyBox      [256]byte // RC4 S-box, immutable after the key schedule
	AudioOffset uint64    // absolute position of the encrypted audio payload
	Format      Format
	Metadata    *Metadata // nil when the metadata section is empty
	Cover       []byte    // nil when no cover image is embedded

	stream [256]byte // flattened keystream period, built lazily
}

// Parse consumes the NCM container layout from r: magic, version gap, the
// AES-wrapped RC4 key, the wrapped metadata JSON, the CRC/imgver gap and the
// cover frame. It records where the audio payload starts and sniffs the real
// container from the first three decrypted bytes, leaving r three bytes past
// AudioOffset.
func Parse(r io.ReadSeeker) (*File, error) {
	header := make([]byte, 8)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, wrapIO("ncm: read magic", err)
	}
	if !bytes.Equal(header, magicHeader) {
		return nil, ErrInvalidMagic
	}

	// two-byte format version, unused
	if _, err := r.Seek(2, io.SeekCurrent); err != nil {
		return nil, wrapIO("ncm: skip version", err)
	}

	f := &File{}

	// RC4 key section: u32le length, xor-masked AES-ECB ciphertext
	keyLen, err := readUint32(r, "key length")
	if err != nil {
		return nil, err
	}
	keyData := make([]byte, keyLen)
	if _, err := io.ReadFull(r, keyData); err != nil {
		return nil, wrapIO("ncm: read key", err)
	}
	for i := range keyData {
		keyData[i] ^= 0x64
	}
	keyPlain, err := aes128ECBDecrypt(coreKey, keyData)
	if err != nil {
		return nil, err
	}
	if len(keyPlain) <= keyPrefixLen {
		return nil, newError(KindDecrypt, "ncm: rc4 key shorter than its prefix", nil)
	}
	f.KeyBox = buildKeyBox(keyPlain[keyPrefixLen:])
	f.stream = buildKeyStream(&f.KeyBox)

	// metadata section, may be empty
	metaLen, err := readUint32(r, "metadata length")
	if err != nil {
		return nil, err
	}
	if metaLen > 0 {
		metaData := make([]byte, metaLen)
		if _, err := io.ReadFull(r, metaData); err != nil {
			return nil, wrapIO("ncm: read metadata", err)
		}
		for i := range metaData {
			metaData[i] ^= 0x63
		}
		if len(metaData) <= metaPrefixLen {
			return nil, newError(KindDecrypt, "ncm: metadata shorter than its prefix", nil)
		}
		decoded, err := base64.StdEncoding.DecodeString(string(metaData[metaPrefixLen:]))
		if err != nil {
			return nil, newError(KindBase64, "ncm: decode metadata base64", err)
		}
		metaPlain, err := aes128ECBDecrypt(modifyKey, decoded)
		if err != nil {
			return nil, err
		}
		f.Metadata, err = ParseMetadata(metaPlain)
		if err != nil {
			return nil, err
		}
	}

	// 4-byte CRC of the key section plus the image version byte, both unused
	if _, err := r.Seek(5, io.SeekCurrent); err != nil {
		return nil, wrapIO("ncm: skip crc", err)
	}

	// cover frame: reserved length, image size, image, trailing padding
	frameLen, err := readUint32(r, "cover frame length")
	if err != nil {
		return nil, err
	}
	imageSize, err := readUint32(r, "cover size")
	if err != nil {
		return nil, err
	}
	if imageSize > 0 {
		f.Cover = make([]byte, imageSize)
		if _, err := io.ReadFull(r, f.Cover); err != nil {
			return nil, wrapIO("ncm: read cover", err)
		}
		// frames have been seen declaring less than the image size; never rewind
		if pad := int64(frameLen) - int64(imageSize); pad > 0 {
			if _, err := r.Seek(pad, io.SeekCurrent); err != nil {
				return nil, wrapIO("ncm: skip cover padding", err)
			}
		}
	} else if frameLen > 0 {
		if _, err := r.Seek(int64(frameLen), io.SeekCurrent); err != nil {
			return nil, wrapIO("ncm: skip cover frame", err)
		}
	}

	pos, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, wrapIO("ncm: locate audio", err)
	}
	f.AudioOffset = uint64(pos)

	// the metadata format field lies often enough that the container is
	// decided from the decrypted audio header alone
	var sniffBuf [3]byte
	if _, err := io.ReadFull(r, sniffBuf[:]); err != nil {
		return nil, wrapIO("ncm: read audio header", err)
	}
	for i := range sniffBuf {
		sniffBuf[i] ^= f.stream[i]
	}
	if sniff.IsID3(sniffBuf[:]) {
		f.Format = Mp3
	} else {
		f.Format = Flac
	}

	return f, nil
}

// DumpAudio seeks r to the audio payload and streams the decrypted bytes into
// w. The working buffer is pooled, so memory use is constant in the audio
// size; the keystream is addressed by absolute position, so the sizes of the
// reads taken from r cannot change the output. w is expected to be buffered
// by the caller.
func (f *File) DumpAudio(r io.ReadSeeker, w io.Writer) error {
	if _, err := r.Seek(int64(f.AudioOffset), io.SeekStart); err != nil {
		return wrapIO("ncm: seek audio", err)
	}

	// 使用内存池获取解密缓冲区
	buf := pool.GetBuffer(dumpBufferSize)
	defer pool.PutBuffer(buf)

	offset := 0
	for {
		n, err := r.Read(buf)
		if n > 0 {
			f.Decrypt(buf[:n], offset)
			if _, werr := w.Write(buf[:n]); werr != nil {
				return wrapIO("ncm: write audio", werr)
			}
			offset += n
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return wrapIO("ncm: read audio", err)
		}
	}
}

// Decrypt XORs buf in place against the keystream starting at the given
// absolute audio offset.
func (f *File) Decrypt(buf []byte, offset int) {
	stream := f.keyStream()
	for i := range buf {
		buf[i] ^= stream[(offset+i)&0xff]
	}
}

var zeroStream [256]byte

// keyStream returns the flattened keystream, building it on first use for
// File values assembled from parts instead of Parse. A permutation box cannot
// produce an all-zero stream, so the zero value is a safe "unbuilt" marker.
func (f *File) keyStream() *[256]byte {
	if f.stream == zeroStream {
		f.stream = buildKeyStream(&f.KeyBox)
	}
	return &f.stream
}

func readUint32(r io.Reader, what string) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, wrapIO("ncm: read "+what, err)
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}
