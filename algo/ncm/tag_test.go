package ncm

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/bogem/id3v2/v2"
	"github.com/go-flac/flacpicture"
	"github.com/go-flac/flacvorbis"
	flac "github.com/go-flac/go-flac"
)

var tagMeta = &Metadata{
	MusicName: "Test",
	Album:     "A",
	Artist:    []Artist{{Name: "X"}, {Name: "Y", ID: 1}},
}

func TestWriteTagsMp3CreatesTag(t *testing.T) {
	// bare frame-sync MP3 with no ID3 tag at all: the writer must create one
	path := filepath.Join(t.TempDir(), "bare.mp3")
	// longer than the 10-byte ID3 header the tag library reads to look for a tag
	payload := []byte{
		0xFF, 0xFB, 0x90, 0x00, 0x01, 0x02, 0x03, 0x04,
		0x05, 0x06, 0x07, 0x08, 0x09, 0x0A, 0x0B, 0x0C,
	}
	if err := os.WriteFile(path, payload, 0644); err != nil {
		t.Fatal(err)
	}

	jpegCover := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x10, 0x4A}
	if err := WriteTags(path, tagMeta, jpegCover); err != nil {
		t.Fatalf("WriteTags: %v", err)
	}

	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		t.Fatal(err)
	}
	defer tag.Close()

	if tag.Title() != "Test" || tag.Artist() != "X / Y" || tag.Album() != "A" {
		t.Errorf("tag fields = %q/%q/%q", tag.Title(), tag.Artist(), tag.Album())
	}
	pictures := tag.GetFrames(tag.CommonID("Attached picture"))
	if len(pictures) != 1 {
		t.Fatalf("got %d picture frames, want 1", len(pictures))
	}
	if pic := pictures[0].(id3v2.PictureFrame); pic.MimeType != "image/jpeg" {
		t.Errorf("picture mime = %q, want image/jpeg", pic.MimeType)
	}
}

func TestWriteTagsFlac(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bare.flac")
	// the flac parser expects frame data after the metadata blocks, starting
	// with the frame sync code
	audio := append(flacAudio(), 0xFF, 0xF8, 0xC9, 0x18, 0x00, 0x00)
	if err := os.WriteFile(path, audio, 0644); err != nil {
		t.Fatal(err)
	}

	// a decodable image: the flac picture block is built from the image data
	var pngBuf bytes.Buffer
	if err := png.Encode(&pngBuf, image.NewGray(image.Rect(0, 0, 1, 1))); err != nil {
		t.Fatal(err)
	}
	pngCover := pngBuf.Bytes()
	if err := WriteTags(path, tagMeta, pngCover); err != nil {
		t.Fatalf("WriteTags: %v", err)
	}

	file, err := flac.ParseFile(path)
	if err != nil {
		t.Fatalf("reparse flac: %v", err)
	}

	var comments *flacvorbis.MetaDataBlockVorbisComment
	var picture *flacpicture.MetadataBlockPicture
	for _, block := range file.Meta {
		switch block.Type {
		case flac.VorbisComment:
			comments, err = flacvorbis.ParseFromMetaDataBlock(*block)
			if err != nil {
				t.Fatal(err)
			}
		case flac.Picture:
			picture, err = flacpicture.ParseFromMetaDataBlock(*block)
			if err != nil {
				t.Fatal(err)
			}
		}
	}

	if comments == nil {
		t.Fatal("no vorbis comment block written")
	}
	assertVorbisField(t, comments, flacvorbis.FIELD_TITLE, "Test")
	assertVorbisField(t, comments, flacvorbis.FIELD_ARTIST, "X / Y")
	assertVorbisField(t, comments, flacvorbis.FIELD_ALBUM, "A")

	if picture == nil {
		t.Fatal("no picture block written")
	}
	if picture.MIME != "image/png" {
		t.Errorf("picture mime = %q, want image/png", picture.MIME)
	}
	if picture.PictureType != flacpicture.PictureTypeFrontCover {
		t.Errorf("picture type = %d, want front cover", picture.PictureType)
	}
	if !bytes.Equal(picture.ImageData, pngCover) {
		t.Error("picture bytes do not round-trip")
	}
}

func TestWriteTagsMissingFile(t *testing.T) {
	err := WriteTags(filepath.Join(t.TempDir(), "gone.mp3"), tagMeta, nil)
	if !IsTagError(err) {
		t.Errorf("want a tag error, got %v", err)
	}
}

func assertVorbisField(t *testing.T, comments *flacvorbis.MetaDataBlockVorbisComment, field, want string) {
	t.Helper()
	values, err := comments.Get(field)
	if err != nil {
		t.Fatalf("get %s: %v", field, err)
	}
	if len(values) != 1 || values[0] != want {
		t.Errorf("%s = %v, want [%s]", field, values, want)
	}
}
