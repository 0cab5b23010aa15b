package ncm

import (
	"io"
	"os"

	"github.com/bogem/id3v2/v2"
	"github.com/go-flac/flacpicture"
	"github.com/go-flac/flacvorbis"
	flac "github.com/go-flac/go-flac"

	"ncmdump.dev/cli/internal/sniff"
)

// WriteTags embeds the metadata, and the cover art when given, into the audio
// file at path. The container decides the tag flavor: ID3v2 for MP3, Vorbis
// comments for FLAC. Failures here are KindTag and never invalidate the
// already-written audio.
func WriteTags(path string, meta *Metadata, cover []byte) error {
	header, err := readFileHeader(path, 4)
	if err != nil {
		return newError(KindTag, "ncm: open audio for tagging", err)
	}
	if sniff.IsFLAC(header) {
		return writeFlacTags(path, meta, cover)
	}
	return writeID3Tags(path, meta, cover)
}

func writeID3Tags(path string, meta *Metadata, cover []byte) error {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return newError(KindTag, "ncm: open id3 tag", err)
	}
	defer tag.Close()

	tag.SetDefaultEncoding(id3v2.EncodingUTF8)
	tag.SetTitle(meta.MusicName)
	tag.SetArtist(meta.ArtistNames())
	tag.SetAlbum(meta.Album)

	if len(cover) > 0 {
		tag.AddAttachedPicture(id3v2.PictureFrame{
			Encoding:    id3v2.EncodingUTF8,
			MimeType:    sniff.ImageMIME(cover),
			PictureType: id3v2.PTFrontCover,
			Picture:     cover,
		})
	}

	if err := tag.Save(); err != nil {
		return newError(KindTag, "ncm: save id3 tag", err)
	}
	return nil
}

func writeFlacTags(path string, meta *Metadata, cover []byte) error {
	file, err := flac.ParseFile(path)
	if err != nil {
		return newError(KindTag, "ncm: parse flac", err)
	}

	if len(cover) > 0 {
		pic, err := flacpicture.NewFromImageData(
			flacpicture.PictureTypeFrontCover, "", cover, sniff.ImageMIME(cover))
		if err != nil {
			return newError(KindTag, "ncm: build flac picture", err)
		}
		picBlock := pic.Marshal()
		file.Meta = append(file.Meta, &picBlock)
	}

	var comments *flacvorbis.MetaDataBlockVorbisComment
	commentIdx := -1
	for idx, block := range file.Meta {
		if block.Type == flac.VorbisComment {
			comments, err = flacvorbis.ParseFromMetaDataBlock(*block)
			if err != nil {
				return newError(KindTag, "ncm: parse vorbis comment", err)
			}
			commentIdx = idx
			break
		}
	}
	if comments == nil {
		comments = flacvorbis.New()
	}

	_ = comments.Add(flacvorbis.FIELD_TITLE, meta.MusicName)
	_ = comments.Add(flacvorbis.FIELD_ARTIST, meta.ArtistNames())
	_ = comments.Add(flacvorbis.FIELD_ALBUM, meta.Album)

	commentBlock := comments.Marshal()
	if commentIdx >= 0 {
		file.Meta[commentIdx] = &commentBlock
	} else {
		file.Meta = append(file.Meta, &commentBlock)
	}

	if err := file.Save(path); err != nil {
		return newError(KindTag, "ncm: save flac", err)
	}
	return nil
}

func readFileHeader(path string, n int) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	header := make([]byte, n)
	read, err := io.ReadFull(file, header)
	if err != nil && err != io.ErrUnexpectedEOF {
		return nil, err
	}
	return header[:read], nil
}
