package ncm

import (
	"strings"

	"github.com/samber/lo"
	"github.com/tidwall/gjson"
)

// Artist is one (name, id) pair from the metadata artist list. Only the name
// reaches the written tags; the id is carried for callers that want it.
type Artist struct {
	Name string
	ID   int64
}

// Metadata is the typed record decrypted from the metadata section.
//
// Format mirrors the JSON field of the same name and is informational only:
// mislabeled files exist in the wild, so the real container is always decided
// from the decrypted audio header, never from here.
type Metadata struct {
	MusicName string
	Album     string
	Artist    []Artist
	Bitrate   uint64
	Duration  uint64
	Format    string
	AlbumPic  string // remote album picture URL, used when no cover is embedded
}

const musicPrefix = "music:"

// ParseMetadata parses the decrypted metadata payload. A leading "music:"
// prefix is stripped when present; the prefix is always there in practice but
// verifying costs nothing.
func ParseMetadata(data []byte) (*Metadata, error) {
	if len(data) >= len(musicPrefix) && string(data[:len(musicPrefix)]) == musicPrefix {
		data = data[len(musicPrefix):]
	}
	if !gjson.ValidBytes(data) {
		return nil, newError(KindJSON, "ncm: metadata is not valid json", nil)
	}
	root := gjson.ParseBytes(data)

	meta := &Metadata{
		MusicName: root.Get("musicName").String(),
		Album:     root.Get("album").String(),
		Bitrate:   root.Get("bitrate").Uint(),
		Duration:  root.Get("duration").Uint(),
		Format:    root.Get("format").String(),
		AlbumPic:  root.Get("albumPic").String(),
	}

	for _, entry := range root.Get("artist").Array() {
		pair := entry.Array()
		if len(pair) == 0 || pair[0].Type != gjson.String {
			continue // entries without a name string are skipped
		}
		artist := Artist{Name: pair[0].String()}
		if len(pair) > 1 {
			artist.ID = pair[1].Int()
		}
		meta.Artist = append(meta.Artist, artist)
	}

	return meta, nil
}

// ArtistNames joins the artist names with " / " the way the official client
// renders them.
func (m *Metadata) ArtistNames() string {
	names := lo.FilterMap(m.Artist, func(a Artist, _ int) (string, bool) {
		return a.Name, a.Name != ""
	})
	return strings.Join(names, " / ")
}
