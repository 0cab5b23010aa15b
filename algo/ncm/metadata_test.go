package ncm

import (
	"testing"
)

func TestParseMetadata(t *testing.T) {
	tests := []struct {
		name        string
		data        string
		wantName    string
		wantAlbum   string
		wantArtists string
		wantBitrate uint64
	}{
		{
			name:        "full record",
			data:        `{"musicName":"Test","album":"A","artist":[["X",0],["Y",1]],"bitrate":320000,"duration":240000,"format":"mp3"}`,
			wantName:    "Test",
			wantAlbum:   "A",
			wantArtists: "X / Y",
			wantBitrate: 320000,
		},
		{
			name:        "music prefix is stripped",
			data:        `music:{"musicName":"晴天","album":"叶惠美","artist":[["周杰伦",6452]],"bitrate":128000,"duration":269000,"format":"flac"}`,
			wantName:    "晴天",
			wantAlbum:   "叶惠美",
			wantArtists: "周杰伦",
			wantBitrate: 128000,
		},
		{
			name:        "empty artist list",
			data:        `{"musicName":"X","album":"A","artist":[],"bitrate":0,"duration":0,"format":"mp3"}`,
			wantName:    "X",
			wantAlbum:   "A",
			wantArtists: "",
		},
		{
			name:        "malformed artist entries are skipped",
			data:        `{"musicName":"X","album":"A","artist":[["Good",1],[123],[],["Also good"]],"bitrate":0,"duration":0}`,
			wantName:    "X",
			wantAlbum:   "A",
			wantArtists: "Good / Also good",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta, err := ParseMetadata([]byte(tt.data))
			if err != nil {
				t.Fatalf("ParseMetadata: %v", err)
			}
			if meta.MusicName != tt.wantName {
				t.Errorf("MusicName = %q, want %q", meta.MusicName, tt.wantName)
			}
			if meta.Album != tt.wantAlbum {
				t.Errorf("Album = %q, want %q", meta.Album, tt.wantAlbum)
			}
			if got := meta.ArtistNames(); got != tt.wantArtists {
				t.Errorf("ArtistNames() = %q, want %q", got, tt.wantArtists)
			}
			if meta.Bitrate != tt.wantBitrate {
				t.Errorf("Bitrate = %d, want %d", meta.Bitrate, tt.wantBitrate)
			}
		})
	}
}

func TestParseMetadataInvalidJSON(t *testing.T) {
	for _, data := range []string{"", "music:", "{not json", `["array" "without" commas]`} {
		if _, err := ParseMetadata([]byte(data)); !IsKind(err, KindJSON) {
			t.Errorf("ParseMetadata(%q): want a json error, got %v", data, err)
		}
	}
}

func TestArtistIDsPreserved(t *testing.T) {
	meta, err := ParseMetadata([]byte(`{"musicName":"X","artist":[["A",42],["B",7]]}`))
	if err != nil {
		t.Fatal(err)
	}
	if len(meta.Artist) != 2 || meta.Artist[0].ID != 42 || meta.Artist[1].ID != 7 {
		t.Errorf("artist ids not preserved: %+v", meta.Artist)
	}
}
