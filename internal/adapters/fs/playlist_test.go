package fs

import (
	"strings"
	"testing"
	"time"
)

const livePlaylist = `#EXTM3U
#EXT-X-VERSION:3
#EXT-X-TARGETDURATION:2
#EXT-X-MEDIA-SEQUENCE:17
#EXTINF:2.000000,
segment_017.ts
#EXTINF:2.000000,
segment_018.ts
#EXTINF:1.966667,
segment_019.ts
`

func TestParsePlaylist_Live(t *testing.T) {
	pl, err := ParsePlaylist(strings.NewReader(livePlaylist))
	if err != nil {
		t.Fatalf("ParsePlaylist: %v", err)
	}

	if pl.TargetDuration != 2*time.Second {
		t.Errorf("TargetDuration = %v, want 2s", pl.TargetDuration)
	}
	if pl.MediaSequence != 17 {
		t.Errorf("MediaSequence = %d, want 17", pl.MediaSequence)
	}
	if len(pl.Segments) != 3 {
		t.Fatalf("len(Segments) = %d, want 3", len(pl.Segments))
	}
	if pl.Segments[0].URI != "segment_017.ts" {
		t.Errorf("first segment = %q", pl.Segments[0].URI)
	}
	last, ok := pl.LastSegment()
	if !ok || last.URI != "segment_019.ts" {
		t.Errorf("LastSegment = %+v, %v", last, ok)
	}
	if pl.Ended {
		t.Error("Ended = true for a live playlist")
	}

	window := pl.Window()
	if window < 5960*time.Millisecond || window > 5970*time.Millisecond {
		t.Errorf("Window = %v, want ~5.967s", window)
	}
}

func TestParsePlaylist_Ended(t *testing.T) {
	pl, err := ParsePlaylist(strings.NewReader(livePlaylist + "#EXT-X-ENDLIST\n"))
	if err != nil {
		t.Fatalf("ParsePlaylist: %v", err)
	}
	if !pl.Ended {
		t.Error("Ended = false, want true")
	}
}

func TestParsePlaylist_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"missing header", "#EXT-X-TARGETDURATION:2\n"},
		{"bad target duration", "#EXTM3U\n#EXT-X-TARGETDURATION:abc\n"},
		{"bad media sequence", "#EXTM3U\n#EXT-X-MEDIA-SEQUENCE:-1\n"},
		{"bad extinf", "#EXTM3U\n#EXTINF:two,\nseg.ts\n"},
		{"uri without extinf", "#EXTM3U\nseg.ts\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParsePlaylist(strings.NewReader(tt.input)); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestParsePlaylist_IgnoresUnknownTags(t *testing.T) {
	input := "#EXTM3U\n#EXT-X-ALLOW-CACHE:NO\n# comment\n#EXTINF:2.0,title\nseg.ts\n"
	pl, err := ParsePlaylist(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParsePlaylist: %v", err)
	}
	if len(pl.Segments) != 1 || pl.Segments[0].Duration != 2*time.Second {
		t.Errorf("Segments = %+v", pl.Segments)
	}
}
