package fs

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bft-labs/livestream/internal/domain"
)

// ParsePlaylist reads an HLS media playlist. Only the tags the encoder writes for a
// live window are interpreted; unknown tags are ignored.
func ParsePlaylist(r io.Reader) (domain.Playlist, error) {
	var (
		pl          domain.Playlist
		sawHeader   bool
		pendingDur  time.Duration
		havePending bool
	)

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if !sawHeader {
			if line != "#EXTM3U" {
				return domain.Playlist{}, fmt.Errorf("playlist line %d: missing #EXTM3U header", lineNo)
			}
			sawHeader = true
			continue
		}

		switch {
		case strings.HasPrefix(line, "#EXT-X-TARGETDURATION:"):
			secs, err := strconv.ParseFloat(strings.TrimPrefix(line, "#EXT-X-TARGETDURATION:"), 64)
			if err != nil {
				return domain.Playlist{}, fmt.Errorf("playlist line %d: target duration: %w", lineNo, err)
			}
			pl.TargetDuration = seconds(secs)

		case strings.HasPrefix(line, "#EXT-X-MEDIA-SEQUENCE:"):
			seq, err := strconv.ParseUint(strings.TrimPrefix(line, "#EXT-X-MEDIA-SEQUENCE:"), 10, 64)
			if err != nil {
				return domain.Playlist{}, fmt.Errorf("playlist line %d: media sequence: %w", lineNo, err)
			}
			pl.MediaSequence = seq

		case strings.HasPrefix(line, "#EXTINF:"):
			value := strings.TrimPrefix(line, "#EXTINF:")
			if i := strings.IndexByte(value, ','); i >= 0 {
				value = value[:i]
			}
			secs, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return domain.Playlist{}, fmt.Errorf("playlist line %d: segment duration: %w", lineNo, err)
			}
			pendingDur = seconds(secs)
			havePending = true

		case line == "#EXT-X-ENDLIST":
			pl.Ended = true

		case strings.HasPrefix(line, "#"):
			// other tags and comments

		default:
			if !havePending {
				return domain.Playlist{}, fmt.Errorf("playlist line %d: segment %q without #EXTINF", lineNo, line)
			}
			pl.Segments = append(pl.Segments, domain.Segment{URI: line, Duration: pendingDur})
			havePending = false
		}
	}
	if err := scanner.Err(); err != nil {
		return domain.Playlist{}, err
	}
	if !sawHeader {
		return domain.Playlist{}, fmt.Errorf("empty playlist")
	}
	return pl, nil
}

// ReadPlaylist parses the playlist file at path.
func ReadPlaylist(path string) (domain.Playlist, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.Playlist{}, err
	}
	defer f.Close()
	return ParsePlaylist(f)
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
