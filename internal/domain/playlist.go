package domain

import "time"

// Segment is one media segment referenced by the playlist.
type Segment struct {
	URI      string        `json:"uri"`
	Duration time.Duration `json:"duration"`
}

// Playlist is the subset of an HLS media playlist livestream cares about.
type Playlist struct {
	TargetDuration time.Duration `json:"target_duration"`
	MediaSequence  uint64        `json:"media_sequence"`
	Segments       []Segment     `json:"segments"`

	// Ended is true once the encoder wrote #EXT-X-ENDLIST (stream finished).
	Ended bool `json:"ended"`
}

// Window returns the total duration covered by the listed segments.
func (p Playlist) Window() time.Duration {
	var total time.Duration
	for _, s := range p.Segments {
		total += s.Duration
	}
	return total
}

// LastSegment returns the newest segment, or false if the playlist is empty.
func (p Playlist) LastSegment() (Segment, bool) {
	if len(p.Segments) == 0 {
		return Segment{}, false
	}
	return p.Segments[len(p.Segments)-1], true
}

// PlaylistUpdate is published each time the encoder rewrites the playlist.
type PlaylistUpdate struct {
	Name      string    `json:"name"`
	Playlist  Playlist  `json:"playlist"`
	UpdatedAt time.Time `json:"updated_at"`
}
