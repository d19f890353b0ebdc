package http

import (
	"bytes"
	"html/template"
	"net/http"
)

var playerPage = template.Must(template.New("stream").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<title>{{.Title}}</title>
</head>
<body>
<video id="video" width="{{.Width}}" height="{{.Height}}" controls autoplay muted playsinline></video>
<script src="{{.HlsJS}}"></script>
<script>
var video = document.getElementById('video');
var src = '{{.Playlist}}';
if (window.Hls && Hls.isSupported()) {
	var hls = new Hls();
	hls.loadSource(src);
	hls.attachMedia(video);
	hls.on(Hls.Events.MANIFEST_PARSED, function() {
		video.play();
	});
} else if (video.canPlayType('application/vnd.apple.mpegurl')) {
	video.src = src;
	video.addEventListener('loadedmetadata', function() {
		video.play();
	});
}
</script>
</body>
</html>
`))

// DefaultHlsJS is the hls.js build loaded by the player page.
const DefaultHlsJS = "https://cdn.jsdelivr.net/npm/hls.js@latest"

type pageData struct {
	Title    string
	Width    int
	Height   int
	HlsJS    string
	Playlist string
}

// renderPage executes the player template once; the page never changes
// while the server runs.
func renderPage(cfg ServerConfig) ([]byte, error) {
	var buf bytes.Buffer
	err := playerPage.Execute(&buf, pageData{
		Title:    cfg.Title,
		Width:    cfg.Width,
		Height:   cfg.Height,
		HlsJS:    cfg.HlsJS,
		Playlist: "/hls/" + cfg.PlaylistName,
	})
	return buf.Bytes(), err
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(s.page)
}
