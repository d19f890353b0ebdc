package http

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
)

// Content types HLS players expect; mime.TypeByExtension does not know
// .m3u8 on most systems.
var hlsContentTypes = map[string]string{
	".m3u8": "application/vnd.apple.mpegurl",
	".ts":   "video/mp2t",
	".m4s":  "video/iso.segment",
	".mp4":  "video/mp4",
}

// handleHLS serves files from the encoder output directory. Anything that
// does not resolve to a regular file inside it is a 404.
func (s *Server) handleHLS(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("filename")
	if name == "" || !filepath.IsLocal(filepath.FromSlash(name)) {
		http.NotFound(w, r)
		return
	}

	f, err := os.Open(filepath.Join(s.cfg.OutputDir, filepath.FromSlash(name)))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("failed to open hls file", logFields(r, err)...)
		}
		http.NotFound(w, r)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || !info.Mode().IsRegular() {
		http.NotFound(w, r)
		return
	}

	ext := path.Ext(name)
	if ct, ok := hlsContentTypes[ext]; ok {
		w.Header().Set("Content-Type", ct)
	}
	if ext == ".m3u8" {
		// The encoder rewrites the playlist in place every segment.
		w.Header().Set("Cache-Control", "no-cache")
	}

	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}
