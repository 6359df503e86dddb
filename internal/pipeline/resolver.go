package pipeline

import (
	"io/fs"
	"os"
	"path/filepath"
)

// Resolver locates artifact files on disk. Video rows store bare
// filenames; the bytes may live in uploads (original ingests) or in
// processed (pipeline outputs), including nested clip directories.
type Resolver struct {
	UploadsDir   string
	ProcessedDir string
	CaptionsDir  string
}

// FindVideo returns the path for a video filename, searching uploads,
// then processed, then the processed tree recursively.
func (r *Resolver) FindVideo(filename string) (string, bool) {
	for _, dir := range []string{r.UploadsDir, r.ProcessedDir} {
		p := filepath.Join(dir, filename)
		if fileExists(p) {
			return p, true
		}
	}

	var found string
	_ = filepath.WalkDir(r.ProcessedDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if d.Name() == filename {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	return found, found != ""
}

// CaptionPath returns where a caption filename lives.
func (r *Resolver) CaptionPath(filename string) string {
	return filepath.Join(r.CaptionsDir, filename)
}

// UploadPath returns the path for a new file in uploads.
func (r *Resolver) UploadPath(filename string) string {
	return filepath.Join(r.UploadsDir, filename)
}

// ProcessedPath returns the path for a new file in processed.
func (r *Resolver) ProcessedPath(filename string) string {
	return filepath.Join(r.ProcessedDir, filename)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
