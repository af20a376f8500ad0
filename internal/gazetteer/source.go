package gazetteer

import (
	"context"
	"log/slog"

	"github.com/UnknownOlympus/meridian/internal/models"
)

// FileSource loads places from a gazetteer file on disk.
type FileSource struct {
	path      string
	delimiter rune
	log       *slog.Logger
}

// NewFileSource creates a FileSource reading path with the given field delimiter.
func NewFileSource(path string, delimiter rune, log *slog.Logger) *FileSource {
	return &FileSource{path: path, delimiter: delimiter, log: log}
}

// Path returns the gazetteer location.
func (fs *FileSource) Path() string { return fs.path }

func (fs *FileSource) String() string { return "file:" + fs.path }

// Load reads the whole file. The context is only checked before reading starts.
func (fs *FileSource) Load(ctx context.Context) ([]models.Place, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fs.log.DebugContext(ctx, "Loading gazetteer from file", "path", fs.path)

	places, skipped, err := Load(fs.path, fs.delimiter)
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		fs.log.InfoContext(ctx, "Dropped malformed gazetteer rows", "path", fs.path, "skipped", skipped)
	}

	return places, nil
}
