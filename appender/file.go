package appender

import (
	"os"
	"path/filepath"

	"github.com/abyssdigger/fwlgr"
	"github.com/pkg/errors"
	"gopkg.in/natefinch/lumberjack.v2"
)

const _ERROR_MESSAGE_FILE_NO_PATH = "file appender: empty path"

// FileOptions configures a File appender. Zero values follow lumberjack
// defaults (100 MB per file, all backups kept forever).
type FileOptions struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
	Formatter  fwlgr.Formatter // nil for fwlgr.DefaultFormatter
}

// File writes formatted lines to a size-rotated file. The file is opened on
// the first write. A probe reports whether the directory of the file exists,
// which covers storage that is mounted later than logging starts.
type File struct {
	*fwlgr.FormattingAppender
	out *fileOutput
}

type fileOutput struct {
	lj  *lumberjack.Logger
	dir string
}

func (o *fileOutput) Write(p []byte) (int, error) {
	return o.lj.Write(p)
}

func (o *fileOutput) Ready() bool {
	st, err := os.Stat(o.dir)
	return err == nil && st.IsDir()
}

// NewFile creates a rotating file appender.
func NewFile(opts FileOptions) (*File, error) {
	if opts.Path == "" {
		return nil, errors.New(_ERROR_MESSAGE_FILE_NO_PATH)
	}
	out := &fileOutput{
		lj: &lumberjack.Logger{
			Filename:   opts.Path,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   opts.Compress,
		},
		dir: filepath.Dir(opts.Path),
	}
	return &File{
		FormattingAppender: fwlgr.NewFormattingAppender(out, opts.Formatter),
		out:                out,
	}, nil
}

// Rotate closes the current file and starts a new one.
func (f *File) Rotate() error {
	return errors.Wrap(f.out.lj.Rotate(), "rotate log file")
}

// Close closes the current file. A later write reopens it.
func (f *File) Close() error {
	return f.out.lj.Close()
}
