package ncm

import (
	"bufio"
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"ncmdump.dev/cli/internal/network"
	"ncmdump.dev/cli/internal/utils"
)

// ConvertOptions tunes Convert beyond the defaults.
type ConvertOptions struct {
	// Logger receives non-fatal conditions; nil means silent.
	Logger *zap.Logger
	// FetchCover downloads the album picture over the network when the
	// container embeds none but the metadata names one.
	FetchCover bool
}

// Convert decrypts the NCM file at inputPath into outputDir and writes tags
// when metadata is present. An empty outputDir means the input's directory.
// It returns the output path.
//
// When the audio dump succeeds but tagging fails, the untagged-but-playable
// output stays on disk and both the path and the tag error are returned.
func Convert(inputPath, outputDir string) (string, error) {
	return ConvertWithOptions(inputPath, outputDir, nil)
}

// ConvertWithOptions is Convert with an explicit option set.
func ConvertWithOptions(inputPath, outputDir string, opts *ConvertOptions) (string, error) {
	if opts == nil {
		opts = &ConvertOptions{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	in, err := os.Open(inputPath)
	if err != nil {
		return "", wrapIO("ncm: open input", err)
	}
	defer in.Close()

	f, err := Parse(in)
	if err != nil {
		return "", err
	}

	if outputDir == "" {
		outputDir = filepath.Dir(inputPath)
	}
	outPath := filepath.Join(outputDir, utils.Stem(inputPath)+"."+f.Format.Extension())

	if err := dumpToFile(f, in, outPath); err != nil {
		return "", err
	}

	if f.Metadata == nil {
		return outPath, nil
	}

	cover := f.Cover
	if cover == nil && opts.FetchCover && f.Metadata.AlbumPic != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		cover, err = network.FetchCover(ctx, f.Metadata.AlbumPic)
		cancel()
		if err != nil {
			logger.Warn("fetch album picture failed",
				zap.String("url", f.Metadata.AlbumPic), zap.Error(err))
			cover = nil
		}
	}

	if err := WriteTags(outPath, f.Metadata, cover); err != nil {
		// the dump already succeeded; the file stays on disk untagged
		return outPath, err
	}
	return outPath, nil
}

func dumpToFile(f *File, in io.ReadSeeker, outPath string) error {
	out, err := os.OpenFile(outPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return wrapIO("ncm: create output", err)
	}

	w := bufio.NewWriterSize(out, dumpBufferSize)
	if err := f.DumpAudio(in, w); err != nil {
		_ = out.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		_ = out.Close()
		return wrapIO("ncm: flush output", err)
	}
	if err := out.Close(); err != nil {
		return wrapIO("ncm: close output", err)
	}
	return nil
}
