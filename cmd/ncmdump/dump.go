package main

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"ncmdump.dev/cli/algo/ncm"
	"ncmdump.dev/cli/internal/utils"
)

const ncmExt = ".ncm"

func dumpCommand() *cli.Command {
	return &cli.Command{
		Name:      "dump",
		Usage:     "Decrypt NCM files to MP3/FLAC",
		ArgsUsage: "[files...]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "directory", Aliases: []string{"d"}, Usage: "process all ncm files in `PATH`"},
			&cli.BoolFlag{Name: "recursive", Aliases: []string{"r"}, Usage: "recursive directory traversal (with -d)"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "output directory `PATH`"},
			&cli.BoolFlag{Name: "remove", Aliases: []string{"m"}, Usage: "remove source file after successful conversion"},
			&cli.BoolFlag{Name: "fetch-cover", Usage: "download album art from the server when not embedded"},
			&cli.BoolFlag{Name: "watch", Usage: "watch the input dir and process new files (with -d)"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"V"}, Usage: "verbose logging"},
		},
		Action: dumpMain,
	}
}

func dumpMain(c *cli.Context) error {
	logger := setupLogger(c.Bool("verbose"))

	dir := c.String("directory")
	if c.Args().Len() == 0 && dir == "" {
		return cli.Exit("no input files supplied", 1)
	}

	output := c.String("output")
	if output != "" {
		if err := utils.EnsureDir(output); err != nil {
			return cli.Exit("output should be a writable directory", 1)
		}
	}

	proc := &processor{
		logger:       logger,
		outputDir:    output,
		removeSource: c.Bool("remove"),
		fetchCover:   c.Bool("fetch-cover"),
	}

	files := c.Args().Slice()
	if dir != "" {
		collected, err := collectDir(dir, c.Bool("recursive"))
		if err != nil {
			logger.Error("scan directory failed", zap.String("directory", dir), zap.Error(err))
		}
		files = append(files, collected...)
	}
	files = lo.Uniq(files)

	// per-file errors are logged and skipped, never fatal
	for _, file := range files {
		if err := proc.processFile(file); err != nil {
			logger.Error("conversion failed", zap.String("source", file), zap.Error(err))
		}
	}

	if c.Bool("watch") && dir != "" {
		return proc.watchDir(dir)
	}
	return nil
}

func collectDir(dir string, recursive bool) ([]string, error) {
	if !utils.IsDir(dir) {
		return nil, errors.New("not a directory")
	}

	var files []string
	if recursive {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && isNcmPath(path) {
				files = append(files, path)
			}
			return nil
		})
		return files, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if isNcmPath(path) {
			files = append(files, path)
		}
	}
	return files, nil
}

func isNcmPath(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ncmExt)
}

type processor struct {
	logger       *zap.Logger
	outputDir    string
	removeSource bool
	fetchCover   bool
}

func (p *processor) processFile(filePath string) error {
	p.logger.Debug("processFile", zap.String("file", filePath))

	if !isNcmPath(filePath) {
		p.logger.Warn("skipping while not an ncm file", zap.String("source", filePath))
		return nil
	}

	outPath, err := ncm.ConvertWithOptions(filePath, p.outputDir, &ncm.ConvertOptions{
		Logger:     p.logger.With(zap.String("source", filePath)),
		FetchCover: p.fetchCover,
	})
	if err != nil {
		if ncm.IsTagError(err) {
			// the audio came out fine, only the tags are missing
			p.logger.Warn("tagging failed, output kept untagged",
				zap.String("destination", outPath), zap.Error(err))
		} else {
			return err
		}
	}

	p.logger.Info("successfully converted",
		zap.String("source", filePath), zap.String("destination", outPath))

	if p.removeSource {
		if err := os.Remove(filePath); err != nil {
			return err
		}
		p.logger.Info("source file removed after success conversion", zap.String("source", filePath))
	}
	return nil
}

func (p *processor) watchDir(inputDir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}

				if (event.Has(fsnotify.Create) || event.Has(fsnotify.Write)) && isNcmPath(event.Name) {
					// try open with exclusive mode, to avoid file is still writing
					f, err := os.OpenFile(event.Name, os.O_RDONLY, os.ModeExclusive)
					if err != nil {
						p.logger.Debug("failed to open file exclusively", zap.String("path", event.Name), zap.Error(err))
						time.Sleep(1 * time.Second) // wait for file writing complete
						continue
					}
					_ = f.Close()

					if err := p.processFile(event.Name); err != nil {
						p.logger.Warn("failed to process file", zap.String("path", event.Name), zap.Error(err))
					}
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				p.logger.Error("file watcher got error", zap.Error(err))
			}
		}
	}()

	if err := watcher.Add(inputDir); err != nil {
		return err
	}

	signalCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	<-signalCtx.Done()
	return nil
}
