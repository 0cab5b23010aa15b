package main

import (
	"fmt"
	"os"
	"runtime"
	"runtime/debug"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var AppVersion = "custom"

func main() {
	module, ok := debug.ReadBuildInfo()
	if ok && module.Main.Version != "(devel)" {
		AppVersion = module.Main.Version
	}
	app := cli.App{
		Name:     "NCM Dump",
		HelpName: "ncmdump",
		Usage:    "Convert Netease Cloud Music .ncm files to MP3/FLAC",
		Version:  fmt.Sprintf("%s (%s,%s/%s)", AppVersion, runtime.Version(), runtime.GOOS, runtime.GOARCH),
		Commands: []*cli.Command{
			dumpCommand(),
		},
		HideHelpCommand: true,
		UsageText:       "ncmdump dump [-o /path/to/output/dir] [--extra-flags] /path/to/input.ncm ...",
	}

	err := app.Run(os.Args)
	if err != nil {
		// Use a temporary logger for fatal errors in main
		tempLogger := setupLogger(false)
		tempLogger.Fatal("run app failed", zap.Error(err))
	}
}

func setupLogger(verbose bool) *zap.Logger {
	logConfig := zap.NewProductionEncoderConfig()
	logConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	logConfig.EncodeTime = zapcore.RFC3339TimeEncoder
	enabler := zap.LevelEnablerFunc(func(level zapcore.Level) bool {
		if verbose {
			return true
		}
		return level >= zapcore.InfoLevel
	})

	return zap.New(zapcore.NewCore(
		zapcore.NewConsoleEncoder(logConfig),
		os.Stderr,
		enabler,
	))
}
