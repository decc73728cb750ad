package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/rubiojr/spp/config"
	"github.com/rubiojr/spp/logging"
	"github.com/rubiojr/spp/preprocess"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"
)

// Execute runs the spp CLI with the given version string.
func Execute(version string) {
	cmd := NewCommand(version)
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		setColor(false)
		reportError(os.Stderr, err)
		os.Exit(1)
	}
}

// NewCommand builds the spp command tree. Tests drive it through Run with
// Reader, Writer and ErrWriter swapped out.
func NewCommand(version string) *cli.Command {
	return &cli.Command{
		Name:                   "spp",
		Usage:                  "Preprocess a script, expanding #include and #ignore directives",
		Version:                version,
		ArgsUsage:              "[input | -]",
		UseShortOptionHandling: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write output to `FILE` instead of stdout",
			},
			&cli.StringFlag{
				Name:    "base-dir",
				Aliases: []string{"b"},
				Usage:   "Resolve relative includes against `DIR` (default: directory of input)",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Load settings from `FILE` instead of searching for .spp.toml",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Trace directives on stderr",
			},
			&cli.BoolFlag{
				Name:    "no-color",
				Aliases: []string{"C"},
				Usage:   "Disable ANSI color output",
			},
		},
		Action: processAction,
	}
}

func processAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.NArg() > 1 {
		return fmt.Errorf("usage: spp [flags] [input]")
	}
	input := cmd.Args().First()
	if input == "-" {
		input = ""
	}

	startDir := "."
	if input != "" {
		startDir = filepath.Dir(input)
	}
	cfg, err := config.Resolve(cmd.String("config"), startDir)
	if err != nil {
		return err
	}

	setColor(cmd.Bool("no-color"))

	level := slog.LevelWarn
	if cmd.Bool("verbose") || cfg.Verbose {
		level = slog.LevelDebug
	}
	logger := logging.NewWithWriter(errWriter(cmd), level)

	baseDir := cmd.String("base-dir")
	if baseDir == "" {
		baseDir = cfg.BaseDir
	}
	if baseDir == "" && input != "" {
		baseDir = filepath.Dir(input)
	}

	in := cmd.Root().Reader
	if in == nil {
		in = os.Stdin
	}
	if input != "" {
		f, err := os.Open(input)
		if err != nil {
			return fmt.Errorf("cannot open input: %w", err)
		}
		defer f.Close()
		in = f
	}

	outPath := cmd.String("output")
	if outPath == "" {
		outPath = cfg.Output
	}
	var out io.Writer = cmd.Root().Writer
	if out == nil {
		out = os.Stdout
	}
	var outFile *os.File
	if outPath != "" && outPath != "-" {
		outFile, err = os.Create(outPath)
		if err != nil {
			return fmt.Errorf("cannot create output: %w", err)
		}
		defer func() {
			if outFile != nil {
				outFile.Close()
			}
		}()
		out = outFile
	}

	var stats preprocess.Stats
	bw := bufio.NewWriter(out)
	err = preprocess.Process(in, bw,
		preprocess.WithBaseDir(baseDir),
		preprocess.WithLogger(logger),
		preprocess.WithStats(&stats),
	)
	if ferr := bw.Flush(); err == nil && ferr != nil {
		err = fmt.Errorf("flushing output: %w", ferr)
	}
	if err != nil {
		if input != "" {
			return fmt.Errorf("%s: %w", input, err)
		}
		return err
	}
	if outFile != nil {
		cerr := outFile.Close()
		outFile = nil
		if cerr != nil {
			return fmt.Errorf("closing output: %w", cerr)
		}
	}

	logger.Debug("done",
		"lines", stats.Lines,
		"directives", stats.Directives,
		"suppressed", stats.Suppressed,
		"included", stats.Included,
		"included_bytes", stats.IncludedBytes,
	)
	return nil
}

func errWriter(cmd *cli.Command) io.Writer {
	if w := cmd.Root().ErrWriter; w != nil {
		return w
	}
	return os.Stderr
}

// setColor turns colored diagnostics off for --no-color, NO_COLOR, or a
// stderr that is not a terminal.
func setColor(disabled bool) {
	if disabled || os.Getenv("NO_COLOR") != "" || !term.IsTerminal(int(os.Stderr.Fd())) {
		color.NoColor = true
	}
}

var errPrefix = color.New(color.FgRed, color.Bold)

func reportError(w io.Writer, err error) {
	errPrefix.Fprint(w, "error:")
	fmt.Fprintf(w, " %v\n", err)
}
