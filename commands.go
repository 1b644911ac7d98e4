package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"dva/checksum"
	"dva/clients"
	"dva/config"
	"dva/processor"
	"dva/transfer"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var (
	listJSON bool
	listLong bool

	listCmd = &cobra.Command{
		Use:   "list <doi>",
		Short: "List the files of a dataset",
		Args:  cobra.ExactArgs(1),
		RunE:  runList,
	}
	downloadCmd = &cobra.Command{
		Use:   "download <doi> <dest>",
		Short: "Download every file of a dataset into dest and verify checksums",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDownload(cmd, args[0], args[1])
		},
	}
	uploadCmd = &cobra.Command{
		Use:   "upload <src> <doi>",
		Short: "Upload a file or a directory tree to a dataset",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpload(cmd, args[0], args[1])
		},
	}
	cpCmd = &cobra.Command{
		Use:   "cp <src> <dest>",
		Short: "Copy between a dataset and a local path",
		Long: `Copy between a dataset and a local path.

Exactly one of src and dest must be a dataset identifier starting with
"doi:". A dataset source downloads into the local destination, a dataset
destination uploads the local source.`,
		Args: cobra.ExactArgs(2),
		RunE: runCp,
	}
)

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "print the raw file metadata as JSON")
	listCmd.Flags().BoolVarP(&listLong, "long", "l", false, "print size and checksum of every file")
}

// session everything one command needs to talk to the repository
type session struct {
	log        *zap.SugaredLogger
	downloader *transfer.Downloader
	proc       *processor.Processor
}

func newSession() (*session, error) {
	logger, err := newLogger(viper.GetBool("verbose"))
	if err != nil {
		return nil, err
	}

	creds, err := config.Resolve(config.Overrides{URL: urlFlag, Token: tokenFlag})
	if err != nil {
		return nil, err
	}

	kind := viper.GetString("transport")
	opts := clients.Options{Timeout: viper.GetDuration("timeout")}
	tr, err := clients.NewTransport(kind, creds, opts)
	if err != nil {
		return nil, err
	}

	limiter, err := parseBWLimit(viper.GetString("bwlimit"))
	if err != nil {
		return nil, err
	}

	logger.Debugw("Session ready", "url", creds.BaseURL, "transport", kind,
		"authenticated", creds.APIToken != "", "timeout", opts.Timeout)

	downloader := transfer.NewDownloader(tr, limiter)
	return &session{
		log:        logger,
		downloader: downloader,
		proc: processor.NewProcessor(&processor.Dependencies{
			Lister:     clients.NewDataverseClient(creds, opts),
			Downloader: downloader,
			Uploader:   transfer.NewUploader(tr),
			Verify:     checksum.Verify,
			Logger:     logger,
		}),
	}, nil
}

// parseBWLimit turns a --bwlimit value like "10MB" into a limiter, empty
// means unlimited
func parseBWLimit(s string) (*rate.Limiter, error) {
	if s == "" {
		return nil, nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return nil, fmt.Errorf("invalid --bwlimit %q: %w", s, err)
	}
	if n == 0 {
		return nil, nil
	}
	return transfer.NewBWLimiter(int64(n)), nil
}

// signalContext is cancelled on SIGINT/SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runConfig() processor.Config {
	return processor.Config{KeepGoing: viper.GetBool("keep_going")}
}

func runList(cmd *cobra.Command, args []string) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.log.Sync()

	ctx, stop := signalContext()
	defer stop()

	files, err := s.proc.List(ctx, args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch {
	case listJSON:
		return printJSON(out, files)
	case listLong:
		printTable(out, files)
		return nil
	default:
		printPaths(out, files)
		return nil
	}
}

func runDownload(_ *cobra.Command, doi, dest string) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.log.Sync()

	ctx, stop := signalContext()
	defer stop()

	_, err = s.proc.Download(ctx, doi, dest, runConfig())
	if ctx.Err() != nil {
		s.downloader.Temps.Cleanup()
		s.log.Warn("Interrupted, partial files removed")
	}
	return err
}

func runUpload(_ *cobra.Command, src, doi string) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.log.Sync()

	ctx, stop := signalContext()
	defer stop()

	_, err = s.proc.Upload(ctx, src, doi, runConfig())
	return err
}

func runCp(cmd *cobra.Command, args []string) error {
	direction, err := processor.Route(args[0], args[1])
	if err != nil {
		return err
	}

	if direction == processor.DirectionDownload {
		return runDownload(cmd, args[0], args[1])
	}
	return runUpload(cmd, args[0], args[1])
}

func newLogger(verbose bool) (*zap.SugaredLogger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.TimeKey = ""
	cfg.DisableCaller = true
	cfg.DisableStacktrace = true
	if !verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger.Sugar(), nil
}
