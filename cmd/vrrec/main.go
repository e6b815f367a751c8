//go:build !ios && !android && (amd64 || arm64)

// vrrec records the VR compositor's mirror view to a video file.
//
// Usage:
//
//	vrrec [-config vrrec.yaml] [-out session.avi] [-duration 10m] [-log-level debug]
//	vrrec -list-encoders
//	vrrec -list-ports
//
// Recording starts immediately, or on the first UDP trigger when gopro_sync
// is enabled, and runs until SIGINT/SIGTERM or -duration elapses.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kataras/golog"
	"golang.org/x/sync/errgroup"

	"github.com/obinnaokechukwu/vrrec"
	"github.com/obinnaokechukwu/vrrec/capture"
	"github.com/obinnaokechukwu/vrrec/config"
	"github.com/obinnaokechukwu/vrrec/marker"
	"github.com/obinnaokechukwu/vrrec/pacer"
	"github.com/obinnaokechukwu/vrrec/serialsync"
	"github.com/obinnaokechukwu/vrrec/trigger"
)

func main() {
	var (
		configPath   = flag.String("config", "", "YAML configuration file")
		outPath      = flag.String("out", "", "output file, overrides the configured output")
		listEncoders = flag.Bool("list-encoders", false, "list available video encoders and exit")
		listPorts    = flag.Bool("list-ports", false, "list serial ports and exit")
		duration     = flag.Duration("duration", 0, "stop recording after this long (0 records until interrupted)")
		logLevel     = flag.String("log-level", "", "disable, fatal, error, warn, info or debug")
	)
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "vrrec: %v\n", err)
			os.Exit(2)
		}
	}
	if *outPath != "" {
		cfg.Output = *outPath
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "vrrec: %v\n", err)
		os.Exit(2)
	}

	logger := golog.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(cfg.LogLevel)

	switch {
	case *listEncoders:
		os.Exit(printEncoders(logger))
	case *listPorts:
		os.Exit(printPorts(logger))
	}

	if err := record(cfg, *duration, logger); err != nil {
		logger.Errorf("recording failed: %v", err)
		os.Exit(1)
	}
}

func printEncoders(logger *golog.Logger) int {
	if err := vrrec.Init(); err != nil {
		logger.Errorf("load ffmpeg: %v", err)
		return 1
	}
	encoders, err := vrrec.ListVideoEncoders()
	if err != nil {
		logger.Errorf("list encoders: %v", err)
		return 1
	}
	for _, e := range encoders {
		fmt.Printf("%-24s %s\n", e.Name, e.LongName)
	}
	return 0
}

func printPorts(logger *golog.Logger) int {
	ports, err := serialsync.Ports()
	if err != nil {
		logger.Errorf("%v", err)
		return 1
	}
	for _, p := range ports {
		fmt.Println(p)
	}
	return 0
}

func record(cfg config.Config, duration time.Duration, logger *golog.Logger) error {
	if err := vrrec.Init(); err != nil {
		return fmt.Errorf("load ffmpeg: %w", err)
	}
	a, c, f := vrrec.Version()
	logger.Infof("ffmpeg avutil=%s avcodec=%s avformat=%s",
		vrrec.VersionString(a), vrrec.VersionString(c), vrrec.VersionString(f))

	if err := vrrec.SetFFmpegLogger(logger.Child("[ffmpeg]")); err != nil {
		logger.Debugf("ffmpeg log forwarding unavailable: %v", err)
	}

	backend, err := capture.NewSystemBackend()
	if err != nil {
		return err
	}
	src := capture.New(backend, logger.Child("[capture]"))
	if err := src.Initialize(cfg.Eye()); err != nil {
		return err
	}
	defer src.Release()

	writer := vrrec.NewVideoWriter(logger.Child("[encoder]"))
	defer writer.Release()
	wcfg := vrrec.WriterConfig{
		Path:         cfg.Output,
		Codec:        cfg.VideoCodec,
		BitRate:      cfg.BitRateBits(),
		Width:        cfg.VideoWidth,
		Height:       cfg.VideoHeight,
		FrameRate:    cfg.VideoFramerate,
		SourceFormat: src.Format(),
		SourceWidth:  src.Width(),
		SourceHeight: src.Height(),
	}

	var pulser pacer.Pulser
	if cfg.SerialSync {
		pulser = serialsync.New(cfg.Serial(), logger.Child("[serial]"))
	}

	pcfg := cfg.Pacer()
	pcfg.StatsEvery = 10 * time.Second
	p := pacer.New(src, writer, pulser, pcfg, logger.Child("[pacer]"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		select {
		case sig := <-sigCh:
			logger.Infof("received %s, stopping", sig)
			cancel()
		case <-gctx.Done():
		}
		return nil
	})

	sess := &session{
		writer:    writer,
		writerCfg: wcfg,
		pacer:     p,
		duration:  duration,
		logger:    logger,
	}
	if cfg.GoProSync {
		l := &trigger.Listener{Addr: cfg.TriggerAddr(), Logger: logger.Child("[trigger]")}
		sess.trigger = l.Wait
	}

	var ms marker.Session
	g.Go(func() error {
		defer cancel()
		var err error
		ms, err = sess.run(gctx)
		return err
	})

	runErr := g.Wait()

	st := p.Stats()
	logger.Infof("recorded file=%s session=%s frames=%d packets=%d dropped=%d",
		cfg.Output, st.Session, writer.FramesSubmitted(), writer.PacketsWritten(), st.Dropped)

	if !ms.Begin.IsZero() {
		mc := &marker.Client{
			URL:      cfg.MarkerURL,
			Username: cfg.MarkerUsername,
			Person:   cfg.MarkerPerson,
			Logger:   logger.Child("[marker]"),
		}
		mctx, mcancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := mc.Send(mctx, ms); err != nil {
			logger.Warnf("session marker not sent: %v", err)
		}
		mcancel()
	}
	return runErr
}
