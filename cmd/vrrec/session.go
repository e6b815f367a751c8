//go:build !ios && !android && (amd64 || arm64)

package main

import (
	"context"
	"errors"
	"time"

	"github.com/kataras/golog"

	"github.com/obinnaokechukwu/vrrec"
	"github.com/obinnaokechukwu/vrrec/marker"
	"github.com/obinnaokechukwu/vrrec/pacer"
	"github.com/obinnaokechukwu/vrrec/trigger"
)

// recorder is the part of *vrrec.VideoWriter a session drives. The pacer
// must have been built with the same recorder as its sink.
type recorder interface {
	Initialize(cfg vrrec.WriterConfig) error
	CloseFile() error
}

// session is one recording: wait for the trigger, open the file, pace
// frames into it and close it.
type session struct {
	writer    recorder
	writerCfg vrrec.WriterConfig
	pacer     *pacer.Pacer
	// trigger, when set, blocks until recording should begin.
	trigger  func(ctx context.Context) (trigger.Event, error)
	duration time.Duration
	logger   *golog.Logger
}

// run records until ctx ends, the duration elapses or the pacer stops on
// its own. The file is opened only after the trigger fires, so a wait
// cancelled by the user leaves no file behind. The returned marker has a
// zero Begin when recording never started.
func (s *session) run(ctx context.Context) (marker.Session, error) {
	var ms marker.Session

	if s.trigger != nil {
		ev, err := s.trigger(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return ms, nil
			}
			return ms, err
		}
		ms.Notes = ev.URL
	}

	if err := s.writer.Initialize(s.writerCfg); err != nil {
		return ms, err
	}
	if err := s.pacer.Start(ctx); err != nil {
		if cerr := s.writer.CloseFile(); cerr != nil {
			s.logger.Warnf("closing %s after failed start: %v", s.writerCfg.Path, cerr)
		}
		return ms, err
	}
	ms.Begin = time.Now()

	runDone := make(chan error, 1)
	go func() { runDone <- s.pacer.Wait() }()

	var timeout <-chan time.Time
	if s.duration > 0 {
		t := time.NewTimer(s.duration)
		defer t.Stop()
		timeout = t.C
	}
	select {
	case <-ctx.Done():
	case <-timeout:
		s.logger.Infof("duration %s reached", s.duration)
	case <-runDone:
	}

	err := s.pacer.Stop()
	ms.End = time.Now()
	ms.Num = 1
	return ms, err
}
