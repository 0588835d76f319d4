package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/arloliu/go-apt/metrics"
)

func runMonitor(args []string) error {
	fs := newFlagSet("monitor", "Poll a controller and serve Prometheus metrics", "")
	df := addDeviceFlags(fs)
	listen := fs.String("listen", ":9110", "Metrics listen address")
	interval := fs.Duration("interval", time.Second, "Channel state polling interval")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *interval <= 0 {
		return errors.New("interval must be positive")
	}

	ctx, cancel := signalContext()
	defer cancel()

	s, err := df.open(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	reg := metrics.NewRegistry()
	if _, err := metrics.Register(reg, s.ctrl.Conn()); err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	srv := &http.Server{Addr: *listen, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	s.log.Info("monitor: serving metrics", "addr", *listen, "interval", *interval)

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
			defer stop()
			return srv.Shutdown(shutdownCtx)
		case err, ok := <-errCh:
			if ok {
				return err
			}
			return nil
		case <-ticker.C:
			poll(ctx, s)
		}
	}
}

func poll(ctx context.Context, s *session) {
	reg := s.ctrl.Registry()
	for _, ch := range reg.Channels() {
		on, err := reg.RefreshEnabled(ctx, ch.Index)
		if err != nil {
			s.log.Warn("monitor: poll failed", "channel", ch.String(), "error", err)
			continue
		}
		s.log.Debug("monitor: channel state", "channel", ch.String(), "enabled", on)
	}
}
