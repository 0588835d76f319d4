package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/arloliu/go-apt/cmd/aptctl/commands"
	"github.com/arloliu/go-apt/device"
	"github.com/arloliu/go-apt/logger"
	"github.com/arloliu/go-apt/trace"
	"github.com/arloliu/go-apt/transport"
)

// deviceFlags are shared by the commands talking to a controller.
type deviceFlags struct {
	config *string
	port   *string
	serial *string
	trace  *string
	debug  *bool
}

func addDeviceFlags(fs *flag.FlagSet) *deviceFlags {
	return &deviceFlags{
		config: fs.String("config", "", "YAML configuration file"),
		port:   fs.String("port", "", "Serial port path (default: looked up by serial number)"),
		serial: fs.String("serial", "", "Controller serial number"),
		trace:  fs.String("trace", "", "Append captured frames to this CBOR file"),
		debug:  fs.Bool("debug", false, "Log at debug level, including TX/RX frames"),
	}
}

// session is an opened controller with its logger and optional capture.
type session struct {
	ctrl   *device.Controller
	log    logger.Logger
	tracer *trace.FileTracer
}

func (f *deviceFlags) open(ctx context.Context) (*session, error) {
	cfg, err := commands.LoadConfig(*f.config)
	if err != nil {
		return nil, err
	}
	if *f.port != "" {
		cfg.Port = *f.port
	}
	if *f.serial != "" {
		cfg.SerialNumber = *f.serial
	}
	if *f.trace != "" {
		cfg.Trace = *f.trace
	}

	level := cfg.Level()
	if *f.debug {
		level = logger.DebugLevel
	}
	l := logger.NewSlog(level, false, os.Stderr)

	s := &session{log: l}
	var tracer trace.Tracer
	if cfg.Trace != "" {
		if s.tracer, err = trace.NewFileTracer(cfg.Trace); err != nil {
			return nil, err
		}
		tracer = s.tracer
	}

	s.ctrl, err = device.Open(ctx, cfg.Port, cfg.DeviceOptions(l, tracer)...)
	if err != nil {
		return nil, errors.Join(err, s.closeTracer())
	}

	return s, nil
}

func (s *session) closeTracer() error {
	if s.tracer == nil {
		return nil
	}

	return s.tracer.Close()
}

func (s *session) Close() error {
	return errors.Join(s.ctrl.Close(), s.closeTracer())
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runList(args []string) error {
	fs := newFlagSet("list", "List USB serial ports", "")
	all := fs.Bool("all", false, "Include ports that are not APT controllers")
	if err := fs.Parse(args); err != nil {
		return err
	}

	list := transport.ListAPTPorts
	if *all {
		list = transport.ListPorts
	}
	ports, err := list()
	if err != nil {
		return err
	}

	return commands.WritePorts(os.Stdout, ports)
}

func runInfo(args []string) error {
	fs := newFlagSet("info", "Show controller identity and channels", "")
	df := addDeviceFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	s, err := df.open(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	reg := s.ctrl.Registry()

	return commands.WriteInfo(os.Stdout, reg.Info(), reg.IsRack(), reg.Channels(), reg.EnabledChannels())
}

func runIdentify(args []string) error {
	fs := newFlagSet("identify", "Flash the front panel LED of a channel", "")
	df := addDeviceFlags(fs)
	channel := fs.Int("channel", 0, "Channel index")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	s, err := df.open(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	return s.ctrl.Identify(ctx, *channel)
}
