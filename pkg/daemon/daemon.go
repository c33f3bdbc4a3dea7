// Package daemon serves the calibration engine over HTTP on a unix socket.
package daemon

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/hdrtray/hdrcal/pkg/calibration"
	"github.com/hdrtray/hdrcal/pkg/config"
	"github.com/hdrtray/hdrcal/pkg/engine"
	"github.com/hdrtray/hdrcal/pkg/events"
	"github.com/hdrtray/hdrcal/pkg/profile"
	"github.com/hdrtray/hdrcal/pkg/runner"
	"github.com/hdrtray/hdrcal/pkg/tools"
	"github.com/hdrtray/hdrcal/pkg/vcp"
)

// Options configures Run.
type Options struct {
	ConfigPath string
	SocketPath string
	// Mock replaces the display with an in-memory one.
	Mock bool
	// BundleDir holds copies of the tools to extract when they are not
	// found under the configured tool dir.
	BundleDir string
}

type server struct {
	conf    config.Config
	exec    *executor
	hub     *events.EventHub
	tools   engine.Availability
	locator *tools.Locator
	sched   *Scheduler
	mock    bool
}

type alwaysAvailable struct{}

func (alwaysAvailable) Available() bool { return true }

func setupRoutes(s *server) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logrus.StandardLogger(), time.Second))
	router.GET("/config", s.getConfig)
	router.GET("/status", s.getStatus)
	router.GET("/tools", s.getTools)
	router.GET("/version", getVersion)
	router.PUT("/apply/:mode", s.applyMode)
	router.PUT("/reapply/:mode", s.reapplyMode)
	router.PUT("/prepare-hdr", s.prepareHDR)
	router.GET("/register/:reg", s.getRegister)
	router.PUT("/register/:reg", s.setRegister)
	router.GET("/events", s.streamEvents)

	return router
}

// mockDisplay starts out holding the SDR profile, as after a clean boot.
func mockDisplay(snap calibration.Snapshot) *vcp.Mock {
	prefill := map[vcp.Register]vcp.Value{vcp.ColorPreset: snap.SDR.ColorPreset}
	for _, t := range snap.SDR.Targets() {
		prefill[t.Register] = t.Value
	}
	return vcp.NewMock(prefill)
}

// newServer wires the executor, the tools and the scheduler. The returned
// cleanup removes extracted tools.
func newServer(conf config.Config, opts Options) (*server, func(), error) {
	s := &server{
		conf: conf,
		hub:  events.NewEventHub(),
		mock: opts.Mock,
	}
	cleanup := func() {}

	var (
		regs   vcp.Registers
		loader engine.ProfileLoader
	)
	if opts.Mock {
		logrus.Warn("using a mock display, no tools will be run")
		regs = mockDisplay(conf.Snapshot())
		s.tools = alwaysAvailable{}
	} else {
		s.locator = tools.Locate(conf.ToolDir())
		if !s.locator.Available() && opts.BundleDir != "" {
			dest := filepath.Join(os.TempDir(), "hdrcal-"+uuid.NewString())
			l, c, err := tools.Extract(os.DirFS(opts.BundleDir), dest)
			if err != nil {
				return nil, nil, pkgerrors.Wrapf(err, "failed to extract tools from %s", opts.BundleDir)
			}
			s.locator, cleanup = l, c
		}
		if !s.locator.Available() {
			logrus.WithFields(logrus.Fields{
				"profileLoader": s.locator.ProfileLoader,
				"vcpTool":       s.locator.VCPTool,
			}).Warn("calibration tools not found, every run will fail until they are installed")
		}
		regs = vcp.NewTool(s.locator.VCPTool, runner.Exec{}, nil)
		loader = profile.NewLoader(s.locator.ProfileLoader, runner.Exec{})
		s.tools = s.locator
	}

	s.exec = newExecutor(conf, regs, loader, s.tools, s.hub)

	s.sched = NewScheduler(func() error {
		res := s.exec.Reapply(s.conf.Mode(), false, calibration.ReasonScheduled)
		if !res.OK {
			return errors.New(res.Error)
		}
		return nil
	}, func() error {
		if !s.tools.Available() {
			return engine.ErrToolsUnavailable
		}
		return nil
	}, func(err error) {
		logrus.WithError(err).Warn("scheduled reapply failed")
	})
	if err := s.sched.Schedule(conf.ReapplyCron()); err != nil {
		cleanup()
		return nil, nil, err
	}

	return s, cleanup, nil
}

func Run(opts Options) error {
	conf, err := config.NewFile(opts.ConfigPath)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to parse config during startup")
	}
	logrus.WithFields(conf.LogrusFields()).Infof("config loaded")

	s, cleanup, err := newServer(conf, opts)
	if err != nil {
		return err
	}
	defer cleanup()

	s.sched.Start()
	defer s.sched.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Receive SIGHUP to reload config
	go func() {
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGHUP)
		for {
			select {
			case <-ctx.Done():
				signal.Stop(sigc)
				return
			case <-sigc:
				s.reloadConfig("signal")
			}
		}
	}()

	if err := config.Watch(ctx, conf.Path(), func() { s.reloadConfig("file") }); err != nil {
		logrus.WithError(err).Warn("config changes will only be picked up on SIGHUP")
	}

	srv := &http.Server{
		Handler:           setupRoutes(s),
		ReadHeaderTimeout: 10 * time.Second,
		// Event streams end when ctx is cancelled, so Shutdown is not held
		// up by subscribers.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	// A socket left behind by a crashed daemon makes Listen fail.
	if err := os.Remove(opts.SocketPath); err != nil && !os.IsNotExist(err) {
		return pkgerrors.Wrapf(err, "failed to remove stale socket %s", opts.SocketPath)
	}
	l, err := net.Listen("unix", opts.SocketPath)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to listen on %s", opts.SocketPath)
	}

	serveErr := make(chan error, 1)
	go func() {
		logrus.Infof("http server listening on %s", l.Addr().String())
		if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// Handle common process-killing signals, so we can gracefully shut down:
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigc:
		logrus.Infof("caught signal \"%s\": shutting down.", sig)
	case err := <-serveErr:
		logrus.WithError(err).Error("http server failed")
	}

	logrus.Info("shutting down http server")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("failed to shutdown http server: %v", err)
	}

	logrus.Info("exiting")
	return nil
}
