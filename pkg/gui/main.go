//go:build windows || darwin

package gui

import (
	"context"
	_ "embed"
	"time"

	"github.com/getlantern/systray"
	"github.com/sirupsen/logrus"

	"github.com/hdrtray/hdrcal/pkg/calibration"
	"github.com/hdrtray/hdrcal/pkg/client"
	"github.com/hdrtray/hdrcal/pkg/events"
	"github.com/hdrtray/hdrcal/pkg/version"
)

//go:embed icon.ico
var iconData []byte

const refreshInterval = 10 * time.Second

var apiClient *client.Client

// Run blocks the calling goroutine, which must be the main one, until the
// tray is closed.
func Run(unixSocketPath string) {
	apiClient = client.NewClient(unixSocketPath)
	logrus.WithField("version", version.Version).WithField("gitCommit", version.GitCommit).Info("hdrcal gui")
	systray.Run(onReady, onExit)
}

type menu struct {
	status    *systray.MenuItem
	lastRun   *systray.MenuItem
	applySDR  *systray.MenuItem
	applyHDR  *systray.MenuItem
	prepare   *systray.MenuItem
	reapply   *systray.MenuItem
	quit      *systray.MenuItem
	eventStop context.CancelFunc
}

func onReady() {
	systray.SetIcon(iconData)
	systray.SetTitle("hdrcal")
	systray.SetTooltip("hdrcal - Connecting...")

	m := &menu{}
	m.status = systray.AddMenuItem("Status: Connecting...", "Daemon status")
	m.status.Disable()
	m.lastRun = systray.AddMenuItem("Last run: -", "Result of the last calibration run")
	m.lastRun.Disable()

	systray.AddSeparator()

	m.applySDR = systray.AddMenuItem("Apply SDR Calibration", "Apply the SDR profile to the display")
	m.applyHDR = systray.AddMenuItem("Apply HDR Calibration", "Apply the HDR profile to the display")
	m.prepare = systray.AddMenuItem("Prepare HDR Color Preset", "Switch the monitor to the HDR color preset")
	m.reapply = systray.AddMenuItem("Reapply Current Mode", "Write every register of the current mode again")

	systray.AddSeparator()
	m.quit = systray.AddMenuItem("Quit", "Quit the tray icon. The daemon keeps running.")

	ctx, cancel := context.WithCancel(context.Background())
	m.eventStop = cancel

	go m.handleClicks()
	go m.watchEvents(ctx)

	refresh(m)
}

func onExit() {
	logrus.Info("hdrcal gui exiting")
}

func (m *menu) handleClicks() {
	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.applySDR.ClickedCh:
			m.run("Applying SDR...", func() (*calibration.Result, error) {
				return apiClient.Apply(calibration.ModeSDR)
			})
		case <-m.applyHDR.ClickedCh:
			m.run("Applying HDR...", func() (*calibration.Result, error) {
				return apiClient.Apply(calibration.ModeHDR)
			})
		case <-m.prepare.ClickedCh:
			m.run("Preparing HDR...", apiClient.PrepareHDR)
		case <-m.reapply.ClickedCh:
			m.run("Reapplying...", func() (*calibration.Result, error) {
				st, err := apiClient.GetStatus()
				if err != nil {
					return nil, err
				}
				return apiClient.Reapply(st.Mode, true, calibration.ReasonManual)
			})
		case <-ticker.C:
			refresh(m)
		case <-m.quit.ClickedCh:
			m.eventStop()
			systray.Quit()
			return
		}
	}
}

// run blocks the click loop while the daemon works, so clicks during a run
// queue up instead of racing it.
func (m *menu) run(busy string, fn func() (*calibration.Result, error)) {
	m.status.SetTitle("Status: " + busy)
	res, err := fn()
	if err != nil {
		logrus.WithError(err).Error("request failed")
		m.lastRun.SetTitle(errorTitle(err))
		refresh(m)
		return
	}
	m.lastRun.SetTitle(resultTitle(*res))
	refresh(m)
}

// watchEvents keeps the last-run line current when runs are started
// elsewhere, such as by the CLI or the reapply schedule.
func (m *menu) watchEvents(ctx context.Context) {
	for ev := range apiClient.SubscribeEvents(ctx) {
		logrus.WithFields(logrus.Fields{
			"event": ev.Name,
			"data":  string(ev.Data),
		}).Debug("new event")

		switch ev.Name {
		case events.RunFinished:
			res, err := events.DecodeAs[calibration.Result](ev)
			if err != nil {
				logrus.WithError(err).Error("failed to decode calibration.finished event")
				continue
			}
			m.lastRun.SetTitle(resultTitle(res))
			refresh(m)
		case events.ConfigReloaded:
			refresh(m)
		}
	}
}

func refresh(m *menu) {
	st, err := apiClient.GetStatus()
	if err != nil {
		logrus.WithError(err).Debug("cannot reach daemon")
		m.status.SetTitle("Status: Daemon not running")
		systray.SetTooltip("hdrcal - Daemon not running")
		setActionsEnabled(m, false)
		return
	}

	m.status.SetTitle(statusTitle(*st))
	systray.SetTooltip(tooltip(*st))
	setActionsEnabled(m, st.ColorManagement)
	if st.LastRun != nil {
		m.lastRun.SetTitle(resultTitle(*st.LastRun))
	}
}

func setActionsEnabled(m *menu, enabled bool) {
	for _, item := range []*systray.MenuItem{m.applySDR, m.applyHDR, m.prepare, m.reapply} {
		if enabled {
			item.Enable()
		} else {
			item.Disable()
		}
	}
}
