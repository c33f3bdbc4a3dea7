package gui

import (
	"fmt"
	"strings"
	"time"

	"github.com/hdrtray/hdrcal/pkg/calibration"
	"github.com/hdrtray/hdrcal/pkg/client"
	"github.com/hdrtray/hdrcal/pkg/daemon"
)

func statusTitle(st daemon.Status) string {
	switch {
	case !st.ColorManagement:
		return "Status: Color management off"
	case !st.ToolsAvailable:
		return "Status: Tools missing"
	}
	return fmt.Sprintf("Status: %s on display %d", strings.ToUpper(string(st.Mode)), st.Display)
}

func tooltip(st daemon.Status) string {
	s := fmt.Sprintf("hdrcal - %s", strings.ToUpper(string(st.Mode)))
	if st.Mock {
		s += " (mock)"
	}
	if st.NextReapply != nil {
		s += fmt.Sprintf(", next reapply %s", st.NextReapply.Local().Format(time.Kitchen))
	}
	return s
}

func resultTitle(res calibration.Result) string {
	what := string(res.Kind)
	if res.Kind != calibration.KindPrepareHDR {
		what += " " + strings.ToUpper(string(res.Mode))
	}
	if !res.OK {
		return fmt.Sprintf("Last run: %s failed", what)
	}
	return fmt.Sprintf("Last run: %s ok (%s)", what, res.Duration.Round(100*time.Millisecond))
}

func errorTitle(err error) string {
	if client.IsDaemonNotRunning(err) {
		return "Last run: daemon not running"
	}
	return "Last run: request failed"
}
