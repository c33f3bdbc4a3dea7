package daemon

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/hdrtray/hdrcal/pkg/calibration"
	"github.com/hdrtray/hdrcal/pkg/config"
	"github.com/hdrtray/hdrcal/pkg/events"
	"github.com/hdrtray/hdrcal/pkg/tools"
	"github.com/hdrtray/hdrcal/pkg/vcp"
	"github.com/hdrtray/hdrcal/pkg/version"
)

// Status is the reply of GET /status.
type Status struct {
	Display         vcp.Display         `json:"display"`
	Mode            calibration.Mode    `json:"mode"`
	ColorManagement bool                `json:"colorManagement"`
	ToolsAvailable  bool                `json:"toolsAvailable"`
	Mock            bool                `json:"mock"`
	ReapplyCron     string              `json:"reapplyCron,omitempty"`
	NextReapply     *time.Time          `json:"nextReapply,omitempty"`
	LastRun         *calibration.Result `json:"lastRun,omitempty"`
}

// ToolsInfo is the reply of GET /tools.
type ToolsInfo struct {
	tools.Locator
	Available bool `json:"available"`
}

func abortWithError(c *gin.Context, code int, err error) {
	c.IndentedJSON(code, err.Error())
	_ = c.AbortWithError(code, err)
}

func (s *server) getConfig(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, s.conf.Snapshot())
}

func (s *server) getStatus(c *gin.Context) {
	st := Status{
		Display:         s.conf.DisplayID(),
		Mode:            s.conf.Mode(),
		ColorManagement: s.conf.ColorManagement(),
		ToolsAvailable:  s.tools.Available(),
		Mock:            s.mock,
		LastRun:         s.exec.Last(),
	}
	if s.sched != nil {
		spec, next, _ := s.sched.Status()
		st.ReapplyCron = spec
		if !next.IsZero() {
			st.NextReapply = &next
		}
	}
	c.IndentedJSON(http.StatusOK, st)
}

func (s *server) getTools(c *gin.Context) {
	info := ToolsInfo{Available: s.tools.Available()}
	if s.locator != nil {
		info.Locator = *s.locator
	}
	c.IndentedJSON(http.StatusOK, info)
}

func (s *server) applyMode(c *gin.Context) {
	mode, err := calibration.ParseMode(c.Param("mode"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}

	c.IndentedJSON(http.StatusOK, s.exec.Apply(mode))
}

func (s *server) reapplyMode(c *gin.Context) {
	mode, err := calibration.ParseMode(c.Param("mode"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}

	force := false
	if f := c.Query("force"); f != "" {
		force, err = strconv.ParseBool(f)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, fmt.Errorf("invalid force %q: %w", f, err))
			return
		}
	}

	reason, err := calibration.ParseReapplyReason(c.Query("reason"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}

	c.IndentedJSON(http.StatusOK, s.exec.Reapply(mode, force, reason))
}

func (s *server) prepareHDR(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, s.exec.PrepareHDR())
}

func (s *server) getRegister(c *gin.Context) {
	r, err := vcp.ParseRegister(c.Param("reg"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}

	v, err := s.exec.GetRegister(r)
	if err != nil {
		logrus.WithField("register", r).WithError(err).Warn("getRegister failed")
		code := http.StatusInternalServerError
		if errors.Is(err, vcp.ErrUnreadable) {
			code = http.StatusServiceUnavailable
		}
		abortWithError(c, code, err)
		return
	}

	c.IndentedJSON(http.StatusOK, v)
}

func (s *server) setRegister(c *gin.Context) {
	r, err := vcp.ParseRegister(c.Param("reg"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}

	var v int
	if err := c.ShouldBindJSON(&v); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}
	if v < 0 || v > 0xFFFF {
		abortWithError(c, http.StatusBadRequest, fmt.Errorf("value must be between 0 and 65535, got %d", v))
		return
	}

	verify := false
	if q := c.Query("verify"); q != "" {
		verify, err = strconv.ParseBool(q)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, fmt.Errorf("invalid verify %q: %w", q, err))
			return
		}
	}

	if err := s.exec.SetRegister(r, vcp.Value(v), verify); err != nil {
		logrus.WithField("register", r).WithError(err).Error("setRegister failed")
		abortWithError(c, http.StatusInternalServerError, err)
		return
	}

	logrus.WithFields(logrus.Fields{
		"register": r,
		"value":    v,
		"verify":   verify,
	}).Info("register set")

	c.IndentedJSON(http.StatusCreated, fmt.Sprintf("set %s to %d", r, v))
}

func (s *server) streamEvents(c *gin.Context) {
	ch := s.hub.Subscribe()
	defer s.hub.Unsubscribe(ch)

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	ctx := c.Request.Context()
	c.Stream(func(_ io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case ev, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent(ev.Name, string(ev.Data))
			return true
		}
	})
}

func getVersion(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, version.Version)
}

// reloadConfig reloads the config file and applies the reapply schedule.
func (s *server) reloadConfig(source string) {
	ev := events.ConfigReloadedEvent{Source: source, Ts: time.Now().Unix()}

	if err := s.conf.Load(); err != nil {
		logrus.WithError(err).Error("failed to reload config")
		ev.Error = err.Error()
		s.hub.Publish(events.ConfigReloaded, ev)
		return
	}

	if f, ok := s.conf.(*config.File); ok {
		logrus.WithFields(f.LogrusFields()).WithField("source", source).Info("config reloaded")
	}
	if s.sched != nil {
		if err := s.sched.Schedule(s.conf.ReapplyCron()); err != nil {
			logrus.WithError(err).Error("failed to update reapply schedule")
			ev.Error = err.Error()
		}
	}
	s.hub.Publish(events.ConfigReloaded, ev)
}
