package client

import (
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	pkgerrors "github.com/pkg/errors"

	"github.com/hdrtray/hdrcal/pkg/calibration"
	"github.com/hdrtray/hdrcal/pkg/daemon"
	"github.com/hdrtray/hdrcal/pkg/vcp"
)

func decode[T any](ret string, what string) (*T, error) {
	var v T
	if err := json.Unmarshal([]byte(ret), &v); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal %s", what)
	}
	return &v, nil
}

func (c *Client) Apply(mode calibration.Mode) (*calibration.Result, error) {
	ret, err := c.Put("/apply/"+string(mode), "")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to apply %s calibration", mode)
	}
	return decode[calibration.Result](ret, "apply result")
}

func (c *Client) Reapply(mode calibration.Mode, force bool, reason calibration.ReapplyReason) (*calibration.Result, error) {
	q := url.Values{}
	q.Set("force", strconv.FormatBool(force))
	if reason != "" {
		q.Set("reason", string(reason))
	}
	ret, err := c.Put("/reapply/"+string(mode)+"?"+q.Encode(), "")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to reapply %s calibration", mode)
	}
	return decode[calibration.Result](ret, "reapply result")
}

func (c *Client) PrepareHDR() (*calibration.Result, error) {
	ret, err := c.Put("/prepare-hdr", "")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to prepare HDR")
	}
	return decode[calibration.Result](ret, "prepare-hdr result")
}

func (c *Client) GetRegister(r vcp.Register) (vcp.Value, error) {
	ret, err := c.Get("/register/0x" + r.Hex())
	if err != nil {
		return 0, pkgerrors.Wrapf(err, "failed to read %s", r)
	}
	v, err := strconv.Atoi(strings.TrimSpace(ret))
	if err != nil {
		return 0, pkgerrors.Wrapf(err, "failed to parse %s value", r)
	}
	return vcp.Value(v), nil
}

func (c *Client) SetRegister(r vcp.Register, v vcp.Value, verify bool) (string, error) {
	path := "/register/0x" + r.Hex()
	if verify {
		path += "?verify=true"
	}
	ret, err := c.Put(path, strconv.Itoa(int(v)))
	if err != nil {
		return "", pkgerrors.Wrapf(err, "failed to set %s", r)
	}
	return unquote(ret), nil
}

func (c *Client) GetConfig() (*calibration.Snapshot, error) {
	ret, err := c.Get("/config")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get config")
	}
	return decode[calibration.Snapshot](ret, "config")
}

func (c *Client) GetStatus() (*daemon.Status, error) {
	ret, err := c.Get("/status")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get status")
	}
	return decode[daemon.Status](ret, "status")
}

func (c *Client) GetTools() (*daemon.ToolsInfo, error) {
	ret, err := c.Get("/tools")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get tools")
	}
	return decode[daemon.ToolsInfo](ret, "tools")
}

func (c *Client) GetVersion() (string, error) {
	ret, err := c.Get("/version")
	if err != nil {
		return "", pkgerrors.Wrapf(err, "failed to get version")
	}
	return unquote(ret), nil
}

// unquote strips the JSON quotes around a string reply.
func unquote(s string) string {
	var out string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return strings.TrimSpace(s)
	}
	return out
}
