package events

import "encoding/json"

// Event name constants
const (
	// RunStarted carries a calibration.Result with only the identity fields
	// set.
	RunStarted = "calibration.started"
	// RunFinished carries the complete calibration.Result.
	RunFinished = "calibration.finished"
	// ConfigReloaded carries a ConfigReloadedEvent.
	ConfigReloaded = "config.reloaded"
)

// Event is a generic SSE event from daemon.
type Event struct {
	Name string          // SSE event name
	Data json.RawMessage // Raw JSON payload
}

// ConfigReloadedEvent is the payload of config.reloaded.
type ConfigReloadedEvent struct {
	Source string `json:"source"` // "signal" or "file"
	Error  string `json:"error,omitempty"`
	Ts     int64  `json:"ts"`
}

// DecodeAs unmarshals the event payload into T. An empty payload yields the
// zero value of T.
//
//	res, err := events.DecodeAs[calibration.Result](ev)
func DecodeAs[T any](e Event) (T, error) {
	var zero T
	if len(e.Data) == 0 {
		return zero, nil
	}
	var v T
	if err := json.Unmarshal(e.Data, &v); err != nil {
		return zero, err
	}
	return v, nil
}
