package models

import "time"

// HeartbeatResult captures the outcome of a single heartbeat tick. It is
// consumed by the scheduler's log record and then discarded.
type HeartbeatResult struct {
	Timestamp  time.Time     `json:"timestamp"`
	RTT        time.Duration `json:"rtt"`
	StatusCode int           `json:"status_code"`
	Uptime     string        `json:"uptime"`
	Ping       string        `json:"ping"`
	Err        error         `json:"-"`
}

// OK reports whether the heartbeat was delivered and acknowledged.
func (r HeartbeatResult) OK() bool {
	return r.Err == nil
}
