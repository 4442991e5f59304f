package scan

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// FailureKind is the terminal failure classification of a probe.
type FailureKind int

const (
	FailureNone FailureKind = iota
	FailureTimeout
	FailureConnectionRefused
	FailureReset
	FailureProtocolMismatch
	FailureUnknown
)

func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "none"
	case FailureTimeout:
		return "timeout"
	case FailureConnectionRefused:
		return "connection_refused"
	case FailureReset:
		return "reset"
	case FailureProtocolMismatch:
		return "protocol_mismatch"
	default:
		return "unknown"
	}
}

// MarshalJSON serializes the failure kind as its string form.
func (k FailureKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON parses the string form back, so persisted reports can be
// reloaded.
func (k *FailureKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "none":
		*k = FailureNone
	case "timeout":
		*k = FailureTimeout
	case "connection_refused":
		*k = FailureConnectionRefused
	case "reset":
		*k = FailureReset
	case "protocol_mismatch":
		*k = FailureProtocolMismatch
	default:
		*k = FailureUnknown
	}
	return nil
}

// Candidate is an immutable proxy endpoint to be tested, produced by a source.
type Candidate struct {
	Host   string
	Port   int
	Source string
}

func (c Candidate) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// TargetResult holds the outcome of one reachability check through a proxy.
type TargetResult struct {
	Reached bool          `json:"reached"`
	Latency time.Duration `json:"latency"`
}

// ProbeResult is the outcome of a single SOCKS5 handshake probe.
type ProbeResult struct {
	Valid   bool
	Latency time.Duration
	Failure FailureKind
}

// Record is the per-candidate test result. Connectivity fields are written
// exactly once by the worker that owns the candidate; Reachability entries
// exist only when Valid is true. Province and Carrier are filled in by the
// geo collaborator after the pool has published the record.
type Record struct {
	Host    string `json:"host"`
	Port    int    `json:"port"`
	Source  string `json:"source,omitempty"`

	Valid   bool          `json:"valid"`
	Latency time.Duration `json:"latency"`
	Failure FailureKind   `json:"failure,omitempty"`

	Reachability map[string]TargetResult `json:"reachability,omitempty"`

	Province string `json:"province,omitempty"`
	Carrier  string `json:"carrier,omitempty"`

	TestedAt time.Time `json:"tested_at"`
}

func (r *Record) Address() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// FailureString is the serialized failure kind, empty for valid records.
func (r *Record) FailureString() string {
	if r.Valid {
		return ""
	}
	return r.Failure.String()
}

// Prober performs the transport-level SOCKS5 validity check.
type Prober interface {
	Probe(ctx context.Context, host string, port int) ProbeResult
}

// TargetChecker verifies that configured targets are reachable through a
// validated proxy. Implementations return one entry per configured target.
type TargetChecker interface {
	Check(ctx context.Context, c Candidate) map[string]TargetResult
}
