package scan

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// ProbeMode selects how deep the prober goes before declaring a proxy valid.
type ProbeMode string

const (
	// ProbeHandshakeOnly stops after the method-selection exchange.
	ProbeHandshakeOnly ProbeMode = "handshake-only"
	// ProbeFullConnect additionally issues a CONNECT to a throwaway target
	// to confirm the proxy actually relays traffic.
	ProbeFullConnect ProbeMode = "full-connect"
)

// SOCKS5 wire constants (RFC 1928 / RFC 1929).
const (
	socksVersion       = 0x05
	authVersion        = 0x01
	methodNoAuth       = 0x00
	methodUserPass     = 0x02
	methodNoAcceptable = 0xFF
	cmdConnect         = 0x01
	atypIPv4           = 0x01
	atypDomain         = 0x03
	repSucceeded       = 0x00
)

// HandshakeProber speaks the SOCKS5 greeting by hand rather than through a
// dialer library, so that a server that merely accepts TCP but is not a
// SOCKS5 proxy is classified as a protocol mismatch, not a later I/O error.
type HandshakeProber struct {
	timeout       time.Duration
	mode          ProbeMode
	connectTarget string
	username      string
	password      string
}

// ProberConfig configures a HandshakeProber.
type ProberConfig struct {
	Timeout       time.Duration
	Mode          ProbeMode
	ConnectTarget string // host:port, required for ProbeFullConnect
	Username      string // optional, offers username/password auth when set
	Password      string
}

func NewHandshakeProber(cfg ProberConfig) *HandshakeProber {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Mode == "" {
		cfg.Mode = ProbeHandshakeOnly
	}
	return &HandshakeProber{
		timeout:       cfg.Timeout,
		mode:          cfg.Mode,
		connectTarget: cfg.ConnectTarget,
		username:      cfg.Username,
		password:      cfg.Password,
	}
}

// Probe opens a TCP connection and performs the SOCKS5 method negotiation.
// It never blocks past the configured timeout: the connection deadline is set
// up front and a context cancellation forces the in-flight I/O to fail.
func (p *HandshakeProber) Probe(ctx context.Context, host string, port int) ProbeResult {
	start := time.Now()

	dialer := &net.Dialer{Timeout: p.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return ProbeResult{Failure: classifyNetError(err), Latency: time.Since(start)}
	}
	defer conn.Close()

	conn.SetDeadline(start.Add(p.timeout))
	stop := context.AfterFunc(ctx, func() {
		conn.SetDeadline(time.Unix(0, 1))
	})
	defer stop()

	if err := p.negotiateMethod(conn); err != nil {
		return ProbeResult{Failure: classifyHandshakeError(err), Latency: time.Since(start)}
	}

	if p.mode == ProbeFullConnect {
		if err := p.connectThrough(conn); err != nil {
			return ProbeResult{Failure: classifyHandshakeError(err), Latency: time.Since(start)}
		}
	}

	return ProbeResult{Valid: true, Latency: time.Since(start)}
}

// negotiateMethod sends the greeting and validates the server's method
// selection, running the RFC 1929 sub-negotiation when the server asks for it.
func (p *HandshakeProber) negotiateMethod(conn net.Conn) error {
	methods := []byte{methodNoAuth}
	if p.username != "" {
		methods = append(methods, methodUserPass)
	}

	greeting := append([]byte{socksVersion, byte(len(methods))}, methods...)
	if _, err := conn.Write(greeting); err != nil {
		return err
	}

	reply := make([]byte, 2)
	if _, err := io.ReadFull(conn, reply); err != nil {
		return err
	}

	if reply[0] != socksVersion {
		return errProtocolMismatch
	}

	switch reply[1] {
	case methodNoAuth:
		return nil
	case methodUserPass:
		if p.username == "" {
			return errProtocolMismatch
		}
		return p.authenticate(conn)
	default:
		// Includes 0xFF "no acceptable methods" and anything we never offered.
		return errProtocolMismatch
	}
}

func (p *HandshakeProber) authenticate(conn net.Conn) error {
	if len(p.username) > 255 || len(p.password) > 255 {
		return fmt.Errorf("credentials exceed 255 bytes")
	}

	req := []byte{authVersion, byte(len(p.username))}
	req = append(req, p.username...)
	req = append(req, byte(len(p.password)))
	req = append(req, p.password...)

	if _, err := conn.Write(req); err != nil {
		return err
	}

	reply := make([]byte, 2)
	if _, err := io.ReadFull(conn, reply); err != nil {
		return err
	}
	if reply[1] != 0x00 {
		return errProtocolMismatch
	}
	return nil
}

// connectThrough issues a CONNECT for the configured throwaway target and
// checks the reply code. The relayed connection is discarded immediately.
func (p *HandshakeProber) connectThrough(conn net.Conn) error {
	req, err := buildConnectRequest(p.connectTarget)
	if err != nil {
		return err
	}
	if _, err := conn.Write(req); err != nil {
		return err
	}

	// VER REP RSV ATYP
	header := make([]byte, 4)
	if _, err := io.ReadFull(conn, header); err != nil {
		return err
	}
	if header[0] != socksVersion || header[1] != repSucceeded {
		return errProtocolMismatch
	}

	var addrLen int
	switch header[3] {
	case atypIPv4:
		addrLen = net.IPv4len
	case atypDomain:
		lenByte := make([]byte, 1)
		if _, err := io.ReadFull(conn, lenByte); err != nil {
			return err
		}
		addrLen = int(lenByte[0])
	default:
		addrLen = net.IPv6len
	}

	rest := make([]byte, addrLen+2)
	_, err = io.ReadFull(conn, rest)
	return err
}

// buildConnectRequest assembles a CONNECT frame for a host:port target,
// using the domain address type for anything that is not a literal IPv4.
func buildConnectRequest(target string) ([]byte, error) {
	host, portStr, err := net.SplitHostPort(target)
	if err != nil {
		return nil, fmt.Errorf("invalid connect target %q: %w", target, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		return nil, fmt.Errorf("invalid connect target port %q", portStr)
	}

	req := []byte{socksVersion, cmdConnect, 0x00}
	if ip4 := net.ParseIP(host).To4(); ip4 != nil {
		req = append(req, atypIPv4)
		req = append(req, ip4...)
	} else {
		if len(host) > 255 {
			return nil, fmt.Errorf("connect target host too long")
		}
		req = append(req, atypDomain, byte(len(host)))
		req = append(req, host...)
	}
	return append(req, byte(port>>8), byte(port)), nil
}

var errProtocolMismatch = errors.New("not a SOCKS5 proxy")

// classifyNetError maps a dial error onto the failure taxonomy.
func classifyNetError(err error) FailureKind {
	switch {
	case err == nil:
		return FailureNone
	case isTimeoutError(err):
		return FailureTimeout
	case isConnectionRefused(err):
		return FailureConnectionRefused
	case isConnectionReset(err):
		return FailureReset
	default:
		return FailureUnknown
	}
}

// classifyHandshakeError maps an error raised after the TCP connect. A clean
// close or garbage bytes mid-handshake means the peer is not a SOCKS5 proxy.
func classifyHandshakeError(err error) FailureKind {
	switch {
	case errors.Is(err, errProtocolMismatch),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF):
		return FailureProtocolMismatch
	case isTimeoutError(err):
		return FailureTimeout
	case isConnectionReset(err):
		return FailureReset
	default:
		return FailureUnknown
	}
}

func isTimeoutError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isConnectionRefused(err error) bool {
	return err != nil && strings.Contains(err.Error(), "connection refused")
}

func isConnectionReset(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "broken pipe")
}
