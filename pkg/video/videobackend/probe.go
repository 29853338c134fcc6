package videobackend

import (
	"context"
	"net"
	"net/url"
	"strings"

	"github.com/tauraamui/xerror"
)

var defaultStreamPorts = map[string]string{
	"rtsp":  "554",
	"rtsps": "322",
	"http":  "80",
	"https": "443",
}

// streamHost returns the host:port a network stream address points at. ok is
// false for addresses OpenCV opens locally, such as device indexes and file
// paths.
func streamHost(addr string) (host string, ok bool, err error) {
	if len(addr) == 0 {
		return "", false, xerror.New("connection address is undefined")
	}

	if !strings.Contains(addr, "://") {
		return "", false, nil
	}

	u, err := url.Parse(addr)
	if err != nil {
		return "", false, xerror.Errorf("unable to parse stream address: %w", err)
	}

	port, supported := defaultStreamPorts[strings.ToLower(u.Scheme)]
	if !supported {
		return "", false, xerror.Errorf("scheme: %s is unsupported", u.Scheme)
	}

	if len(u.Port()) > 0 {
		return u.Host, true, nil
	}
	return net.JoinHostPort(u.Hostname(), port), true, nil
}

// probeStreamHost dials the stream's host so an unreachable camera fails
// fast, and can be cancelled, rather than blocking inside OpenCV.
func probeStreamHost(ctx context.Context, addr string) error {
	host, ok, err := streamHost(addr)
	if err != nil || !ok {
		return err
	}

	d := &net.Dialer{}
	conn, err := d.DialContext(ctx, "tcp", host)
	if err != nil {
		return xerror.Errorf("stream host %s unreachable: %w", host, err)
	}
	return conn.Close()
}
