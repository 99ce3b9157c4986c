// Package tools implements the small set of built-in network probes shared
// by the health prober and the `rote tool` CLI subcommands: a raw TCP
// reachability check and two flavors of HTTP GET.
package tools

import (
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-faster/errors"
)

// dialTimeout bounds how long IsPortOpen waits for a TCP connection.
const dialTimeout = 2 * time.Second

// IsPortOpen reports whether a TCP connection to 127.0.0.1:port succeeds.
func IsPortOpen(port int) error {
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		return errors.Wrapf(err, "port %d is not open", port)
	}
	_ = conn.Close()
	return nil
}

// HTTPGet performs an HTTP GET against target. It succeeds for any response
// status, failing only on a connection-level error.
func HTTPGet(target string) error {
	resp, err := http.Get(target)
	if err != nil {
		return errors.Wrapf(err, "GET %s", target)
	}
	defer resp.Body.Close()
	return nil
}

// HTTPGetOk performs an HTTP GET against target and requires a 2xx status.
func HTTPGetOk(target string) error {
	resp, err := http.Get(target)
	if err != nil {
		return errors.Wrapf(err, "GET %s", target)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.Newf("GET %s returned status %d", target, resp.StatusCode)
	}
	return nil
}
