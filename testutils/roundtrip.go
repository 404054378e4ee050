// Package testutils holds helpers for tests talking to a live server over TCP.
package testutils

import (
	"io"
	"net"
	"time"
)

const roundtripTimeout = 5 * time.Second

// Roundtrip dials addr, writes the raw request and reads everything until the server
// closes the connection.
func Roundtrip(addr string, request string) (string, error) {
	conn, err := net.DialTimeout("tcp", addr, roundtripTimeout)
	if err != nil {
		return "", err
	}

	defer func() {
		_ = conn.Close()
	}()

	if err = conn.SetDeadline(time.Now().Add(roundtripTimeout)); err != nil {
		return "", err
	}

	if _, err = io.WriteString(conn, request); err != nil {
		return "", err
	}

	response, err := io.ReadAll(conn)

	return string(response), err
}

// Listen binds a random port on the loopback interface.
func Listen() (*net.TCPListener, error) {
	addr, err := net.ResolveTCPAddr("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}

	return net.ListenTCP("tcp", addr)
}
