package netutil

import (
	"errors"
	"net"
	"testing"
)

func TestListenPreferredFree(t *testing.T) {
	ln, err := Listen("127.0.0.1:0", nil, false)
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	defer func() { _ = ln.Close() }()

	if ln.Addr().(*net.TCPAddr).Port == 0 {
		t.Fatalf("Listen() addr = %v, want bound port", ln.Addr())
	}
}

func TestListenFallback(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen busy: %v", err)
	}
	defer func() { _ = busy.Close() }()

	ln, err := Listen(busy.Addr().String(), []string{busy.Addr().String(), "127.0.0.1:0"}, true)
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	defer func() { _ = ln.Close() }()

	if ln.Addr().String() == busy.Addr().String() {
		t.Fatalf("Listen() = %v, want a different address", ln.Addr())
	}
}

func TestListenNoFallback(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen busy: %v", err)
	}
	defer func() { _ = busy.Close() }()

	if _, err := Listen(busy.Addr().String(), []string{"127.0.0.1:0"}, false); err == nil {
		t.Fatalf("Listen() error = nil, want preferred address error")
	}
}

func TestListenExhausted(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen busy: %v", err)
	}
	defer func() { _ = busy.Close() }()

	_, err = Listen("", []string{busy.Addr().String()}, true)
	if !errors.Is(err, ErrNoBindAddr) {
		t.Fatalf("Listen() error = %v, want ErrNoBindAddr", err)
	}
}
