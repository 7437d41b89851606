package logging

import (
	"bufio"
	"errors"
	"io"
	"net"
	"testing"
	"time"
)

func TestLogstashWriterForwardsLines(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	lines := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		line, err := bufio.NewReader(conn).ReadString('\n')
		if err == nil {
			lines <- line
		}
	}()

	w, err := NewLogstashWriter(ln.Addr().String())
	if err != nil {
		t.Fatalf("NewLogstashWriter returned error: %v", err)
	}
	defer w.Close()

	n, err := w.Write([]byte("hello"))
	if err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	if n != 5 {
		t.Fatalf("expected 5 bytes reported, got %d", n)
	}

	select {
	case line := <-lines:
		if line != "hello\n" {
			t.Fatalf("expected newline-terminated payload, got %q", line)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for forwarded line")
	}
}

func TestLogstashWriterDropsWhenUnreachable(t *testing.T) {
	// Reserve a port and close it so nothing is listening there.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	w, err := NewLogstashWriter(addr, WithDialTimeout(100*time.Millisecond), WithRetryInterval(time.Hour))
	if err != nil {
		t.Fatalf("NewLogstashWriter returned error: %v", err)
	}
	defer w.Close()

	// The caller must never see a network failure.
	if _, err := w.Write([]byte("dropped")); err != nil {
		t.Fatalf("expected dropped write to report success, got %v", err)
	}
	if _, err := w.Write([]byte("dropped again")); err != nil {
		t.Fatalf("expected cooldown write to report success, got %v", err)
	}
}

func TestLogstashWriterRejectsUseAfterClose(t *testing.T) {
	w, err := NewLogstashWriter("127.0.0.1:9999")
	if err != nil {
		t.Fatalf("NewLogstashWriter returned error: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if _, err := w.Write([]byte("late")); !errors.Is(err, io.ErrClosedPipe) {
		t.Fatalf("expected io.ErrClosedPipe, got %v", err)
	}
}

func TestNewLogstashWriterEmptyAddr(t *testing.T) {
	if _, err := NewLogstashWriter("  "); err == nil {
		t.Fatalf("expected error for empty address")
	}
}
