package conn

import (
	"context"
	"net"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func TestOpenRetryingSucceedsOnceListenerIsUp(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().(*net.TCPAddr)
	ln.Close() // force the first dial to fail

	go func() {
		time.Sleep(30 * time.Millisecond)
		ln2, err := net.Listen("tcp", addr.String())
		if err != nil {
			return
		}
		defer ln2.Close()
		conn, err := ln2.Accept()
		if err == nil {
			conn.Close()
		}
	}()

	limiter := rate.NewLimiter(rate.Every(10*time.Millisecond), 1)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	c, err := OpenRetrying(ctx, "127.0.0.1", addr.Port, limiter)
	if err != nil {
		t.Fatalf("OpenRetrying: %v", err)
	}
	defer c.Close()
}

func TestOpenRetryingGivesUpWhenContextCanceled(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().(*net.TCPAddr)
	ln.Close()

	limiter := rate.NewLimiter(rate.Every(200*time.Millisecond), 1)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = OpenRetrying(ctx, "127.0.0.1", addr.Port, limiter)
	if err == nil {
		t.Fatal("expected error once context deadline exceeds retry backoff")
	}
}
