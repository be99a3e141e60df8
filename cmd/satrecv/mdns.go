package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/grandcat/zeroconf"

	"github.com/sat-broadcast/satrecv/internal/carousel"
)

// mdnsServiceType advertises this receiver's metrics/health endpoint so a
// fleet of receivers on the same segment can be discovered by a monitoring
// host without static configuration.
const mdnsServiceType = "_satrecv._tcp"

// startMDNS registers the service via mDNS and returns a cleanup function.
// It is safe to call even if disabled (no-op) or if no metrics port is bound.
// The TXT record's carousel count is read from tracker at registration time;
// it is a point-in-time snapshot, not kept live as the receiver runs.
func startMDNS(ctx context.Context, cfg *appConfig, port int, tracker *carousel.Tracker) (func(), error) {
	if !cfg.mdnsEnable || port == 0 {
		return func() {}, nil
	}
	instance := cfg.mdnsName
	if instance == "" {
		host, _ := os.Hostname()
		instance = fmt.Sprintf("satrecv-%s", host)
	}
	meta := []string{
		"version=" + version,
		"commit=" + commit,
		"carousels=" + strconv.Itoa(tracker.Len()),
	}
	svc, err := zeroconf.Register(instance, mdnsServiceType, "local.", port, meta, nil)
	if err != nil {
		return nil, fmt.Errorf("mdns register: %w", err)
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		svc.Shutdown()
	}()
	return func() { close(done); svc.Shutdown(); time.Sleep(50 * time.Millisecond) }, nil
}
