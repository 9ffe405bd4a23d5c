package connectivity

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const (
	defaultInterval = 3 * time.Second
	defaultTimeout  = 2 * time.Second
)

// DefaultTargets are public DNS resolvers. Reaching any of them means the
// network is up, whatever state the auth API is in.
var DefaultTargets = []string{"1.1.1.1:53", "8.8.8.8:53"}

// Checker reports whether the portal has network connectivity. It does not
// say anything about the auth API itself.
type Checker interface {
	Online(ctx context.Context) bool
}

// Static is a fixed Checker.
type Static bool

// Online returns the fixed value.
func (s Static) Online(context.Context) bool {
	return bool(s)
}

// DialFunc opens a connection; it matches net.Dialer.DialContext.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// Options configures a Monitor.
type Options struct {
	Targets  []string
	Interval time.Duration
	Timeout  time.Duration
	Dial     DialFunc
	Logger   *zap.Logger
}

// Monitor dials general reachability targets with a TCP dial and caches
// the result.
type Monitor struct {
	targets  []string
	interval time.Duration
	timeout  time.Duration
	dial     DialFunc
	logger   *zap.Logger
	online   atomic.Bool
}

// NewMonitor constructs a Monitor. It reports online until the first check says otherwise.
func NewMonitor(opts Options) (*Monitor, error) {
	targets := make([]string, 0, len(opts.Targets))
	for _, target := range opts.Targets {
		if target = strings.TrimSpace(target); target != "" {
			targets = append(targets, target)
		}
	}
	if len(opts.Targets) == 0 {
		targets = append(targets, DefaultTargets...)
	}
	if len(targets) == 0 {
		return nil, errors.New("connectivity: targets are blank")
	}
	if opts.Interval <= 0 {
		opts.Interval = defaultInterval
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Dial == nil {
		dialer := &net.Dialer{}
		opts.Dial = dialer.DialContext
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	m := &Monitor{
		targets:  targets,
		interval: opts.Interval,
		timeout:  opts.Timeout,
		dial:     opts.Dial,
		logger:   opts.Logger.Named("connectivity"),
	}
	m.online.Store(true)
	return m, nil
}

// Online returns the cached check result.
func (m *Monitor) Online(context.Context) bool {
	return m.online.Load()
}

// Check dials the targets in order until one answers and updates the cached
// state.
func (m *Monitor) Check(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	var lastErr error
	online := false
	for _, target := range m.targets {
		conn, err := m.dial(ctx, "tcp", target)
		if err == nil {
			_ = conn.Close()
			online = true
			break
		}
		lastErr = err
	}

	if prev := m.online.Swap(online); prev != online {
		if online {
			m.logger.Info("network reachable")
		} else {
			m.logger.Warn("network unreachable", zap.Strings("targets", m.targets), zap.Error(lastErr))
		}
	}
	return online
}

// Run checks immediately and then on every interval until ctx is done.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}
