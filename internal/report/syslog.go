//go:build !windows

package report

import (
	"context"
	"fmt"
	"log/syslog"
)

// SyslogSink reports the reason and stack trace to the system log at error
// priority.
type SyslogSink struct {
	w *syslog.Writer
}

// NewSyslogSink connects to the local syslog daemon.
func NewSyslogSink(tag string) (*SyslogSink, error) {
	w, err := syslog.New(syslog.LOG_ERR|syslog.LOG_DAEMON, tag)
	if err != nil {
		return nil, fmt.Errorf("connect syslog: %w", err)
	}
	return &SyslogSink{w: w}, nil
}

// Deliver implements Sink.
func (s *SyslogSink) Deliver(_ context.Context, r *Report) error {
	msg := r.Reason
	if r.StackTrace != "" {
		msg = msg + "\n" + r.StackTrace
	}
	if err := s.w.Err(msg); err != nil {
		return fmt.Errorf("syslog report: %w", err)
	}
	return nil
}

// Close closes the syslog connection.
func (s *SyslogSink) Close() error {
	return s.w.Close()
}
