package socketcan

import (
	"context"
	"errors"
	"log/slog"
)

// LogOption is a bitmask selecting which channel operations to log.
type LogOption uint8

const (
	LogNone LogOption = 0
	LogRead LogOption = 1 << iota
	LogWrite
	LogAll = LogRead | LogWrite
)

// NewLoggedChannel wraps a Channel and logs the selected operations at the
// given level through a slog.Logger. Would-block results are logged at debug
// level only; they are polling signals, not faults.
func NewLoggedChannel(inner Channel, logger *slog.Logger, level slog.Level, opts LogOption) Channel {
	return &loggedChannel{
		inner:  inner,
		logger: logger,
		level:  level,
		opts:   opts,
	}
}

type loggedChannel struct {
	inner  Channel
	logger *slog.Logger
	level  slog.Level
	opts   LogOption
}

// Transmit logs the frame and the outcome when write logging is enabled.
func (l *loggedChannel) Transmit(frame Frame) error {
	if l.opts&LogWrite != 0 {
		l.logger.Log(context.Background(), l.level, "can transmit",
			"id", frame.ID(),
			"extended", frame.IsExtended(),
			"rtr", frame.IsRemote(),
			"len", int(frame.Len()),
			"data", frame.Data(),
			"string", frame.String(),
		)
	}
	err := l.inner.Transmit(frame)
	if l.opts&LogWrite != 0 && err != nil {
		if errors.Is(err, ErrWouldBlock) {
			l.logger.Log(context.Background(), slog.LevelDebug, "can transmit would block",
				"id", frame.ID(),
			)
		} else {
			l.logger.Log(context.Background(), slog.LevelError, "can transmit error",
				"id", frame.ID(),
				"error", err,
			)
		}
	}
	return err
}

// Receive logs the received frame or error when read logging is enabled.
func (l *loggedChannel) Receive() (Frame, error) {
	f, err := l.inner.Receive()
	if l.opts&LogRead != 0 {
		switch {
		case errors.Is(err, ErrWouldBlock):
			l.logger.Log(context.Background(), slog.LevelDebug, "can receive would block")
		case err != nil:
			l.logger.Log(context.Background(), slog.LevelError, "can receive error",
				"error", err,
			)
		default:
			l.logger.Log(context.Background(), l.level, "can receive",
				"id", f.ID(),
				"extended", f.IsExtended(),
				"rtr", f.IsRemote(),
				"err", f.IsError(),
				"len", int(f.Len()),
				"data", f.Data(),
				"string", f.String(),
			)
		}
	}
	return f, err
}

// SetNonblocking forwards to the inner channel without logging.
func (l *loggedChannel) SetNonblocking(nonblocking bool) error {
	return l.inner.SetNonblocking(nonblocking)
}

// Close forwards to the inner channel without logging.
func (l *loggedChannel) Close() error {
	return l.inner.Close()
}
