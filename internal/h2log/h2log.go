// Package h2log is the structured-logging facade threaded through the
// connection multiplexer.
//
// It wraps zap the way packetd-packetd/logger wraps it for its protocol
// decoders: a small interface built once at construction time and passed
// down, never a package-level global.
package h2log

import "go.uber.org/zap"

// Logger is the facade every component accepts at construction.
type Logger interface {
	Debugf(template string, args ...any)
	Infof(template string, args ...any)
	Warnf(template string, args ...any)
	Errorf(template string, args ...any)
}

// noop discards everything; it is the default when a caller passes nil.
type noop struct{}

func (noop) Debugf(string, ...any) {}
func (noop) Infof(string, ...any)  {}
func (noop) Warnf(string, ...any)  {}
func (noop) Errorf(string, ...any) {}

// Noop returns a Logger that discards every message.
func Noop() Logger { return noop{} }

// zapLogger adapts a *zap.SugaredLogger to Logger.
type zapLogger struct {
	s *zap.SugaredLogger
}

// New wraps z as a Logger. A nil z falls back to Noop.
func New(z *zap.Logger) Logger {
	if z == nil {
		return Noop()
	}
	return zapLogger{s: z.Sugar()}
}

func (l zapLogger) Debugf(template string, args ...any) { l.s.Debugf(template, args...) }
func (l zapLogger) Infof(template string, args ...any)  { l.s.Infof(template, args...) }
func (l zapLogger) Warnf(template string, args ...any)  { l.s.Warnf(template, args...) }
func (l zapLogger) Errorf(template string, args ...any) { l.s.Errorf(template, args...) }

// NewProduction builds a ready-to-use zap-backed Logger, mirroring the
// default construction packetd-packetd's logger.New uses in production mode.
func NewProduction() (Logger, error) {
	z, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return New(z), nil
}
