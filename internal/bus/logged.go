// internal/bus/logged.go
package bus

import (
	"context"
	"errors"

	"github.com/golang/glog"
)

// LogOption selects which directions a logged controller reports.
type LogOption uint8

const (
	LogTransmit LogOption = 1 << iota
	LogReceive

	LogAll = LogTransmit | LogReceive
)

type loggedController struct {
	inner  Controller
	level  glog.Level
	opts   LogOption
	filter FrameFilter
}

// NewLoggedController wraps c and logs frames at verbosity level.
// Failures are always logged. A nil filter logs every frame.
func NewLoggedController(c Controller, level glog.Level, opts LogOption, filter FrameFilter) Controller {
	return &loggedController{inner: c, level: level, opts: opts, filter: filter}
}

func (l *loggedController) wants(f Frame) bool {
	return l.filter == nil || l.filter(f)
}

func (l *loggedController) Transmit(ctx context.Context, f Frame) error {
	err := l.inner.Transmit(ctx, f)
	if err != nil {
		glog.Errorf("canbus tx %03X failed: %v", f.ID, err)
		return err
	}
	if l.opts&LogTransmit != 0 && l.wants(f) && bool(glog.V(l.level)) {
		glog.Infof("canbus tx %s", f)
	}
	return nil
}

func (l *loggedController) Receive(ctx context.Context) (Frame, error) {
	f, err := l.inner.Receive(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, ErrClosed) {
			glog.Errorf("canbus rx failed: %v", err)
		}
		return f, err
	}
	if l.opts&LogReceive != 0 && l.wants(f) && bool(glog.V(l.level)) {
		glog.Infof("canbus rx %s", f)
	}
	return f, nil
}

func (l *loggedController) Close() error {
	return l.inner.Close()
}
