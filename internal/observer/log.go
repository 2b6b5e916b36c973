package observer

import "log/slog"

// Log is a sink that reports progress through slog.
//
// Step events are logged every Every steps at info level (every step at
// debug level when Every is 0). Initialization and termination are always
// logged.
type Log struct {
	Logger *slog.Logger
	Every  int64
}

// NewLog returns a Log sink. A nil logger uses slog.Default().
func NewLog(logger *slog.Logger, every int64) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{Logger: logger, Every: every}
}

func (l *Log) Handle(ev Event) {
	switch ev.Kind {
	case EventInitialized:
		l.Logger.Info("simulation ready", "nodes", ev.Nodes)
	case EventStep:
		if l.Every <= 0 {
			l.Logger.Debug("step",
				"step", ev.Step,
				"time", ev.Time.String(),
				"reaction", string(ev.Reaction),
				"node", int64(ev.Node))
			return
		}
		if ev.Step%l.Every == 0 {
			l.Logger.Info("progress",
				"step", ev.Step,
				"time", ev.Time.String(),
				"nodes", ev.Nodes)
		}
	case EventFinished:
		l.Logger.Info("simulation done",
			"step", ev.Step,
			"time", ev.Time.String(),
			"nodes", ev.Nodes)
	}
}
