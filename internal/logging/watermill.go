package logging

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
)

// WatermillAdapter routes watermill's internal logging through a Logger.
type WatermillAdapter struct {
	log Logger
}

func NewWatermillAdapter(log Logger) *WatermillAdapter {
	return &WatermillAdapter{log: log}
}

func (a *WatermillAdapter) Error(msg string, err error, fields watermill.LogFields) {
	a.log.Error(context.Background(), msg, append(pairs(fields), "error", err)...)
}

func (a *WatermillAdapter) Info(msg string, fields watermill.LogFields) {
	a.log.Info(context.Background(), msg, pairs(fields)...)
}

func (a *WatermillAdapter) Debug(msg string, fields watermill.LogFields) {
	a.log.Debug(context.Background(), msg, pairs(fields)...)
}

// Trace is folded into Debug; logrus trace output is never enabled here.
func (a *WatermillAdapter) Trace(msg string, fields watermill.LogFields) {
	a.log.Debug(context.Background(), msg, pairs(fields)...)
}

func (a *WatermillAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &WatermillAdapter{log: a.log.With(pairs(fields)...)}
}

func pairs(fields watermill.LogFields) []any {
	args := make([]any, 0, 2*len(fields))
	for k, v := range fields {
		args = append(args, k, v)
	}
	return args
}
