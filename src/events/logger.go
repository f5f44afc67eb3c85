package events

import (
	"sort"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/go-logr/logr"
)

type logrAdapter struct {
	logger logr.Logger
}

// NewLogrAdapter sends watermill's logs to logger. Debug maps to V(1) and
// Trace to V(2).
func NewLogrAdapter(logger logr.Logger) watermill.LoggerAdapter {
	return &logrAdapter{logger: logger}
}

func (a *logrAdapter) Error(msg string, err error, fields watermill.LogFields) {
	a.logger.Error(err, msg, keysAndValues(fields)...)
}

func (a *logrAdapter) Info(msg string, fields watermill.LogFields) {
	a.logger.Info(msg, keysAndValues(fields)...)
}

func (a *logrAdapter) Debug(msg string, fields watermill.LogFields) {
	a.logger.V(1).Info(msg, keysAndValues(fields)...)
}

func (a *logrAdapter) Trace(msg string, fields watermill.LogFields) {
	a.logger.V(2).Info(msg, keysAndValues(fields)...)
}

func (a *logrAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &logrAdapter{logger: a.logger.WithValues(keysAndValues(fields)...)}
}

func keysAndValues(fields watermill.LogFields) []interface{} {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	kv := make([]interface{}, 0, 2*len(keys))
	for _, k := range keys {
		kv = append(kv, k, fields[k])
	}
	return kv
}
