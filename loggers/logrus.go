// Package loggers provides subscribers that log loopguard notifications.
package loggers

import (
	"github.com/rickchristie/loopguard"
	"github.com/sirupsen/logrus"
)

// Logrus logs notifications through a logrus logger.
//
// Detections are logged at warn level with structured fields; resets at debug level.
//
//	registry := events.NewRegistry().Subscribe(loggers.NewLogrus(logrus.StandardLogger()))
type Logrus struct {
	logger logrus.FieldLogger
}

// NewLogrus creates a Logrus subscriber. A nil logger uses logrus.StandardLogger().
func NewLogrus(logger logrus.FieldLogger) *Logrus {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Logrus{logger: logger}
}

// OnLoopDetected implements loopguard.LoopDetectedSubscriber.
func (l *Logrus) OnLoopDetected(event *loopguard.LoopDetectedEvent) {
	fields := logrus.Fields{
		"source":  event.Source,
		"turn_id": event.TurnID,
		"kind":    string(event.Detection.Kind),
		"count":   event.Detection.Count,
	}
	if event.Name != "" {
		fields["name"] = event.Name
	}
	if event.Detection.ToolName != "" {
		fields["tool"] = event.Detection.ToolName
	}
	if event.Detection.Sentence != "" {
		fields["sentence"] = event.Detection.Sentence
	}
	l.logger.WithFields(fields).Warn("repetition loop detected")
}

// OnReset implements loopguard.ResetSubscriber.
func (l *Logrus) OnReset(event *loopguard.ResetEvent) {
	l.logger.WithFields(logrus.Fields{
		"source":           event.Source,
		"name":             event.Name,
		"previous_turn_id": event.PreviousTurnID,
		"turn_id":          event.TurnID,
	}).Debug("repetition state reset")
}

var (
	_ loopguard.LoopDetectedSubscriber = (*Logrus)(nil)
	_ loopguard.ResetSubscriber        = (*Logrus)(nil)
)
