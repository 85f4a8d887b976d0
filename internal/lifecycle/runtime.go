package lifecycle

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
)

type Component interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

type named struct {
	name      string
	component Component
}

// Runtime starts components in registration order and stops them in reverse.
type Runtime struct {
	components []named
}

func NewRuntime() *Runtime {
	return &Runtime{}
}

func (r *Runtime) Register(name string, component Component) {
	if component == nil {
		return
	}
	r.components = append(r.components, named{name: name, component: component})
}

// Start stops whatever already started when a component fails to start.
func (r *Runtime) Start(ctx context.Context) error {
	entry := getLogEntry().WithField("method", "Start")
	started := make([]named, 0, len(r.components))
	for _, c := range r.components {
		if err := c.component.Start(ctx); err != nil {
			entry.WithFields(log.Fields{
				"component": c.name,
				"error":     err.Error(),
			}).Error("cant start component")
			_ = stopComponents(ctx, started)
			return fmt.Errorf("start %s: %w", c.name, err)
		}
		entry.WithField("component", c.name).Debug("started")
		started = append(started, c)
	}
	return nil
}

func (r *Runtime) Stop(ctx context.Context) error {
	return stopComponents(ctx, r.components)
}

func stopComponents(ctx context.Context, components []named) error {
	entry := getLogEntry().WithField("method", "Stop")
	var stopErr error
	for i := len(components) - 1; i >= 0; i-- {
		c := components[i]
		if err := c.component.Stop(ctx); err != nil {
			entry.WithFields(log.Fields{
				"component": c.name,
				"error":     err.Error(),
			}).Warn("cant stop component")
			stopErr = errors.Join(stopErr, fmt.Errorf("stop %s: %w", c.name, err))
			continue
		}
		entry.WithField("component", c.name).Debug("stopped")
	}
	return stopErr
}

func getLogEntry() *log.Entry {
	return log.WithField("object", "Runtime")
}
