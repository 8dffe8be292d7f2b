package metrics

import (
	"context"

	"github.com/frameview/frameview/internal/preview"
	"github.com/frameview/frameview/pkg/types"
)

const (
	opStart  = "start"
	opStatus = "status"
	opStop   = "stop"
)

type wrappedOrchestrator struct {
	inner preview.Orchestrator
	c     *Collector
}

// WrapOrchestrator counts every orchestrator call and failure on the
// collector before delegating to the wrapped client.
func WrapOrchestrator(inner preview.Orchestrator, c *Collector) preview.Orchestrator {
	if inner == nil {
		return nil
	}
	if c == nil {
		c = New()
	}
	return &wrappedOrchestrator{inner: inner, c: c}
}

func (w *wrappedOrchestrator) StartSession(ctx context.Context, req types.StartSessionRequest) (types.SessionInfo, error) {
	w.c.IncRequest(opStart)
	info, err := w.inner.StartSession(ctx, req)
	if err != nil {
		w.c.IncRequestError(opStart)
	}
	return info, err
}

func (w *wrappedOrchestrator) SessionStatus(ctx context.Context, id string) (types.SessionInfo, error) {
	w.c.IncRequest(opStatus)
	info, err := w.inner.SessionStatus(ctx, id)
	if err != nil {
		w.c.IncRequestError(opStatus)
	}
	return info, err
}

func (w *wrappedOrchestrator) StopSession(ctx context.Context, id string) (types.StopSessionResponse, error) {
	w.c.IncRequest(opStop)
	ack, err := w.inner.StopSession(ctx, id)
	if err != nil {
		w.c.IncRequestError(opStop)
	}
	return ack, err
}
