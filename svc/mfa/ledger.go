package mfa

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/mfakit/pkg/audit"
	"github.com/dmitrymomot/mfakit/pkg/logger"
)

// AsyncLedger batches attempts in the background and writes them to every sink.
// Append never waits for a flush.
type AsyncLedger struct {
	w *audit.AsyncWriter[Attempt]
}

// NewAsyncLedger fans attempts out to sinks. Flush failures are logged with the
// number of attempts lost. opts.OnError, when set, is called as well.
func NewAsyncLedger(log *slog.Logger, opts audit.AsyncOptions, sinks ...audit.BatchWriter[Attempt]) (*AsyncLedger, error) {
	var next audit.BatchWriter[Attempt]
	if len(sinks) == 1 {
		next = sinks[0]
	} else {
		f, err := audit.NewFanout(sinks...)
		if err != nil {
			return nil, err
		}
		next = f
	}

	if log == nil {
		log = logger.Discard()
	}
	onError := opts.OnError
	opts.OnError = func(err error, dropped int) {
		log.Error("write verification attempts",
			logger.Component("mfa.ledger"),
			logger.Error(err),
			"dropped", dropped)
		if onError != nil {
			onError(err, dropped)
		}
	}

	return &AsyncLedger{w: audit.NewAsyncWriter(next, opts)}, nil
}

func (l *AsyncLedger) Append(ctx context.Context, a Attempt) error {
	return l.w.Enqueue(ctx, a)
}

// Close flushes queued attempts.
func (l *AsyncLedger) Close(ctx context.Context) error {
	return l.w.Close(ctx)
}

// LedgerFunc adapts a function to Ledger.
type LedgerFunc func(ctx context.Context, a Attempt) error

func (f LedgerFunc) Append(ctx context.Context, a Attempt) error {
	return f(ctx, a)
}
