package observe

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/felixgeelhaar/bolt/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("reach")

// Options controls where and how an Observer logs.
type Options struct {
	// Verbose enables info level. Otherwise only warnings and errors pass.
	Verbose bool
	// JSON switches from console lines to one JSON object per line.
	JSON bool
}

// Observer handles logging and tracing for solves.
type Observer struct {
	log    *bolt.Logger
	closer io.Closer
}

// New creates an Observer writing to out.
func New(out io.Writer, opts Options) *Observer {
	var l *bolt.Logger
	if opts.JSON {
		l = bolt.New(bolt.NewJSONHandler(out))
	} else {
		l = bolt.New(bolt.NewConsoleHandler(out))
	}
	if !opts.Verbose {
		l.SetLevel(bolt.WARN)
	}
	return &Observer{log: l}
}

// OpenFile creates an Observer appending to the log file at path, creating
// its directory if needed. Close releases the file.
func OpenFile(path string, opts Options) (*Observer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600) // #nosec G304
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	o := New(f, opts)
	o.closer = f
	return o, nil
}

// Discard returns an Observer that drops all log output.
func Discard() *Observer {
	return New(io.Discard, Options{})
}

func (o *Observer) Log() *bolt.Logger {
	return o.log
}

// StartSpan starts a new OTel span
func (o *Observer) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// EndSpan marks the span failed when err is set, then ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// Close releases the log file opened by OpenFile. It is a no-op for
// observers writing to a caller-owned writer.
func (o *Observer) Close() error {
	if o.closer == nil {
		return nil
	}
	err := o.closer.Close()
	o.closer = nil
	return err
}
