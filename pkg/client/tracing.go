package client

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"digital.vasic.salamoonder/pkg/task"
)

const (
	tracerName = "digital.vasic.salamoonder/client"

	spanSubmit      = "salamoonder.task.submit"
	spanAwait       = "salamoonder.task.await"
	spanGetSolution = "salamoonder.task.get_solution"
	spanBalance     = "salamoonder.balance"

	attrKind     = "salamoonder.task.kind"
	attrTaskID   = "salamoonder.task.id"
	attrAttempts = "salamoonder.task.poll_attempts"
	attrCode     = "salamoonder.error.code"
)

func (c *Client) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return c.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if code := task.CodeOf(err); code != "" {
			span.SetAttributes(attribute.String(attrCode, string(code)))
		}
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
