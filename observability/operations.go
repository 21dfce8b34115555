package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// TracerName is the tracer name for nugetify operations
	TracerName = "github.com/willibrandon/nugetify"
)

// Common attribute keys
const (
	AttrSolutionPath   = attribute.Key("nugetify.solution.path")
	AttrProjectName    = attribute.Key("nugetify.project.name")
	AttrProjectPath    = attribute.Key("nugetify.project.path")
	AttrReferenceCount = attribute.Key("nugetify.reference.count")
	AttrResolveMode    = attribute.Key("nugetify.resolve.mode")
	AttrSourceName     = attribute.Key("nugetify.source")
	AttrOperation      = attribute.Key("nugetify.operation")
)

// StartRunSpan starts the root span of a nugetify invocation.
func StartRunSpan(ctx context.Context, inputPath, runID string) (context.Context, trace.Span) {
	return StartSpan(ctx, TracerName, "nugetify.run",
		trace.WithAttributes(
			attribute.String("nugetify.input", inputPath),
			attribute.String("nugetify.run_id", runID),
			AttrOperation.String("run"),
		),
	)
}

// StartSolutionPruneSpan starts a span for removing packaged projects from a solution
func StartSolutionPruneSpan(ctx context.Context, solutionPath string, projectCount int) (context.Context, trace.Span) {
	return StartSpan(ctx, TracerName, "solution.prune",
		trace.WithAttributes(
			AttrSolutionPath.String(solutionPath),
			attribute.Int("nugetify.project.count", projectCount),
			AttrOperation.String("prune"),
		),
	)
}

// StartProjectSpan starts a span for converting one project
func StartProjectSpan(ctx context.Context, projectName, projectPath string) (context.Context, trace.Span) {
	return StartSpan(ctx, TracerName, "project.nugetify",
		trace.WithAttributes(
			AttrProjectName.String(projectName),
			AttrProjectPath.String(projectPath),
			AttrOperation.String("nugetify"),
		),
	)
}

// StartResolveSpan starts a span for resolving references against a package source
func StartResolveSpan(ctx context.Context, mode string, referenceCount int, sourceName string) (context.Context, trace.Span) {
	return StartSpan(ctx, TracerName, "assembly.resolve",
		trace.WithAttributes(
			AttrResolveMode.String(mode),
			AttrReferenceCount.Int(referenceCount),
			AttrSourceName.String(sourceName),
			AttrOperation.String("resolve"),
		),
	)
}

// RecordResolution records resolved and failed counts on the current span
func RecordResolution(ctx context.Context, resolved, failed int) {
	SetAttributes(ctx,
		attribute.Int("nugetify.resolved.count", resolved),
		attribute.Int("nugetify.failed.count", failed),
	)
}

// EndSpanWithError ends a span with an error status
func EndSpanWithError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
