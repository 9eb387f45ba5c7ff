/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package tracing

import (
	"context"
	"net/http"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
)

// StartServerSpan will start a tracing span for an HTTP request from the server side.
// A span context propagated in the request headers becomes the parent.
func StartServerSpan(r *http.Request, operation string) (opentracing.Span, context.Context) {
	opts := []opentracing.StartSpanOption{ext.SpanKindRPCServer}

	wireContext, err := opentracing.GlobalTracer().Extract(opentracing.HTTPHeaders, opentracing.HTTPHeadersCarrier(r.Header))
	if err == nil {
		opts = append(opts, opentracing.ChildOf(wireContext))
	}

	span := opentracing.StartSpan(operation, opts...)
	ext.HTTPMethod.Set(span, r.Method)
	ext.HTTPUrl.Set(span, r.URL.Path)

	return span, opentracing.ContextWithSpan(r.Context(), span)
}

// StartClientSpan will start a tracing span for a call to the ledger network,
// a child of the span in ctx if there is one
func StartClientSpan(ctx context.Context, operation string) (opentracing.Span, context.Context) {
	span, ctx := opentracing.StartSpanFromContext(ctx, operation, ext.SpanKindRPCClient)
	return span, ctx
}

// FinishWithError tags the span as failed when err is not nil and finishes it
func FinishWithError(span opentracing.Span, err error) {
	if err != nil {
		ext.Error.Set(span, true)
		span.SetTag("error.message", err.Error())
	}
	span.Finish()
}
