//                           _       _
// __      _____  __ ___   ___  __ _| |_ ___
// \ \ /\ / / _ \/ _` \ \ / / |/ _` | __/ _ \
//  \ V  V /  __/ (_| |\ V /| | (_| | ||  __/
//   \_/\_/ \___|\__,_| \_/ |_|\__,_|\__\___|
//
//  Copyright © 2016 - 2024 Weaviate B.V. All rights reserved.
//
//  CONTACT: hello@weaviate.io
//

package monitoring

import (
	"context"
	"errors"
	"path"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/stats"
	"google.golang.org/grpc/status"
)

var _ stats.Handler = &RPCStats{}

type methodKey struct{}

// RPCStats feeds the wire level events of client calls into the in-flight
// gauge and the payload size histograms. Outgoing payloads are requests,
// incoming ones responses.
type RPCStats struct {
	inflight     *prometheus.GaugeVec
	requestSize  *prometheus.HistogramVec
	responseSize *prometheus.HistogramVec
}

func (m *Metrics) NewGrpcStatsHandler() *RPCStats {
	return &RPCStats{
		inflight:     m.GRPCInflight,
		requestSize:  m.GRPCRequestSize,
		responseSize: m.GRPCResponseSize,
	}
}

func (r *RPCStats) TagRPC(ctx context.Context, info *stats.RPCTagInfo) context.Context {
	return context.WithValue(ctx, methodKey{}, shortMethod(info.FullMethodName))
}

func (r *RPCStats) HandleRPC(ctx context.Context, s stats.RPCStats) {
	method, ok := ctx.Value(methodKey{}).(string)
	if !ok {
		return
	}
	switch ev := s.(type) {
	case *stats.Begin:
		r.inflight.WithLabelValues(method).Inc()
	case *stats.End:
		r.inflight.WithLabelValues(method).Dec()
	case *stats.OutPayload:
		r.requestSize.WithLabelValues(method).Observe(float64(ev.WireLength))
	case *stats.InPayload:
		r.responseSize.WithLabelValues(method).Observe(float64(ev.WireLength))
	}
}

func (r *RPCStats) TagConn(ctx context.Context, _ *stats.ConnTagInfo) context.Context {
	return ctx
}

func (r *RPCStats) HandleConn(context.Context, stats.ConnStats) {}

// UnaryClientInstrument times every unary call by method and status code.
func (m *Metrics) UnaryClientInstrument() grpc.UnaryClientInterceptor {
	durations := m.GRPCDurations
	return func(ctx context.Context, method string, req, reply interface{},
		cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption,
	) error {
		start := time.Now()
		err := invoker(ctx, method, req, reply, cc, opts...)
		durations.WithLabelValues(shortMethod(method), callCode(err).String()).
			Observe(time.Since(start).Seconds())
		return err
	}
}

// shortMethod turns "/weaviate.v1.Weaviate/Search" into "Search".
func shortMethod(full string) string {
	return path.Base(full)
}

// callCode maps an error returned by a call to its status code. Context
// errors raised on the client side carry no status of their own.
func callCode(err error) codes.Code {
	switch {
	case err == nil:
		return codes.OK
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	}
	if st, ok := status.FromError(err); ok {
		return st.Code()
	}
	return codes.Unknown
}
