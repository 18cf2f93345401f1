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

package rpc

import (
	"context"
	"encoding/binary"
	"math"
	"net"
	"testing"

	"github.com/go-openapi/strfmt"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	pb "github.com/weaviate/weaviate/grpc/generated/protocol/v1"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	enterrors "github.com/weaviate/chaos-harness/entities/errors"
	"github.com/weaviate/chaos-harness/usecases/monitoring"
)

type fakeSearch struct {
	pb.UnimplementedWeaviateServer
	t      *testing.T
	ids    []string
	failed bool
}

func (f *fakeSearch) Search(ctx context.Context, req *pb.SearchRequest) (*pb.SearchReply, error) {
	if f.failed {
		return nil, status.Error(codes.NotFound, "no such collection")
	}
	md, _ := metadata.FromIncomingContext(ctx)
	assert.Equal(f.t, []string{"Bearer secret"}, md.Get("authorization"))
	assert.Equal(f.t, "Benchmark", req.Collection)
	assert.True(f.t, req.Uses_127Api)

	vec := req.NearVector.VectorBytes
	if !assert.Len(f.t, vec, 8) {
		return nil, status.Error(codes.InvalidArgument, "bad vector")
	}
	assert.Equal(f.t, float32(0.25), math.Float32frombits(binary.LittleEndian.Uint32(vec[0:])))
	assert.Equal(f.t, float32(-2), math.Float32frombits(binary.LittleEndian.Uint32(vec[4:])))

	reply := &pb.SearchReply{}
	for i, id := range f.ids {
		if uint32(i) == req.Limit {
			break
		}
		reply.Results = append(reply.Results, &pb.SearchResult{
			Metadata: &pb.MetadataResult{Id: id, Distance: float32(i), DistancePresent: true},
		})
	}
	return reply, nil
}

func newBufconnClient(t *testing.T, srv pb.WeaviateServer, metrics *monitoring.Metrics) *Client {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer()
	pb.RegisterWeaviateServer(s, srv)
	go s.Serve(lis)
	t.Cleanup(s.Stop)

	logger, _ := test.NewNullLogger()
	c, err := New(Config{Host: "passthrough:///bufnet", APIKey: "secret"}, logger, metrics,
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestNearVector(t *testing.T) {
	srv := &fakeSearch{t: t, ids: []string{
		"00000000-0000-0000-0000-000000000003",
		"00000000-0000-0000-0000-000000000001",
		"00000000-0000-0000-0000-000000000002",
	}}
	reg := prometheus.NewPedanticRegistry()
	metrics := monitoring.NewMetrics(reg)
	c := newBufconnClient(t, srv, metrics)

	ids, err := c.NearVector(context.Background(), "Benchmark", []float32{0.25, -2}, 2)
	require.NoError(t, err)
	assert.Equal(t, []strfmt.UUID{
		"00000000-0000-0000-0000-000000000003",
		"00000000-0000-0000-0000-000000000001",
	}, ids)

	assert.Equal(t, 1, testutil.CollectAndCount(metrics.GRPCDurations))
}

func TestNearVectorError(t *testing.T) {
	c := newBufconnClient(t, &fakeSearch{t: t, failed: true}, nil)

	_, err := c.NearVector(context.Background(), "Benchmark", []float32{0.25, -2}, 2)
	require.Error(t, err)
	var te *enterrors.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, codes.NotFound, status.Code(te.Err))
}

func TestDialOptions(t *testing.T) {
	assert.Len(t, DialOptions(Config{Host: "localhost:50051"}, nil), 1)
	assert.Len(t, DialOptions(Config{Host: "cluster.example:443"}, nil), 1)
	assert.Len(t, DialOptions(Config{Host: "localhost:50051"}, monitoring.NewMetrics(nil)), 3)
}

func TestNewRequiresHost(t *testing.T) {
	logger, _ := test.NewNullLogger()
	_, err := New(Config{}, logger, nil)
	require.Error(t, err)
}
