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

// Package rpc queries a weaviate instance over its gRPC search API.
package rpc

import (
	"context"
	"crypto/tls"
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/go-openapi/strfmt"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	pb "github.com/weaviate/weaviate/grpc/generated/protocol/v1"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	enterrors "github.com/weaviate/chaos-harness/entities/errors"
	"github.com/weaviate/chaos-harness/usecases/monitoring"
)

type Config struct {
	Host   string
	Secure bool
	APIKey string
}

type Client struct {
	conn   *grpc.ClientConn
	client pb.WeaviateClient
	apiKey string
	logger logrus.FieldLogger
}

// DialOptions picks TLS for secure hosts and for hosts on port 443 and
// instruments the connection when metrics is set.
func DialOptions(cfg Config, metrics *monitoring.Metrics) []grpc.DialOption {
	var opts []grpc.DialOption
	if cfg.Secure || strings.HasSuffix(cfg.Host, ":443") {
		tlsConfig := &tls.Config{
			InsecureSkipVerify: true,
		}
		opts = append(opts, grpc.WithTransportCredentials(credentials.NewTLS(tlsConfig)))
	} else {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}
	if metrics != nil {
		opts = append(opts,
			grpc.WithStatsHandler(metrics.NewGrpcStatsHandler()),
			grpc.WithUnaryInterceptor(metrics.UnaryClientInstrument()),
		)
	}
	return opts
}

func New(cfg Config, logger logrus.FieldLogger, metrics *monitoring.Metrics, extra ...grpc.DialOption) (*Client, error) {
	if cfg.Host == "" {
		return nil, errors.New("grpc host must be set")
	}
	opts := append(DialOptions(cfg, metrics), extra...)
	conn, err := grpc.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to dial: %w", err)
	}
	return &Client{
		conn:   conn,
		client: pb.NewWeaviateClient(conn),
		apiKey: cfg.APIKey,
		logger: logger,
	}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) withAuth(ctx context.Context) context.Context {
	if c.apiKey == "" {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+c.apiKey)
}

// NearVector returns the ids of the limit objects of class closest to
// vector, best match first.
func (c *Client) NearVector(ctx context.Context, class string, vector []float32, limit int) ([]strfmt.UUID, error) {
	req := &pb.SearchRequest{
		Collection:  class,
		Limit:       uint32(limit),
		Uses_127Api: true,
		Metadata: &pb.MetadataRequest{
			Uuid:     true,
			Distance: true,
		},
		NearVector: &pb.NearVector{
			VectorBytes: VectorBytes(vector),
		},
	}
	reply, err := c.client.Search(c.withAuth(ctx), req)
	if err != nil {
		return nil, enterrors.NewTransportError("grpc search "+class, err)
	}

	ids := make([]strfmt.UUID, 0, len(reply.Results))
	for _, res := range reply.Results {
		if res.Metadata == nil || res.Metadata.Id == "" {
			return nil, errors.Errorf("grpc search %s: result without id", class)
		}
		ids = append(ids, strfmt.UUID(res.Metadata.Id))
	}
	return ids, nil
}

// VectorBytes encodes vector as little endian float32s, the layout the
// server expects in NearVector.VectorBytes.
func VectorBytes(vector []float32) []byte {
	out := make([]byte, 4*len(vector))
	for i, v := range vector {
		binary.LittleEndian.PutUint32(out[4*i:], math.Float32bits(v))
	}
	return out
}
