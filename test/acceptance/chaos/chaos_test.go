//go:build integrationTest

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

package chaos

import (
	"context"
	"math/rand"
	"sort"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weaviate/chaos-harness/adapters/clients/rest"
	"github.com/weaviate/chaos-harness/adapters/clients/rpc"
	"github.com/weaviate/chaos-harness/entities/sweep"
	"github.com/weaviate/chaos-harness/test/docker"
	"github.com/weaviate/chaos-harness/usecases/backup"
	"github.com/weaviate/chaos-harness/usecases/convergence"
	"github.com/weaviate/chaos-harness/usecases/dataset"
	"github.com/weaviate/chaos-harness/usecases/ingest"
	sweepuc "github.com/weaviate/chaos-harness/usecases/sweep"
)

// randomVectors builds a small dataset with brute force l2 ground truth.
func randomVectors(base, queries, dims, k int) *dataset.Vectors {
	r := rand.New(rand.NewSource(42))
	vec := func() []float32 {
		v := make([]float32, dims)
		for i := range v {
			v[i] = r.Float32()
		}
		return v
	}
	data := &dataset.Vectors{}
	for i := 0; i < base; i++ {
		data.Base = append(data.Base, vec())
	}
	for i := 0; i < queries; i++ {
		q := vec()
		rows := make([]int, base)
		dist := make([]float32, base)
		for j, b := range data.Base {
			rows[j] = j
			for d := range b {
				diff := b[d] - q[d]
				dist[j] += diff * diff
			}
		}
		sort.Slice(rows, func(a, b int) bool { return dist[rows[a]] < dist[rows[b]] })
		data.Queries = append(data.Queries, q)
		data.Neighbors = append(data.Neighbors, rows[:k])
	}
	return data
}

func TestChaosHarness(t *testing.T) {
	ctx := context.Background()
	cluster, err := docker.New().With3NodeCluster().WithBackendFilesystem().Start(ctx)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, cluster.Terminate(ctx))
	}()

	logger, _ := test.NewNullLogger()
	node, err := cluster.Node(0)
	require.NoError(t, err)

	client, err := rest.New(rest.Config{Origin: node.Origin(), Timeout: 30 * time.Second}, logger)
	require.NoError(t, err)
	require.NoError(t, client.Live(ctx))

	converge := func(t *testing.T) {
		monitor := convergence.NewMonitor(convergence.Params{
			Nodes:        client,
			Statistics:   client,
			Logger:       logger,
			PollInterval: 500 * time.Millisecond,
			Timeout:      2 * time.Minute,
			CallTimeout:  10 * time.Second,
		})
		ok, err := monitor.CheckConvergence(ctx)
		require.NoError(t, err)
		assert.True(t, ok)
	}

	t.Run("cluster converges", converge)

	t.Run("sweep covers the grid", func(t *testing.T) {
		grpcClient, err := rpc.New(rpc.Config{Host: node.GRPCURI()}, logger, nil)
		require.NoError(t, err)
		defer grpcClient.Close()

		data := randomVectors(500, 20, 16, 10)
		harness := sweepuc.NewHarness(sweepuc.Params{
			Schema:      client,
			Importer:    client,
			HTTP:        client,
			GRPC:        grpcClient,
			Logger:      logger,
			Class:       "Benchmark",
			BatchSize:   100,
			K:           10,
			Parallelism: 4,
		})
		grid := sweep.Grid{
			ShardCounts:    []int{1, 2},
			MaxConnections: []int{16},
			EfConstruction: 64,
			Distance:       "l2-squared",
			SearchEfforts:  []int{16, 32},
		}
		cells, err := harness.RunSweep(ctx, "integration", grid.Cells(), data)
		require.NoError(t, err)
		require.Len(t, cells, 2)
		for _, cell := range cells {
			assert.Equal(t, 500, cell.Imported)
			require.Len(t, cell.Points, 2)
			for _, p := range cell.Points {
				assert.False(t, p.Failed(), p.Err)
				assert.Greater(t, p.Paths[sweep.PathHTTP].Recall, 0.8)
				assert.Greater(t, p.Paths[sweep.PathGRPC].Recall, 0.8)
				assert.Greater(t, p.Agreement, 0.8)
			}
		}
	})

	t.Run("import, validate, delete and back up", func(t *testing.T) {
		// same ids as the last sweep cell, so these are overwrites
		data := randomVectors(200, 1, 16, 1)
		records := data.Records("Benchmark")

		writer := ingest.NewBatchWriter(client, 50, logger, nil)
		for _, rec := range records {
			for _, res := range writer.Add(ctx, rec) {
				require.NoError(t, res.Err)
			}
		}
		for _, res := range writer.Flush(ctx) {
			require.NoError(t, res.Err)
		}

		listed, err := client.ListIDs(ctx, "Benchmark", 10000)
		require.NoError(t, err)
		validator := ingest.NewValidator(client, logger, 8)
		require.NoError(t, validator.AssertAllExist(ctx, "Benchmark", ingest.Dedupe(listed, logger)))

		sample := ingest.Sample(listed, 50, 1)
		deleted, err := ingest.DeleteByIDs(ctx, client, "Benchmark", sample, logger)
		require.NoError(t, err)
		assert.Equal(t, int64(50), deleted)

		creator := backup.NewCreator(client, "filesystem", time.Second, 2*time.Minute, logger, nil)
		require.NoError(t, creator.CreateBackup(ctx, backup.ID(time.Now()), "Benchmark"))
	})

	t.Run("cluster converges after a node restart", func(t *testing.T) {
		require.NoError(t, cluster.Stop(ctx, 2, 10*time.Second))
		require.NoError(t, cluster.Restart(ctx, 2))
		converge(t)
	})
}
