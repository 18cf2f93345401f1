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

package rest

import (
	"context"
	"strconv"

	"github.com/buger/jsonparser"
	"github.com/pkg/errors"
	"github.com/weaviate/weaviate/client/nodes"

	"github.com/weaviate/chaos-harness/usecases/convergence"
)

// NodeNames lists the nodes of the cluster.
func (c *Client) NodeNames(ctx context.Context) ([]string, error) {
	params := nodes.NewNodesGetParams().WithContext(ctx)
	res, err := c.api.Nodes.NodesGet(params, c.auth)
	if err != nil {
		return nil, transportErr("list nodes", err)
	}
	if res.Payload == nil {
		return nil, errors.New("list nodes: empty response")
	}
	names := make([]string, 0, len(res.Payload.Nodes))
	for _, node := range res.Payload.Nodes {
		if node == nil {
			continue
		}
		names = append(names, node.Name)
	}
	return names, nil
}

// Watermarks reads the raft statistics of the cluster.
func (c *Client) Watermarks(ctx context.Context) ([]convergence.Watermark, error) {
	body, err := c.get(ctx, "cluster statistics", "/v1/cluster/statistics")
	if err != nil {
		return nil, err
	}
	return ParseStatistics(body)
}

// ParseStatistics accepts the current body, which lists every node under
// "statistics", as well as the older single node body:
//
//	{"statistics": [{"name": "n1", "raft": {"appliedIndex": "42"}}]}
//	{"id": "n1", "raft": {"applied_index": 42}}
//
// Indexes may be numbers or decimal strings.
func ParseStatistics(body []byte) ([]convergence.Watermark, error) {
	if _, dt, _, err := jsonparser.Get(body, "statistics"); err == nil && dt == jsonparser.Array {
		var (
			marks   []convergence.Watermark
			itemErr error
		)
		_, err := jsonparser.ArrayEach(body, func(value []byte, _ jsonparser.ValueType, _ int, _ error) {
			if itemErr != nil {
				return
			}
			name, err := jsonparser.GetString(value, "name")
			if err != nil {
				itemErr = errors.Wrap(err, "node name")
				return
			}
			applied, err := watermark(value, "raft", "appliedIndex")
			if err != nil {
				itemErr = errors.Wrapf(err, "node %s", name)
				return
			}
			marks = append(marks, convergence.Watermark{Node: name, Applied: applied})
		}, "statistics")
		if err != nil {
			return nil, errors.Wrap(err, "parse statistics")
		}
		if itemErr != nil {
			return nil, errors.Wrap(itemErr, "parse statistics")
		}
		return marks, nil
	}

	name, err := jsonparser.GetString(body, "id")
	if err != nil {
		return nil, errors.Wrap(err, "parse statistics: node id")
	}
	applied, err := watermark(body, "raft", "applied_index")
	if err != nil {
		return nil, errors.Wrapf(err, "parse statistics: node %s", name)
	}
	return []convergence.Watermark{{Node: name, Applied: applied}}, nil
}

func watermark(data []byte, keys ...string) (uint64, error) {
	value, dt, _, err := jsonparser.Get(data, keys...)
	if err != nil {
		return 0, errors.Wrap(err, "applied index")
	}
	switch dt {
	case jsonparser.Number, jsonparser.String:
		n, err := strconv.ParseUint(string(value), 10, 64)
		if err != nil {
			return 0, errors.Wrap(err, "applied index")
		}
		return n, nil
	default:
		return 0, errors.Errorf("applied index has unexpected type %s", dt)
	}
}
