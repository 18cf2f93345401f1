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

package docker

import (
	"context"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/testcontainers/testcontainers-go"
)

// Cluster is a running set of weaviate nodes sharing one docker network.
// Nodes are addressed by their position, 0 being the raft seed.
type Cluster struct {
	network *testcontainers.DockerNetwork
	nodes   []*DockerContainer
}

func (c *Cluster) Nodes() []*DockerContainer {
	return c.nodes
}

func (c *Cluster) Node(i int) (*DockerContainer, error) {
	if i < 0 || i >= len(c.nodes) {
		return nil, errors.Errorf("cluster has %d nodes, no node at %d", len(c.nodes), i)
	}
	return c.nodes[i], nil
}

// Stop halts the node without removing it, its data survives a Restart.
func (c *Cluster) Stop(ctx context.Context, i int, timeout time.Duration) error {
	node, err := c.Node(i)
	if err != nil {
		return err
	}
	return errors.Wrapf(node.container.Stop(ctx, &timeout), "stop %s", node.name)
}

// Restart starts a stopped node again. Docker may publish its ports on new
// host ports, so the endpoints are resolved anew.
func (c *Cluster) Restart(ctx context.Context, i int) error {
	node, err := c.Node(i)
	if err != nil {
		return err
	}
	if err := node.container.Start(ctx); err != nil {
		return errors.Wrapf(err, "start %s", node.name)
	}
	ports := make(map[EndpointName]nat.Port, len(node.endpoints))
	for name, e := range node.endpoints {
		ports[name] = e.port
	}
	node.endpoints, err = resolveEndpoints(ctx, node.container, ports)
	return errors.Wrapf(err, "endpoints of %s", node.name)
}

// Terminate removes every node and the network, collecting all failures.
func (c *Cluster) Terminate(ctx context.Context) error {
	var errs *multierror.Error
	for _, node := range c.nodes {
		if err := node.container.Terminate(ctx); err != nil {
			errs = multierror.Append(errs, errors.Wrapf(err, "terminate %s", node.name))
		}
	}
	if c.network != nil {
		if err := c.network.Remove(ctx); err != nil {
			errs = multierror.Append(errs, errors.Wrap(err, "remove network"))
		}
	}
	return errs.ErrorOrNil()
}

func resolveEndpoints(ctx context.Context, c testcontainers.Container,
	ports map[EndpointName]nat.Port,
) (map[EndpointName]endpoint, error) {
	endpoints := make(map[EndpointName]endpoint, len(ports))
	for name, port := range ports {
		uri, err := c.PortEndpoint(ctx, port, "")
		if err != nil {
			return nil, errors.Wrapf(err, "endpoint %s", name)
		}
		endpoints[name] = endpoint{port: port, uri: uri}
	}
	return endpoints, nil
}
