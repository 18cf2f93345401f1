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
	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
)

type EndpointName string

var (
	HTTP    EndpointName = "http"
	GRPC    EndpointName = "grpc"
	Metrics EndpointName = "metrics"
)

type endpoint struct {
	port nat.Port
	uri  string
}

type DockerContainer struct {
	name      string
	endpoints map[EndpointName]endpoint
	container testcontainers.Container
}

func (d *DockerContainer) Name() string {
	return d.name
}

// URI is the host:port of the HTTP API.
func (d *DockerContainer) URI() string {
	return d.GetEndpoint(HTTP)
}

// Origin is the URI with its scheme, as the harness config expects it.
func (d *DockerContainer) Origin() string {
	return "http://" + d.URI()
}

func (d *DockerContainer) GRPCURI() string {
	return d.GetEndpoint(GRPC)
}

func (d *DockerContainer) MetricsOrigin() string {
	return "http://" + d.GetEndpoint(Metrics)
}

func (d *DockerContainer) GetEndpoint(name EndpointName) string {
	if endpoint, ok := d.endpoints[name]; ok {
		return endpoint.uri
	}
	return ""
}
