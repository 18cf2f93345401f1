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
	"github.com/pkg/errors"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	Weaviate1 = "weaviate-1"
	Weaviate2 = "weaviate-2"
	Weaviate3 = "weaviate-3"

	defaultWeaviateImage = "semitechnologies/weaviate:1.29.0"
)

func startWeaviate(ctx context.Context, extraEnvSettings map[string]string,
	networkName, image, hostname string,
) (*DockerContainer, error) {
	if image == "" {
		image = defaultWeaviateImage
	}
	env := map[string]string{
		"AUTHENTICATION_ANONYMOUS_ACCESS_ENABLED": "true",
		"LOG_LEVEL":                 "debug",
		"QUERY_DEFAULTS_LIMIT":      "20",
		"PERSISTENCE_DATA_PATH":     "./data",
		"DEFAULT_VECTORIZER_MODULE": "none",
	}
	env["PROMETHEUS_MONITORING_ENABLED"] = "true"
	for key, value := range extraEnvSettings {
		env[key] = value
	}
	httpPort := nat.Port("8080/tcp")
	grpcPort := nat.Port("50051/tcp")
	metricsPort := nat.Port("2112/tcp")
	req := testcontainers.ContainerRequest{
		Image:    image,
		Hostname: hostname,
		Networks: []string{networkName},
		NetworkAliases: map[string][]string{
			networkName: {hostname},
		},
		ExposedPorts: []string{string(httpPort), string(grpcPort), string(metricsPort)},
		Env:          env,
		WaitingFor: wait.
			ForHTTP("/v1/.well-known/ready").
			WithPort(httpPort).
			WithStartupTimeout(120 * time.Second),
	}
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, err
	}

	node := &DockerContainer{name: hostname, container: c}
	node.endpoints, err = resolveEndpoints(ctx, c, map[EndpointName]nat.Port{
		HTTP: httpPort, GRPC: grpcPort, Metrics: metricsPort,
	})
	if err != nil {
		return node, errors.Wrapf(err, "start %s", hostname)
	}
	return node, nil
}
