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
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/testcontainers/testcontainers-go/network"
	"golang.org/x/sync/errgroup"
)

// envTestWeaviateImage can be passed to tests to spin up the cluster with
// the given image
const envTestWeaviateImage = "TEST_WEAVIATE_IMAGE"

type Compose struct {
	size                  int
	withBackendFilesystem bool
}

func New() *Compose {
	return &Compose{size: 1}
}

func (d *Compose) With1NodeCluster() *Compose {
	d.size = 1
	return d
}

func (d *Compose) With3NodeCluster() *Compose {
	d.size = 3
	return d
}

func (d *Compose) WithBackendFilesystem() *Compose {
	d.withBackendFilesystem = true
	return d
}

// Start brings the nodes up. On error the returned Cluster still holds
// whatever was started, so it can be terminated.
func (d *Compose) Start(ctx context.Context) (*Cluster, error) {
	net, err := network.New(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "create network")
	}
	networkName := net.Name
	settings := map[string]string{}
	if d.withBackendFilesystem {
		settings["ENABLE_MODULES"] = "backup-filesystem"
		settings["BACKUP_FILESYSTEM_PATH"] = "/tmp/backups"
	}

	cs, err := d.startCluster(ctx, networkName, settings)
	cluster := &Cluster{network: net}
	for _, c := range cs {
		if c != nil {
			cluster.nodes = append(cluster.nodes, c)
		}
	}
	return cluster, err
}

func (d *Compose) startCluster(ctx context.Context, networkName string,
	settings map[string]string,
) ([]*DockerContainer, error) {
	if d.size < 1 || d.size > 3 {
		return nil, fmt.Errorf("cluster size must be between 1 and 3, got %d", d.size)
	}
	hostnames := []string{Weaviate1, Weaviate2, Weaviate3}[:d.size]
	nodes := make([]string, d.size)
	for i := range nodes {
		nodes[i] = "node" + strconv.Itoa(i+1)
	}

	settings["RAFT_PORT"] = "8300"
	settings["RAFT_INTERNAL_RPC_PORT"] = "8301"
	settings["RAFT_JOIN"] = strings.Join(nodes, ",")
	settings["RAFT_BOOTSTRAP_EXPECT"] = strconv.Itoa(d.size)

	image := os.Getenv(envTestWeaviateImage)
	cs := make([]*DockerContainer, d.size)
	eg := errgroup.Group{}
	for i := range hostnames {
		i := i
		config := copySettings(settings)
		config["CLUSTER_HOSTNAME"] = nodes[i]
		config["CLUSTER_GOSSIP_BIND_PORT"] = strconv.Itoa(7100 + 2*i)
		config["CLUSTER_DATA_BIND_PORT"] = strconv.Itoa(7101 + 2*i)
		if i > 0 {
			config["CLUSTER_JOIN"] = fmt.Sprintf("%s:7100", Weaviate1)
		}
		eg.Go(func() (err error) {
			if i > 0 {
				time.Sleep(time.Second * 3)
			}
			if cs[i], err = startWeaviate(ctx, config, networkName, image, hostnames[i]); err != nil {
				return errors.Wrapf(err, "start %s", hostnames[i])
			}
			return nil
		})
	}
	return cs, eg.Wait()
}

func copySettings(s map[string]string) map[string]string {
	copy := make(map[string]string, len(s))
	for k, v := range s {
		copy[k] = v
	}
	return copy
}
