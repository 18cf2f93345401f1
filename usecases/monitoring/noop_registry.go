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

import "github.com/prometheus/client_golang/prometheus"

// NoopRegisterer swallows every registration. It is used when no metrics
// listener is configured.
var NoopRegisterer prometheus.Registerer = &NoopPrometheusRegistery{}

// NoopPrometheusRegistery is a no-op registry mainly used to replace the
// registery when monitoring is disabled.
type NoopPrometheusRegistery struct{}

func (n *NoopPrometheusRegistery) Register(prometheus.Collector) error {
	return nil
}

func (n *NoopPrometheusRegistery) MustRegister(...prometheus.Collector) {
}

func (n *NoopPrometheusRegistery) Unregister(prometheus.Collector) bool {
	return true
}
