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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/buger/jsonparser"
	"github.com/go-openapi/strfmt"
	"github.com/pkg/errors"
)

type graphQLQuery struct {
	Query string `json:"query"`
}

// NearVector returns the ids of the limit objects of class closest to
// vector, best match first.
func (c *Client) NearVector(ctx context.Context, class string, vector []float32, limit int) ([]strfmt.UUID, error) {
	body, err := json.Marshal(graphQLQuery{Query: nearVectorQuery(class, vector, limit)})
	if err != nil {
		return nil, errors.Wrap(err, "marshal graphql query")
	}
	op := "graphql nearVector " + class
	payload, err := c.do(ctx, op, http.MethodPost, "/v1/graphql", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	return parseNearVector(payload, class)
}

func nearVectorQuery(class string, vector []float32, limit int) string {
	var sb strings.Builder
	sb.WriteString("{Get{")
	sb.WriteString(class)
	sb.WriteString("(limit:")
	sb.WriteString(strconv.Itoa(limit))
	sb.WriteString(",nearVector:{vector:[")
	for i, v := range vector {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatFloat(float64(v), 'g', -1, 32))
	}
	sb.WriteString("]}){_additional{id}}}}")
	return sb.String()
}

// parseNearVector reads the ids out of a Get response. GraphQL errors are
// reported even when the server answered with 200.
func parseNearVector(payload []byte, class string) ([]strfmt.UUID, error) {
	if errs, dt, _, err := jsonparser.Get(payload, "errors"); err == nil && dt == jsonparser.Array {
		var msgs []string
		jsonparser.ArrayEach(errs, func(value []byte, _ jsonparser.ValueType, _ int, _ error) {
			if msg, err := jsonparser.GetString(value, "message"); err == nil {
				msgs = append(msgs, msg)
			}
		})
		if len(msgs) > 0 {
			return nil, fmt.Errorf("graphql: %s", strings.Join(msgs, "; "))
		}
	}

	results, dt, _, err := jsonparser.Get(payload, "data", "Get", class)
	if err != nil {
		return nil, errors.Wrapf(err, "graphql: no results for %s", class)
	}
	if dt == jsonparser.Null {
		return nil, nil
	}
	var (
		ids      []strfmt.UUID
		parseErr error
	)
	_, err = jsonparser.ArrayEach(results, func(value []byte, _ jsonparser.ValueType, _ int, _ error) {
		if parseErr != nil {
			return
		}
		id, err := jsonparser.GetString(value, "_additional", "id")
		if err != nil {
			parseErr = errors.Wrap(err, "graphql: result without id")
			return
		}
		ids = append(ids, strfmt.UUID(id))
	})
	if err != nil {
		return nil, errors.Wrap(err, "graphql: parse results")
	}
	return ids, parseErr
}
