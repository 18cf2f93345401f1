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

package dataset

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, path string) []Line {
	t.Helper()
	r, err := OpenLines(path)
	require.Nil(t, err)
	defer r.Close()

	var lines []Line
	for {
		line, err := r.Next()
		if err == io.EOF {
			break
		}
		require.Nil(t, err)
		lines = append(lines, line)
	}
	return lines
}

func TestOpenLines(t *testing.T) {
	dir := t.TempDir()
	content := "{\"a\":1}\n\n  \n{\"b\":2}\n{\"c\":3}"

	t.Run("plain", func(t *testing.T) {
		path := filepath.Join(dir, "wiki.jsonl")
		require.Nil(t, os.WriteFile(path, []byte(content), 0o644))

		lines := readAll(t, path)
		require.Len(t, lines, 3)
		assert.Equal(t, Line{Number: 1, Raw: []byte(`{"a":1}`)}, lines[0])
		assert.Equal(t, Line{Number: 4, Raw: []byte(`{"b":2}`)}, lines[1])
		assert.Equal(t, 5, lines[2].Number)
	})

	t.Run("zstd", func(t *testing.T) {
		path := filepath.Join(dir, "wiki.jsonl.zst")
		f, err := os.Create(path)
		require.Nil(t, err)
		enc, err := zstd.NewWriter(f)
		require.Nil(t, err)
		_, err = enc.Write([]byte(content))
		require.Nil(t, err)
		require.Nil(t, enc.Close())
		require.Nil(t, f.Close())

		lines := readAll(t, path)
		require.Len(t, lines, 3)
		assert.Equal(t, `{"c":3}`, string(lines[2].Raw))
	})

	t.Run("zip with several entries", func(t *testing.T) {
		path := filepath.Join(dir, "wiki.zip")
		f, err := os.Create(path)
		require.Nil(t, err)
		zw := zip.NewWriter(f)
		for name, body := range map[string]string{
			"part-2.json": "{\"x\":2}\n",
			"part-1.json": "{\"x\":1}\n{\"x\":1.5}\n",
		} {
			w, err := zw.Create(name)
			require.Nil(t, err)
			_, err = w.Write([]byte(body))
			require.Nil(t, err)
		}
		require.Nil(t, zw.Close())
		require.Nil(t, f.Close())

		lines := readAll(t, path)
		require.Len(t, lines, 3)
		assert.Equal(t, `{"x":1}`, string(lines[0].Raw))
		assert.Equal(t, `{"x":1.5}`, string(lines[1].Raw))
		assert.Equal(t, `{"x":2}`, string(lines[2].Raw))
		assert.Equal(t, 3, lines[2].Number)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := OpenLines(filepath.Join(dir, "missing.jsonl"))
		assert.NotNil(t, err)
	})
}
