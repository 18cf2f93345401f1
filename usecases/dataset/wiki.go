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
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/weaviate/chaos-harness/entities/ids"
)

// ChunkSize is the number of characters of paragraph content stored per
// object.
const ChunkSize = 825

// Article is one line of a wiki dump.
type Article struct {
	Title      string      `json:"title"`
	Paragraphs []Paragraph `json:"paragraphs"`
}

type Paragraph struct {
	// Title is nil for the untitled lead paragraphs of an article.
	Title   *string `json:"title,omitempty"`
	Content string  `json:"content"`
	Count   int     `json:"count"`
}

func ParseArticle(raw []byte) (Article, error) {
	var a Article
	if err := json.Unmarshal(raw, &a); err != nil {
		return a, errors.Wrap(err, "decode article")
	}
	if a.Title == "" {
		return a, errors.New("article has no title")
	}
	if a.Paragraphs == nil {
		return a, errors.Errorf("article %q has no paragraphs field", a.Title)
	}
	return a, nil
}

// Chunk splits s into consecutive windows of size characters. The last
// window may be shorter. Concatenating the result yields s again.
func Chunk(s string, size int) []string {
	if size < 1 || s == "" {
		return nil
	}
	chunks := make([]string, 0, utf8.RuneCountInString(s)/size+1)
	for len(s) > 0 {
		end, n := 0, 0
		for end < len(s) && n < size {
			_, w := utf8.DecodeRuneInString(s[end:])
			end += w
			n++
		}
		chunks = append(chunks, s[:end])
		s = s[end:]
	}
	return chunks
}

// Wiki expands articles into paragraph chunk objects of one collection.
type Wiki struct {
	Class     string
	ChunkSize int
}

func NewWiki(class string) Wiki {
	return Wiki{Class: class, ChunkSize: ChunkSize}
}

// Expand parses one raw line. Titled paragraphs whose title contains ':'
// are wiki meta pages and are left out.
func (w Wiki) Expand(raw []byte) (Item, error) {
	article, err := ParseArticle(raw)
	if err != nil {
		return Item{}, err
	}
	return Item{
		ID:      ids.Article(article.Title),
		Records: w.Records(article),
	}, nil
}

func (w Wiki) Records(article Article) []Record {
	var records []Record
	for _, p := range article.Paragraphs {
		if p.Title != nil && strings.Contains(*p.Title, ":") {
			continue
		}
		for i, content := range Chunk(p.Content, w.ChunkSize) {
			props := map[string]interface{}{
				"content":    content,
				"order":      p.Count,
				"word_count": utf8.RuneCountInString(content),
			}
			if p.Title != nil {
				props["title"] = *p.Title
			}
			records = append(records, Record{
				ID:         ids.Paragraph(article.Title, p.Count, i),
				Class:      w.Class,
				Properties: props,
			})
		}
	}
	return records
}
