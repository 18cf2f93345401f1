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

// Package ids derives content-addressed object identifiers. Equal keys
// always yield equal identifiers, so re-importing the same logical entity
// targets the same object.
package ids

import (
	"strconv"
	"strings"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
)

// FromKey returns the name-based (version 3) UUID of key in the DNS
// namespace.
func FromKey(key string) strfmt.UUID {
	return strfmt.UUID(uuid.NewMD5(uuid.NameSpaceDNS, []byte(key)).String())
}

// NormalizeTitle turns a human readable title into the key form used for
// identifiers: spaces become underscores.
func NormalizeTitle(title string) string {
	return strings.ReplaceAll(title, " ", "_")
}

// Article is the identifier of a top-level wiki record.
func Article(title string) strfmt.UUID {
	return FromKey(NormalizeTitle(title))
}

// Paragraph is the identifier of one chunk of one paragraph of an article.
func Paragraph(articleTitle string, paragraphCount, chunkIndex int) strfmt.UUID {
	return FromKey(ParagraphKey(articleTitle, paragraphCount, chunkIndex))
}

// ParagraphKey is the normalized content key of a paragraph chunk.
// Count and chunk index are concatenated without separator.
func ParagraphKey(articleTitle string, paragraphCount, chunkIndex int) string {
	var sb strings.Builder
	sb.WriteString(NormalizeTitle(articleTitle))
	sb.WriteString("___paragraph___")
	sb.WriteString(strconv.Itoa(paragraphCount))
	sb.WriteString(strconv.Itoa(chunkIndex))
	return sb.String()
}

// Row is the identifier of a row of a vector dataset.
func Row(index int) strfmt.UUID {
	return FromKey("row___" + strconv.Itoa(index))
}
