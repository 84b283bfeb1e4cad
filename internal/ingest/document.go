package ingest

import (
	"strings"

	"github.com/adrg/frontmatter"
)

// maxChunkChars bounds a single document chunk's size before it gets split
// further regardless of heading structure, keeping embed requests well
// under provider input limits.
const maxChunkChars = 4000

// chunkHeadingThreshold is the body size below which a document is kept as
// a single chunk; splitting short documents by heading only adds noise to
// retrieval.
const chunkHeadingThreshold = 1200

// DocumentMeta holds the frontmatter fields ingest_document understands.
type DocumentMeta map[string]any

// ParsedDocument is a document split into its frontmatter and body.
type ParsedDocument struct {
	Meta DocumentMeta
	Body string
}

// ParseDocument extracts YAML frontmatter from a markdown/text document. If
// the content carries no frontmatter block, the entire input is treated as
// the body.
func ParseDocument(content string) ParsedDocument {
	var meta DocumentMeta
	body, err := frontmatter.Parse(strings.NewReader(content), &meta)
	if err != nil {
		return ParsedDocument{Body: content}
	}
	return ParsedDocument{Meta: meta, Body: string(body)}
}

// Chunk is a single contiguous piece of a document's body, optionally
// labeled with the heading it fell under.
type Chunk struct {
	Heading string
	Text    string
}

// ChunkDocument splits a document body into chunks suitable for separate
// embedding: short bodies stay whole, longer ones split at markdown
// headings, and any resulting chunk still over maxChunkChars is split
// further on paragraph boundaries.
func ChunkDocument(body string) []Chunk {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return nil
	}
	if len(trimmed) <= chunkHeadingThreshold {
		return []Chunk{{Heading: "", Text: trimmed}}
	}

	byHeading := chunkByHeadings(trimmed)
	var out []Chunk
	for _, c := range byHeading {
		if len(c.Text) <= maxChunkChars {
			out = append(out, c)
			continue
		}
		for _, piece := range chunkBySize(c.Text, maxChunkChars) {
			out = append(out, Chunk{Heading: c.Heading, Text: piece})
		}
	}
	return out
}

// chunkByHeadings splits on lines starting with "#" (markdown ATX
// headings), attaching each heading's text to the chunk that follows it
// until the next heading line of any depth.
func chunkByHeadings(body string) []Chunk {
	lines := strings.Split(body, "\n")
	var chunks []Chunk
	heading := ""
	var buf strings.Builder

	flush := func() {
		text := strings.TrimSpace(buf.String())
		if text != "" {
			chunks = append(chunks, Chunk{Heading: heading, Text: text})
		}
		buf.Reset()
	}

	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			flush()
			heading = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "#"))
			continue
		}
		buf.WriteString(line)
		buf.WriteString("\n")
	}
	flush()

	if len(chunks) == 0 {
		return []Chunk{{Heading: "", Text: body}}
	}
	return chunks
}

// chunkBySize splits text into pieces no larger than max, preferring to
// break on blank-line paragraph boundaries before falling back to a hard
// cut.
func chunkBySize(text string, max int) []string {
	if len(text) <= max {
		return []string{text}
	}

	paragraphs := strings.Split(text, "\n\n")
	var out []string
	var cur strings.Builder

	flush := func() {
		if cur.Len() > 0 {
			out = append(out, strings.TrimSpace(cur.String()))
			cur.Reset()
		}
	}

	for _, p := range paragraphs {
		if len(p) > max {
			flush()
			for len(p) > max {
				out = append(out, p[:max])
				p = p[max:]
			}
			if p != "" {
				cur.WriteString(p)
			}
			continue
		}
		if cur.Len()+len(p)+2 > max {
			flush()
		}
		if cur.Len() > 0 {
			cur.WriteString("\n\n")
		}
		cur.WriteString(p)
	}
	flush()
	return out
}
