package painpoints

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// MaxSampledPosts bounds how many posts of one chunk are shown to the model.
const MaxSampledPosts = 500

// MaxPostRunes bounds the text taken from each post.
const MaxPostRunes = 500

// contentColumnHints are matched, in order, against each lower-cased column name.
var contentColumnHints = []string{"content", "body", "text", "message", "post"}

// Field is one column value of a post.
type Field struct {
	Name  string
	Value string
}

// Post is one data row keyed by the chunk's header, in header order.
// Values past the header width are dropped; a short row has fewer fields.
// A repeated column name appears once, at its first position, holding the last value.
type Post struct {
	Fields []Field
}

// ReadPosts parses a chunk file using its first row as column names.
func ReadPosts(path string) ([]Post, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := newRelaxedReader(f)
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	var posts []Post
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(posts)+1, err)
		}
		n := min(len(header), len(record))
		p := Post{Fields: make([]Field, 0, n)}
		seen := make(map[string]int, n)
		for i := 0; i < n; i++ {
			if j, ok := seen[header[i]]; ok {
				p.Fields[j].Value = record[i]
				continue
			}
			seen[header[i]] = len(p.Fields)
			p.Fields = append(p.Fields, Field{Name: header[i], Value: record[i]})
		}
		posts = append(posts, p)
	}
	return posts, nil
}

// ContentOf returns the post's text: the value of the first column whose name contains
// "content", "body", "text", "message" or "post" (case-insensitive), or every value joined
// by a space when no column matches.
func ContentOf(p Post) string {
	for _, f := range p.Fields {
		name := strings.ToLower(f.Name)
		for _, hint := range contentColumnHints {
			if strings.Contains(name, hint) {
				return f.Value
			}
		}
	}
	values := make([]string, len(p.Fields))
	for i, f := range p.Fields {
		values[i] = f.Value
	}
	return strings.Join(values, " ")
}

// SampleRows keeps every step-th post (step = len/max, 0-indexed) and at most max of them
// when there are more than max posts. Otherwise posts is returned unchanged.
func SampleRows(posts []Post, max int) []Post {
	if max <= 0 || len(posts) <= max {
		return posts
	}
	step := len(posts) / max
	out := make([]Post, 0, max)
	for i := 0; i < len(posts) && len(out) < max; i += step {
		out = append(out, posts[i])
	}
	return out
}
