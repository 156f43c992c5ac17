// Package frontmatter reads and writes the YAML block that prefixes a post.
package frontmatter

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/adrg/frontmatter"
	"gopkg.in/yaml.v3"
)

// Delimiter opens and closes a YAML front matter block.
const Delimiter = "---"

// ErrMissing indicates the document has no front matter block, or an opening
// delimiter without a closing one.
var ErrMissing = errors.New("front matter block not found")

// yamlFormat decodes with yaml.v3 so that unquoted dates stay verbatim when the
// target field is a string.
var yamlFormat = frontmatter.NewFormat(Delimiter, Delimiter, yaml.Unmarshal)

// Decode unmarshals the leading front matter of src into v and returns the
// remaining body. A document without front matter fails with ErrMissing.
func Decode(src []byte, v any) ([]byte, error) {
	body, err := frontmatter.MustParse(bytes.NewReader(src), v, yamlFormat)
	if err != nil {
		if errors.Is(err, frontmatter.ErrNotFound) {
			return nil, ErrMissing
		}
		return nil, fmt.Errorf("decode front matter: %w", err)
	}
	return body, nil
}

// Encode renders v as a front matter block followed by body.
func Encode(v any, body []byte) ([]byte, error) {
	fm, err := Marshal(v)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(fm)+len(body)+2*len(Delimiter)+2)
	out = append(out, Delimiter+"\n"...)
	out = append(out, fm...)
	out = append(out, Delimiter+"\n"...)
	out = append(out, body...)
	return out, nil
}

// Marshal serializes v as YAML with two-space indentation. Struct fields keep
// declaration order, so the output is stable for a given value.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		_ = enc.Close()
		return nil, fmt.Errorf("encode front matter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode front matter: %w", err)
	}
	return buf.Bytes(), nil
}
