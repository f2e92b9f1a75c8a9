// internal/parsing/loader.go
package parsing

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"

	"goldenrecord-engine/internal/common/errors"
)

// ==========================================================================
// LOADER
// ==========================================================================

// LoaderOptions bound what a single document is allowed to cost.
type LoaderOptions struct {
	// ExpansionFactor caps the cumulative size of decoded tokens relative to
	// the input byte size. Guards entity-expansion blowups.
	ExpansionFactor int64
	// MaxBytes rejects inputs above this raw size. Zero disables the check.
	MaxBytes int64
}

// DefaultLoaderOptions mirrors the pipeline defaults.
func DefaultLoaderOptions() LoaderOptions {
	return LoaderOptions{ExpansionFactor: 10}
}

// Load parses raw bytes into a Document tree. The source name is carried into
// errors only; it is never used to read anything.
//
// Parsing is strict: malformed markup, undefined entities and unsupported
// declared encodings are fatal. encoding/xml never fetches external entities,
// so only the predefined five plus character references resolve.
func Load(data []byte, source string, opts LoaderOptions) (*Document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.NewMalformedDocumentError(source, 0, 0, fmt.Errorf("document is empty"))
	}
	if opts.MaxBytes > 0 && int64(len(data)) > opts.MaxBytes {
		return nil, errors.NewDocumentTooLargeError(source, opts.MaxBytes, int64(len(data)))
	}
	if opts.ExpansionFactor <= 0 {
		opts.ExpansionFactor = 10
	}
	budget := opts.ExpansionFactor * int64(len(data))

	var (
		declaredEncoding = "utf-8"
		badEncoding      string
	)
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = true
	dec.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		declaredEncoding = strings.ToLower(charset)
		enc, err := ianaindex.IANA.Encoding(charset)
		if err != nil || enc == nil {
			badEncoding = charset
			return nil, fmt.Errorf("unsupported charset %q", charset)
		}
		return transform.NewReader(input, enc.NewDecoder()), nil
	}

	doc := &Document{Source: source, Namespaces: map[string]string{}}
	var (
		stack    []*Element
		consumed int64
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			if badEncoding != "" {
				return nil, errors.NewUnsupportedEncodingError(source, badEncoding)
			}
			line := 0
			if se, ok := err.(*xml.SyntaxError); ok {
				line = se.Line
			}
			return nil, errors.NewMalformedDocumentError(source, line, 0, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			consumed += int64(len(t.Name.Local))
			el := &Element{
				Tag:       t.Name.Local,
				Namespace: t.Name.Space,
				Line:      lineOf(dec),
			}
			for _, a := range t.Attr {
				consumed += int64(len(a.Name.Local) + len(a.Value))
				if a.Name.Space == "xmlns" {
					doc.Namespaces[a.Name.Local] = a.Value
					continue
				}
				if a.Name.Space == "" && a.Name.Local == "xmlns" {
					doc.Namespaces[""] = a.Value
					continue
				}
				el.Attrs = append(el.Attrs, Attr{Key: a.Name.Local, Value: a.Value})
			}
			if len(stack) == 0 {
				if doc.Root != nil {
					return nil, errors.NewMalformedDocumentError(source, el.Line, 0,
						fmt.Errorf("multiple root elements"))
				}
				doc.Root = el
			} else {
				parent := stack[len(stack)-1]
				el.Parent = parent
				parent.Children = append(parent.Children, el)
			}
			stack = append(stack, el)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			consumed += int64(len(t))
			if len(stack) > 0 {
				stack[len(stack)-1].Text += string(t)
			}
		}
		if consumed > budget {
			return nil, errors.NewDocumentTooLargeError(source, budget, consumed)
		}
	}

	if doc.Root == nil {
		return nil, errors.NewMalformedDocumentError(source, 0, 0, fmt.Errorf("no root element"))
	}
	doc.Encoding = declaredEncoding
	return doc, nil
}

func lineOf(dec *xml.Decoder) int {
	// InputPos is byte-accurate for line numbers on the token just read.
	line, _ := dec.InputPos()
	return line
}
