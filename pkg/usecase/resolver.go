package usecase

import (
	"bytes"
	"context"
	"encoding/xml"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/sheetshim/pkg/domain/interfaces"
	"github.com/m-mizutani/sheetshim/pkg/domain/model"
	"github.com/m-mizutani/sheetshim/pkg/domain/types"
)

const (
	nsDAV      = "DAV:"
	nsOwnCloud = "http://owncloud.org/ns"
)

// Resolve looks up the download path and display name of query.FileID under the user's
// file tree with a WebDAV basicsearch
func (uc *workbookUseCase) Resolve(ctx context.Context, conn interfaces.StorageConnection, query model.SearchQuery) (*model.SearchResult, error) {
	body, err := buildSearchRequest(query)
	if err != nil {
		// nothing was sent, so no pipeline error kind applies
		return nil, goerr.Wrap(err, "failed to build search request",
			goerr.V("file_id", query.FileID))
	}

	resp, err := conn.Search(ctx, body)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to search file by id",
			goerr.T(types.ErrTagUpstreamUnavailable),
			goerr.V("stage", "search"),
			goerr.V("file_id", query.FileID))
	}

	return parseSearchResponse(resp)
}

// buildSearchRequest renders the basicsearch document. Text is written as escaped
// character data so the user scope cannot introduce markup.
func buildSearchRequest(query model.SearchQuery) ([]byte, error) {
	if !isXMLText(query.UserScope) {
		return nil, goerr.New("user scope is not representable in XML",
			goerr.V("user_scope", query.UserScope))
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)

	enc := xml.NewEncoder(&buf)
	w := &tokenWriter{enc: enc}

	w.start("d:searchrequest",
		xml.Attr{Name: xml.Name{Local: "xmlns:d"}, Value: nsDAV},
		xml.Attr{Name: xml.Name{Local: "xmlns:oc"}, Value: nsOwnCloud},
	)
	w.start("d:basicsearch")

	w.start("d:select")
	w.start("d:prop")
	w.empty("d:displayname")
	w.end("d:prop")
	w.end("d:select")

	w.start("d:from")
	w.start("d:scope")
	w.text("d:href", "/files/"+query.UserScope)
	w.text("d:depth", "infinity")
	w.end("d:scope")
	w.end("d:from")

	w.start("d:where")
	w.start("d:eq")
	w.start("d:prop")
	w.empty("oc:fileid")
	w.end("d:prop")
	w.text("d:literal", strconv.FormatInt(query.FileID, 10))
	w.end("d:eq")
	w.end("d:where")

	w.empty("d:orderby")

	w.end("d:basicsearch")
	w.end("d:searchrequest")

	if w.err != nil {
		return nil, w.err
	}
	if err := enc.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// isXMLText reports whether s is valid UTF-8 made of characters allowed in XML 1.0.
// The encoder would otherwise replace them and search a different path.
func isXMLText(s string) bool {
	if !utf8.ValidString(s) {
		return false
	}
	for _, r := range s {
		switch {
		case r == '\t', r == '\n', r == '\r':
		case r >= 0x20 && r <= 0xD7FF:
		case r >= 0xE000 && r <= 0xFFFD:
		case r >= 0x10000 && r <= 0x10FFFF:
		default:
			return false
		}
	}
	return true
}

// tokenWriter keeps the first encoding error so the document can be written linearly
type tokenWriter struct {
	enc *xml.Encoder
	err error
}

func (w *tokenWriter) encode(tok xml.Token) {
	if w.err == nil {
		w.err = w.enc.EncodeToken(tok)
	}
}

func (w *tokenWriter) start(name string, attrs ...xml.Attr) {
	w.encode(xml.StartElement{Name: xml.Name{Local: name}, Attr: attrs})
}

func (w *tokenWriter) end(name string) {
	w.encode(xml.EndElement{Name: xml.Name{Local: name}})
}

func (w *tokenWriter) empty(name string) {
	w.start(name)
	w.end(name)
}

func (w *tokenWriter) text(name, value string) {
	w.start(name)
	w.encode(xml.CharData(value))
	w.end(name)
}

// node is an element of a parsed XML document. text is set only when the first child
// of the element is character data.
type node struct {
	local    string
	text     *string
	children []*node
}

// parseSearchResponse extracts the first href and the first displayname of the
// response in document order. It does not correlate them when the response holds
// several results.
func parseSearchResponse(body []byte) (*model.SearchResult, error) {
	root, err := parseDocument(body)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse search response",
			goerr.T(types.ErrTagMalformedResponse),
			goerr.V("stage", "parse"),
			goerr.V("size", len(body)))
	}

	href := findFirst(root, "href")
	if href == nil || href.text == nil {
		return nil, goerr.New("href not found in search response",
			goerr.T(types.ErrTagNotFound),
			goerr.V("stage", "parse"))
	}

	displayName := findFirst(root, "displayname")
	if displayName == nil || displayName.text == nil {
		return nil, goerr.New("displayname not found in search response",
			goerr.T(types.ErrTagNotFound),
			goerr.V("stage", "parse"))
	}

	return &model.SearchResult{
		DownloadPath: *href.text,
		DisplayName:  *displayName.text,
	}, nil
}

// parseDocument reads the whole body into a tree. The body must hold exactly one root
// element; anything but whitespace, comments, processing instructions and directives
// outside of it is rejected.
func parseDocument(body []byte) (*node, error) {
	dec := xml.NewDecoder(bytes.NewReader(body))
	dec.Strict = true

	var (
		root  *node
		stack []*node
		// firstChild is true until the innermost open element receives its first child
		firstChild bool
		// inText is true while character data keeps extending the leading text node
		inText bool
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			n := &node{local: t.Name.Local}
			if len(stack) == 0 {
				if root != nil {
					return nil, goerr.New("multiple root elements")
				}
				root = n
			} else {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, n)
			}
			stack = append(stack, n)
			firstChild, inText = true, false

		case xml.EndElement:
			stack = stack[:len(stack)-1]
			firstChild, inText = false, false

		case xml.CharData:
			if len(stack) == 0 {
				if len(strings.TrimSpace(string(t))) > 0 {
					return nil, goerr.New("text outside of root element")
				}
				continue
			}
			cur := stack[len(stack)-1]
			switch {
			case firstChild:
				s := string(t)
				cur.text = &s
				firstChild, inText = false, true
			case inText:
				// CDATA sections next to text belong to the same text node
				s := *cur.text + string(t)
				cur.text = &s
			}

		case xml.Comment, xml.ProcInst, xml.Directive:
			firstChild, inText = false, false
		}
	}

	if root == nil {
		return nil, goerr.New("root element not found")
	}
	if len(stack) != 0 {
		return nil, goerr.New("unclosed element", goerr.V("element", stack[len(stack)-1].local))
	}

	return root, nil
}

// findFirst walks the tree depth-first in pre-order and returns the first element whose
// local name is local, ignoring namespaces
func findFirst(n *node, local string) *node {
	if n.local == local {
		return n
	}
	for _, child := range n.children {
		if found := findFirst(child, local); found != nil {
			return found
		}
	}
	return nil
}
