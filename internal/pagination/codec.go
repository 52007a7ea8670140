// Package pagination encodes search and delivery selections into the
// opaque tokens carried in inline keyboard callbacks. Tokens are
// stateless on purpose: the callback that flips a page may be handled
// by a different worker than the search that rendered it.
package pagination

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// MaxTokenBytes is the hard ceiling Telegram enforces on callback data.
const MaxTokenBytes = 64

const (
	prefixSearch = "s"
	prefixFile   = "f"
	tokenNoop    = "noop"

	delimiter = "|"
)

var (
	ErrMalformedToken = errors.New("malformed callback token")
	ErrTokenTooLong   = errors.New("callback token exceeds size limit")
)

// Callback is the decoded form of a token.
type Callback interface {
	isCallback()
}

// SearchCallback selects a page of an earlier search.
type SearchCallback struct {
	Query string
	Page  int
}

// FileCallback selects a stored record for delivery.
type FileCallback struct {
	ID string
}

// NoopCallback is the page-indicator button; it only acknowledges.
type NoopCallback struct{}

func (SearchCallback) isCallback() {}
func (FileCallback) isCallback()   {}
func (NoopCallback) isCallback()   {}

// EncodeSearch builds a page-navigation token. The query is URL-escaped
// so the delimiter can never appear in it, preserving the round-trip
// property. Queries whose encoded form would not fit fail closed:
// truncating would silently change what the button searches for.
func EncodeSearch(query string, page int) (string, error) {
	if page < 1 {
		return "", fmt.Errorf("%w: page %d", ErrMalformedToken, page)
	}
	token := prefixSearch + delimiter + strconv.Itoa(page) + delimiter + url.QueryEscape(query)
	if len(token) > MaxTokenBytes {
		return "", fmt.Errorf("%w: %d bytes", ErrTokenTooLong, len(token))
	}
	return token, nil
}

// EncodeFile builds a delivery token for a record id.
func EncodeFile(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" || strings.Contains(id, delimiter) {
		return "", fmt.Errorf("%w: bad record id", ErrMalformedToken)
	}
	token := prefixFile + delimiter + id
	if len(token) > MaxTokenBytes {
		return "", fmt.Errorf("%w: %d bytes", ErrTokenTooLong, len(token))
	}
	return token, nil
}

// EncodeNoop returns the page-indicator token.
func EncodeNoop() string {
	return tokenNoop
}

// Decode parses a callback token back into its tagged variant.
func Decode(token string) (Callback, error) {
	if len(token) > MaxTokenBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrTokenTooLong, len(token))
	}
	if token == tokenNoop {
		return NoopCallback{}, nil
	}
	prefix, rest, ok := strings.Cut(token, delimiter)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMalformedToken, token)
	}
	switch prefix {
	case prefixFile:
		if strings.TrimSpace(rest) == "" {
			return nil, fmt.Errorf("%w: empty record id", ErrMalformedToken)
		}
		return FileCallback{ID: rest}, nil
	case prefixSearch:
		pageRaw, escaped, ok := strings.Cut(rest, delimiter)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrMalformedToken, token)
		}
		page, err := strconv.Atoi(pageRaw)
		if err != nil || page < 1 {
			return nil, fmt.Errorf("%w: bad page %q", ErrMalformedToken, pageRaw)
		}
		query, err := url.QueryUnescape(escaped)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
		}
		return SearchCallback{Query: query, Page: page}, nil
	default:
		return nil, fmt.Errorf("%w: unknown prefix %q", ErrMalformedToken, prefix)
	}
}
