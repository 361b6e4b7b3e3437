package mediaref

import (
	"encoding/base64"
	"fmt"
	"path/filepath"
	"strings"
)

// Kind discriminates the active representation of a Reference.
type Kind string

const (
	// KindLocal points at a file on the local filesystem.
	KindLocal Kind = "local"
	// KindURL is a remote HTTP(S) URL a provider can fetch directly.
	KindURL Kind = "url"
	// KindInline carries the payload as a base64 data URL.
	KindInline Kind = "inline"
)

// Reference is a pointer to binary media content. Exactly one representation
// is active; once a reference is a URL or inline payload it is immutable and
// provider-agnostic.
type Reference struct {
	Kind        Kind
	Path        string
	URL         string
	Data        string
	ContentType string
}

// FromPath builds a local reference, deriving the content type from the
// file extension.
func FromPath(path string) Reference {
	return Reference{
		Kind:        KindLocal,
		Path:        path,
		ContentType: ContentTypeForName(path),
	}
}

// FromURL wraps an already-resolvable HTTP(S) URL.
func FromURL(url string) Reference {
	return Reference{Kind: KindURL, URL: url}
}

// FromBytes builds an inline base64 data-URL reference.
func FromBytes(content []byte, contentType string) Reference {
	if contentType == "" {
		contentType = "image/jpeg"
	}
	encoded := base64.StdEncoding.EncodeToString(content)
	return Reference{
		Kind:        KindInline,
		Data:        fmt.Sprintf("data:%s;base64,%s", contentType, encoded),
		ContentType: contentType,
	}
}

// IsResolved reports whether the reference is provider-consumable as-is.
func (r Reference) IsResolved() bool {
	return r.Kind == KindURL || r.Kind == KindInline
}

// Value returns the provider-consumable form: the URL for remote
// references, the data URL for inline ones, and the bare path otherwise.
func (r Reference) Value() string {
	switch r.Kind {
	case KindURL:
		return r.URL
	case KindInline:
		return r.Data
	default:
		return r.Path
	}
}

// IsHTTPURL reports whether s looks like a fetchable HTTP(S) URL.
func IsHTTPURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

var contentTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// ContentTypeForName maps a file name to its image content type,
// defaulting to image/jpeg for unknown extensions.
func ContentTypeForName(name string) string {
	if ct, ok := contentTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return ct
	}
	return "image/jpeg"
}
