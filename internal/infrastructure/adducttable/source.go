package adducttable

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/kirillkom/ionmode-enricher/internal/core/domain"
	"github.com/kirillkom/ionmode-enricher/internal/core/ports"
)

// DefaultSource names the built-in table.
const DefaultSource = "default"

//go:embed default_adducts.yaml
var defaultTable []byte

// Source opens the raw contents of a named table.
type Source interface {
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

// CacheKey canonicalizes a source name. The empty name and DefaultSource
// share a key.
func CacheKey(source string) string {
	s := strings.TrimSpace(source)
	switch {
	case s == "" || s == DefaultSource:
		return DefaultSource
	case isRemote(s):
		return s
	default:
		return filepath.Clean(s)
	}
}

// IsStoredTableName reports whether name is a plain file name with a
// supported table extension.
func IsStoredTableName(name string) bool {
	return name != "" &&
		!strings.ContainsAny(name, `/\`) &&
		!strings.HasPrefix(name, ".") &&
		FormatOf(name) != ""
}

// RequestedSource resolves a caller-supplied source name. Callers may pick
// the default table, the configured source or a stored table by name;
// paths and URLs are only accepted from configuration.
func RequestedSource(requested, configured string) (string, error) {
	requested = strings.TrimSpace(requested)
	switch {
	case requested == "":
		return configured, nil
	case requested == DefaultSource, requested == strings.TrimSpace(configured), IsStoredTableName(requested):
		return requested, nil
	default:
		return "", domain.WrapError(domain.ErrInvalidInput, "resolve adducts source", fmt.Errorf("%q is not a stored table name", requested))
	}
}

func isRemote(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// Router dispatches a cache key to the embedded default, a remote source
// or the file source.
type Router struct {
	Files  Source
	Remote Source
}

func (r *Router) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	switch {
	case key == DefaultSource:
		return io.NopCloser(bytes.NewReader(defaultTable)), nil
	case isRemote(key):
		if r.Remote == nil {
			return nil, domain.WrapError(domain.ErrSourceNotFound, "open adduct table", fmt.Errorf("remote sources disabled: %s", key))
		}
		return r.Remote.Open(ctx, key)
	default:
		if r.Files == nil {
			return nil, domain.WrapError(domain.ErrSourceNotFound, "open adduct table", fmt.Errorf("file sources disabled: %s", key))
		}
		return r.Files.Open(ctx, key)
	}
}

// FileSource reads tables through object storage.
type FileSource struct {
	storage ports.ObjectStorage
}

func NewFileSource(storage ports.ObjectStorage) *FileSource {
	return &FileSource{storage: storage}
}

func (s *FileSource) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	rc, err := s.storage.Open(ctx, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.WrapError(domain.ErrSourceNotFound, "open adduct table", fmt.Errorf("%s: %w", name, err))
		}
		return nil, domain.WrapError(domain.ErrSourceNotFound, "open adduct table", err)
	}
	return rc, nil
}
