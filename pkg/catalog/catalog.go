// Package catalog records the wheels npym has committed so they can be
// served from a package index.
//
// Three backends are provided:
//   - [Memory]: in-process, for the CLI and tests
//   - [MongoCatalog]: one document per wheel in MongoDB
//   - [PostgresCatalog]: one row per wheel in PostgreSQL
//
// Records are keyed by wheel filename; putting a record with an existing
// filename replaces it.
package catalog

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/matzehuels/npym/pkg/errors"
)

// Backend names accepted by [Open].
const (
	BackendMemory   = "memory"
	BackendMongo    = "mongo"
	BackendPostgres = "postgres"
)

// Record describes one committed wheel.
type Record struct {
	Filename       string    `json:"filename" bson:"_id"`
	Project        string    `json:"project" bson:"project"`
	Distribution   string    `json:"distribution" bson:"distribution"`
	Version        string    `json:"version" bson:"version"`
	Package        string    `json:"package" bson:"package"`
	PackageVersion string    `json:"package_version" bson:"package_version"`
	InstallPath    string    `json:"install_path" bson:"install_path"`
	Requires       []string  `json:"requires,omitempty" bson:"requires"`
	SHA256         string    `json:"sha256" bson:"sha256"`
	Size           int64     `json:"size" bson:"size"`
	RunID          string    `json:"run_id" bson:"run_id"`
	CreatedAt      time.Time `json:"created_at" bson:"created_at"`
}

// Catalog stores wheel records.
type Catalog interface {
	// Put inserts or replaces the record for rec.Filename.
	Put(ctx context.Context, rec Record) error

	// Projects returns the normalized project names, sorted.
	Projects(ctx context.Context) ([]string, error)

	// Files returns the records of a project sorted by filename. The name
	// is normalized before lookup.
	Files(ctx context.Context, project string) ([]Record, error)

	// Get returns the record for a wheel filename, or a NOT_FOUND error.
	Get(ctx context.Context, filename string) (Record, error)

	// Close releases backend connections.
	Close() error
}

var projectRun = regexp.MustCompile(`[-_.]+`)

// NormalizeProject normalizes a distribution name the way package indexes
// compare them: lowercase, with runs of "-", "_" and "." as one "-".
func NormalizeProject(name string) string {
	return projectRun.ReplaceAllString(strings.ToLower(name), "-")
}

func notFound(filename string) error {
	return errors.New(errors.ErrCodeNotFound, "wheel %s not in catalog", filename)
}

// Open connects to the named backend. url and database are ignored by the
// memory backend; database is only used by MongoDB.
func Open(ctx context.Context, backend, url, database string) (Catalog, error) {
	switch backend {
	case "", BackendMemory:
		return NewMemory(), nil
	case BackendMongo:
		return NewMongo(ctx, url, database)
	case BackendPostgres:
		return NewPostgres(ctx, url)
	}
	return nil, errors.New(errors.ErrCodeInvalidInput, "unknown catalog backend %q", backend)
}
