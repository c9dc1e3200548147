package npm

import (
	"archive/tar"
	"bytes"
	"context"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	stderrors "errors"
	"hash"
	"io"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/matzehuels/npym/pkg/cache"
	"github.com/matzehuels/npym/pkg/errors"
	"github.com/matzehuels/npym/pkg/httputil"
	"github.com/matzehuels/npym/pkg/integrations"
)

// maxTarballSize bounds the uncompressed size of a package.
const maxTarballSize = 512 << 20

// ErrIntegrity is the cause of PACKAGING_ERROR failures where a tarball
// does not match its published digest.
var ErrIntegrity = stderrors.New("integrity check failed")

// File is one regular file from a package tarball.
type File struct {
	Path string // slash-separated, relative to the package root
	Mode fs.FileMode
	Data []byte
}

// FileTree is the verified content of a package tarball, sorted by path.
type FileTree struct {
	Files []File
}

// Lookup returns the file at p.
func (t *FileTree) Lookup(p string) (*File, bool) {
	i := sort.Search(len(t.Files), func(i int) bool { return t.Files[i].Path >= p })
	if i < len(t.Files) && t.Files[i].Path == p {
		return &t.Files[i], true
	}
	return nil, false
}

// Size returns the total byte size of all files.
func (t *FileTree) Size() int64 {
	var n int64
	for _, f := range t.Files {
		n += int64(len(f.Data))
	}
	return n
}

// Source retrieves the file tree of a published version.
type Source interface {
	Files(ctx context.Context, meta *VersionMeta) (*FileTree, error)
}

// TarballSource downloads tarballs over HTTP. Verified tarballs with an
// integrity string are cached, since published content never changes.
type TarballSource struct {
	http  *integrations.Client
	cache cache.Cache
	keyer cache.Keyer
}

// NewTarballSource creates a source that caches tarballs in c.
// A nil cache disables caching.
func NewTarballSource(c cache.Cache, keyer cache.Keyer) *TarballSource {
	if c == nil {
		c = cache.NewNullCache()
	}
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	return &TarballSource{
		http:  integrations.NewClient(nil, "", 0, nil),
		cache: c,
		keyer: keyer,
	}
}

// Client exposes the HTTP client, e.g. to install a test transport.
func (s *TarballSource) Client() *integrations.Client { return s.http }

// Files downloads, verifies and extracts the tarball for meta.
// Every failure is a PACKAGING_ERROR.
func (s *TarballSource) Files(ctx context.Context, meta *VersionMeta) (*FileTree, error) {
	id := meta.Name.String() + "@" + meta.Version.String()

	var key string
	if meta.Dist.Integrity != "" {
		key = s.keyer.TarballKey(meta.Dist.Integrity)
		if data, ok, _ := s.cache.Get(ctx, key); ok {
			if err := VerifyIntegrity(data, meta.Dist); err == nil {
				return ExtractTarball(data)
			}
			_ = s.cache.Delete(ctx, key)
		}
	}

	var data []byte
	err := httputil.RetryWithBackoff(ctx, func() error {
		var err error
		data, err = s.http.GetBytes(ctx, meta.Dist.Tarball)
		return err
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.Wrap(errors.ErrCodePackaging, err, "download %s", id)
	}
	if err := VerifyIntegrity(data, meta.Dist); err != nil {
		return nil, errors.Wrap(errors.ErrCodePackaging, err, "verify %s", id)
	}
	tree, err := ExtractTarball(data)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodePackaging, err, "extract %s", id)
	}
	if key != "" {
		_ = s.cache.Set(ctx, key, data, cache.TTLTarball)
	}
	return tree, nil
}

// VerifyIntegrity checks data against the Subresource Integrity string of
// dist, falling back to the legacy hex sha1 shasum. When several SRI hashes
// are listed, the strongest supported one decides. A dist with neither
// passes.
func VerifyIntegrity(data []byte, dist Dist) error {
	if dist.Integrity != "" {
		best, want := strongestHash(dist.Integrity)
		if best == nil {
			return stderrors.Join(ErrIntegrity, stderrors.New("no supported algorithm in "+dist.Integrity))
		}
		best.Write(data)
		if subtle.ConstantTimeCompare(best.Sum(nil), want) != 1 {
			return ErrIntegrity
		}
		return nil
	}
	if dist.Shasum != "" {
		want, err := hex.DecodeString(dist.Shasum)
		if err != nil {
			return stderrors.Join(ErrIntegrity, err)
		}
		sum := sha1.Sum(data)
		if subtle.ConstantTimeCompare(sum[:], want) != 1 {
			return ErrIntegrity
		}
	}
	return nil
}

var hashRank = map[string]int{"sha1": 1, "sha256": 2, "sha512": 3}

func strongestHash(sri string) (hash.Hash, []byte) {
	var (
		bestAlgo string
		bestSum  []byte
	)
	for _, part := range strings.Fields(sri) {
		algo, b64, ok := strings.Cut(part, "-")
		if !ok || hashRank[algo] <= hashRank[bestAlgo] {
			continue
		}
		// options after "?" are reserved by the SRI format
		b64, _, _ = strings.Cut(b64, "?")
		sum, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			continue
		}
		bestAlgo, bestSum = algo, sum
	}
	switch bestAlgo {
	case "sha512":
		return sha512.New(), bestSum
	case "sha256":
		return sha256.New(), bestSum
	case "sha1":
		return sha1.New(), bestSum
	}
	return nil, nil
}

// ExtractTarball gunzips and untars data. The first path component (npm
// uses "package/", some older tarballs use other names) is stripped.
// Directories, links and device entries are skipped; unsafe paths are
// rejected.
func ExtractTarball(data []byte) (*FileTree, error) {
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer gz.Close()

	tr := tar.NewReader(io.LimitReader(gz, maxTarballSize))
	files := map[string]File{}
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if hdr.Typeflag != tar.TypeReg && hdr.Typeflag != tar.TypeRegA {
			continue
		}
		name := strings.TrimPrefix(hdr.Name, "./")
		if err := errors.ValidatePath(name); err != nil {
			return nil, err
		}
		_, rel, ok := strings.Cut(name, "/")
		rel = path.Clean(rel)
		if !ok || rel == "." {
			continue
		}
		body, err := io.ReadAll(tr)
		if err != nil {
			return nil, err
		}
		mode := fs.FileMode(0o644)
		if hdr.Mode&0o111 != 0 {
			mode = 0o755
		}
		files[rel] = File{Path: rel, Mode: mode, Data: body}
	}

	tree := &FileTree{Files: make([]File, 0, len(files))}
	for _, f := range files {
		tree.Files = append(tree.Files, f)
	}
	sort.Slice(tree.Files, func(i, j int) bool { return tree.Files[i].Path < tree.Files[j].Path })
	return tree, nil
}
