// Package npm models the npm registry: package names, the per-package
// metadata document (packument), the registry client and tarball retrieval.
//
// Registry JSON is validated once, at the boundary, by [DecodePackument];
// everything downstream works with typed values. Loose registry fields are
// normalised there too:
//
//   - an empty dependency spec becomes "*"
//   - bin given as a string becomes a one-entry map keyed by the bare name
//   - license, author, repository and bugs accept both string and object forms
//   - version keys that are not valid semver are dropped
//
// [Client] fetches packuments through the shared integrations client, so
// responses are cached and retried. [TarballSource] downloads and verifies
// package tarballs and exposes their contents as a [FileTree].
package npm
