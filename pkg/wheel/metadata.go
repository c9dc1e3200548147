package wheel

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/csv"
	"regexp"
	"strconv"
	"strings"

	"github.com/matzehuels/npym/pkg/npm"
)

var unprintable = regexp.MustCompile(`([^\x20-\x7e]|[\r\n])+`)

// sanitize keeps header values on one line of printable ASCII.
func sanitize(s string) string {
	return unprintable.ReplaceAllString(s, " ")
}

// Requirement is one Requires-Dist entry.
type Requirement struct {
	Distribution string
	Specifier    string // PEP 440 specifier, e.g. "==1.2.3"
}

func (r Requirement) String() string {
	if r.Specifier == "" {
		return r.Distribution
	}
	return r.Distribution + " (" + r.Specifier + ")"
}

func lines(ls ...string) []byte {
	var b strings.Builder
	for _, l := range ls {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

func wheelFile(generator, tag string) []byte {
	return lines(
		"Wheel-Version: 1.0",
		"Generator: "+generator,
		"Root-Is-Purelib: true",
		"Tag: "+tag,
	)
}

func licenseFile(meta *npm.VersionMeta) []byte {
	if meta.License == "" {
		return nil
	}
	return lines("License: " + sanitize(meta.License))
}

// metadataFile renders the core metadata of a wheel.
func metadataFile(id Identity, meta *npm.VersionMeta, requires []Requirement) []byte {
	ls := []string{
		"Metadata-Version: 2.1",
		"Name: " + id.Distribution,
		"Version: " + id.Version,
		"Summary: " + sanitize(meta.Description),
	}
	if meta.Homepage != "" {
		ls = append(ls, "Home-page: "+sanitize(meta.Homepage))
	}
	if len(meta.Keywords) > 0 {
		kw := make([]string, len(meta.Keywords))
		for i, k := range meta.Keywords {
			kw[i] = sanitize(k)
		}
		ls = append(ls, "Keywords: "+strings.Join(kw, ","))
	}
	if a := meta.Author; a != nil {
		if a.Name != "" {
			ls = append(ls, "Author: "+sanitize(a.Name))
		}
		if a.Email != "" {
			ls = append(ls, "Author-email: "+sanitize(a.Email))
		}
	}

	var names, emails []string
	for _, m := range meta.Maintainers {
		if m.Name != "" {
			names = append(names, sanitize(m.Name))
		}
		if m.Email != "" {
			emails = append(emails, sanitize(m.Email))
		}
	}
	if len(names) > 0 {
		ls = append(ls, "Maintainer: "+strings.Join(names, ", "))
	}
	if len(emails) > 0 {
		ls = append(ls, "Maintainer-email: "+strings.Join(emails, ", "))
	}

	if meta.License != "" {
		ls = append(ls, "License: "+sanitize(meta.License))
	}
	if meta.Bugs != "" {
		ls = append(ls, "Project-URL: Bug Tracker, "+sanitize(meta.Bugs))
	}
	if meta.Repository != "" {
		ls = append(ls, "Project-URL: Repository, "+sanitize(meta.Repository))
	}
	for _, r := range requires {
		ls = append(ls, "Requires-Dist: "+r.String())
	}
	return lines(ls...)
}

// recordFile renders RECORD: one CSV row per entry with its urlsafe
// base64 SHA-256 (unpadded) and size, then a row for RECORD itself.
func recordFile(entries []entry, self string) []byte {
	var b bytes.Buffer
	w := csv.NewWriter(&b)
	for _, e := range entries {
		sum := sha256.Sum256(e.data)
		w.Write([]string{e.name, "sha256=" + base64.RawURLEncoding.EncodeToString(sum[:]), strconv.Itoa(len(e.data))})
	}
	w.Write([]string{self, "", ""})
	w.Flush()
	return b.Bytes()
}
