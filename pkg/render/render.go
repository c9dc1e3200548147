package render

import (
	"context"
	"encoding/json"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/matzehuels/npym/pkg/errors"
	"github.com/matzehuels/npym/pkg/resolve"
)

// Format names an export format.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatDOT  Format = "dot"
	FormatSVG  Format = "svg"
)

// Formats lists the supported formats.
var Formats = []Format{FormatText, FormatJSON, FormatYAML, FormatDOT, FormatSVG}

// ParseFormat validates s case-insensitively. "yml" is accepted for YAML.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if f == "yml" {
		return FormatYAML, nil
	}
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", errors.New(errors.ErrCodeInvalidInput, "unknown format %q (want text, json, yaml, dot or svg)", s)
}

// Write renders g to w in format f.
func Write(ctx context.Context, w io.Writer, g *resolve.Graph, f Format) error {
	switch f {
	case FormatText:
		_, err := io.WriteString(w, Tree(g))
		return err
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(NewLock(g))
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(NewLock(g)); err != nil {
			return err
		}
		return enc.Close()
	case FormatDOT:
		_, err := io.WriteString(w, ToDOT(g, DOTOptions{}))
		return err
	case FormatSVG:
		svg, err := RenderSVG(ctx, ToDOT(g, DOTOptions{}))
		if err != nil {
			return err
		}
		_, err = w.Write(svg)
		return err
	}
	return errors.New(errors.ErrCodeInvalidInput, "unknown format %q", f)
}
