package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/matzehuels/npym/pkg/bridge"
	"github.com/matzehuels/npym/pkg/errors"
	"github.com/matzehuels/npym/pkg/npm"
	"github.com/matzehuels/npym/pkg/resolve"
	"github.com/matzehuels/npym/pkg/semver"
	"github.com/matzehuels/npym/pkg/wheel"
)

type bridgeRequest struct {
	Name            string `json:"name"`
	Range           string `json:"range"`
	IncludeOptional bool   `json:"include_optional"`
}

type bridgeResponse struct {
	RunID     string            `json:"run_id"`
	Root      string            `json:"root"`
	Nodes     int               `json:"nodes"`
	Artifacts []*wheel.Artifact `json:"artifacts"`
}

type errorBody struct {
	Code    errors.Code `json:"code"`
	Message string      `json:"message"`

	Fragment    string   `json:"fragment,omitempty"`
	Package     string   `json:"package,omitempty"`
	Constraints []string `json:"constraints,omitempty"`
	Path        []string `json:"path,omitempty"`
	Committed   []string `json:"committed,omitempty"`
}

func (s *Server) bridge(w http.ResponseWriter, r *http.Request) {
	var req bridgeRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid json"))
		return
	}
	name, err := npm.ParseName(req.Name)
	if err != nil {
		s.writeError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	opts := s.opts
	opts.IncludeOptional = opts.IncludeOptional || req.IncludeOptional
	res, err := s.runner.Bridge(ctx, name, req.Range, opts)
	if err != nil {
		s.writeError(w, err)
		return
	}
	root := res.Graph.Root()
	writeJSON(w, http.StatusOK, bridgeResponse{
		RunID:     res.RunID,
		Root:      root.Name.String() + "@" + root.Version.String(),
		Nodes:     res.Graph.NodeCount(),
		Artifacts: res.Artifacts,
	})
}

// statusFor maps error codes to HTTP statuses.
func statusFor(code errors.Code) int {
	switch code {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidPackage, errors.ErrCodeInvalidPath, errors.ErrCodeInvalidRangeSyntax:
		return http.StatusBadRequest
	case errors.ErrCodeNotFound:
		return http.StatusNotFound
	case errors.ErrCodeUnsatisfiable:
		return http.StatusUnprocessableEntity
	case errors.ErrCodeMetadataFetchFailed, errors.ErrCodeNetwork:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	if stderrors.Is(err, context.DeadlineExceeded) {
		writeJSON(w, http.StatusGatewayTimeout, map[string]errorBody{"error": {Code: errors.ErrCodeInternal, Message: "request timed out"}})
		return
	}

	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	body := errorBody{Code: code, Message: errors.UserMessage(err)}

	var (
		syntax *semver.SyntaxError
		unsat  *resolve.UnsatisfiableError
		fetch  *resolve.FetchError
		emit   *bridge.EmitError
	)
	switch {
	case stderrors.As(err, &syntax):
		body.Fragment = syntax.Fragment
	case stderrors.As(err, &unsat):
		body.Package = unsat.Name.String()
		body.Constraints = unsat.Constraints
		body.Path = unsat.Path
	case stderrors.As(err, &fetch):
		body.Package = fetch.Name.String()
	case stderrors.As(err, &emit):
		for _, a := range emit.Committed {
			body.Committed = append(body.Committed, a.Filename)
		}
	}

	status := statusFor(code)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "code", code, "err", err)
	}
	writeJSON(w, status, map[string]errorBody{"error": body})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
