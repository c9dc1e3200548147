package bridge

import (
	"context"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/npym/pkg/catalog"
	"github.com/matzehuels/npym/pkg/events"
	"github.com/matzehuels/npym/pkg/objectstore"
	"github.com/matzehuels/npym/pkg/wheel"
)

// publish hands a finished run to the catalog, the object store and the
// event publisher, in that order. Failures are logged.
func (r *Runner) publish(ctx context.Context, logger *log.Logger, res *Result, expr string) {
	now := time.Now().UTC()
	for _, a := range res.Artifacts {
		if err := r.Catalog.Put(ctx, record(a, res.RunID, now)); err != nil {
			logger.Warn("catalog update failed", "file", a.Filename, "err", err)
		}
	}

	if _, null := r.Store.(objectstore.NullStore); !null {
		for _, a := range res.Artifacts {
			if err := r.upload(ctx, a); err != nil {
				logger.Warn("upload failed", "file", a.Filename, "err", err)
			}
		}
	}

	ev := event(res, expr, now)
	if err := r.Events.Publish(ctx, ev); err != nil {
		logger.Warn("event publish failed", "type", ev.Type, "err", err)
	}
}

func (r *Runner) upload(ctx context.Context, a *wheel.Artifact) error {
	data, err := os.ReadFile(a.Path)
	if err != nil {
		return err
	}
	return r.Store.Put(ctx, a.Filename, data, objectstore.WheelContentType)
}

func record(a *wheel.Artifact, runID string, now time.Time) catalog.Record {
	requires := make([]string, len(a.Requires))
	for i, req := range a.Requires {
		requires[i] = req.String()
	}
	return catalog.Record{
		Filename:       a.Filename,
		Project:        catalog.NormalizeProject(a.Distribution),
		Distribution:   a.Distribution,
		Version:        a.Version,
		Package:        a.Package.String(),
		PackageVersion: a.PackageVersion.String(),
		InstallPath:    a.InstallPath,
		Requires:       requires,
		SHA256:         a.SHA256,
		Size:           a.Size,
		RunID:          runID,
		CreatedAt:      now,
	}
}

func event(res *Result, expr string, now time.Time) events.Event {
	ev := events.Event{
		Type:     events.TypeBridgeCompleted,
		RunID:    res.RunID,
		Range:    expr,
		Nodes:    res.Stats.NodeCount,
		Duration: res.Stats.ResolveTime + res.Stats.EmitTime,
		Time:     now,
	}
	if root := res.Graph.Root(); root != nil {
		ev.Root = root.Name.String()
		ev.Version = root.Version.String()
	}
	for _, a := range res.Artifacts {
		ev.Artifacts = append(ev.Artifacts, events.Artifact{
			Filename: a.Filename,
			SHA256:   a.SHA256,
			Size:     a.Size,
		})
	}
	return ev
}
