// Package linker builds the optimal cell lineage for an experiment. It
// compiles the candidate link graph into a min-cost-flow problem, hands it to
// the solver, and marks the chosen links as selected on a fresh copy of the
// candidate pool.
package linker

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/tdebruin/celltrack/pkg/flownet"
	"github.com/tdebruin/celltrack/pkg/lineage"
	"github.com/tdebruin/celltrack/pkg/logging"
	"github.com/tdebruin/celltrack/pkg/metrics"
)

// Config holds everything one tracking solve needs.
type Config struct {
	// Method names the solver backend. Unknown names fall back to FlowBased
	// with a logged warning.
	Method string

	Weights flownet.Weights
	Compile CompileConfig
}

// DefaultConfig returns the standard solve configuration.
func DefaultConfig() Config {
	return Config{
		Method:  flownet.MethodFlowBased.String(),
		Weights: flownet.DefaultWeights(),
		Compile: DefaultCompileConfig(),
	}
}

// Run computes the optimal links for the experiment. The input experiment is
// never mutated; the returned experiment carries the surviving candidate pool
// with the solver's choices marked selected, ready for the repair passes.
//
// The experiment must contain candidate links; an experiment without any is a
// caller error, reported as lineage.ErrNoLinks.
func Run(ctx context.Context, exp *lineage.Experiment, cfg Config, log logging.Logger, reg *metrics.Registry) (*lineage.Experiment, error) {
	if exp.Links == nil || exp.Links.LinkCount() == 0 {
		return nil, &lineage.TrackingError{
			Op:    "linker.Run",
			Cause: lineage.ErrNoLinks,
		}
	}

	runID := uuid.New().String()
	log = log.With(logging.Component("linker"), logging.RunID(runID))

	method, known := flownet.ParseMethod(cfg.Method)
	if !known {
		log.Warn("unknown solver method, falling back",
			logging.String("requested", cfg.Method),
			logging.String("fallback", method.String()))
	}

	problem, naive, table, stats := Compile(exp, cfg.Compile, log, reg)
	log.Info("compiled flow problem",
		logging.Int("positions", stats.Positions),
		logging.Int("links", stats.Links),
		logging.Int("pruned", stats.PrunedLinks),
		logging.Int("divisions", stats.Divisions))
	reg.RecordCompiledProblem(stats.Positions, stats.Links, stats.PrunedLinks, stats.Divisions)

	weightVector := cfg.Weights.Vector(problem.HasDivisions())

	start := time.Now()
	selected, err := flownet.Solve(ctx, problem, weightVector, method)
	if err != nil {
		reg.RecordSolverRun(method.String(), "error", time.Since(start))
		return nil, &lineage.TrackingError{Op: "linker.Run", Cause: err}
	}
	reg.RecordSolverRun(method.String(), "ok", time.Since(start))
	reg.RecordLinksChosen(len(selected))
	log.Info("solve finished",
		logging.String("method", method.String()),
		logging.Int("links_chosen", len(selected)),
		logging.Duration("duration", time.Since(start)))

	result := exp.CopySelected(lineage.CopyOptions{
		Positions:    true,
		PositionData: true,
		LinkData:     true,
	})
	result.Links = naive

	for _, link := range selected {
		src, ok1 := table.Position(link.Src)
		dest, ok2 := table.Position(link.Dest)
		if !ok1 || !ok2 {
			log.Error("solver returned unknown hypothesis id",
				logging.Int("src", link.Src),
				logging.Int("dest", link.Dest))
			continue
		}
		if err := result.Links.SelectLink(src, dest); err != nil {
			// The solver's flow conservation should prevent this; a repair
			// pass or the consistency checker gets to look at it instead.
			if errors.Is(err, lineage.ErrTooManyDaughters) || errors.Is(err, lineage.ErrCellMerge) {
				log.Warn("solver choice violates degree limits, skipping",
					logging.String("from", src.String()),
					logging.String("to", dest.String()),
					logging.Error(err))
				continue
			}
			return nil, &lineage.TrackingError{Op: "linker.Run", Position: src, Cause: err}
		}
	}

	return result, nil
}
