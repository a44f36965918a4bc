package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/tdebruin/celltrack/pkg/config"
	"github.com/tdebruin/celltrack/pkg/consistency"
	"github.com/tdebruin/celltrack/pkg/flownet"
	"github.com/tdebruin/celltrack/pkg/lineage"
	"github.com/tdebruin/celltrack/pkg/linker"
	"github.com/tdebruin/celltrack/pkg/logging"
	"github.com/tdebruin/celltrack/pkg/metrics"
	"github.com/tdebruin/celltrack/pkg/postprocess"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (defaults apply when empty)")
	flag.Parse()

	fmt.Printf("🔬 celltrack Tracking Demo\n")
	fmt.Printf("==========================\n\n")

	cfg := config.DefaultConfig()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("❌ Config: %v", err)
		}
		cfg = loaded
		fmt.Printf("✅ Loaded config from %s\n\n", *configPath)
	}

	logger := logging.NewJSONLogger(os.Stderr, logging.ParseLevel(cfg.Logging.Level))
	reg := metrics.NewRegistry()
	ctx := context.Background()

	res := lineage.Resolution{
		PixelSizeXUm:       cfg.Resolution.PixelSizeXUm,
		PixelSizeYUm:       cfg.Resolution.PixelSizeYUm,
		PixelSizeZUm:       cfg.Resolution.PixelSizeZUm,
		TimePointIntervalM: cfg.Resolution.TimePointIntervalM,
	}

	// 1. Synthetic colony
	fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	fmt.Printf("📊 Step 1: Build Synthetic Colony\n")
	fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	exp, bounds := buildColony(res)
	linker.CalculateAppearancePenalties(exp, bounds, cfg.Checker.MinProbability, cfg.Checker.MinProbability)
	fmt.Printf("Positions:       %d over %d time points\n", exp.Positions.Len(), len(exp.Positions.TimePoints()))
	fmt.Printf("Candidate links: %d\n", exp.Links.LinkCount())

	// 2. Solve
	fmt.Printf("\n━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	fmt.Printf("📊 Step 2: Min-Cost-Flow Solve\n")
	fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	linkerCfg := linker.Config{
		Method: cfg.Method,
		Weights: flownet.Weights{
			Link:          cfg.Weights.Link,
			Detection:     cfg.Weights.Detection,
			Division:      cfg.Weights.Division,
			Appearance:    cfg.Weights.Appearance,
			Disappearance: cfg.Weights.Disappearance,
		},
		Compile: linker.CompileConfig{
			IgnorePenalty:           cfg.Compiler.IgnorePenalty,
			DivisionPenaltyCutOff:   cfg.Compiler.DivisionPenaltyCutOff,
			PenaltyDifferenceCutOff: cfg.Compiler.PenaltyDifferenceCutOff,
			PenaltyAbsCutOff:        cfg.Compiler.PenaltyAbsCutOff,
		},
	}
	result, err := linker.Run(ctx, exp, linkerCfg, logger, reg)
	if err != nil {
		log.Fatalf("❌ Solve failed: %v", err)
	}
	fmt.Printf("Selected links:  %d of %d candidates\n", result.Links.SelectedCount(), result.Links.LinkCount())
	fmt.Printf("Divisions:       %d\n", len(result.Links.FindMothers(true)))

	// 3. Repair passes
	fmt.Printf("\n━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	fmt.Printf("📊 Step 3: Lineage Repair Passes\n")
	fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	processor := postprocess.NewProcessor(postprocess.Config{
		MinTrackLength:          cfg.Postprocess.MinTrackLength,
		MaxZ:                    cfg.Postprocess.MaxZ,
		MarginXY:                cfg.Postprocess.MarginXY,
		OversegmentationPenalty: cfg.Postprocess.OversegmentationPenalty,
		MissPenalty:             cfg.Postprocess.MissPenalty,
		Window:                  cfg.Postprocess.LooseEndWindow,
		GapMaxDistanceUm:        cfg.Postprocess.GapMaxDistanceUm,
		SameFrameMaxDistanceUm:  cfg.Postprocess.SameFrameMaxDistanceUm,
		PinpointPenaltyDiff:     cfg.Postprocess.PinpointPenaltyDiff,
	}, logger, reg)
	summary, err := processor.Run(ctx, result, bounds)
	if err != nil {
		log.Fatalf("❌ Repair failed: %v", err)
	}
	fmt.Printf("Finetune changes:        %d\n", summary.FinetuneChanges)
	fmt.Printf("Oversegmentations fixed: %d\n", summary.OversegmentationsFixed)
	fmt.Printf("Gaps bridged:            %d (+%d same-frame)\n", summary.GapsBridged, summary.SameFrameGapsBridged)
	fmt.Printf("Divisions pinpointed:    %d\n", summary.DivisionsPinpointed)
	fmt.Printf("Positions pruned:        %d short, %d isolated, %d deep, %d at edge\n",
		summary.ShortTrackPositions, summary.IsolatedPositionsRemoved,
		summary.DeepTrackPositions, summary.EdgePositionsRemoved)

	// 4. Consistency check
	fmt.Printf("\n━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	fmt.Printf("📊 Step 4: Consistency Check\n")
	fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	limits := consistency.WarningLimits{
		MinProbability:           cfg.Checker.MinProbability,
		MinMarginalProbability:   cfg.Checker.MinMarginalProbability,
		MinTimeBetweenDivisionsH: cfg.Checker.MinTimeBetweenDivisionsH,
		MaxDistanceMovedUmPerMin: cfg.Checker.MaxDistanceMovedUmPerMin,
	}
	for _, code := range cfg.Checker.ExcludedErrors {
		limits.ExcludedErrors = append(limits.ExcludedErrors, consistency.ErrorCode(code))
	}
	checker := consistency.NewChecker(limits, logger, reg)
	warnings, unlinked := checker.FindErrors(result)
	warnings += checker.CheckDividingCells(result)
	fmt.Printf("Flagged positions:  %d\n", warnings)
	fmt.Printf("Unlinked positions: %d\n", unlinked)
	for _, p := range result.Positions.All() {
		if code := result.PositionData.ErrorMarker(p); code != "" {
			fmt.Printf("  ⚠️  %s: %s\n", p, consistency.ErrorCode(code).Message())
		}
	}

	// 5. Lineage summary
	fmt.Printf("\n━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	fmt.Printf("📊 Step 5: Final Lineage\n")
	fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	starts := 0
	for _, p := range result.Links.AllPositions() {
		if result.Links.HasSelectedLink(p) && len(result.Links.FindSelectedPasts(p)) == 0 {
			starts++
		}
	}
	fmt.Printf("Lineage trees: %d\n", starts)
	fmt.Printf("Divisions:     %d\n", len(result.Links.FindMothers(true)))
	fmt.Printf("Positions:     %d\n", result.Positions.Len())

	fmt.Printf("\n✅ Tracking pipeline completed\n")
}

// buildColony synthesizes a small drifting colony: two dividing cells, one
// cell with a missed detection halfway and a spurious lone detection.
// Candidate links connect every detection to all detections within reach in
// the next frame, with penalties growing with distance.
func buildColony(res lineage.Resolution) (*lineage.Experiment, lineage.Bounds) {
	exp := lineage.NewExperiment("synthetic-colony")
	exp.Resolution = res
	bounds := lineage.Bounds{MaxX: 120, MaxY: 120, MaxZ: 20}

	const frames = 16
	const divisionFrame = 7
	const missedFrame = 11
	const lateDivisionFrame = 10

	for t := 0; t < frames; t++ {
		drift := float64(t)

		// Cell A drifts and divides halfway through.
		if t <= divisionFrame {
			a := lineage.Position{X: 30 + drift, Y: 30, Z: 5, T: t}
			exp.AddPosition(a)
			if t == divisionFrame {
				exp.PositionData.Set(a, lineage.DataDivisionPenalty, -2.0)
				exp.PositionData.Set(a, lineage.DataDivisionProbability, linker.ProbabilityFromPenalty(-2.0))
			} else {
				exp.PositionData.Set(a, lineage.DataDivisionPenalty, 5.0)
				exp.PositionData.Set(a, lineage.DataDivisionProbability, linker.ProbabilityFromPenalty(5.0))
			}
		} else {
			spread := 1.5 * float64(t-divisionFrame)
			for _, dy := range []float64{-spread, spread} {
				d := lineage.Position{X: 30 + drift, Y: 30 + dy, Z: 5, T: t}
				exp.AddPosition(d)
				exp.PositionData.Set(d, lineage.DataDivisionPenalty, 5.0)
				exp.PositionData.Set(d, lineage.DataDivisionProbability, linker.ProbabilityFromPenalty(5.0))
			}
		}

		// Cell B is steady but its detection at one frame is missing.
		if t != missedFrame {
			exp.AddPosition(lineage.Position{X: 70, Y: 60, Z: 8, T: t})
		}

		// Cell C moves slowly downward and divides later than A.
		if t <= lateDivisionFrame {
			c := lineage.Position{X: 50, Y: 80 - 0.5*drift, Z: 10, T: t}
			exp.AddPosition(c)
			penalty := 5.0
			if t == lateDivisionFrame {
				penalty = -2.0
			}
			exp.PositionData.Set(c, lineage.DataDivisionPenalty, penalty)
			exp.PositionData.Set(c, lineage.DataDivisionProbability, linker.ProbabilityFromPenalty(penalty))
		} else {
			spread := 1.5 * float64(t-lateDivisionFrame)
			for _, dx := range []float64{-spread, spread} {
				d := lineage.Position{X: 50 + dx, Y: 80 - 0.5*drift, Z: 10, T: t}
				exp.AddPosition(d)
				exp.PositionData.Set(d, lineage.DataDivisionPenalty, 5.0)
				exp.PositionData.Set(d, lineage.DataDivisionProbability, linker.ProbabilityFromPenalty(5.0))
			}
		}
	}

	// A spurious detection with no plausible continuation.
	noise := lineage.Position{X: 110, Y: 110, Z: 18, T: 5}
	exp.AddPosition(noise)

	// Candidate links between consecutive frames, nearest neighbors only.
	for _, t := range exp.Positions.TimePoints() {
		for _, p := range exp.Positions.OfTimePoint(t) {
			for _, next := range exp.Positions.ClosestN(t+1, p, 3, 12, res) {
				if exp.Links.ContainsLink(p, next) {
					continue
				}
				if err := exp.Links.AddLink(p, next); err != nil {
					continue
				}
				penalty := 0.2 * p.DistanceUm(next, res)
				exp.LinkData.Set(p, next, lineage.DataLinkPenalty, penalty)
				exp.LinkData.Set(p, next, lineage.DataLinkProbability, linker.ProbabilityFromPenalty(penalty))
				exp.LinkData.Set(p, next, lineage.DataMarginalProbability, linker.ProbabilityFromPenalty(penalty))
			}
		}
	}

	return exp, bounds
}
