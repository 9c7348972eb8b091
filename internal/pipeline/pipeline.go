// Package pipeline runs the full turf-building flow: census blocks in,
// persisted turfs and voter assignments out.
package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/johnpfay/WakeVoter/internal/block"
	"github.com/johnpfay/WakeVoter/internal/census"
	"github.com/johnpfay/WakeVoter/internal/config"
	"github.com/johnpfay/WakeVoter/internal/store"
	"github.com/johnpfay/WakeVoter/internal/turf"
	"github.com/johnpfay/WakeVoter/internal/voter"
)

// ErrNoEligibleBlocks is returned when classification leaves nothing to
// organize: no block in the county clears the majority-Black threshold.
var ErrNoEligibleBlocks = eris.New("pipeline: no eligible blocks in county")

// Pipeline wires the loaders, the turf builder, and the store.
type Pipeline struct {
	cfg   *config.Config
	store store.Store
}

// New creates a Pipeline.
func New(cfg *config.Config, st store.Store) *Pipeline {
	return &Pipeline{cfg: cfg, store: st}
}

// Result carries the run record plus everything the run produced, so
// callers can export without re-reading the store.
type Result struct {
	Run         *store.Run
	Turfs       []turf.Turf
	Assignments []turf.Assignment
	Warnings    []turf.Warning
	Voters      []voter.Voter
	Summary     store.RunSummary
}

// Run executes a full build: load, tag, classify, cluster, split, assemble,
// persist. The run record is marked failed if any stage errors out.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	log := zap.L().With(
		zap.String("component", "pipeline"),
		zap.String("county", p.cfg.Voter.County),
	)
	start := time.Now()

	run, err := p.store.CreateRun(ctx, p.cfg.Voter.County, p.cfg.Census.StateFIPS, p.cfg.Census.CountyFIPS, p.cfg.Turf.Seed)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: create run")
	}

	res, err := p.build(ctx, run)
	if err != nil {
		if failErr := p.store.FailRun(ctx, run.ID); failErr != nil {
			log.Warn("pipeline: failed to mark run failed", zap.Error(failErr))
		}
		return nil, err
	}

	if err := p.store.CompleteRun(ctx, run.ID, res.Summary); err != nil {
		return nil, eris.Wrap(err, "pipeline: complete run")
	}

	log.Info("pipeline: run complete",
		zap.String("run_id", run.ID),
		zap.Int("turfs", res.Summary.Turfs),
		zap.Int("assigned_voters", res.Summary.AssignedVoters),
		zap.Duration("elapsed", time.Since(start)),
	)
	return res, nil
}

func (p *Pipeline) build(ctx context.Context, run *store.Run) (*Result, error) {
	log := zap.L().With(zap.String("component", "pipeline"), zap.String("run_id", run.ID))

	// Block and voter ingest touch disjoint files.
	var units []block.AreaUnit
	var voters []voter.Voter
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		units, err = census.LoadBlocks(p.cfg.Census.ShapefilePath, p.cfg.Census.AttributesPath, p.cfg.Census.CountyFIPS)
		return err
	})
	g.Go(func() error {
		var err error
		voters, err = voter.Load(voter.LoadOptions{
			RegistrationPath: p.cfg.Voter.RegistrationPath,
			AddressPath:      p.cfg.Voter.AddressPath,
			HistoryPath:      p.cfg.Voter.HistoryPath,
			County:           p.cfg.Voter.County,
			Elections:        p.cfg.Voter.Elections,
		})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	log.Info("pipeline: inputs loaded",
		zap.Int("blocks", len(units)),
		zap.Int("voters", len(voters)),
	)

	// Tag voters with their block, fold eligible-voter tallies back onto
	// the blocks, and classify.
	blocks, err := block.NewStore(units)
	if err != nil {
		return nil, err
	}
	voters = voter.TagBlocks(voters, blocks)
	units = voter.ApplyTallies(blocks, voter.Tallies(voters))

	blocks, err = block.NewStore(units)
	if err != nil {
		return nil, err
	}
	standalone, needsAgg, ineligible := blocks.Partition()
	if len(standalone) == 0 && len(needsAgg) == 0 {
		return nil, ErrNoEligibleBlocks
	}
	log.Info("pipeline: blocks classified",
		zap.Int("standalone", len(standalone)),
		zap.Int("needs_aggregation", len(needsAgg)),
		zap.Int("ineligible", len(ineligible)),
	)

	// Cluster, split, assemble.
	clusters := turf.BuildClusters(needsAgg)
	split, err := turf.SplitAll(ctx, clusters.Oversized)
	if err != nil {
		return nil, err
	}

	assembler := turf.Assembler{Seed: run.Seed}
	turfs, assignments, err := assembler.Assemble(standalone, clusters.Accepted, split.SubClusters, voters)
	if err != nil {
		return nil, err
	}

	// Persist.
	if err := p.store.SaveTurfs(ctx, run.ID, turfs); err != nil {
		return nil, err
	}
	if err := p.store.SaveAssignments(ctx, run.ID, assignments); err != nil {
		return nil, err
	}
	if err := p.store.SaveWarnings(ctx, run.ID, split.Warnings); err != nil {
		return nil, err
	}

	discarded := 0
	for _, c := range clusters.Discarded {
		discarded += len(c.MemberIDs)
	}
	for _, c := range split.Discarded {
		discarded += len(c.MemberIDs)
	}

	return &Result{
		Run:         run,
		Turfs:       turfs,
		Assignments: assignments,
		Warnings:    split.Warnings,
		Voters:      voters,
		Summary: store.RunSummary{
			Blocks:          len(units),
			EligibleBlocks:  len(standalone) + len(needsAgg),
			Turfs:           len(turfs),
			Standalone:      len(standalone),
			Aggregates:      len(clusters.Accepted),
			SplitAggregates: len(split.SubClusters),
			DiscardedBlocks: discarded,
			Voters:          len(voters),
			AssignedVoters:  len(assignments),
			Warnings:        len(split.Warnings),
		},
	}, nil
}
