// Package trainer runs the self-play training loop: parallel
// external-sampling traversal into shared reservoirs, periodic
// retraining of the per-player advantage networks, snapshotting for
// average-strategy reconstruction and rotated checkpoints.
package trainer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"

	"holdemcfr/abstraction"
	"holdemcfr/appconfig"
	"holdemcfr/cfr"
	"holdemcfr/checkpoint"
	"holdemcfr/metrics"
	"holdemcfr/nolimitholdem"
)

// ErrAbstractionMismatch means a checkpoint was produced with a
// different abstraction table than the one loaded now; its samples
// and keys are unusable.
var ErrAbstractionMismatch = errors.New("checkpoint abstraction digest mismatch")

type Orchestrator struct {
	cfg   *appconfig.AppConfig
	table *abstraction.Table
	log   zerolog.Logger

	encoder *cfr.Encoder
	memory  *cfr.Memory
	nets    []*cfr.Net
	arenas  []*cfr.SnapshotArena
	cache   *cfr.StrategyCache
	stats   *cfr.Stats

	ckpt  *checkpoint.Manager
	store *metrics.Store

	runID     string
	iteration atomic.Int64
	// lastGood holds the newest snapshot that trained without
	// divergence, per player; divergent passes roll back to it.
	lastGood []cfr.Predictor
}

func New(cfg *appconfig.AppConfig, table *abstraction.Table, log zerolog.Logger, store *metrics.Store) (*Orchestrator, error) {
	ckpt, err := checkpoint.NewManager(cfg.Checkpoint.Dir, cfg.Checkpoint.Keep)
	if err != nil {
		return nil, err
	}

	encoder := cfr.NewEncoder(table, cfg.Game.NumPlayers, cfg.Game.MaxRaisesPerStreet)
	n := cfg.Game.NumPlayers

	o := &Orchestrator{
		cfg:      cfg,
		table:    table,
		log:      log,
		encoder:  encoder,
		memory:   cfr.NewMemory(n, cfg.Train.ReservoirCapacity, cfg.Game.Seed),
		nets:     make([]*cfr.Net, n),
		arenas:   make([]*cfr.SnapshotArena, n),
		cache:    cfr.NewStrategyCache(),
		stats:    &cfr.Stats{},
		ckpt:     ckpt,
		store:    store,
		runID:    cfg.Train.RunID,
		lastGood: make([]cfr.Predictor, n),
	}
	if o.runID == "" {
		o.runID = uuid.NewString()
	}

	mode := cfr.RetainAll
	if cfg.Train.Retention == "thin" {
		mode = cfr.RetainThinned
	}
	for p := 0; p < n; p++ {
		o.nets[p] = cfr.NewNet(cfr.NetConfig{
			InputDim:     encoder.Dims(),
			HiddenDim:    cfg.Train.HiddenDim,
			LearningRate: cfg.Train.LearningRate,
			Seed:         cfg.Game.Seed + int64(p),
		})
		o.arenas[p] = cfr.NewSnapshotArena(mode, cfg.Train.RetentionSize)
		o.lastGood[p] = o.nets[p].Snapshot()
	}
	return o, nil
}

func (o *Orchestrator) RunID() string { return o.runID }

// Iteration reports the number of completed traversal iterations.
func (o *Orchestrator) Iteration() int { return int(o.iteration.Load()) }

// Arenas exposes the snapshot arenas for strategy extraction.
func (o *Orchestrator) Arenas() []*cfr.SnapshotArena { return o.arenas }

// Resume restores state from the newest checkpoint if one exists.
// Returns false when starting fresh.
func (o *Orchestrator) Resume() (bool, error) {
	state, err := o.ckpt.Load()
	if errors.Is(err, checkpoint.ErrNoCheckpoint) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if state.TableDigest != o.table.Digest() {
		return false, fmt.Errorf("%w: checkpoint %s, table %s",
			ErrAbstractionMismatch, state.TableDigest[:8], o.table.Digest()[:8])
	}
	if len(state.Reservoirs) != o.memory.Players() {
		return false, fmt.Errorf("checkpoint holds %d reservoirs, want %d",
			len(state.Reservoirs), o.memory.Players())
	}

	o.runID = state.RunID
	o.iteration.Store(int64(state.Iteration))
	o.memory.Restore(state.Reservoirs)
	for p := range o.arenas {
		o.arenas[p].SetRecords(state.ArenaRecords[p])
		if err := o.nets[p].Restore(state.CurrentParams[p]); err != nil {
			return false, fmt.Errorf("restore player %d parameters: %w", p, err)
		}
		o.lastGood[p] = state.CurrentParams[p]
	}
	o.log.Info().Str("run_id", o.runID).Int("iteration", state.Iteration).
		Msg("resumed from checkpoint")
	return true, nil
}

// Run executes cycles until a stopping criterion is met or the context
// is cancelled. Cancellation takes effect at cycle boundaries, where
// state is quiescent.
func (o *Orchestrator) Run(ctx context.Context) error {
	started := time.Now()
	o.recordRunRow(started)

	bar := o.newProgressBar()
	lastCheckpoint := o.Iteration()

	for {
		select {
		case <-ctx.Done():
			o.log.Info().Msg("stopping on signal, writing final checkpoint")
			return o.saveCheckpoint()
		default:
		}

		if o.Iteration() >= o.cfg.Train.MaxIterations {
			o.log.Info().Int("iteration", o.Iteration()).Msg("iteration budget reached")
			return o.saveCheckpoint()
		}
		if elapsed := time.Since(started); elapsed >= o.cfg.Train.MaxWallClock {
			o.log.Info().Dur("elapsed", elapsed).Msg("wall clock budget reached")
			return o.saveCheckpoint()
		}

		if err := o.runCycle(ctx); err != nil {
			return err
		}
		o.retrainAll()
		o.cache.Clear()

		iter := o.Iteration()
		if bar != nil {
			bar.Set(iter)
		}
		o.recordCycleRow(iter)

		if iter-lastCheckpoint >= o.cfg.Checkpoint.Every {
			if err := o.saveCheckpoint(); err != nil {
				return err
			}
			lastCheckpoint = iter
		}

		if o.shouldEvaluate(iter) {
			exp := o.estimateExploitability()
			o.recordEvalRow(iter, exp)
			o.log.Info().Int("iteration", iter).Float64("exploitability_bb", exp).Msg("evaluation")
			if o.cfg.Train.TargetExploitability > 0 && exp <= o.cfg.Train.TargetExploitability {
				o.log.Info().Msg("target exploitability reached")
				return o.saveCheckpoint()
			}
		}
	}
}

// runCycle performs RetrainEvery iterations spread over the workers.
// Each worker owns a private game and traverser; only the reservoirs
// and the strategy cache are shared.
func (o *Orchestrator) runCycle(ctx context.Context) error {
	// Split RetrainEvery across the workers, spreading the remainder so
	// the cycle covers exactly the configured interval.
	workers := o.cfg.Train.Workers
	share := o.cfg.Train.RetrainEvery / workers
	extra := o.cfg.Train.RetrainEvery % workers

	g, _ := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		workerID := w
		perWorker := share
		if workerID < extra {
			perWorker++
		}
		if perWorker == 0 {
			continue
		}
		g.Go(func() error {
			seed := o.cfg.Game.Seed + int64(o.Iteration())*1000 + int64(workerID)
			game := nolimitholdem.NewGame(nolimitholdem.GameConfig{
				RandomSeed:         seed,
				ChipsForEach:       o.cfg.Game.ChipsForEach,
				NumPlayers:         o.cfg.Game.NumPlayers,
				SmallBlindChips:    o.cfg.Game.SmallBlindChips,
				MaxRaisesPerStreet: o.cfg.Game.MaxRaisesPerStreet,
			})
			tree := cfr.NewHoldemTree(game, o.encoder)

			actors := make([]cfr.Actor, o.cfg.Game.NumPlayers)
			for p := range actors {
				actors[p] = cfr.NewAdvantageActor(p, o.nets[p], o.cache)
			}
			traverser := cfr.New(seed+1, tree, actors, o.memory, o.stats)

			for i := 0; i < perWorker; i++ {
				iter := int(o.iteration.Add(1))
				for learner := 0; learner < o.cfg.Game.NumPlayers; learner++ {
					if _, err := traverser.TraverseTree(learner, iter); err != nil {
						return fmt.Errorf("worker %d iteration %d: %w", workerID, iter, err)
					}
				}
			}
			return nil
		})
	}
	return g.Wait()
}

// retrainAll fits each player's network against its reservoir and
// pushes the resulting snapshot. Runs at the quiescent cycle boundary.
func (o *Orchestrator) retrainAll() {
	iter := o.Iteration()
	for p := range o.nets {
		reservoir := o.memory.Player(p)
		if reservoir.Len() == 0 {
			continue
		}

		loss, skipped := o.retrainPlayer(p, reservoir)
		if skipped {
			o.log.Warn().Int("player", p).Int("iteration", iter).
				Msg("retraining skipped, advantage estimates stay stale")
		}
		o.recordRetrainRow(iter, p, loss, reservoir.Len(), skipped)

		snap := o.nets[p].Snapshot()
		o.lastGood[p] = snap
		o.arenas[p].Push(iter, snap)
	}
}

// retrainPlayer runs the configured passes, handling divergence and
// backend exhaustion per pass.
func (o *Orchestrator) retrainPlayer(p int, reservoir *cfr.Reservoir) (lastLoss float32, skipped bool) {
	net := o.nets[p]
	for pass := 0; pass < o.cfg.Train.TrainPasses; pass++ {
		batch := reservoir.SampleBatch(o.cfg.Train.BatchSize)
		loss, err := net.Train(batch)
		switch {
		case err == nil:
			lastLoss = loss
		case errors.Is(err, cfr.ErrDiverged):
			if rerr := net.Restore(o.lastGood[p]); rerr != nil {
				o.log.Error().Err(rerr).Int("player", p).Msg("rollback failed")
			}
			o.log.Warn().Int("player", p).Int("pass", pass).Msg("divergent batch, rolled back")
			return lastLoss, true
		case errors.Is(err, cfr.ErrResourceExhausted):
			half := reservoir.SampleBatch(o.cfg.Train.BatchSize / 2)
			if loss, err = net.Train(half); err != nil {
				o.log.Warn().Int("player", p).Int("pass", pass).
					Msg("retraining backend exhausted after retry")
				return lastLoss, true
			}
			lastLoss = loss
		default:
			o.log.Error().Err(err).Int("player", p).Msg("retraining failed")
			return lastLoss, true
		}
	}
	return lastLoss, false
}

func (o *Orchestrator) saveCheckpoint() error {
	records := make([][]cfr.SnapshotRecord, len(o.arenas))
	params := make([]cfr.Predictor, len(o.nets))
	for p := range o.arenas {
		records[p] = o.arenas[p].Records()
		params[p] = o.nets[p].Snapshot()
	}
	state := &checkpoint.TrainingState{
		RunID:         o.runID,
		Iteration:     o.Iteration(),
		TableDigest:   o.table.Digest(),
		Reservoirs:    o.memory.Reservoirs(),
		ArenaRecords:  records,
		CurrentParams: params,
	}
	if err := o.ckpt.Save(state); err != nil {
		return fmt.Errorf("checkpoint at iteration %d: %w", state.Iteration, err)
	}
	o.log.Info().Int("iteration", state.Iteration).Msg("checkpoint written")
	return nil
}

func (o *Orchestrator) shouldEvaluate(iter int) bool {
	if o.cfg.Train.EvalEvery <= 0 {
		return false
	}
	cycle := iter / o.cfg.Train.RetrainEvery
	return cycle%o.cfg.Train.EvalEvery == 0
}

func (o *Orchestrator) newProgressBar() *progressbar.ProgressBar {
	if !isatty.IsTerminal(os.Stderr.Fd()) {
		return nil
	}
	return progressbar.NewOptions(o.cfg.Train.MaxIterations,
		progressbar.OptionSetDescription("self-play"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
	)
}

func (o *Orchestrator) recordRunRow(started time.Time) {
	if o.store == nil {
		return
	}
	cfgJSON, _ := json.Marshal(o.cfg)
	if err := o.store.RecordRun(metrics.Run{
		RunID:     o.runID,
		StartedAt: started.UTC(),
		Config:    string(cfgJSON),
	}); err != nil {
		o.log.Warn().Err(err).Msg("metrics run row")
	}
}

func (o *Orchestrator) recordCycleRow(iter int) {
	if o.store == nil {
		return
	}
	if err := o.store.RecordCycle(metrics.Cycle{
		RunID:        o.runID,
		Iteration:    iter,
		RecordedAt:   time.Now().UTC(),
		NodesVisited: o.stats.NodesVisited.Load(),
		Trees:        o.stats.TreesTraversed.Load(),
	}); err != nil {
		o.log.Warn().Err(err).Msg("metrics cycle row")
	}
}

func (o *Orchestrator) recordRetrainRow(iter, player int, loss float32, samples int, skipped bool) {
	if o.store == nil {
		return
	}
	if err := o.store.RecordRetraining(metrics.Retraining{
		RunID:     o.runID,
		Iteration: iter,
		Player:    player,
		Loss:      float64(loss),
		Samples:   samples,
		Skipped:   skipped,
	}); err != nil {
		o.log.Warn().Err(err).Msg("metrics retraining row")
	}
}

func (o *Orchestrator) recordEvalRow(iter int, exploitability float64) {
	if o.store == nil {
		return
	}
	if err := o.store.RecordEvaluation(metrics.Evaluation{
		RunID:          o.runID,
		Iteration:      iter,
		Exploitability: exploitability,
	}); err != nil {
		o.log.Warn().Err(err).Msg("metrics evaluation row")
	}
}
