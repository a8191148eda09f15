package cfr

import (
	"encoding/gob"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"

	"holdemcfr/common/f32"
	"holdemcfr/nolimitholdem"
)

var (
	// ErrDiverged signals a non-finite loss or parameter after a
	// training step. The caller rolls back to known-good parameters.
	ErrDiverged = errors.New("advantage training diverged")
	// ErrResourceExhausted signals that the training backend ran out
	// of memory for the submitted batch. The caller retries with a
	// smaller batch once, then skips the pass.
	ErrResourceExhausted = errors.New("training backend resources exhausted")
)

type NetConfig struct {
	InputDim     int
	HiddenDim    int
	LearningRate float32
	Seed         int64
}

// Net is a single-hidden-layer regression network predicting the
// cumulative regret per action slot. Training minimizes the
// iteration-weighted MSE over the legal slots; later iterations carry
// linearly more weight.
type Net struct {
	mu  sync.RWMutex
	cfg NetConfig

	params []float32
	adamM  []float32
	adamV  []float32
	step   int
}

const (
	adamBeta1 = 0.9
	adamBeta2 = 0.999
	adamEps   = 1e-8
)

func NewNet(cfg NetConfig) *Net {
	if cfg.HiddenDim <= 0 {
		cfg.HiddenDim = 128
	}
	if cfg.LearningRate <= 0 {
		cfg.LearningRate = 1e-3
	}

	n := &Net{cfg: cfg}
	total := paramCount(cfg.InputDim, cfg.HiddenDim)
	n.params = make([]float32, total)
	n.adamM = make([]float32, total)
	n.adamV = make([]float32, total)

	// He initialization for the two relu-fed weight blocks.
	rng := rand.New(rand.NewSource(cfg.Seed))
	d, h := cfg.InputDim, cfg.HiddenDim
	scale1 := float32(math.Sqrt(2.0 / float64(d)))
	for i := 0; i < h*d; i++ {
		n.params[i] = float32(rng.NormFloat64()) * scale1
	}
	scale2 := float32(math.Sqrt(2.0 / float64(h)))
	for i := h*d + h; i < h*d+h+nolimitholdem.NUM_ACTIONS*h; i++ {
		n.params[i] = float32(rng.NormFloat64()) * scale2
	}
	return n
}

func paramCount(d, h int) int {
	return h*d + h + nolimitholdem.NUM_ACTIONS*h + nolimitholdem.NUM_ACTIONS
}

// forward computes hidden activations and outputs for x using the
// given flat parameter vector.
func forward(params []float32, d, h int, x []float32, hidden, out []float32) {
	w1 := params[:h*d]
	b1 := params[h*d : h*d+h]
	w2 := params[h*d+h : h*d+h+nolimitholdem.NUM_ACTIONS*h]
	b2 := params[h*d+h+nolimitholdem.NUM_ACTIONS*h:]

	for j := 0; j < h; j++ {
		sum := b1[j] + f32.DotUnitary(w1[j*d:(j+1)*d], x)
		if sum < 0 {
			sum = 0
		}
		hidden[j] = sum
	}
	for k := 0; k < nolimitholdem.NUM_ACTIONS; k++ {
		out[k] = b2[k] + f32.DotUnitary(w2[k*h:(k+1)*h], hidden)
	}
}

// Predict implements Predictor.
func (n *Net) Predict(is *InfoSet) []float32 {
	n.mu.RLock()
	defer n.mu.RUnlock()

	hidden := make([]float32, n.cfg.HiddenDim)
	out := make([]float32, nolimitholdem.NUM_ACTIONS)
	forward(n.params, n.cfg.InputDim, n.cfg.HiddenDim, is.Vector, hidden, out)
	return out
}

// Train implements Advantage: one Adam step against the batch.
func (n *Net) Train(batch []*Sample) (float32, error) {
	if len(batch) == 0 {
		return 0, nil
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	d, h := n.cfg.InputDim, n.cfg.HiddenDim
	grads := make([]float32, len(n.params))
	hidden := make([]float32, h)
	out := make([]float32, nolimitholdem.NUM_ACTIONS)
	dOut := make([]float32, nolimitholdem.NUM_ACTIONS)
	dHidden := make([]float32, h)

	var meanWeight float32
	for _, s := range batch {
		meanWeight += s.Weight
	}
	meanWeight /= float32(len(batch))
	if meanWeight <= 0 {
		meanWeight = 1
	}

	w2 := n.params[h*d+h : h*d+h+nolimitholdem.NUM_ACTIONS*h]

	var loss, lossNorm float32
	for _, s := range batch {
		if len(s.Vector) != d {
			return 0, fmt.Errorf("sample dim %d, net expects %d", len(s.Vector), d)
		}
		forward(n.params, d, h, s.Vector, hidden, out)

		wn := s.Weight / meanWeight
		for k := range dOut {
			dOut[k] = 0
		}
		for _, a := range s.Legal {
			diff := out[a] - s.Regrets[a]
			loss += wn * diff * diff
			lossNorm += wn
			dOut[a] = 2 * wn * diff / float32(len(batch))
		}

		gw2 := grads[h*d+h : h*d+h+nolimitholdem.NUM_ACTIONS*h]
		gb2 := grads[h*d+h+nolimitholdem.NUM_ACTIONS*h:]
		for k := 0; k < nolimitholdem.NUM_ACTIONS; k++ {
			if dOut[k] == 0 {
				continue
			}
			f32.AxpyUnitary(dOut[k], hidden, gw2[k*h:(k+1)*h])
			gb2[k] += dOut[k]
		}

		for j := 0; j < h; j++ {
			if hidden[j] <= 0 {
				dHidden[j] = 0
				continue
			}
			var sum float32
			for k := 0; k < nolimitholdem.NUM_ACTIONS; k++ {
				sum += dOut[k] * w2[k*h+j]
			}
			dHidden[j] = sum
		}

		gw1 := grads[:h*d]
		gb1 := grads[h*d : h*d+h]
		for j := 0; j < h; j++ {
			if dHidden[j] == 0 {
				continue
			}
			f32.AxpyUnitary(dHidden[j], s.Vector, gw1[j*d:(j+1)*d])
			gb1[j] += dHidden[j]
		}
	}

	if lossNorm > 0 {
		loss /= lossNorm
	}
	if math.IsNaN(float64(loss)) || math.IsInf(float64(loss), 0) {
		return loss, ErrDiverged
	}

	n.step++
	t := float32(n.step)
	corr1 := 1 - float32(math.Pow(adamBeta1, float64(t)))
	corr2 := 1 - float32(math.Pow(adamBeta2, float64(t)))
	for i, g := range grads {
		n.adamM[i] = adamBeta1*n.adamM[i] + (1-adamBeta1)*g
		n.adamV[i] = adamBeta2*n.adamV[i] + (1-adamBeta2)*g*g
		mHat := n.adamM[i] / corr1
		vHat := n.adamV[i] / corr2
		n.params[i] -= n.cfg.LearningRate * mHat / (float32(math.Sqrt(float64(vHat))) + adamEps)
	}
	for _, p := range n.params {
		if math.IsNaN(float64(p)) || math.IsInf(float64(p), 0) {
			return loss, ErrDiverged
		}
	}
	return loss, nil
}

// NetSnapshot is an immutable copy of a network's parameters. It
// predicts on its own and round-trips through gob for checkpoints and
// the snapshot arena.
type NetSnapshot struct {
	InputDim  int
	HiddenDim int
	Params    []float32
}

func (s *NetSnapshot) Predict(is *InfoSet) []float32 {
	hidden := make([]float32, s.HiddenDim)
	out := make([]float32, nolimitholdem.NUM_ACTIONS)
	forward(s.Params, s.InputDim, s.HiddenDim, is.Vector, hidden, out)
	return out
}

// Snapshot implements Advantage.
func (n *Net) Snapshot() Predictor {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return &NetSnapshot{
		InputDim:  n.cfg.InputDim,
		HiddenDim: n.cfg.HiddenDim,
		Params:    append([]float32(nil), n.params...),
	}
}

// Restore implements Advantage: rolls parameters back to a snapshot
// and resets the optimizer state.
func (n *Net) Restore(p Predictor) error {
	snap, ok := p.(*NetSnapshot)
	if !ok {
		return fmt.Errorf("cannot restore net from %T", p)
	}
	if snap.InputDim != n.cfg.InputDim || snap.HiddenDim != n.cfg.HiddenDim {
		return fmt.Errorf("snapshot dims %dx%d, net is %dx%d",
			snap.InputDim, snap.HiddenDim, n.cfg.InputDim, n.cfg.HiddenDim)
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	copy(n.params, snap.Params)
	for i := range n.adamM {
		n.adamM[i] = 0
		n.adamV[i] = 0
	}
	n.step = 0
	return nil
}

func init() {
	gob.Register(&NetSnapshot{})
}
