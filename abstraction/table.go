package abstraction

import (
	"bytes"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"hash/fnv"
	"io"
	"math/rand"
	"os"

	"holdemcfr/common/safemap"
	"holdemcfr/nolimitholdem"
)

// tableVersion is bumped whenever the feature extraction or the file
// layout changes; older artifacts are rejected on load.
const tableVersion = 2

var tableMagic = []byte("HCABS")

type Config struct {
	Seed int64 `yaml:"seed" env:"ABS_SEED" env-default:"1337"`

	// Hole buckets per street.
	PreflopBuckets int `yaml:"preflop_buckets" env:"ABS_PREFLOP_BUCKETS" env-default:"24"`
	FlopBuckets    int `yaml:"flop_buckets" env:"ABS_FLOP_BUCKETS" env-default:"200"`
	TurnBuckets    int `yaml:"turn_buckets" env:"ABS_TURN_BUCKETS" env-default:"300"`
	RiverBuckets   int `yaml:"river_buckets" env:"ABS_RIVER_BUCKETS" env-default:"500"`

	// Board-texture buckets per postflop street.
	FlopBoardBuckets  int `yaml:"flop_board_buckets" env:"ABS_FLOP_BOARD_BUCKETS" env-default:"40"`
	TurnBoardBuckets  int `yaml:"turn_board_buckets" env:"ABS_TURN_BOARD_BUCKETS" env-default:"40"`
	RiverBoardBuckets int `yaml:"river_board_buckets" env:"ABS_RIVER_BOARD_BUCKETS" env-default:"40"`

	// Monte-Carlo budget for building and runtime lookups.
	BoardSamples    int `yaml:"board_samples" env:"ABS_BOARD_SAMPLES" env-default:"4000"`
	HoleSamples     int `yaml:"hole_samples" env:"ABS_HOLE_SAMPLES" env-default:"4000"`
	EquityRunouts   int `yaml:"equity_runouts" env:"ABS_EQUITY_RUNOUTS" env-default:"20"`
	EquityOpponents int `yaml:"equity_opponents" env:"ABS_EQUITY_OPPONENTS" env-default:"8"`

	KMeansIterations int `yaml:"kmeans_iterations" env:"ABS_KMEANS_ITERATIONS" env-default:"50"`
}

// payload is the serialized, immutable body of a table.
type payload struct {
	Version int
	Cfg     Config

	PreflopAssign []uint16 // 169 canonical classes -> bucket

	// Indexed by street; preflop slots unused.
	HoleCentroids  [4][][]float64
	BoardCentroids [4][][]float64
}

// Table is the per-street bucket mapping. Built offline, immutable and
// shared read-only across all traversal workers; only the lookup cache
// mutates, behind a safemap.
type Table struct {
	p      payload
	digest string
	cache  safemap.Safemap[uint64, int]
}

func streetBoardLen(street nolimitholdem.GameStage) int {
	switch street {
	case nolimitholdem.STAGE_FLOP:
		return 3
	case nolimitholdem.STAGE_TURN:
		return 4
	default:
		return 5
	}
}

// Build clusters board textures and hole equity distributions per
// street. Deterministic for a given config.
func Build(cfg Config) *Table {
	rng := rand.New(rand.NewSource(cfg.Seed))
	p := payload{Version: tableVersion, Cfg: cfg}

	p.PreflopAssign = buildPreflop(rng, cfg)

	holeK := map[nolimitholdem.GameStage]int{
		nolimitholdem.STAGE_FLOP:  cfg.FlopBuckets,
		nolimitholdem.STAGE_TURN:  cfg.TurnBuckets,
		nolimitholdem.STAGE_RIVER: cfg.RiverBuckets,
	}
	boardK := map[nolimitholdem.GameStage]int{
		nolimitholdem.STAGE_FLOP:  cfg.FlopBoardBuckets,
		nolimitholdem.STAGE_TURN:  cfg.TurnBoardBuckets,
		nolimitholdem.STAGE_RIVER: cfg.RiverBoardBuckets,
	}

	for _, street := range []nolimitholdem.GameStage{
		nolimitholdem.STAGE_FLOP, nolimitholdem.STAGE_TURN, nolimitholdem.STAGE_RIVER,
	} {
		boardLen := streetBoardLen(street)

		boards := make([][]float64, 0, cfg.BoardSamples)
		for i := 0; i < cfg.BoardSamples; i++ {
			board := dealDistinct(rng, nil, boardLen)
			boards = append(boards, boardFeatures(board))
		}
		p.BoardCentroids[street] = kmeans(rng, boards, boardK[street], cfg.KMeansIterations)

		holes := make([][]float64, 0, cfg.HoleSamples)
		for i := 0; i < cfg.HoleSamples; i++ {
			dealt := dealDistinct(rng, nil, boardLen+2)
			hole, board := dealt[:2], dealt[2:]
			mean, std := equityMoments(rng, hole, board, cfg.EquityRunouts, cfg.EquityOpponents)
			holes = append(holes, []float64{mean, std})
		}
		p.HoleCentroids[street] = kmeans(rng, holes, holeK[street], cfg.KMeansIterations)
	}

	t := &Table{p: p, cache: safemap.New[uint64, int]()}
	t.digest = computeDigest(p)
	return t
}

// buildPreflop clusters the 169 canonical classes by their preflop
// equity moments against a random hand.
func buildPreflop(rng *rand.Rand, cfg Config) []uint16 {
	assign := make([]uint16, 169)
	if cfg.PreflopBuckets >= 169 {
		for i := range assign {
			assign[i] = uint16(i)
		}
		return assign
	}

	points := make([][]float64, 169)
	for hi := int16(0); hi < 13; hi++ {
		for lo := int16(0); lo <= hi; lo++ {
			// Offsuit / pair representative.
			a, b := nolimitholdem.NewCard(hi, 0), nolimitholdem.NewCard(lo, 1)
			mean, std := equityMoments(rng, []nolimitholdem.Card{a, b}, nil, cfg.EquityRunouts, cfg.EquityOpponents)
			points[Canonical169(a, b)] = []float64{mean, std}

			if hi != lo {
				// Suited representative.
				a, b = nolimitholdem.NewCard(hi, 0), nolimitholdem.NewCard(lo, 0)
				mean, std = equityMoments(rng, []nolimitholdem.Card{a, b}, nil, cfg.EquityRunouts, cfg.EquityOpponents)
				points[Canonical169(a, b)] = []float64{mean, std}
			}
		}
	}

	centroids := kmeans(rng, points, cfg.PreflopBuckets, cfg.KMeansIterations)
	for i, p := range points {
		assign[i] = uint16(nearestCentroid(centroids, p))
	}
	return assign
}

func dealDistinct(rng *rand.Rand, exclude []nolimitholdem.Card, n int) []nolimitholdem.Card {
	used := make(map[nolimitholdem.Card]bool, len(exclude))
	for _, c := range exclude {
		used[c] = true
	}
	out := make([]nolimitholdem.Card, 0, n)
	for len(out) < n {
		c := nolimitholdem.Card(rng.Intn(nolimitholdem.DECK_SIZE))
		if !used[c] {
			used[c] = true
			out = append(out, c)
		}
	}
	return out
}

// HoleBucket maps (street, hole, board) to a hole bucket id.
func (t *Table) HoleBucket(street nolimitholdem.GameStage, hole, board []nolimitholdem.Card) int {
	if street == nolimitholdem.STAGE_PREFLOP {
		return int(t.p.PreflopAssign[Canonical169(hole[0], hole[1])])
	}

	key := lookupKey(0x68, street, append(append([]nolimitholdem.Card(nil), hole...), board...))
	if b, ok := t.cache.Get(key); ok {
		return b
	}

	rng := rand.New(rand.NewSource(cardsSeed(t.p.Cfg.Seed, append(append([]nolimitholdem.Card(nil), hole...), board...)...)))
	mean, std := equityMoments(rng, hole, board, t.p.Cfg.EquityRunouts, t.p.Cfg.EquityOpponents)
	b := nearestCentroid(t.p.HoleCentroids[street], []float64{mean, std})
	t.cache.Set(key, b)
	return b
}

// BoardBucket maps (street, board) to a board-texture bucket id.
func (t *Table) BoardBucket(street nolimitholdem.GameStage, board []nolimitholdem.Card) int {
	if street == nolimitholdem.STAGE_PREFLOP {
		return 0
	}
	key := lookupKey(0x62, street, board)
	if b, ok := t.cache.Get(key); ok {
		return b
	}
	b := nearestCentroid(t.p.BoardCentroids[street], boardFeatures(board))
	t.cache.Set(key, b)
	return b
}

func lookupKey(tag byte, street nolimitholdem.GameStage, cards []nolimitholdem.Card) uint64 {
	h := fnv.New64a()
	h.Write([]byte{tag, byte(street)})
	for _, c := range nolimitholdem.SortCards(cards) {
		h.Write([]byte{byte(c)})
	}
	return h.Sum64()
}

// HoleBucketCount returns the number of hole buckets on a street.
func (t *Table) HoleBucketCount(street nolimitholdem.GameStage) int {
	if street == nolimitholdem.STAGE_PREFLOP {
		maxB := uint16(0)
		for _, b := range t.p.PreflopAssign {
			if b > maxB {
				maxB = b
			}
		}
		return int(maxB) + 1
	}
	return len(t.p.HoleCentroids[street])
}

// BoardBucketCount returns the number of board buckets on a street.
func (t *Table) BoardBucketCount(street nolimitholdem.GameStage) int {
	if street == nolimitholdem.STAGE_PREFLOP {
		return 1
	}
	return len(t.p.BoardCentroids[street])
}

// Digest identifies the table contents. Checkpoints embed it so a
// regenerated table is detected as a fatal mismatch on resume.
func (t *Table) Digest() string {
	return t.digest
}

func computeDigest(p payload) string {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(p); err != nil {
		panic(fmt.Sprintf("abstraction: digest encode: %v", err))
	}
	sum := sha256.Sum256(buf.Bytes())
	return hex.EncodeToString(sum[:])
}

// Save writes the artifact: magic, version byte, payload checksum,
// gob payload.
func (t *Table) Save(path string) error {
	var body bytes.Buffer
	if err := gob.NewEncoder(&body).Encode(t.p); err != nil {
		return fmt.Errorf("encode table: %w", err)
	}
	sum := sha256.Sum256(body.Bytes())

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.Write(tableMagic); err != nil {
		return err
	}
	if _, err := f.Write([]byte{tableVersion}); err != nil {
		return err
	}
	if _, err := f.Write(sum[:]); err != nil {
		return err
	}
	if _, err := f.Write(body.Bytes()); err != nil {
		return err
	}
	return f.Sync()
}

// Load reads and verifies a table artifact.
func Load(path string) (*Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	header := len(tableMagic) + 1 + sha256.Size
	if len(raw) < header || !bytes.Equal(raw[:len(tableMagic)], tableMagic) {
		return nil, fmt.Errorf("%s: not an abstraction table artifact", path)
	}
	if v := raw[len(tableMagic)]; v != tableVersion {
		return nil, fmt.Errorf("%s: table version %d, want %d", path, v, tableVersion)
	}
	stored := raw[len(tableMagic)+1 : header]
	body := raw[header:]
	if sum := sha256.Sum256(body); !bytes.Equal(stored, sum[:]) {
		return nil, fmt.Errorf("%s: checksum mismatch", path)
	}

	var p payload
	if err := gob.NewDecoder(bytes.NewReader(body)).Decode(&p); err != nil {
		if err == io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("%s: truncated artifact", path)
		}
		return nil, fmt.Errorf("decode table: %w", err)
	}
	return &Table{p: p, digest: computeDigest(p), cache: safemap.New[uint64, int]()}, nil
}
