package scoring

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

type Config struct {
	Samples  int
	Trees    int
	MaxDepth int
	Seed     uint64
}

func DefaultConfig() Config {
	return Config{
		Samples:  2000,
		Trees:    100,
		MaxDepth: 5,
		Seed:     42,
	}
}

// Scorer owns one trained model. The model is trained at most once per
// instance, either by an explicit Train at startup or lazily by the first
// Score, and is never retrained.
type Scorer struct {
	cfg Config
	log *zap.Logger

	once      sync.Once
	model     *Forest
	err       error
	trainings atomic.Int32
}

func New(cfg Config, log *zap.Logger) *Scorer {
	return &Scorer{
		cfg: cfg,
		log: log.With(zap.String("component", "scorer")),
	}
}

// Train builds the model if it has not been built yet. Concurrent callers
// wait for the single training run and share its result.
func (s *Scorer) Train() error {
	s.once.Do(func() {
		s.trainings.Add(1)
		start := time.Now()

		rng := rand.New(rand.NewPCG(s.cfg.Seed, s.cfg.Seed+1))
		data := GenerateDataset(s.cfg.Samples, rng)

		model, err := TrainForest(data, ForestConfig{
			Trees:    s.cfg.Trees,
			MaxDepth: s.cfg.MaxDepth,
			Seed:     s.cfg.Seed,
		})
		if err != nil {
			s.err = fmt.Errorf("train confirmation model: %w", err)
			s.log.Error("Failed to train confirmation model", zap.Error(err))
			return
		}
		s.model = model

		positives := 0
		for _, d := range data {
			positives += d.Label
		}
		s.log.Info("Confirmation model trained",
			zap.Int("samples", len(data)),
			zap.Int("positives", positives),
			zap.Int("trees", s.cfg.Trees),
			zap.Int("max_depth", s.cfg.MaxDepth),
			zap.Duration("duration", time.Since(start)),
		)
	})
	return s.err
}

// Score returns the probability, in percent with two decimals, that a booking
// with these features stays confirmed. Same-station trips score 0 without
// consulting the model.
func (s *Scorer) Score(f Features) (float64, error) {
	if f.Distance == 0 {
		return 0, nil
	}
	if err := s.Train(); err != nil {
		return 0, err
	}

	p := s.model.PredictProba(f.vector())
	return math.Round(p*100*100) / 100, nil
}
