// Package seed loads the route and fleet catalog and writes it to an empty
// database.
package seed

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"time"

	"sleeper-booking/internal/data/entity"
	"sleeper-booking/internal/data/repository"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yml
var defaultCatalog []byte

type Catalog struct {
	Stations []StationDef `yaml:"stations" validate:"required,min=2,dive"`
	Buses    []BusDef     `yaml:"buses" validate:"required,min=1,dive"`
}

type StationDef struct {
	Name    string `yaml:"name" validate:"required"`
	Ordinal int    `yaml:"ordinal" validate:"gt=0"`
}

type BusDef struct {
	Name        string `yaml:"name" validate:"required"`
	LowerBerths int    `yaml:"lower_berths" validate:"gte=0"`
	UpperBerths int    `yaml:"upper_berths" validate:"gte=0"`
	Sleeper     bool   `yaml:"sleeper"`
}

// SeatNumbers lists lower berths L1..Ln followed by upper berths U1..Um.
func (b BusDef) SeatNumbers() []string {
	numbers := make([]string, 0, b.LowerBerths+b.UpperBerths)
	for i := 1; i <= b.LowerBerths; i++ {
		numbers = append(numbers, fmt.Sprintf("L%d", i))
	}
	for i := 1; i <= b.UpperBerths; i++ {
		numbers = append(numbers, fmt.Sprintf("U%d", i))
	}
	return numbers
}

// Load reads the catalog at path, or the built-in one when path is empty.
func Load(path string) (*Catalog, error) {
	data := defaultCatalog
	if path != "" {
		var err error
		if data, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("read seed catalog: %w", err)
		}
	}
	return Parse(data)
}

func Parse(data []byte) (*Catalog, error) {
	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("parse seed catalog: %w", err)
	}

	if err := validator.New().Struct(cat); err != nil {
		return nil, fmt.Errorf("invalid seed catalog: %w", err)
	}

	names := make(map[string]bool)
	ordinals := make(map[int]bool)
	for _, st := range cat.Stations {
		if names[st.Name] || ordinals[st.Ordinal] {
			return nil, fmt.Errorf("invalid seed catalog: station %q repeats a name or ordinal", st.Name)
		}
		names[st.Name] = true
		ordinals[st.Ordinal] = true
	}

	for _, b := range cat.Buses {
		if b.LowerBerths+b.UpperBerths == 0 {
			return nil, fmt.Errorf("invalid seed catalog: bus %q has no seats", b.Name)
		}
	}

	return &cat, nil
}

// Apply writes the catalog when no stations exist yet and reports whether it
// did. A populated database is left untouched.
func Apply(ctx context.Context, repo *repository.Repository, cat *Catalog, log *zap.Logger) (bool, error) {
	count, err := repo.Station.Count(ctx)
	if err != nil {
		return false, err
	}
	if count > 0 {
		log.Info("Catalog already seeded", zap.Int64("stations", count))
		return false, nil
	}

	now := time.Now().UTC()

	stations := make([]*entity.Station, 0, len(cat.Stations))
	for _, def := range cat.Stations {
		stations = append(stations, &entity.Station{
			BaseSimple: entity.BaseSimple{ID: uuid.New(), CreatedAt: now},
			Name:       def.Name,
			Ordinal:    def.Ordinal,
		})
	}
	if err := repo.Station.CreateBatch(ctx, stations); err != nil {
		return false, err
	}

	seatCount := 0
	for _, def := range cat.Buses {
		numbers := def.SeatNumbers()
		bus := &entity.Bus{
			BaseSimple: entity.BaseSimple{ID: uuid.New(), CreatedAt: now},
			Name:       def.Name,
			TotalSeats: len(numbers),
		}
		if err := repo.Bus.Create(ctx, bus); err != nil {
			return false, err
		}

		seats := make([]*entity.Seat, 0, len(numbers))
		for _, n := range numbers {
			seats = append(seats, &entity.Seat{
				BaseSimple: entity.BaseSimple{ID: uuid.New(), CreatedAt: now},
				BusID:      bus.ID,
				SeatNumber: n,
				IsSleeper:  def.Sleeper,
			})
		}
		if err := repo.Seat.CreateBatch(ctx, seats); err != nil {
			return false, err
		}
		seatCount += len(seats)
	}

	log.Info("Catalog seeded",
		zap.Int("stations", len(stations)),
		zap.Int("buses", len(cat.Buses)),
		zap.Int("seats", seatCount),
	)
	return true, nil
}
