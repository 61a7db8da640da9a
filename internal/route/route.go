// Package route maps stations onto their position along the single fixed
// route and does the segment arithmetic used for seat availability.
package route

import (
	"errors"
	"fmt"
	"sort"

	"sleeper-booking/internal/data/entity"

	"github.com/google/uuid"
)

var (
	ErrUnknownStation = errors.New("unknown station")
	ErrInvalidSegment = errors.New("invalid segment: source must come before destination")
)

// Route is immutable once built and safe for concurrent use.
type Route struct {
	stations []*entity.Station
	ordinals map[uuid.UUID]int
}

// New builds a route from the seeded stations. Names and ordinals must be unique.
func New(stations []*entity.Station) (*Route, error) {
	r := &Route{
		stations: make([]*entity.Station, 0, len(stations)),
		ordinals: make(map[uuid.UUID]int, len(stations)),
	}

	names := make(map[string]struct{}, len(stations))
	seen := make(map[int]string, len(stations))

	for _, st := range stations {
		if st == nil {
			continue
		}
		if _, dup := r.ordinals[st.ID]; dup {
			return nil, fmt.Errorf("duplicate station id %s", st.ID)
		}
		if _, dup := names[st.Name]; dup {
			return nil, fmt.Errorf("duplicate station name %q", st.Name)
		}
		if other, dup := seen[st.Ordinal]; dup {
			return nil, fmt.Errorf("stations %q and %q share ordinal %d", other, st.Name, st.Ordinal)
		}

		names[st.Name] = struct{}{}
		seen[st.Ordinal] = st.Name
		r.ordinals[st.ID] = st.Ordinal

		cp := *st
		r.stations = append(r.stations, &cp)
	}

	sort.Slice(r.stations, func(i, j int) bool {
		return r.stations[i].Ordinal < r.stations[j].Ordinal
	})

	return r, nil
}

// Ordinal returns the position of a station along the route.
func (r *Route) Ordinal(stationID uuid.UUID) (int, error) {
	ord, ok := r.ordinals[stationID]
	if !ok {
		return 0, fmt.Errorf("station %s: %w", stationID, ErrUnknownStation)
	}
	return ord, nil
}

// Segment maps a source/destination pair to its half-open ordinal interval.
// Travel is strictly forward: source must come before destination.
func (r *Route) Segment(sourceID, destID uuid.UUID) (Segment, error) {
	start, err := r.Ordinal(sourceID)
	if err != nil {
		return Segment{}, err
	}
	end, err := r.Ordinal(destID)
	if err != nil {
		return Segment{}, err
	}
	if start >= end {
		return Segment{}, ErrInvalidSegment
	}
	return Segment{Start: start, End: end}, nil
}

// Distance is the number of ordinal steps between two stations, regardless of direction.
func (r *Route) Distance(sourceID, destID uuid.UUID) (int, error) {
	start, err := r.Ordinal(sourceID)
	if err != nil {
		return 0, err
	}
	end, err := r.Ordinal(destID)
	if err != nil {
		return 0, err
	}
	if end < start {
		return start - end, nil
	}
	return end - start, nil
}

// Stations returns the stations ordered by ordinal. The slice is a copy.
func (r *Route) Stations() []*entity.Station {
	out := make([]*entity.Station, len(r.stations))
	for i, st := range r.stations {
		cp := *st
		out[i] = &cp
	}
	return out
}

// Station looks a station up by id.
func (r *Route) Station(id uuid.UUID) (*entity.Station, bool) {
	for _, st := range r.stations {
		if st.ID == id {
			cp := *st
			return &cp, true
		}
	}
	return nil, false
}
