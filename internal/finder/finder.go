// Package finder answers "find amala spots near me" by merging three
// heterogeneous sources into one deduplicated list: the verified store
// database, the live nearby-places API, and the AI finder agent. Sources
// degrade independently; partial results beat an error for this product.
package finder

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"amalajoint/internal/geo"
	"amalajoint/internal/store"

	"go.uber.org/zap"
)

// Source tags recording which collaborator produced a place. Dedup priority
// follows this order: verified beats nearby beats agent.
const (
	SourceVerified = "verified"
	SourceNearby   = "nearby"
	SourceAgent    = "agent"
)

const nearbyRadiusMeters = 4000

var (
	ErrQueryRequired    = errors.New("query is required")
	ErrLocationRequired = errors.New("location is required")
	// ErrNoUsableSource is the only total-failure case: the location could
	// not be resolved in any form and no places API is configured.
	ErrNoUsableSource = errors.New("location unresolved and no places api configured")
)

// Location is the caller's position, either coordinates or a free-text
// address.
type Location struct {
	Lat     *float64
	Lng     *float64
	Address string
}

// NormalizedPlace is the pipeline's unified representation of a place
// regardless of originating source.
type NormalizedPlace struct {
	PlaceID     string   `json:"place_id,omitempty"`
	Name        string   `json:"name,omitempty"`
	Address     string   `json:"formatted_address,omitempty"`
	Description string   `json:"description,omitempty"`
	Rating      float64  `json:"rating,omitempty"`
	PriceLevel  string   `json:"price_level,omitempty"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
	ImageURL    string   `json:"image_url,omitempty"`
	Text        string   `json:"text,omitempty"`
	Source      string   `json:"source"`
}

type Result struct {
	Places        []NormalizedPlace    `json:"places"`
	VerifiedCount int                  `json:"verified_count"`
	NearbyCount   int                  `json:"nearby_count"`
	AgentCount    int                  `json:"agent_count"`
	AgentResponse string               `json:"agent_response,omitempty"`
	Location      *geo.LocationDetails `json:"location,omitempty"`
}

// Geocoder resolves locations in both directions.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*geo.LocationDetails, error)
	ReverseGeocode(ctx context.Context, lat, lng float64) (*geo.LocationDetails, error)
}

// NearbySearcher queries the live places API and builds photo URLs.
type NearbySearcher interface {
	SearchNearby(ctx context.Context, lat, lng float64, radius int, keyword string) ([]geo.Place, error)
	PhotoURL(photoReference string) string
}

// Agent produces the AI finder's free-text (ideally JSON) answer.
type Agent interface {
	Find(ctx context.Context, query string) (string, error)
}

// StoreLister reads the verified store collection.
type StoreLister interface {
	ListByVerified(ctx context.Context, verified bool) ([]store.Store, error)
}

type Service struct {
	geocoder Geocoder
	places   NearbySearcher
	agent    Agent
	stores   StoreLister
	logger   *zap.SugaredLogger
}

// NewService builds the pipeline. geocoder and places are nil when no maps
// API key is configured; agent is nil when the AI runtime is unavailable.
// Each missing collaborator just zeroes out its source's contribution.
func NewService(geocoder Geocoder, places NearbySearcher, agent Agent, stores StoreLister, logger *zap.SugaredLogger) *Service {
	return &Service{geocoder: geocoder, places: places, agent: agent, stores: stores, logger: logger}
}

// FindPlaces runs the full aggregation pipeline for one query.
func (s *Service) FindPlaces(ctx context.Context, query string, loc Location) (*Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrQueryRequired
	}
	hasCoords := loc.Lat != nil && loc.Lng != nil
	if !hasCoords && strings.TrimSpace(loc.Address) == "" {
		return nil, ErrLocationRequired
	}

	details, resolved := s.resolveLocation(ctx, loc, hasCoords)
	if !resolved && s.places == nil && details.FormattedAddress == "" {
		return nil, ErrNoUsableSource
	}

	result := &Result{Places: []NormalizedPlace{}, Location: details}

	agentRecords := s.askAgent(ctx, query, details, result)

	var candidates []NormalizedPlace
	candidates = append(candidates, s.verifiedPlaces(ctx)...)
	if details.Latitude != 0 || details.Longitude != 0 {
		candidates = append(candidates, s.nearbyPlaces(ctx, details)...)
	}
	candidates = append(candidates, agentRecords...)

	for _, place := range dedupe(candidates) {
		result.Places = append(result.Places, place)
		switch place.Source {
		case SourceVerified:
			result.VerifiedCount++
		case SourceNearby:
			result.NearbyCount++
		case SourceAgent:
			result.AgentCount++
		}
	}
	return result, nil
}

// resolveLocation turns the raw input into LocationDetails. Geocoding
// failure never aborts the request: the raw input degrades into the
// address field and the pipeline carries on.
func (s *Service) resolveLocation(ctx context.Context, loc Location, hasCoords bool) (*geo.LocationDetails, bool) {
	if s.geocoder != nil {
		var details *geo.LocationDetails
		var err error
		if hasCoords {
			details, err = s.geocoder.ReverseGeocode(ctx, *loc.Lat, *loc.Lng)
		} else {
			details, err = s.geocoder.Geocode(ctx, loc.Address)
		}
		if err == nil {
			return details, true
		}
		s.logger.Warnw("geocoding failed, degrading to raw input", "error", err)
	}

	details := &geo.LocationDetails{FormattedAddress: loc.Address}
	if hasCoords {
		details.Latitude = *loc.Lat
		details.Longitude = *loc.Lng
		if details.FormattedAddress == "" {
			details.FormattedAddress = fmt.Sprintf("%f,%f", *loc.Lat, *loc.Lng)
		}
	}
	return details, false
}

// askAgent queries the AI finder and normalizes its answer. Failure zeroes
// this source's contribution; the raw response is kept on the result for
// display and debugging.
func (s *Service) askAgent(ctx context.Context, query string, details *geo.LocationDetails, result *Result) []NormalizedPlace {
	if s.agent == nil {
		return nil
	}

	agentQuery := fmt.Sprintf("Find Amala spots near %s. User query: %s", details.FormattedAddress, query)
	raw, err := s.agent.Find(ctx, agentQuery)
	if err != nil {
		s.logger.Warnw("ai finder failed, skipping agent source", "error", err)
		return nil
	}
	result.AgentResponse = raw

	records, ok := parseAgentRecords(raw)
	if !ok {
		// Unparseable answers are surfaced as a single free-text record
		// rather than thrown away.
		return []NormalizedPlace{{Text: strings.TrimSpace(raw), Source: SourceAgent}}
	}

	places := make([]NormalizedPlace, 0, len(records))
	for _, record := range records {
		places = append(places, normalizeAgentRecord(record))
	}
	return places
}

func (s *Service) verifiedPlaces(ctx context.Context) []NormalizedPlace {
	stores, err := s.stores.ListByVerified(ctx, true)
	if err != nil {
		s.logger.Warnw("listing verified stores failed, skipping verified source", "error", err)
		return nil
	}

	places := make([]NormalizedPlace, 0, len(stores))
	for _, st := range stores {
		place := NormalizedPlace{
			PlaceID:     st.PlaceID,
			Name:        st.Name,
			Address:     st.Location,
			Description: st.Description,
			Source:      SourceVerified,
		}
		if st.ImageURL != nil {
			place.ImageURL = *st.ImageURL
		}
		switch {
		case st.Latitude != nil && st.Longitude != nil:
			place.Latitude, place.Longitude = st.Latitude, st.Longitude
		case st.Location != "" && s.geocoder != nil:
			// Best-effort pin; the store is listed either way.
			if details, err := s.geocoder.Geocode(ctx, st.Location); err == nil {
				place.Latitude, place.Longitude = &details.Latitude, &details.Longitude
			}
		}
		places = append(places, place)
	}
	return places
}

func (s *Service) nearbyPlaces(ctx context.Context, details *geo.LocationDetails) []NormalizedPlace {
	if s.places == nil {
		return nil
	}

	results, err := s.places.SearchNearby(ctx, details.Latitude, details.Longitude, nearbyRadiusMeters, "amala")
	if err != nil {
		s.logger.Warnw("nearby search failed, skipping nearby source", "error", err)
		return nil
	}

	places := make([]NormalizedPlace, 0, len(results))
	for _, p := range results {
		place := NormalizedPlace{
			PlaceID: p.PlaceID,
			Name:    p.Name,
			Address: firstNonEmpty(p.Vicinity, p.FormattedAddress),
			Rating:  p.Rating,
			Source:  SourceNearby,
		}
		if p.PriceLevel != nil {
			place.PriceLevel = fmt.Sprintf("%d", *p.PriceLevel)
		}
		if p.Geometry.Location.Lat != 0 || p.Geometry.Location.Lng != 0 {
			lat, lng := p.Geometry.Location.Lat, p.Geometry.Location.Lng
			place.Latitude, place.Longitude = &lat, &lng
		}
		if len(p.Photos) > 0 {
			place.ImageURL = s.places.PhotoURL(p.Photos[0].PhotoReference)
		}
		places = append(places, place)
	}
	return places
}

// dedupe merges candidates in priority order. Key is the place identifier
// when present, else the lowercased (name, address) pair; the first
// occurrence wins. Records with no name cannot be displayed or keyed and
// are dropped, except the agent's free-text fallback record.
func dedupe(candidates []NormalizedPlace) []NormalizedPlace {
	seen := make(map[string]bool, len(candidates))
	merged := make([]NormalizedPlace, 0, len(candidates))

	for _, place := range candidates {
		if place.Name == "" {
			if place.Text != "" {
				merged = append(merged, place)
			}
			continue
		}

		key := place.PlaceID
		if key == "" {
			key = strings.ToLower(place.Name) + "|" + strings.ToLower(place.Address)
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		merged = append(merged, place)
	}
	return merged
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
