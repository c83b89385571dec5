package finder

import (
	"context"
	"errors"
	"testing"

	"amalajoint/internal/geo"
	"amalajoint/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeGeocoder struct {
	details *geo.LocationDetails
	err     error
}

func (g *fakeGeocoder) Geocode(context.Context, string) (*geo.LocationDetails, error) {
	return g.details, g.err
}

func (g *fakeGeocoder) ReverseGeocode(context.Context, float64, float64) (*geo.LocationDetails, error) {
	return g.details, g.err
}

type fakeSearcher struct {
	places []geo.Place
	err    error
	calls  int
}

func (s *fakeSearcher) SearchNearby(_ context.Context, _, _ float64, _ int, _ string) ([]geo.Place, error) {
	s.calls++
	return s.places, s.err
}

func (s *fakeSearcher) PhotoURL(ref string) string {
	if ref == "" {
		return ""
	}
	return "https://maps.example.com/photo/" + ref
}

type fakeAgent struct {
	response string
	err      error
	queries  []string
}

func (a *fakeAgent) Find(_ context.Context, query string) (string, error) {
	a.queries = append(a.queries, query)
	return a.response, a.err
}

type fakeLister struct {
	stores []store.Store
	err    error
}

func (l *fakeLister) ListByVerified(context.Context, bool) ([]store.Store, error) {
	return l.stores, l.err
}

func ptr(v float64) *float64 { return &v }

func lagosDetails() *geo.LocationDetails {
	return &geo.LocationDetails{
		Latitude:         6.6018,
		Longitude:        3.3515,
		FormattedAddress: "Ikeja, Lagos, Nigeria",
		City:             "Ikeja",
		State:            "Lagos",
		Country:          "Nigeria",
	}
}

func verifiedStore() store.Store {
	img := "https://images.example.com/iya-basira.jpg"
	return store.Store{
		ID:          1,
		PlaceID:     "amala_abc123def456",
		Name:        "Iya Basira Amala",
		Location:    "12 Allen Avenue, Ikeja",
		Description: "Best amala in Ikeja",
		Latitude:    ptr(6.6),
		Longitude:   ptr(3.35),
		ImageURL:    &img,
		IsVerified:  true,
	}
}

func TestFindPlacesValidation(t *testing.T) {
	svc := NewService(nil, nil, nil, &fakeLister{}, zap.NewNop().Sugar())

	_, err := svc.FindPlaces(context.Background(), "  ", Location{Address: "Ikeja"})
	assert.ErrorIs(t, err, ErrQueryRequired)

	_, err = svc.FindPlaces(context.Background(), "amala", Location{})
	assert.ErrorIs(t, err, ErrLocationRequired)
}

func TestMergesAllThreeSources(t *testing.T) {
	searcher := &fakeSearcher{places: []geo.Place{
		{
			PlaceID:  "gplace_1",
			Name:     "Skye Amala Spot",
			Vicinity: "Opebi Road, Ikeja",
			Rating:   4.2,
			Geometry: geo.Geometry{Location: geo.LatLng{Lat: 6.59, Lng: 3.36}},
		},
	}}
	agent := &fakeAgent{response: `[{"id":"agent_1","name":"Mama Nkechi Amala","address":"Toyin Street, Ikeja","rating":4.5}]`}
	svc := NewService(
		&fakeGeocoder{details: lagosDetails()},
		searcher,
		agent,
		&fakeLister{stores: []store.Store{verifiedStore()}},
		zap.NewNop().Sugar(),
	)

	result, err := svc.FindPlaces(context.Background(), "best amala", Location{Address: "Ikeja"})
	require.NoError(t, err)

	assert.Len(t, result.Places, 3)
	assert.Equal(t, 1, result.VerifiedCount)
	assert.Equal(t, 1, result.NearbyCount)
	assert.Equal(t, 1, result.AgentCount)
	assert.Equal(t, "Ikeja, Lagos, Nigeria", result.Location.FormattedAddress)

	require.Len(t, agent.queries, 1)
	assert.Contains(t, agent.queries[0], "Ikeja, Lagos, Nigeria")
	assert.Contains(t, agent.queries[0], "best amala")
}

func TestVerifiedBeatsNearbyOnSamePlaceID(t *testing.T) {
	verified := verifiedStore()
	searcher := &fakeSearcher{places: []geo.Place{
		{
			PlaceID:  verified.PlaceID,
			Name:     "Iya Basira (Google listing)",
			Vicinity: "Allen Avenue",
			Rating:   3.9,
		},
	}}
	svc := NewService(
		&fakeGeocoder{details: lagosDetails()},
		searcher,
		nil,
		&fakeLister{stores: []store.Store{verified}},
		zap.NewNop().Sugar(),
	)

	result, err := svc.FindPlaces(context.Background(), "amala", Location{Lat: ptr(6.6), Lng: ptr(3.35)})
	require.NoError(t, err)

	require.Len(t, result.Places, 1)
	assert.Equal(t, SourceVerified, result.Places[0].Source)
	assert.Equal(t, "Iya Basira Amala", result.Places[0].Name)
	assert.Equal(t, 1, result.VerifiedCount)
	assert.Equal(t, 0, result.NearbyCount)
}

func TestDuplicateByNameAndAddressDropped(t *testing.T) {
	agent := &fakeAgent{response: `[{"name":"SKYE AMALA SPOT","address":"Opebi Road, Ikeja"}]`}
	searcher := &fakeSearcher{places: []geo.Place{
		{Name: "Skye Amala Spot", Vicinity: "Opebi Road, Ikeja", Rating: 4.2},
	}}
	svc := NewService(
		&fakeGeocoder{details: lagosDetails()},
		searcher,
		agent,
		&fakeLister{},
		zap.NewNop().Sugar(),
	)

	result, err := svc.FindPlaces(context.Background(), "amala", Location{Address: "Ikeja"})
	require.NoError(t, err)

	require.Len(t, result.Places, 1)
	assert.Equal(t, SourceNearby, result.Places[0].Source)
	assert.Equal(t, 0, result.AgentCount)
}

func TestNearbyFailureDegrades(t *testing.T) {
	searcher := &fakeSearcher{err: errors.New("OVER_QUERY_LIMIT")}
	agent := &fakeAgent{response: `[{"name":"Mama Nkechi Amala","address":"Toyin Street"}]`}
	svc := NewService(
		&fakeGeocoder{details: lagosDetails()},
		searcher,
		agent,
		&fakeLister{stores: []store.Store{verifiedStore()}},
		zap.NewNop().Sugar(),
	)

	result, err := svc.FindPlaces(context.Background(), "amala", Location{Address: "Ikeja"})
	require.NoError(t, err)

	assert.Equal(t, 0, result.NearbyCount)
	assert.Equal(t, 1, result.VerifiedCount)
	assert.Equal(t, 1, result.AgentCount)
}

func TestAgentFailureDegrades(t *testing.T) {
	agent := &fakeAgent{err: errors.New("timeout")}
	svc := NewService(
		&fakeGeocoder{details: lagosDetails()},
		&fakeSearcher{},
		agent,
		&fakeLister{stores: []store.Store{verifiedStore()}},
		zap.NewNop().Sugar(),
	)

	result, err := svc.FindPlaces(context.Background(), "amala", Location{Address: "Ikeja"})
	require.NoError(t, err)

	assert.Equal(t, 0, result.AgentCount)
	assert.Empty(t, result.AgentResponse)
	assert.Equal(t, 1, result.VerifiedCount)
}

func TestGeocodeFailureDegradesToRawInput(t *testing.T) {
	agent := &fakeAgent{response: `[{"name":"Mama Nkechi Amala","address":"Toyin Street"}]`}
	svc := NewService(
		&fakeGeocoder{err: errors.New("REQUEST_DENIED")},
		&fakeSearcher{},
		agent,
		&fakeLister{},
		zap.NewNop().Sugar(),
	)

	result, err := svc.FindPlaces(context.Background(), "amala", Location{Address: "Somewhere in Ibadan"})
	require.NoError(t, err)

	assert.Equal(t, "Somewhere in Ibadan", result.Location.FormattedAddress)
	require.Len(t, agent.queries, 1)
	assert.Contains(t, agent.queries[0], "Somewhere in Ibadan")
}

func TestCoordinatesCarriedThroughGeocodeFailure(t *testing.T) {
	searcher := &fakeSearcher{}
	svc := NewService(
		&fakeGeocoder{err: errors.New("unavailable")},
		searcher,
		nil,
		&fakeLister{},
		zap.NewNop().Sugar(),
	)

	result, err := svc.FindPlaces(context.Background(), "amala", Location{Lat: ptr(6.6), Lng: ptr(3.35)})
	require.NoError(t, err)

	// Nearby search still ran off the raw coordinates.
	assert.Equal(t, 1, searcher.calls)
	assert.Equal(t, 6.6, result.Location.Latitude)
	assert.Equal(t, "6.600000,3.350000", result.Location.FormattedAddress)
}

func TestAddressOnlyWithoutCoordsSkipsNearby(t *testing.T) {
	searcher := &fakeSearcher{}
	svc := NewService(
		&fakeGeocoder{err: errors.New("unavailable")},
		searcher,
		nil,
		&fakeLister{stores: []store.Store{verifiedStore()}},
		zap.NewNop().Sugar(),
	)

	result, err := svc.FindPlaces(context.Background(), "amala", Location{Address: "Ikeja"})
	require.NoError(t, err)

	assert.Equal(t, 0, searcher.calls)
	assert.Equal(t, 1, result.VerifiedCount)
}

func TestUnparseableAgentAnswerBecomesTextRecord(t *testing.T) {
	agent := &fakeAgent{response: "I could not find structured data, but try Amala Skye on Opebi Road."}
	svc := NewService(
		&fakeGeocoder{details: lagosDetails()},
		&fakeSearcher{},
		agent,
		&fakeLister{},
		zap.NewNop().Sugar(),
	)

	result, err := svc.FindPlaces(context.Background(), "amala", Location{Address: "Ikeja"})
	require.NoError(t, err)

	require.Len(t, result.Places, 1)
	assert.Empty(t, result.Places[0].Name)
	assert.Contains(t, result.Places[0].Text, "Amala Skye")
	assert.Equal(t, SourceAgent, result.Places[0].Source)
	assert.Equal(t, agent.response, result.AgentResponse)
}

func TestNamelessAgentRecordsDropped(t *testing.T) {
	agent := &fakeAgent{response: `[{"address":"Toyin Street"},{"name":"Mama Nkechi Amala","address":"Toyin Street"}]`}
	svc := NewService(
		&fakeGeocoder{details: lagosDetails()},
		&fakeSearcher{},
		agent,
		&fakeLister{},
		zap.NewNop().Sugar(),
	)

	result, err := svc.FindPlaces(context.Background(), "amala", Location{Address: "Ikeja"})
	require.NoError(t, err)

	require.Len(t, result.Places, 1)
	assert.Equal(t, "Mama Nkechi Amala", result.Places[0].Name)
}

func TestNearbyPhotoBecomesImageURL(t *testing.T) {
	searcher := &fakeSearcher{places: []geo.Place{
		{
			PlaceID: "gplace_1",
			Name:    "Skye Amala Spot",
			Photos:  []geo.Photo{{PhotoReference: "ref123"}},
		},
	}}
	svc := NewService(
		&fakeGeocoder{details: lagosDetails()},
		searcher,
		nil,
		&fakeLister{},
		zap.NewNop().Sugar(),
	)

	result, err := svc.FindPlaces(context.Background(), "amala", Location{Lat: ptr(6.6), Lng: ptr(3.35)})
	require.NoError(t, err)

	require.Len(t, result.Places, 1)
	assert.Equal(t, "https://maps.example.com/photo/ref123", result.Places[0].ImageURL)
}
