package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CachedGeocoder wraps a Client with a read-through Redis cache for geocode
// lookups. Addresses rarely move, so hits spare both latency and quota.
// Cache failures fall through to the live call and are never surfaced.
type CachedGeocoder struct {
	*Client
	rdb *redis.Client
	ttl time.Duration
}

func NewCachedGeocoder(client *Client, rdb *redis.Client, ttl time.Duration) *CachedGeocoder {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &CachedGeocoder{Client: client, rdb: rdb, ttl: ttl}
}

func (c *CachedGeocoder) Geocode(ctx context.Context, address string) (*LocationDetails, error) {
	key := "geo:addr:" + address
	if details := c.lookup(ctx, key); details != nil {
		return details, nil
	}

	details, err := c.Client.Geocode(ctx, address)
	if err != nil {
		return nil, err
	}
	c.save(ctx, key, details)
	return details, nil
}

func (c *CachedGeocoder) ReverseGeocode(ctx context.Context, lat, lng float64) (*LocationDetails, error) {
	key := fmt.Sprintf("geo:latlng:%.5f,%.5f", lat, lng)
	if details := c.lookup(ctx, key); details != nil {
		return details, nil
	}

	details, err := c.Client.ReverseGeocode(ctx, lat, lng)
	if err != nil {
		return nil, err
	}
	c.save(ctx, key, details)
	return details, nil
}

func (c *CachedGeocoder) lookup(ctx context.Context, key string) *LocationDetails {
	payload, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return nil
	}
	var details LocationDetails
	if err := json.Unmarshal(payload, &details); err != nil {
		return nil
	}
	return &details
}

func (c *CachedGeocoder) save(ctx context.Context, key string, details *LocationDetails) {
	payload, err := json.Marshal(details)
	if err != nil {
		return
	}
	c.rdb.Set(ctx, key, payload, c.ttl)
}
