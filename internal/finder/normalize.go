package finder

import (
	"encoding/json"
	"fmt"
	"strings"
)

// The agent promises a bare JSON array but in practice answers with fenced
// blocks, single objects, or prose. Normalization tolerates all of it and
// reads each target field from a prioritized list of source field names.

// stripCodeFences removes a surrounding ```json ... ``` (or plain ```)
// block if present.
func stripCodeFences(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

// parseAgentRecords attempts to decode the agent's answer as a JSON array
// of records, tolerating a single bare object. ok is false when the text
// is not structured at all.
func parseAgentRecords(raw string) ([]map[string]any, bool) {
	text := stripCodeFences(raw)
	if text == "" {
		return nil, false
	}

	var records []map[string]any
	if err := json.Unmarshal([]byte(text), &records); err == nil {
		return records, true
	}

	var single map[string]any
	if err := json.Unmarshal([]byte(text), &single); err == nil {
		return []map[string]any{single}, true
	}

	return nil, false
}

func normalizeAgentRecord(record map[string]any) NormalizedPlace {
	place := NormalizedPlace{
		PlaceID:     stringField(record, "place_id", "id"),
		Name:        stringField(record, "name", "title", "store_name"),
		Description: stringField(record, "description"),
		PriceLevel:  stringField(record, "price_range", "price_level"),
		Source:      SourceAgent,
	}

	place.Address = stringField(record, "address", "formatted_address", "vicinity")
	if place.Address == "" {
		// "location" is an address string in some answers and a
		// coordinates object in others.
		if addr, ok := record["location"].(string); ok {
			place.Address = addr
		}
	}

	if rating, ok := numberField(record, "rating"); ok {
		place.Rating = rating
	}
	if place.PriceLevel == "" {
		if level, ok := numberField(record, "price_level"); ok {
			place.PriceLevel = fmt.Sprintf("%d", int(level))
		}
	}

	place.Latitude, place.Longitude = coordinates(record)

	if photos, ok := record["photos"].([]any); ok && len(photos) > 0 {
		if url, ok := photos[0].(string); ok {
			place.ImageURL = url
		}
	}
	if place.ImageURL == "" {
		place.ImageURL = stringField(record, "image_url", "photo", "imageUrl")
	}

	return place
}

// coordinates digs lat/lng out of a nested location or geometry object,
// tolerating the "long" spelling the agent sometimes uses.
func coordinates(record map[string]any) (*float64, *float64) {
	loc, ok := record["location"].(map[string]any)
	if !ok {
		if geom, isMap := record["geometry"].(map[string]any); isMap {
			loc, ok = geom["location"].(map[string]any)
		}
	}
	if !ok {
		return nil, nil
	}

	lat, latOK := numberField(loc, "lat", "latitude")
	lng, lngOK := numberField(loc, "lng", "long", "longitude")
	if !latOK || !lngOK {
		return nil, nil
	}
	return &lat, &lng
}

func stringField(record map[string]any, keys ...string) string {
	for _, key := range keys {
		if value, ok := record[key].(string); ok && value != "" {
			return value
		}
	}
	return ""
}

func numberField(record map[string]any, keys ...string) (float64, bool) {
	for _, key := range keys {
		switch value := record[key].(type) {
		case float64:
			return value, true
		case json.Number:
			if f, err := value.Float64(); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}
