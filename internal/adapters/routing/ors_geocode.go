package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"trip-estimator/internal/domain"
	"trip-estimator/internal/platform/obs"
	"trip-estimator/internal/ports"
)

// minSuggestLength avoids provider calls for input too short to be useful.
const minSuggestLength = 3

type geocodeResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
		Properties struct {
			GID   string `json:"gid"`
			Label string `json:"label"`
		} `json:"properties"`
	} `json:"features"`
}

// searchRequest builds a geocoding request against one of the search endpoints.
func (o *ORSRouteResolver) searchRequest(ctx context.Context, endpoint, text string, size int) func() (*http.Request, error) {
	return func() (*http.Request, error) {
		req, err := o.newRequest(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		q := req.URL.Query()
		q.Set("text", text)
		if o.country != "" {
			q.Set("boundary.country", o.country)
		}
		q.Set("size", strconv.Itoa(size))
		req.URL.RawQuery = q.Encode()
		return req, nil
	}
}

func (o *ORSRouteResolver) search(ctx context.Context, endpoint, text string, size int) (*geocodeResponse, error) {
	resp, err := o.doWithRetry(ctx, o.searchRequest(ctx, endpoint, text, size))
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	var decoded geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode geocode response: %w", err)
	}

	return &decoded, nil
}

// geocodeMany resolves addresses individually using OpenRouteService (/geocode/search).
// An address without any result means no route can be built through it.
func (o *ORSRouteResolver) geocodeMany(
	ctx context.Context,
	addresses []string,
) (_ map[string]domain.Coordinates, err error) {
	defer obs.Time(ctx, o.log, "ors.geocodeMany")(&err)

	endpoint := o.baseURL + "/geocode/search"

	out := make(map[string]domain.Coordinates, len(addresses))
	for _, a := range addresses {
		if _, ok := out[a]; ok {
			continue
		}

		norm := o.normalize(a)

		decoded, err := o.search(ctx, endpoint, norm, 1)
		if err != nil {
			return nil, fmt.Errorf("geocode %q: %w", a, err)
		}

		if len(decoded.Features) == 0 {
			return nil, fmt.Errorf("no geocode results for %q: %w", a, ports.ErrNoRoute)
		}

		coords := decoded.Features[0].Geometry.Coordinates

		if len(coords) != 2 {
			return nil, fmt.Errorf("invalid coordinate format for %q", a)
		}

		c := domain.Coordinates{Lon: coords[0], Lat: coords[1]}
		if !c.Valid() {
			return nil, fmt.Errorf("geocode %q: coordinates out of range %v", a, coords)
		}
		out[norm] = c
	}

	return out, nil
}

// Suggest returns autocomplete candidates (/geocode/autocomplete) for partial input.
func (o *ORSRouteResolver) Suggest(ctx context.Context, text string) (_ []ports.PlaceSuggestion, err error) {
	defer obs.Time(ctx, o.log, "ors.Suggest")(&err)

	norm := o.normalize(text)
	if len([]rune(norm)) < minSuggestLength || !o.Ready() {
		return []ports.PlaceSuggestion{}, nil
	}

	decoded, err := o.search(ctx, o.baseURL+"/geocode/autocomplete", norm, 5)
	if err != nil {
		return nil, fmt.Errorf("suggest places for %q: %w", norm, err)
	}

	out := make([]ports.PlaceSuggestion, 0, len(decoded.Features))
	for _, f := range decoded.Features {
		if f.Properties.Label == "" {
			continue
		}
		out = append(out, ports.PlaceSuggestion{
			PlaceID: f.Properties.GID,
			Label:   f.Properties.Label,
		})
	}

	return out, nil
}
