package routing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"trip-estimator/internal/domain"
	"trip-estimator/internal/ports"
)

type directionsRequest struct {
	Coordinates  [][]float64 `json:"coordinates"`
	Instructions bool        `json:"instructions"`
	Units        string      `json:"units"`
}

type directionsResponse struct {
	Routes []struct {
		Summary struct {
			Distance float64 `json:"distance"`
			Duration float64 `json:"duration"`
		} `json:"summary"`
	} `json:"routes"`
}

// fetchDirections retrieves the total distance and duration of a route that
// visits the points in order, using the OpenRouteService directions endpoint.
func (o *ORSRouteResolver) fetchDirections(
	ctx context.Context,
	points []domain.Coordinates,
) (ports.RouteResult, error) {
	if len(points) < 2 {
		return ports.RouteResult{}, errors.New("directions need at least two points")
	}

	endpoint := fmt.Sprintf("%s/v2/directions/%s", o.baseURL, o.profile)

	coords := make([][]float64, 0, len(points))
	for _, p := range points {
		coords = append(coords, p.CoordsToList())
	}

	payload, err := json.Marshal(directionsRequest{
		Coordinates:  coords,
		Instructions: false,
		Units:        "m",
	})
	if err != nil {
		return ports.RouteResult{}, fmt.Errorf("marshal directions request: %w", err)
	}

	resp, err := o.doWithRetry(ctx, func() (*http.Request, error) {
		body := bytes.NewReader(payload)
		return o.newRequest(ctx, http.MethodPost, endpoint, body)
	})
	if err != nil {
		return ports.RouteResult{}, fmt.Errorf("directions request failed: %w", err)
	}
	defer resp.Body.Close()

	var dr directionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return ports.RouteResult{}, fmt.Errorf("decode directions response: %w", err)
	}

	if len(dr.Routes) == 0 {
		return ports.RouteResult{}, fmt.Errorf("directions returned no routes: %w", ports.ErrNoRoute)
	}

	summary := dr.Routes[0].Summary
	if summary.Distance < 0 || math.IsNaN(summary.Distance) {
		return ports.RouteResult{}, fmt.Errorf("directions returned invalid distance %v", summary.Distance)
	}

	// ORS returns float metrics; round to nearest integer for domain consistency.
	return ports.RouteResult{
		DistanceMeters:  int(math.Round(summary.Distance)),
		DurationSeconds: int(math.Round(summary.Duration)),
	}, nil
}
