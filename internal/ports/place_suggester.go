package ports

import "context"

// A candidate full address returned for partial user input.
type PlaceSuggestion struct {
	PlaceID string `json:"placeId"`
	Label   string `json:"label"`
}

// Contract for address autocompletion.
type PlaceSuggester interface {
	// Return zero or more candidates for the partial text.
	Suggest(ctx context.Context, text string) ([]PlaceSuggestion, error)
}
