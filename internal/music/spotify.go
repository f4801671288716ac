package music

import (
	"context"
	"fmt"
	"net/http"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2/clientcredentials"
)

// SpotifyOptions configures the catalog client. TokenURL and BaseURL are only
// overridden in tests.
type SpotifyOptions struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	BaseURL      string
}

// SpotifyCatalog finds tracks with the client-credentials flow. The oauth2
// transport fetches a new token whenever the current one expires.
type SpotifyCatalog struct {
	client *spotify.Client
}

var _ TrackFinder = (*SpotifyCatalog)(nil)

func NewSpotifyCatalog(ctx context.Context, opts SpotifyOptions) (*SpotifyCatalog, error) {
	if opts.ClientID == "" || opts.ClientSecret == "" {
		return nil, fmt.Errorf("spotify client id and secret are required")
	}

	tokenURL := opts.TokenURL
	if tokenURL == "" {
		tokenURL = spotifyauth.TokenURL
	}
	creds := &clientcredentials.Config{
		ClientID:     opts.ClientID,
		ClientSecret: opts.ClientSecret,
		TokenURL:     tokenURL,
	}

	// The context only carries the base transport for token requests.
	httpClient := creds.Client(ctx)

	return newSpotifyCatalog(httpClient, opts.BaseURL), nil
}

func newSpotifyCatalog(httpClient *http.Client, baseURL string) *SpotifyCatalog {
	var clientOpts []spotify.ClientOption
	if baseURL != "" {
		clientOpts = append(clientOpts, spotify.WithBaseURL(baseURL))
	}
	return &SpotifyCatalog{client: spotify.New(httpClient, clientOpts...)}
}

// FindTrack asks for one recommendation seeded by genre and falls back to a
// one-track search when recommendations are empty or unavailable.
func (c *SpotifyCatalog) FindTrack(ctx context.Context, genre string) (*Track, error) {
	recs, recErr := c.client.GetRecommendations(ctx,
		spotify.Seeds{Genres: []string{genre}}, nil, spotify.Limit(1))
	if recErr == nil && recs != nil && len(recs.Tracks) > 0 {
		return fromSimpleTrack(recs.Tracks[0]), nil
	}

	res, err := c.client.Search(ctx, "genre:"+genre, spotify.SearchTypeTrack, spotify.Limit(1))
	if err != nil {
		if recErr != nil {
			return nil, fmt.Errorf("recommendations: %v; search: %w", recErr, err)
		}
		return nil, fmt.Errorf("search: %w", err)
	}
	if res == nil || res.Tracks == nil || len(res.Tracks.Tracks) == 0 {
		return nil, nil
	}
	return fromSimpleTrack(res.Tracks.Tracks[0].SimpleTrack), nil
}

func fromSimpleTrack(t spotify.SimpleTrack) *Track {
	artist := "Unknown Artist"
	if len(t.Artists) > 0 && t.Artists[0].Name != "" {
		artist = t.Artists[0].Name
	}
	return &Track{
		Name:   t.Name,
		Artist: artist,
		URL:    t.ExternalURLs["spotify"],
	}
}
