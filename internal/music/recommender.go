package music

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/mindhaven/internal/logger"
	"github.com/MrSnakeDoc/mindhaven/internal/metrics"
)

// TrackFinder looks up one track for a genre. A nil track with a nil error
// means the catalog had nothing to offer.
type TrackFinder interface {
	FindTrack(ctx context.Context, genre string) (*Track, error)
}

// Recommender picks a song for a piece of text. It never fails: every error
// ends up as "no recommendation".
type Recommender struct {
	catalog Catalog
	finder  TrackFinder
	timeout time.Duration
	log     logger.Logger
	metrics *metrics.Collector
}

// NewRecommender builds a recommender. A nil finder disables lookups, which
// is how the service runs without catalog credentials.
func NewRecommender(catalog Catalog, finder TrackFinder, timeout time.Duration, log logger.Logger, m *metrics.Collector) *Recommender {
	return &Recommender{
		catalog: catalog,
		finder:  finder,
		timeout: timeout,
		log:     log,
		metrics: m,
	}
}

// Recommend returns a track matching the mood of text, or nil.
func (r *Recommender) Recommend(ctx context.Context, text string) *Track {
	mood, ok := r.catalog.Detect(text)
	if !ok {
		r.metrics.Recommendation(metrics.OutcomeNoMood)
		return nil
	}
	if r.finder == nil {
		r.metrics.Recommendation(metrics.OutcomeNone)
		return nil
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	genre := r.catalog.GenreFor(mood.Name)
	track, err := r.finder.FindTrack(ctx, genre)
	if err != nil {
		r.log.Warn("song lookup failed",
			logger.String("mood", mood.Name),
			logger.String("genre", genre),
			logger.Error(err))
		r.metrics.Recommendation(metrics.OutcomeFallback)
		return nil
	}
	if track == nil {
		r.metrics.Recommendation(metrics.OutcomeNone)
		return nil
	}

	r.log.Debug("song recommended",
		logger.String("mood", mood.Name),
		logger.String("track", track.Name))
	r.metrics.Recommendation(metrics.OutcomeFound)
	return track
}
