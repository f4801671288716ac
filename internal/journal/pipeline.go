// Package journal orchestrates the entry lifecycle: validate, persist,
// annotate, present and export.
package journal

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/mindhaven/internal/domain"
	"github.com/MrSnakeDoc/mindhaven/internal/export"
	"github.com/MrSnakeDoc/mindhaven/internal/logger"
	"github.com/MrSnakeDoc/mindhaven/internal/metrics"
)

// Commenter annotates entry text. It must not fail.
type Commenter interface {
	Generate(ctx context.Context, text string) string
}

type Pipeline struct {
	store        domain.EntryStore
	commenter    Commenter
	storeTimeout time.Duration
	loc          *time.Location
	log          logger.Logger
	metrics      *metrics.Collector
}

// NewPipeline builds a pipeline whose day groups follow the calendar of loc
// (UTC when nil).
func NewPipeline(store domain.EntryStore, commenter Commenter, storeTimeout time.Duration, loc *time.Location, log logger.Logger, m *metrics.Collector) *Pipeline {
	if loc == nil {
		loc = time.UTC
	}
	return &Pipeline{
		store:        store,
		commenter:    commenter,
		storeTimeout: storeTimeout,
		loc:          loc,
		log:          log,
		metrics:      m,
	}
}

func (p *Pipeline) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.storeTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, p.storeTimeout)
}

// Submit validates and stores text, then annotates the new entry. Blank text
// is rejected before the store is touched. Annotation is best effort.
func (p *Pipeline) Submit(ctx context.Context, text string) (domain.Annotated, error) {
	if err := domain.ValidateText(text); err != nil {
		return domain.Annotated{}, err
	}

	sctx, cancel := p.storeCtx(ctx)
	entry, err := p.store.Create(sctx, text)
	cancel()
	p.metrics.EntryOp("create", err)
	if err != nil {
		p.log.Error("failed to save entry", logger.Error(err))
		return domain.Annotated{}, err
	}

	p.log.Info("entry saved", logger.String("id", entry.ID))
	return domain.Annotated{Entry: entry, Comment: p.comment(ctx, entry.Text)}, nil
}

// Entries lists stored entries newest first, without comments.
func (p *Pipeline) Entries(ctx context.Context) ([]domain.Entry, error) {
	sctx, cancel := p.storeCtx(ctx)
	defer cancel()

	entries, err := p.store.List(sctx)
	p.metrics.EntryOp("list", err)
	if err != nil {
		p.log.Error("failed to list entries", logger.Error(err))
		return nil, err
	}
	return entries, nil
}

// View groups entries by day, newest first, each with its comment.
func (p *Pipeline) View(ctx context.Context) ([]domain.DayGroup, error) {
	entries, err := p.Entries(ctx)
	if err != nil {
		return nil, err
	}

	annotated := make([]domain.Annotated, 0, len(entries))
	for _, e := range entries {
		annotated = append(annotated, domain.Annotated{Entry: e, Comment: p.comment(ctx, e.Text)})
	}
	return domain.GroupByDay(annotated, p.loc), nil
}

// Days is View without comments; the model is never called.
func (p *Pipeline) Days(ctx context.Context) ([]domain.DayGroup, error) {
	entries, err := p.Entries(ctx)
	if err != nil {
		return nil, err
	}

	plain := make([]domain.Annotated, 0, len(entries))
	for _, e := range entries {
		plain = append(plain, domain.Annotated{Entry: e})
	}
	return domain.GroupByDay(plain, p.loc), nil
}

// Modify replaces the text of entry id.
func (p *Pipeline) Modify(ctx context.Context, id, text string) error {
	if err := domain.ValidateText(text); err != nil {
		return err
	}

	sctx, cancel := p.storeCtx(ctx)
	defer cancel()

	err := p.store.Update(sctx, id, text)
	p.metrics.EntryOp("update", err)
	if err != nil {
		p.log.Warn("failed to update entry", logger.String("id", id), logger.Error(err))
		return err
	}
	p.log.Info("entry updated", logger.String("id", id))
	return nil
}

// Delete removes entry id. A missing entry surfaces as domain.ErrNotFound,
// which callers may treat as already done.
func (p *Pipeline) Delete(ctx context.Context, id string) error {
	sctx, cancel := p.storeCtx(ctx)
	defer cancel()

	err := p.store.Delete(sctx, id)
	p.metrics.EntryOp("delete", err)
	if err != nil {
		p.log.Warn("failed to delete entry", logger.String("id", id), logger.Error(err))
		return err
	}
	p.log.Info("entry deleted", logger.String("id", id))
	return nil
}

// Export renders every entry, newest first, in format.
func (p *Pipeline) Export(ctx context.Context, format export.Format) (export.Document, error) {
	entries, err := p.Entries(ctx)
	if err != nil {
		return export.Document{}, err
	}
	return export.Render(format, entries)
}

// Ping reports whether the entry store is reachable.
func (p *Pipeline) Ping(ctx context.Context) error {
	sctx, cancel := p.storeCtx(ctx)
	defer cancel()
	return p.store.Ping(sctx)
}

func (p *Pipeline) comment(ctx context.Context, text string) string {
	if p.commenter == nil {
		return ""
	}
	return p.commenter.Generate(ctx, text)
}
