package scoring

import (
	"context"

	"github.com/nao1215/rentscan/internal/model"
)

// TaxSource resolves the tax of a listing. enrich.TaxLookup implements it.
type TaxSource interface {
	Lookup(ctx context.Context, l model.Listing) model.TaxEstimate
}

// RentSource resolves the rent of a listing. enrich.RentLookup implements it.
type RentSource interface {
	Lookup(ctx context.Context, l model.Listing) model.RentalEstimate
}

// Engine enriches listings and scores them.
type Engine struct {
	params Params
	taxes  TaxSource
	rents  RentSource
}

// NewEngine creates an Engine.
func NewEngine(params Params, taxes TaxSource, rents RentSource) *Engine {
	return &Engine{params: params, taxes: taxes, rents: rents}
}

// Params returns the model parameters of the engine.
func (e *Engine) Params() Params {
	return e.params
}

// ScoreAll looks up tax and rent for each listing in order, scores them and
// returns them ranked. It stops early only when ctx is done.
func (e *Engine) ScoreAll(ctx context.Context, listings []model.Listing) ([]model.ScoredListing, error) {
	scored := make([]model.ScoredListing, 0, len(listings))
	for _, l := range listings {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tax := e.taxes.Lookup(ctx, l)
		rent := e.rents.Lookup(ctx, l)
		scored = append(scored, e.params.Score(l, tax, rent))
	}
	Rank(scored)
	return scored, nil
}
