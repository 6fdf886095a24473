package evaluation

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"stock-oracle/internal/domain"
	"stock-oracle/internal/ml/ensemble"
	"stock-oracle/internal/ml/features"
)

var ErrInsufficientData = errors.New("insufficient data")

type Evaluator struct {
	tracer trace.Tracer
	opts   []ensemble.Option
}

// Evaluation is the outcome of one (ticker, algorithm) training run. Records follow
// the holdout rows in date order and carry the same length as the dated holdout.
type Evaluation struct {
	Algorithm ensemble.Algorithm
	Metrics   domain.Metrics
	Records   []domain.PredictionRecord
	Ensemble  *ensemble.Ensemble
	TrainSize int
}

func NewEvaluator(tracer trace.Tracer, opts ...ensemble.Option) *Evaluator {
	return &Evaluator{tracer: tracer, opts: opts}
}

func (e *Evaluator) Run(ctx context.Context, rows []domain.FeatureRow, algo ensemble.Algorithm) (*Evaluation, error) {
	_, span := e.tracer.Start(ctx, "evaluation.run")
	defer span.End()
	span.SetAttributes(attribute.String("algorithm", string(algo)), attribute.Int("rows", len(rows)))

	if n := len(features.Labeled(rows)); n < features.MinRows {
		return nil, fmt.Errorf("%w: got %d feature rows need >= %d", ErrInsufficientData, n, features.MinRows)
	}

	ens, err := ensemble.New(algo, e.opts...)
	if err != nil {
		return nil, err
	}
	res, err := ens.Train(rows)
	if err != nil {
		return nil, err
	}

	return &Evaluation{
		Algorithm: algo,
		Metrics:   res.Metrics,
		Records:   joinRecords(rows, res),
		Ensemble:  ens,
		TrainSize: res.TrainSize,
	}, nil
}

// joinRecords pairs the ensemble's holdout outputs with table rows by calendar date.
// Outputs without a matching labeled row are dropped.
func joinRecords(rows []domain.FeatureRow, res *ensemble.TrainResult) []domain.PredictionRecord {
	byDate := make(map[string]domain.FeatureRow, len(rows))
	for _, r := range rows {
		if r.Labeled {
			byDate[domain.DateKey(r.Date)] = r
		}
	}
	records := make([]domain.PredictionRecord, 0, len(res.TestDates))
	for i, d := range res.TestDates {
		row, ok := byDate[domain.DateKey(d)]
		if !ok {
			continue
		}
		records = append(records, domain.PredictionRecord{
			Date:  row.Date,
			Label: res.YTrue[i],
			Prob:  res.YProb[i],
		})
	}
	return records
}
