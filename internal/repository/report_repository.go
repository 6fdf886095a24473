package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"stock-oracle/internal/domain"
)

type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// ReportRepository stores model comparison and threshold sweep reports.
type ReportRepository struct {
	pool   PgxPool
	tracer trace.Tracer
	newID  func() uuid.UUID
}

func NewReportRepository(pool PgxPool, tracer trace.Tracer) *ReportRepository {
	return &ReportRepository{pool: pool, tracer: tracer, newID: uuid.New}
}

const insertComparison = `
INSERT INTO model_comparisons (run_id, ticker, period, rank, algorithm, accuracy, f1_score, status, error)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

// SaveComparisons writes one row per algorithm under a new run id, keeping the
// given order as rank.
func (r *ReportRepository) SaveComparisons(ctx context.Context, ticker, period string, rows []domain.ModelComparison) (uuid.UUID, error) {
	_, span := r.tracer.Start(ctx, "report-repo.save-comparisons")
	defer span.End()
	span.SetAttributes(attribute.String("ticker", ticker), attribute.Int("rows", len(rows)))

	runID := r.newID()
	if len(rows) == 0 {
		return runID, nil
	}
	batch := &pgx.Batch{}
	for i, row := range rows {
		batch.Queue(insertComparison, runID, ticker, period, i+1, row.Algorithm, row.Accuracy, row.F1, row.Status, row.Error)
	}
	if err := r.sendBatch(ctx, batch, len(rows)); err != nil {
		return uuid.Nil, fmt.Errorf("save comparisons: %w", err)
	}
	return runID, nil
}

const insertSweep = `
INSERT INTO threshold_sweeps (run_id, ticker, algorithm, threshold, total_return_pct, sharpe, trades, win_rate_pct, best_by_sharpe, best_by_return)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

func (r *ReportRepository) SaveSweep(ctx context.Context, report domain.SweepReport) (uuid.UUID, error) {
	_, span := r.tracer.Start(ctx, "report-repo.save-sweep")
	defer span.End()
	span.SetAttributes(attribute.String("ticker", report.Ticker), attribute.Int("rows", len(report.Results)))

	runID := r.newID()
	if len(report.Results) == 0 {
		return runID, nil
	}
	batch := &pgx.Batch{}
	for _, res := range report.Results {
		batch.Queue(insertSweep, runID, report.Ticker, report.Algorithm,
			res.Threshold, res.TotalReturnPct, res.Sharpe, res.Trades, res.WinRatePct,
			res.Threshold == report.BestBySharpe.Threshold,
			res.Threshold == report.BestByReturn.Threshold,
		)
	}
	if err := r.sendBatch(ctx, batch, len(report.Results)); err != nil {
		return uuid.Nil, fmt.Errorf("save sweep: %w", err)
	}
	return runID, nil
}

// LatestComparisons returns the rows of the most recent comparison run for ticker.
func (r *ReportRepository) LatestComparisons(ctx context.Context, ticker string) ([]domain.ModelComparison, error) {
	_, span := r.tracer.Start(ctx, "report-repo.latest-comparisons")
	defer span.End()

	rows, err := r.pool.Query(ctx,
		`SELECT algorithm, accuracy, f1_score, status, error
		 FROM model_comparisons
		 WHERE run_id = (
		     SELECT run_id FROM model_comparisons WHERE ticker = $1 ORDER BY created_at DESC LIMIT 1
		 )
		 ORDER BY rank`,
		ticker,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ModelComparison
	for rows.Next() {
		var c domain.ModelComparison
		if err := rows.Scan(&c.Algorithm, &c.Accuracy, &c.F1, &c.Status, &c.Error); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *ReportRepository) sendBatch(ctx context.Context, batch *pgx.Batch, n int) error {
	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()
	for i := 0; i < n; i++ {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}
