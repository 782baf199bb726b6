package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"pix-reconciler/internal/core/domain"
	"pix-reconciler/internal/core/ports"
	"pix-reconciler/pkg/apperror"

	"github.com/rs/zerolog"
	"github.com/zoobzio/clockz"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	fileStampLayout = "20060102_150405"
)

// reportService implements ports.ReportService.
type reportService struct {
	eventLog ports.EventLog
	agg      *Aggregator
	exporter ports.Exporter
	clock    clockz.Clock
	log      zerolog.Logger
}

// NewReportService creates a new report service reading from eventLog.
func NewReportService(eventLog ports.EventLog, agg *Aggregator, exporter ports.Exporter, log zerolog.Logger) ports.ReportService {
	return &reportService{
		eventLog: eventLog,
		agg:      agg,
		exporter: exporter,
		clock:    agg.clock,
		log:      log,
	}
}

// load drains the event log. Bad lines are already skipped by the log;
// anything yielded as an error here is fatal to the report.
func (s *reportService) load(ctx context.Context) ([]domain.PaymentEvent, error) {
	var events []domain.PaymentEvent
	for ev, err := range s.eventLog.ReadAll(ctx) {
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			var appErr *apperror.AppError
			if errors.As(err, &appErr) {
				return nil, appErr
			}
			return nil, apperror.ErrStorage(err)
		}
		events = append(events, ev)
	}
	return events, nil
}

// Summary returns the whole-log summary.
func (s *reportService) Summary(ctx context.Context) (*domain.SummaryReport, error) {
	events, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return s.agg.Summarize(slices.Values(events)), nil
}

// Product returns the fixed-price product report.
func (s *reportService) Product(ctx context.Context) (*domain.ProductReport, error) {
	events, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return s.agg.Product(slices.Values(events)), nil
}

// Details returns one page of detail rows and the number of rows matching the filter.
func (s *reportService) Details(ctx context.Context, filter ports.DetailFilter) ([]domain.DetailRecord, int, error) {
	events, err := s.load(ctx)
	if err != nil {
		return nil, 0, err
	}

	if filter.Status != nil {
		events = slices.DeleteFunc(events, func(ev domain.PaymentEvent) bool {
			return ev.Status != *filter.Status
		})
	}
	rows := s.agg.Detail(slices.Values(events))
	total := len(rows)

	page, size := filter.Page, filter.PageSize
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}

	start := (page - 1) * size
	if start >= total {
		return []domain.DetailRecord{}, total, nil
	}
	end := min(start+size, total)
	return rows[start:end], total, nil
}

// Aggregate returns every projection computed in one pass.
func (s *reportService) Aggregate(ctx context.Context) (*ports.Reports, error) {
	events, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return s.agg.Aggregate(slices.Values(events)), nil
}

// Generate writes the detail CSV and the summary and product JSON files to outDir.
func (s *reportService) Generate(ctx context.Context, outDir string) (*ports.ReportFiles, error) {
	reports, err := s.Aggregate(ctx)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, apperror.ErrExport(fmt.Sprintf("creating %s", outDir), err)
	}

	stamp := s.clock.Now().In(s.agg.loc).Format(fileStampLayout)
	files := &ports.ReportFiles{
		SummaryJSON: filepath.Join(outDir, "summary_report_"+stamp+".json"),
		ProductJSON: filepath.Join(outDir, "product_report_"+stamp+".json"),
		Reports:     reports,
	}

	if len(reports.Details) == 0 {
		s.log.Warn().Msg("event log is empty, skipping detailed CSV")
	} else {
		files.DetailCSV = filepath.Join(outDir, "transactions_detailed_"+stamp+".csv")
		if err := s.exporter.ToCSV(reports.Details, files.DetailCSV); err != nil {
			return nil, err
		}
	}
	if err := s.exporter.ToJSON(reports.Summary, files.SummaryJSON); err != nil {
		return nil, err
	}
	if err := s.exporter.ToJSON(reports.Product, files.ProductJSON); err != nil {
		return nil, err
	}

	s.log.Info().
		Int("transactions", reports.Summary.TotalTransactions).
		Str("out_dir", outDir).
		Msg("reports generated")
	return files, nil
}
