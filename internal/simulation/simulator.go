// Package simulation runs a complete credit simulation: catalog lookup,
// evaluation, payment plans, persistence and follow-up side effects.
package simulation

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/iwvelando/credit-simulator/internal/catalog"
	"github.com/iwvelando/credit-simulator/internal/metrics"
	"github.com/iwvelando/credit-simulator/internal/notify"
	"github.com/iwvelando/credit-simulator/internal/storage"
	"github.com/iwvelando/credit-simulator/pkg/credit"
	"github.com/iwvelando/credit-simulator/pkg/currency"
	"github.com/iwvelando/credit-simulator/pkg/loans"
	"github.com/iwvelando/credit-simulator/pkg/output"
	"github.com/iwvelando/credit-simulator/pkg/validation"
)

// Outcomes recorded in metrics.
const (
	OutcomeOK         = "ok"
	OutcomeIncomplete = "incomplete"
	OutcomeError      = "error"
)

// DefaultUVAIncomeLimit is the share of income, in percent, above which a
// projected UVA payment is flagged.
const DefaultUVAIncomeLimit = 30.0

// DefaultTemplate names the notification sent after a simulation is saved.
const DefaultTemplate = "simulation-saved"

// Archiver uploads a CSV report for a saved simulation.
type Archiver interface {
	Archive(ctx context.Context, code string, report []byte) (string, error)
}

// Options wires a Simulator. Catalog and Store are required.
type Options struct {
	Catalog        catalog.Source
	Store          storage.Store
	Notifier       notify.Notifier
	Archiver       Archiver
	Evaluator      *credit.Evaluator
	Metrics        *metrics.Metrics
	UVAIncomeLimit float64
	Template       string
	ReportCurrency currency.Code
	ExchangeRate   float64
	Logger         *zap.Logger
}

// Simulator runs simulations.
type Simulator struct {
	catalog        catalog.Source
	store          storage.Store
	notifier       notify.Notifier
	archiver       Archiver
	evaluator      *credit.Evaluator
	schedules      *loans.ScheduleGenerator
	metrics        *metrics.Metrics
	uvaIncomeLimit float64
	template       string
	reportCurrency currency.Code
	exchangeRate   float64
	logger         *zap.Logger
	now            func() time.Time
}

// New creates a Simulator.
func New(opts Options) (*Simulator, error) {
	if opts.Catalog == nil {
		return nil, errors.New("simulation requires a catalog source")
	}
	if opts.Store == nil {
		return nil, errors.New("simulation requires a store")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Evaluator == nil {
		opts.Evaluator = credit.NewEvaluator()
	}
	if opts.UVAIncomeLimit <= 0 {
		opts.UVAIncomeLimit = DefaultUVAIncomeLimit
	}
	if opts.Template == "" {
		opts.Template = DefaultTemplate
	}
	if opts.ReportCurrency == "" {
		opts.ReportCurrency = currency.ARS
	}

	return &Simulator{
		catalog:        opts.Catalog,
		store:          opts.Store,
		notifier:       opts.Notifier,
		archiver:       opts.Archiver,
		evaluator:      opts.Evaluator,
		schedules:      loans.NewScheduleGenerator(opts.Logger),
		metrics:        opts.Metrics,
		uvaIncomeLimit: opts.UVAIncomeLimit,
		template:       opts.Template,
		reportCurrency: opts.ReportCurrency,
		exchangeRate:   opts.ExchangeRate,
		logger:         opts.Logger,
		now:            time.Now,
	}, nil
}

// Run evaluates profile against the catalog and saves the result. An
// incomplete profile yields an unsaved analysis with no offers and no error.
// Only a catalog failure is returned as an error; failures of persistence,
// archiving and notification become warnings on the analysis.
//
// The analysis is saved before the report is archived and the confirmation is
// sent, so warnings from those two steps appear in the returned analysis but
// not in the record Lookup returns.
func (s *Simulator) Run(ctx context.Context, profile credit.FormData) (credit.Analysis, error) {
	start := s.now()
	analysis := credit.Analysis{
		CreatedAt: start,
		Profile:   profile,
		Offers:    []credit.Offer{},
		Warnings:  validation.ValidateProfile(profile),
	}

	if !credit.Ready(profile) {
		s.logger.Debug("incomplete profile, nothing to evaluate",
			zap.String("op", "simulation.Run"),
			zap.Strings("warnings", analysis.Warnings),
		)
		s.metrics.ObserveSimulation(profile.ProductType, OutcomeIncomplete, 0, nil, s.now().Sub(start))
		return analysis, nil
	}

	products, err := s.catalog.Products(ctx, profile.ProductType)
	if err != nil {
		s.logger.Error("failed to load catalog",
			zap.String("op", "simulation.Run"),
			zap.String("family", profile.ProductType),
			zap.Error(err),
		)
		s.metrics.ObserveSimulation(profile.ProductType, OutcomeError, 0, nil, s.now().Sub(start))
		return credit.Analysis{}, fmt.Errorf("failed to load %s catalog: %w", profile.ProductType, err)
	}

	evaluation := s.evaluator.Evaluate(profile, credit.Catalog{profile.ProductType: products})
	analysis.Skipped = evaluation.Skipped
	for _, result := range evaluation.Results {
		analysis.Offers = append(analysis.Offers, s.buildOffer(profile, result, &analysis.Warnings))
	}
	if len(analysis.Offers) == 0 {
		analysis.Warnings = append(analysis.Warnings,
			fmt.Sprintf("none of the %d %s products matched the profile", len(products), profile.ProductType))
	}

	record, err := s.store.Save(ctx, analysis)
	if err != nil {
		s.logger.Error("failed to save simulation",
			zap.String("op", "simulation.Run"),
			zap.Error(err),
		)
		analysis.Warnings = append(analysis.Warnings, "the simulation could not be saved; no reference code was issued")
	} else {
		analysis.ReferenceCode = record.Code
		analysis.CreatedAt = record.CreatedAt
		s.archive(ctx, &analysis)
		s.notify(ctx, &analysis)
	}

	s.metrics.ObserveSimulation(profile.ProductType, OutcomeOK, len(analysis.Offers), analysis.Skipped, s.now().Sub(start))
	s.logger.Info("simulation complete",
		zap.String("op", "simulation.Run"),
		zap.String("code", analysis.ReferenceCode),
		zap.String("family", profile.ProductType),
		zap.Int("offers", len(analysis.Offers)),
		zap.Int("skipped", len(analysis.Skipped)),
	)
	return analysis, nil
}

func (s *Simulator) buildOffer(profile credit.FormData, result credit.Result, warnings *[]string) credit.Offer {
	offer := credit.Offer{Result: result}

	if profile.ProductType == credit.Mortgage {
		offer.Schedule = s.schedules.Generate(result.ID, profile.Amount, result.MonthlyRate, profile.TermMonths)
	}

	if result.UVA && profile.ExpectedInflation != nil && loans.ValidInflation(*profile.ExpectedInflation) {
		projection := loans.ProjectUVA(result.MonthlyPayment, *profile.ExpectedInflation, profile.TermMonths, profile.MonthlyIncome)
		if loans.ProjectionFinite(projection) {
			summary := loans.SummarizeUVA(projection, s.uvaIncomeLimit)
			offer.Projection = projection
			offer.ProjectionSummary = &summary
			if summary.BreachPeriod > 0 {
				offer.Observations = append(offer.Observations,
					fmt.Sprintf("projected payment exceeds %.0f%% of income from period %d", s.uvaIncomeLimit, summary.BreachPeriod))
			}
		} else {
			s.logger.Warn("UVA projection overflowed",
				zap.String("op", "simulation.buildOffer"),
				zap.String("product", result.ID),
				zap.Float64("inflation", *profile.ExpectedInflation),
			)
			appendOnce(warnings, "projected UVA payments are too large to represent and were omitted")
		}
	}

	if s.reportCurrency != currency.ARS {
		rate := s.exchangeRate
		conversion, err := currency.ConvertPayment(result.MonthlyPayment, currency.ARS, s.reportCurrency, &rate)
		if err != nil {
			appendOnce(warnings, fmt.Sprintf("payments could not be quoted in %s: %v", s.reportCurrency, err))
		} else {
			offer.Converted = &conversion
		}
	}
	return offer
}

func (s *Simulator) archive(ctx context.Context, analysis *credit.Analysis) {
	if s.archiver == nil {
		return
	}
	var report bytes.Buffer
	if err := output.CsvFormat(&report, *analysis); err != nil {
		s.logger.Error("failed to render report", zap.String("op", "simulation.archive"), zap.Error(err))
		analysis.Warnings = append(analysis.Warnings, "the report could not be archived")
		return
	}
	object, err := s.archiver.Archive(ctx, analysis.ReferenceCode, report.Bytes())
	if err != nil {
		s.logger.Error("failed to archive report",
			zap.String("op", "simulation.archive"),
			zap.String("code", analysis.ReferenceCode),
			zap.Error(err),
		)
		analysis.Warnings = append(analysis.Warnings, "the report could not be archived")
		return
	}
	s.logger.Debug("report archived", zap.String("op", "simulation.archive"), zap.String("object", object))
}

func (s *Simulator) notify(ctx context.Context, analysis *credit.Analysis) {
	if s.notifier == nil || !validation.ValidEmail(analysis.Profile.Email) {
		return
	}
	msg := notify.Message{
		To:       analysis.Profile.Email,
		Template: s.template,
		Params: map[string]string{
			"referenceCode": analysis.ReferenceCode,
			"productType":   analysis.Profile.ProductType,
			"offers":        strconv.Itoa(len(analysis.Offers)),
		},
		SentAt: s.now(),
	}
	if err := s.notifier.Notify(ctx, msg); err != nil {
		s.logger.Error("failed to send notification",
			zap.String("op", "simulation.notify"),
			zap.String("code", analysis.ReferenceCode),
			zap.Error(err),
		)
		analysis.Warnings = append(analysis.Warnings, "the confirmation e-mail could not be sent")
	}
}

// Lookup returns a saved simulation by reference code.
func (s *Simulator) Lookup(ctx context.Context, code string) (storage.Record, error) {
	if !storage.ValidReferenceCode(code) {
		return storage.Record{}, storage.ErrNotFound
	}
	record, err := s.store.Get(ctx, code)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Error("failed to load simulation",
				zap.String("op", "simulation.Lookup"),
				zap.String("code", code),
				zap.Error(err),
			)
		}
		return storage.Record{}, err
	}
	return record, nil
}

func appendOnce(values *[]string, value string) {
	for _, v := range *values {
		if v == value {
			return
		}
	}
	*values = append(*values, value)
}
