package simulation

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/iwvelando/credit-simulator/internal/catalog"
	"github.com/iwvelando/credit-simulator/internal/metrics"
	"github.com/iwvelando/credit-simulator/internal/notify"
	"github.com/iwvelando/credit-simulator/internal/storage"
	"github.com/iwvelando/credit-simulator/pkg/credit"
	"github.com/iwvelando/credit-simulator/pkg/currency"
	"github.com/iwvelando/credit-simulator/pkg/testutil"
)

func mortgageProducts() []credit.Product {
	base := credit.Product{
		ID:                 "HIP01",
		Denomination:       "Hipotecario tasa fija",
		Family:             credit.Mortgage,
		InstitutionCode:    "B1",
		InstitutionName:    "Banco Uno",
		MinIncome:          100000,
		MinTenureMonths:    12,
		MaxPaymentToIncome: 25,
		MaxTEA:             8,
		MaxCFT:             9.5,
		MinAmount:          100000,
		MaxAmount:          5000000,
		MaxTermMonths:      360,
		MaxAge:             75,
		MaxLTV:             80,
	}
	uva := base
	uva.ID = "HIP02"
	uva.Denomination = "Hipotecario UVA"
	uva.MaxTEA = 4.5
	strict := base
	strict.ID = "HIP03"
	strict.MinIncome = 900000
	return []credit.Product{base, uva, strict}
}

func mortgageProfile() credit.FormData {
	return credit.FormData{
		ProductType:      credit.Mortgage,
		Amount:           1000000,
		MonthlyIncome:    500000,
		Age:              35,
		EmploymentMonths: 24,
		TermMonths:       240,
		AppraisalValue:   2000000,
		Email:            "ana@example.com",
	}
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []notify.Message
	err      error
}

func (f *fakeNotifier) Notify(ctx context.Context, msg notify.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msg)
	return nil
}

type fakeArchiver struct {
	codes   []string
	reports [][]byte
	err     error
}

func (f *fakeArchiver) Archive(ctx context.Context, code string, report []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.codes = append(f.codes, code)
	f.reports = append(f.reports, report)
	return "reports/" + code + ".csv", nil
}

type failingStore struct{ err error }

func (f failingStore) Save(ctx context.Context, analysis credit.Analysis) (storage.Record, error) {
	return storage.Record{}, f.err
}

func (f failingStore) Get(ctx context.Context, code string) (storage.Record, error) {
	return storage.Record{}, f.err
}

type failingSource struct{}

func (failingSource) Products(ctx context.Context, family string) ([]credit.Product, error) {
	return nil, errors.New("connection refused")
}

func newSimulator(t *testing.T, opts Options) *Simulator {
	t.Helper()
	if opts.Catalog == nil {
		opts.Catalog = catalog.NewStaticSource(credit.Catalog{credit.Mortgage: mortgageProducts()}, nil)
	}
	if opts.Store == nil {
		opts.Store = storage.NewMemoryStore(nil)
	}
	sim, err := New(opts)
	require.NoError(t, err)
	return sim
}

func findOffer(t *testing.T, analysis credit.Analysis, id string) *credit.Offer {
	t.Helper()
	offer, ok := analysis.FindOffer(id)
	require.True(t, ok, "offer %s not found", id)
	return offer
}

func TestNewRequiresCatalogAndStore(t *testing.T) {
	_, err := New(Options{Store: storage.NewMemoryStore(nil)})
	assert.Error(t, err)

	_, err = New(Options{Catalog: catalog.NewStaticSource(nil, nil)})
	assert.Error(t, err)
}

func TestRunSavesAndNotifies(t *testing.T) {
	notifier := &fakeNotifier{}
	archiver := &fakeArchiver{}
	store := storage.NewMemoryStore(nil)
	sim := newSimulator(t, Options{Store: store, Notifier: notifier, Archiver: archiver, Metrics: metrics.New()})

	analysis, err := sim.Run(context.Background(), mortgageProfile())
	require.NoError(t, err)

	assert.True(t, storage.ValidReferenceCode(analysis.ReferenceCode), analysis.ReferenceCode)
	assert.Empty(t, analysis.Warnings)
	require.Len(t, analysis.Offers, 2)
	require.Len(t, analysis.Skipped, 1)
	skip := testutil.FindSkip(analysis.Skipped, "B1-HIP03")
	require.NotNil(t, skip)
	assert.Equal(t, credit.ReasonIncome, skip.Reason)

	// Offers are ordered by payment; the UVA product has the lower rate.
	assert.Equal(t, "B1-HIP02", analysis.Offers[0].ID)
	assert.LessOrEqual(t, analysis.Offers[0].MonthlyPayment, analysis.Offers[1].MonthlyPayment)

	fixed := findOffer(t, analysis, "B1-HIP01")
	assert.Len(t, fixed.Schedule, 240)
	assert.Equal(t, 0.0, fixed.Schedule[239].Balance)
	assert.Empty(t, fixed.Projection)

	record, err := store.Get(context.Background(), analysis.ReferenceCode)
	require.NoError(t, err)
	assert.Len(t, record.Analysis.Offers, 2)

	require.Len(t, archiver.codes, 1)
	assert.Equal(t, analysis.ReferenceCode, archiver.codes[0])
	assert.Contains(t, string(archiver.reports[0]), "B1-HIP01")

	require.Len(t, notifier.messages, 1)
	msg := notifier.messages[0]
	assert.Equal(t, "ana@example.com", msg.To)
	assert.Equal(t, DefaultTemplate, msg.Template)
	assert.Equal(t, analysis.ReferenceCode, msg.Params["referenceCode"])
	assert.Equal(t, "2", msg.Params["offers"])
}

func TestRunIncompleteProfile(t *testing.T) {
	notifier := &fakeNotifier{}
	store := storage.NewMemoryStore(nil)
	sim := newSimulator(t, Options{Store: store, Notifier: notifier})

	profile := mortgageProfile()
	profile.MonthlyIncome = 0
	analysis, err := sim.Run(context.Background(), profile)
	require.NoError(t, err)

	assert.NotNil(t, analysis.Offers)
	assert.Empty(t, analysis.Offers)
	assert.Empty(t, analysis.ReferenceCode)
	assert.Contains(t, analysis.Warnings, "monthly income is missing")
	assert.Equal(t, 0, store.Len())
	assert.Empty(t, notifier.messages)
}

func TestRunCatalogFailure(t *testing.T) {
	sim := newSimulator(t, Options{Catalog: failingSource{}})

	_, err := sim.Run(context.Background(), mortgageProfile())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestRunNoMatchingProducts(t *testing.T) {
	sim := newSimulator(t, Options{})

	profile := mortgageProfile()
	profile.ProductType = credit.Personal
	analysis, err := sim.Run(context.Background(), profile)
	require.NoError(t, err)

	assert.Empty(t, analysis.Offers)
	assert.Contains(t, analysis.Warnings, "none of the 0 personal products matched the profile")
	assert.NotEmpty(t, analysis.ReferenceCode)
}

func TestRunStoreFailureBecomesWarning(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	notifier := &fakeNotifier{}
	archiver := &fakeArchiver{}
	sim := newSimulator(t, Options{
		Store:    failingStore{err: errors.New("redis unavailable")},
		Notifier: notifier,
		Archiver: archiver,
		Logger:   zap.New(core),
	})

	analysis, err := sim.Run(context.Background(), mortgageProfile())
	require.NoError(t, err)

	assert.Empty(t, analysis.ReferenceCode)
	assert.Len(t, analysis.Offers, 2)
	assert.Contains(t, analysis.Warnings, "the simulation could not be saved; no reference code was issued")
	assert.Empty(t, notifier.messages)
	assert.Empty(t, archiver.codes)
	assert.Equal(t, 1, logs.FilterMessage("failed to save simulation").Len())
}

func TestRunSideEffectFailuresBecomeWarnings(t *testing.T) {
	sim := newSimulator(t, Options{
		Notifier: &fakeNotifier{err: errors.New("broker down")},
		Archiver: &fakeArchiver{err: errors.New("bucket missing")},
	})

	analysis, err := sim.Run(context.Background(), mortgageProfile())
	require.NoError(t, err)

	assert.NotEmpty(t, analysis.ReferenceCode)
	assert.Contains(t, analysis.Warnings, "the report could not be archived")
	assert.Contains(t, analysis.Warnings, "the confirmation e-mail could not be sent")
}

func TestRunStoredRecordOmitsPostSaveWarnings(t *testing.T) {
	sim := newSimulator(t, Options{
		Notifier: &fakeNotifier{err: errors.New("broker down")},
		Archiver: &fakeArchiver{err: errors.New("bucket missing")},
	})

	analysis, err := sim.Run(context.Background(), mortgageProfile())
	require.NoError(t, err)
	require.Contains(t, analysis.Warnings, "the report could not be archived")

	record, err := sim.Lookup(context.Background(), analysis.ReferenceCode)
	require.NoError(t, err)
	assert.NotContains(t, record.Analysis.Warnings, "the report could not be archived")
	assert.NotContains(t, record.Analysis.Warnings, "the confirmation e-mail could not be sent")
	assert.Equal(t, analysis.Offers, record.Analysis.Offers)
}

func TestRunSkipsNotificationWithoutEmail(t *testing.T) {
	notifier := &fakeNotifier{}
	sim := newSimulator(t, Options{Notifier: notifier})

	profile := mortgageProfile()
	profile.Email = ""
	_, err := sim.Run(context.Background(), profile)
	require.NoError(t, err)

	profile.Email = "not an address"
	analysis, err := sim.Run(context.Background(), profile)
	require.NoError(t, err)

	assert.Empty(t, notifier.messages)
	assert.NotEmpty(t, analysis.Warnings)
}

func TestRunProjectsUVAPayments(t *testing.T) {
	sim := newSimulator(t, Options{UVAIncomeLimit: 30})

	profile := mortgageProfile()
	profile.ExpectedInflation = testutil.Float64(60)
	analysis, err := sim.Run(context.Background(), profile)
	require.NoError(t, err)

	uva := findOffer(t, analysis, "B1-HIP02")
	require.Len(t, uva.Projection, 240)
	require.NotNil(t, uva.ProjectionSummary)
	assert.Equal(t, uva.MonthlyPayment, uva.ProjectionSummary.FirstPayment)
	assert.Greater(t, uva.ProjectionSummary.LastPayment, uva.ProjectionSummary.FirstPayment)
	require.Greater(t, uva.ProjectionSummary.BreachPeriod, 1)

	found := false
	for _, observation := range uva.Observations {
		if strings.HasPrefix(observation, "projected payment exceeds 30% of income from period") {
			found = true
		}
	}
	assert.True(t, found, "missing breach observation in %v", uva.Observations)

	fixed := findOffer(t, analysis, "B1-HIP01")
	assert.Empty(t, fixed.Projection)
	assert.Nil(t, fixed.ProjectionSummary)
}

func TestRunWithoutInflationSkipsProjection(t *testing.T) {
	sim := newSimulator(t, Options{})

	analysis, err := sim.Run(context.Background(), mortgageProfile())
	require.NoError(t, err)

	uva := findOffer(t, analysis, "B1-HIP02")
	assert.True(t, uva.UVA)
	assert.Empty(t, uva.Projection)
	assert.Nil(t, uva.ProjectionSummary)
}

func TestRunRejectsInflationOutOfRange(t *testing.T) {
	sim := newSimulator(t, Options{})

	profile := mortgageProfile()
	profile.ExpectedInflation = testutil.Float64(100000)
	analysis, err := sim.Run(context.Background(), profile)
	require.NoError(t, err)

	uva := findOffer(t, analysis, "B1-HIP02")
	assert.Empty(t, uva.Projection)
	assert.Nil(t, uva.ProjectionSummary)
	assert.Contains(t, uva.Observations, "payment is UVA-indexed and will grow with inflation")
	assert.Contains(t, analysis.Warnings,
		"expected inflation must be between -100% and 1000%; UVA payments were not projected")
	assert.NotEmpty(t, analysis.ReferenceCode)

	_, err = json.Marshal(analysis)
	assert.NoError(t, err)
}

func TestRunOmitsOverflowingProjection(t *testing.T) {
	products := mortgageProducts()
	for i := range products {
		products[i].MaxAmount = 1e302
	}
	sim := newSimulator(t, Options{
		Catalog: catalog.NewStaticSource(credit.Catalog{credit.Mortgage: products}, nil),
	})

	profile := mortgageProfile()
	profile.Amount = 1e300
	profile.AppraisalValue = 1e301
	profile.ExpectedInflation = testutil.Float64(1000)
	analysis, err := sim.Run(context.Background(), profile)
	require.NoError(t, err)

	uva := findOffer(t, analysis, "B1-HIP02")
	assert.Empty(t, uva.Projection)
	assert.Nil(t, uva.ProjectionSummary)
	assert.Contains(t, analysis.Warnings, "projected UVA payments are too large to represent and were omitted")

	_, err = json.Marshal(analysis)
	assert.NoError(t, err)
}

func TestRunConvertsToReportCurrency(t *testing.T) {
	sim := newSimulator(t, Options{ReportCurrency: currency.USD, ExchangeRate: 1000})

	analysis, err := sim.Run(context.Background(), mortgageProfile())
	require.NoError(t, err)

	for _, offer := range analysis.Offers {
		require.NotNil(t, offer.Converted, offer.ID)
		assert.Equal(t, currency.USD, offer.Converted.To)
		assert.InDelta(t, offer.MonthlyPayment/1000, offer.Converted.ConvertedAmount, 0.01)
	}
}

func TestRunConversionFailureWarnsOnce(t *testing.T) {
	sim := newSimulator(t, Options{ReportCurrency: currency.USD})

	analysis, err := sim.Run(context.Background(), mortgageProfile())
	require.NoError(t, err)

	count := 0
	for _, warning := range analysis.Warnings {
		if strings.HasPrefix(warning, "payments could not be quoted in USD") {
			count++
		}
	}
	assert.Equal(t, 1, count)
	for _, offer := range analysis.Offers {
		assert.Nil(t, offer.Converted)
	}
}

func TestLookup(t *testing.T) {
	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store := storage.NewMemoryStore(func() time.Time { return clock })
	sim := newSimulator(t, Options{Store: store})

	analysis, err := sim.Run(context.Background(), mortgageProfile())
	require.NoError(t, err)
	assert.Equal(t, clock, analysis.CreatedAt)

	record, err := sim.Lookup(context.Background(), analysis.ReferenceCode)
	require.NoError(t, err)
	assert.Equal(t, analysis.ReferenceCode, record.Code)

	_, err = sim.Lookup(context.Background(), "not-a-code")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = sim.Lookup(context.Background(), storage.NewReferenceCode(clock))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
