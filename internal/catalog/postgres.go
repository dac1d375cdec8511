package catalog

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/iwvelando/credit-simulator/pkg/credit"
)

// Querier is the subset of *pgxpool.Pool the Postgres source uses.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const selectProducts = `SELECT institution_code, product_id, family, denomination, institution_name,
       min_income, min_tenure_months, max_payment_to_income, max_tea, max_cft,
       min_amount, max_amount, max_term_months, max_age, max_ltv, payment_per_100k, eligibility
FROM products
WHERE family = $1 AND active
ORDER BY institution_code, product_id`

type productRow struct {
	InstitutionCode    string  `db:"institution_code"`
	ProductID          string  `db:"product_id"`
	Family             string  `db:"family"`
	Denomination       string  `db:"denomination"`
	InstitutionName    string  `db:"institution_name"`
	MinIncome          float64 `db:"min_income"`
	MinTenureMonths    int     `db:"min_tenure_months"`
	MaxPaymentToIncome float64 `db:"max_payment_to_income"`
	MaxTEA             float64 `db:"max_tea"`
	MaxCFT             float64 `db:"max_cft"`
	MinAmount          float64 `db:"min_amount"`
	MaxAmount          float64 `db:"max_amount"`
	MaxTermMonths      int     `db:"max_term_months"`
	MaxAge             int     `db:"max_age"`
	MaxLTV             float64 `db:"max_ltv"`
	PaymentPer100k     float64 `db:"payment_per_100k"`
	Eligibility        string  `db:"eligibility"`
}

func (r productRow) toProduct() credit.Product {
	return credit.Product{
		ID:                 r.ProductID,
		Denomination:       r.Denomination,
		Family:             r.Family,
		InstitutionCode:    r.InstitutionCode,
		InstitutionName:    r.InstitutionName,
		MinIncome:          r.MinIncome,
		MinTenureMonths:    r.MinTenureMonths,
		MaxPaymentToIncome: r.MaxPaymentToIncome,
		MaxTEA:             r.MaxTEA,
		MaxCFT:             r.MaxCFT,
		MinAmount:          r.MinAmount,
		MaxAmount:          r.MaxAmount,
		MaxTermMonths:      r.MaxTermMonths,
		MaxAge:             r.MaxAge,
		MaxLTV:             r.MaxLTV,
		PaymentPer100k:     r.PaymentPer100k,
		Eligibility:        r.Eligibility,
	}
}

// PostgresSource reads active products from the products table.
type PostgresSource struct {
	db     Querier
	logger *zap.Logger
}

// NewPostgresSource creates a source on db.
func NewPostgresSource(db Querier, logger *zap.Logger) *PostgresSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostgresSource{db: db, logger: logger}
}

// Products returns the active products of family ordered by institution and id.
func (p *PostgresSource) Products(ctx context.Context, family string) ([]credit.Product, error) {
	rows, err := p.db.Query(ctx, selectProducts, family)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s products: %w", family, err)
	}
	records, err := pgx.CollectRows(rows, pgx.RowToStructByName[productRow])
	if err != nil {
		return nil, fmt.Errorf("failed to read %s products: %w", family, err)
	}

	products := make([]credit.Product, 0, len(records))
	for _, record := range records {
		products = append(products, record.toProduct())
	}
	p.logger.Debug("catalog loaded",
		zap.String("op", "catalog.PostgresSource.Products"),
		zap.String("family", family),
		zap.Int("products", len(products)),
	)
	return products, nil
}
