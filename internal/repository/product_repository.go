package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"bazaar/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const productColumns = `
	p.id, p.shop_id, p.slug, p.name, p.category, p.base_price, p.sale_price,
	p.stock, p.track_stock, p.allow_backorder, p.status, p.created_at, p.updated_at,
	s.id, s.name, s.slug, s.owner_id, s.currency
`

// productRepository implements the ProductRepository interface using PostgreSQL.
type productRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(pool *pgxpool.Pool, logger zerolog.Logger) ProductRepository {
	return &productRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "product").Logger(),
	}
}

// List retrieves products matching the filter.
func (r *productRepository) List(ctx context.Context, filter model.ProductFilter) ([]model.Product, int, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if filter.ShopID > 0 {
		add("p.shop_id = $%d", filter.ShopID)
	}
	if filter.Status != "" {
		add("p.status = $%d", filter.Status)
	}
	if filter.Category != "" {
		add("p.category = $%d", filter.Category)
	}
	if filter.Search != "" {
		add("p.name ILIKE $%d", "%"+filter.Search+"%")
	}

	clause := ""
	if len(where) > 0 {
		clause = "WHERE " + strings.Join(where, " AND ")
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM products p ` + clause
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		r.logger.Error().Err(err).Msg("failed to count products")
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	limit, offset := pageBounds(filter.Page, filter.Limit)
	args = append(args, limit, offset)
	query := fmt.Sprintf(`
		SELECT %s
		FROM products p
		JOIN shops s ON s.id = p.shop_id
		%s
		ORDER BY %s
		LIMIT $%d OFFSET $%d
	`, productColumns, clause, productOrder(filter.Sort), len(args)-1, len(args))

	products, err := r.queryProducts(ctx, r.pool, query, args...)
	if err != nil {
		r.logger.Error().Err(err).
			Int("limit", limit).
			Int("offset", offset).
			Msg("failed to query products")
		return nil, 0, err
	}

	return products, total, nil
}

// GetByID retrieves a single product by its ID.
func (r *productRepository) GetByID(ctx context.Context, id int64) (*model.Product, error) {
	products, err := r.GetByIDs(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		r.logger.Debug().Int64("product_id", id).Msg("product not found")
		return nil, nil
	}
	return &products[0], nil
}

// GetByIDs retrieves multiple products by their IDs.
func (r *productRepository) GetByIDs(ctx context.Context, ids []int64) ([]model.Product, error) {
	if len(ids) == 0 {
		return []model.Product{}, nil
	}

	query := `
		SELECT ` + productColumns + `
		FROM products p
		JOIN shops s ON s.id = p.shop_id
		WHERE p.id = ANY($1)
		ORDER BY p.id
	`

	products, err := r.queryProducts(ctx, r.pool, query, ids)
	if err != nil {
		r.logger.Error().Err(err).Int("count", len(ids)).Msg("failed to query products by IDs")
		return nil, err
	}
	return products, nil
}

// GetShop retrieves a shop by its ID.
func (r *productRepository) GetShop(ctx context.Context, id int64) (*model.ShopInfo, error) {
	query := `SELECT id, name, slug, owner_id, currency FROM shops WHERE id = $1`

	var s model.ShopInfo
	err := r.pool.QueryRow(ctx, query, id).Scan(&s.ID, &s.Name, &s.Slug, &s.OwnerID, &s.Currency)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Int64("shop_id", id).Msg("failed to query shop")
		return nil, fmt.Errorf("failed to query shop: %w", err)
	}
	return &s, nil
}

// SaveShop upserts a shop by slug and sets its ID.
func (r *productRepository) SaveShop(ctx context.Context, shop *model.ShopInfo) error {
	query := `
		INSERT INTO shops (name, slug, owner_id, currency)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (slug) DO UPDATE
		SET name = EXCLUDED.name, owner_id = EXCLUDED.owner_id, currency = EXCLUDED.currency
		RETURNING id
	`

	err := r.pool.QueryRow(ctx, query, shop.Name, shop.Slug, shop.OwnerID, shop.Currency).Scan(&shop.ID)
	if err != nil {
		r.logger.Error().Err(err).Str("shop_slug", shop.Slug).Msg("failed to save shop")
		return fmt.Errorf("failed to save shop: %w", err)
	}
	return nil
}

// SaveProduct upserts a product by shop and slug. Variants are matched by SKU;
// variants missing from p are deleted. Product stock and reserved quantities are
// only written on insert; after that open orders own them. A variant's stock may
// not drop below its reservation and a reserved variant cannot be deleted.
func (r *productRepository) SaveProduct(ctx context.Context, p *model.Product) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	productQuery := `
		INSERT INTO products (shop_id, slug, name, category, base_price, sale_price,
			stock, track_stock, allow_backorder, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (shop_id, slug) DO UPDATE
		SET name = EXCLUDED.name,
			category = EXCLUDED.category,
			base_price = EXCLUDED.base_price,
			sale_price = EXCLUDED.sale_price,
			track_stock = EXCLUDED.track_stock,
			allow_backorder = EXCLUDED.allow_backorder,
			status = EXCLUDED.status,
			updated_at = NOW()
		RETURNING id, stock, created_at, updated_at
	`

	err = tx.QueryRow(ctx, productQuery,
		p.ShopID, p.Slug, p.Name, p.Category, p.BasePrice.String(), p.SalePrice,
		p.Stock, p.TrackStock, p.AllowBackorder, string(p.Status),
	).Scan(&p.ID, &p.Stock, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		r.logger.Error().Err(err).Str("product_slug", p.Slug).Msg("failed to save product")
		return fmt.Errorf("failed to save product: %w", err)
	}

	variantQuery := `
		INSERT INTO product_variants (product_id, sku, name, price, sale_price, stock, reserved, attributes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (product_id, sku) DO UPDATE
		SET name = EXCLUDED.name,
			price = EXCLUDED.price,
			sale_price = EXCLUDED.sale_price,
			stock = EXCLUDED.stock,
			attributes = EXCLUDED.attributes
		WHERE EXCLUDED.stock >= product_variants.reserved
		RETURNING id, reserved
	`

	skus := make([]string, 0, len(p.Variants))
	for i := range p.Variants {
		v := &p.Variants[i]
		v.ProductID = p.ID
		err := tx.QueryRow(ctx, variantQuery,
			p.ID, v.SKU, v.Name, v.Price, v.SalePrice, v.Stock, v.Reserved, attributesArg(v.Attributes),
		).Scan(&v.ID, &v.Reserved)
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Warn().Str("sku", v.SKU).Int("stock", v.Stock).Msg("variant stock below reservation")
			return model.ErrStockBelowReserved
		}
		if err != nil {
			r.logger.Error().Err(err).Str("sku", v.SKU).Msg("failed to save variant")
			return fmt.Errorf("failed to save variant %s: %w", v.SKU, err)
		}
		skus = append(skus, v.SKU)
	}

	var held string
	err = tx.QueryRow(ctx,
		`SELECT sku FROM product_variants
		WHERE product_id = $1 AND NOT (sku = ANY($2)) AND reserved > 0
		LIMIT 1`,
		p.ID, skus).Scan(&held)
	switch {
	case err == nil:
		r.logger.Warn().Str("sku", held).Int64("product_id", p.ID).Msg("reserved variant missing from product")
		return model.ErrVariantReserved
	case !errors.Is(err, pgx.ErrNoRows):
		return fmt.Errorf("failed to check reserved variants: %w", err)
	}

	_, err = tx.Exec(ctx,
		`DELETE FROM product_variants WHERE product_id = $1 AND NOT (sku = ANY($2))`,
		p.ID, skus)
	if err != nil {
		return fmt.Errorf("failed to prune variants: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit product: %w", err)
	}

	r.logger.Debug().
		Int64("product_id", p.ID).
		Int("variants", len(p.Variants)).
		Msg("product saved")

	return nil
}

// AdjustStock applies stock changes. Reservations require the product to track
// stock; releases and consumptions apply to whatever was reserved.
func (r *productRepository) AdjustStock(ctx context.Context, tx pgx.Tx, adjustments []StockAdjustment) error {
	for _, adj := range adjustments {
		if adj.Op == StockConsume && adj.VariantID == nil {
			// product lines left stock when they were reserved
			continue
		}

		query, guarded := stockQuery(adj)
		if query == "" {
			return fmt.Errorf("unknown stock operation %q", adj.Op)
		}

		target := adj.ProductID
		if adj.VariantID != nil {
			target = *adj.VariantID
		}

		tag, err := tx.Exec(ctx, query, target, adj.Quantity)
		if err != nil {
			r.logger.Error().Err(err).
				Int64("product_id", adj.ProductID).
				Str("op", string(adj.Op)).
				Msg("failed to adjust stock")
			return fmt.Errorf("failed to adjust stock: %w", err)
		}

		if guarded && tag.RowsAffected() == 0 {
			r.logger.Warn().
				Int64("product_id", adj.ProductID).
				Int("quantity", adj.Quantity).
				Msg("insufficient stock for reservation")
			return model.ErrInsufficientStock
		}
	}
	return nil
}

// stockQuery returns the statement for adj and whether a zero row count means
// the reservation could not be covered.
func stockQuery(adj StockAdjustment) (string, bool) {
	variant := adj.VariantID != nil
	switch {
	case adj.Op == StockReserve && variant:
		return `
			UPDATE product_variants v SET reserved = v.reserved + $2
			FROM products p
			WHERE v.id = $1 AND p.id = v.product_id AND p.track_stock
				AND v.stock - v.reserved >= $2`, true
	case adj.Op == StockReserve:
		return `
			UPDATE products SET stock = stock - $2, updated_at = NOW()
			WHERE id = $1 AND track_stock AND stock >= $2`, true
	case adj.Op == StockRelease && variant:
		return `
			UPDATE product_variants SET reserved = GREATEST(reserved - $2, 0)
			WHERE id = $1`, false
	case adj.Op == StockRelease:
		return `
			UPDATE products SET stock = stock + $2, updated_at = NOW()
			WHERE id = $1`, false
	case adj.Op == StockConsume && variant:
		return `
			UPDATE product_variants
			SET stock = GREATEST(stock - $2, 0), reserved = GREATEST(reserved - $2, 0)
			WHERE id = $1`, false
	}
	return "", false
}

func (r *productRepository) queryProducts(ctx context.Context, q querier, query string, args ...any) ([]model.Product, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := []model.Product{}
	for rows.Next() {
		var (
			p    model.Product
			shop model.ShopInfo
		)
		err := rows.Scan(
			&p.ID, &p.ShopID, &p.Slug, &p.Name, &p.Category, &p.BasePrice, &p.SalePrice,
			&p.Stock, &p.TrackStock, &p.AllowBackorder, &p.Status, &p.CreatedAt, &p.UpdatedAt,
			&shop.ID, &shop.Name, &shop.Slug, &shop.OwnerID, &shop.Currency,
		)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan product row")
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		p.Shop = &shop
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating product rows")
		return nil, fmt.Errorf("error iterating products: %w", err)
	}
	rows.Close()

	if err := r.attachVariants(ctx, q, products); err != nil {
		return nil, err
	}
	return products, nil
}

func (r *productRepository) attachVariants(ctx context.Context, q querier, products []model.Product) error {
	if len(products) == 0 {
		return nil
	}

	index := make(map[int64]int, len(products))
	ids := make([]int64, len(products))
	for i, p := range products {
		index[p.ID] = i
		ids[i] = p.ID
	}

	query := `
		SELECT id, product_id, sku, name, price, sale_price, stock, reserved, attributes
		FROM product_variants
		WHERE product_id = ANY($1)
		ORDER BY product_id, id
	`

	rows, err := q.Query(ctx, query, ids)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query variants")
		return fmt.Errorf("failed to query variants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			v     model.ProductVariant
			attrs []byte
		)
		err := rows.Scan(&v.ID, &v.ProductID, &v.SKU, &v.Name, &v.Price, &v.SalePrice, &v.Stock, &v.Reserved, &attrs)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan variant row")
			return fmt.Errorf("failed to scan variant: %w", err)
		}
		if len(attrs) > 0 {
			v.Attributes = attrs
		}
		i := index[v.ProductID]
		products[i].Variants = append(products[i].Variants, v)
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating variants: %w", err)
	}
	return nil
}

func productOrder(sort string) string {
	switch sort {
	case "price_asc":
		return "p.base_price ASC, p.id"
	case "price_desc":
		return "p.base_price DESC, p.id"
	case "newest":
		return "p.created_at DESC, p.id DESC"
	default:
		return "p.name, p.id"
	}
}

// pageBounds converts a 1-based page and page size into LIMIT and OFFSET.
func pageBounds(page, limit int) (int, int) {
	if limit < 1 {
		limit = 20
	}
	if page < 1 {
		page = 1
	}
	return limit, (page - 1) * limit
}

func attributesArg(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
