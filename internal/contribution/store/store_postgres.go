package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"ofertas/internal/contribution/models"
	"ofertas/internal/normalize"
	id "ofertas/pkg/domain"
	"ofertas/pkg/platform/sentinel"
	txcontext "ofertas/pkg/platform/tx"
)

const uniqueViolation = "23505"

// PostgresEntities persists products and stores in PostgreSQL.
type PostgresEntities struct {
	db *sql.DB
}

func NewPostgresEntities(db *sql.DB) *PostgresEntities {
	return &PostgresEntities{db: db}
}

func (s *PostgresEntities) execer(ctx context.Context) txcontext.Executor {
	return txcontext.ExecutorFrom(ctx, s.db)
}

func (s *PostgresEntities) FindProducts(ctx context.Context, contains string) ([]*models.Product, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT id, name, normalized_name, quantity, unit, category, created_at
		FROM products
		WHERE name ILIKE $1 OR ($2 <> '' AND normalized_name LIKE $3)
		ORDER BY created_at`,
		likePattern(contains), normalize.Normalize(contains), likePattern(normalize.Normalize(contains)),
	)
	if err != nil {
		return nil, fmt.Errorf("find products: %w", err)
	}
	defer rows.Close()

	var out []*models.Product
	for rows.Next() {
		var (
			p   models.Product
			pid uuid.UUID
		)
		if err := rows.Scan(&pid, &p.Name, &p.NormalizedName, &p.Quantity, &p.Unit, &p.Category, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		p.ID = id.ProductID(pid)
		out = append(out, &p)
	}
	return out, rows.Err()
}

func (s *PostgresEntities) CreateProduct(ctx context.Context, p *models.Product) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO products (id, name, normalized_name, quantity, unit, category, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.UUID(p.ID), p.Name, p.NormalizedName, p.Quantity, p.Unit, p.Category, p.CreatedAt,
	)
	if err != nil {
		return translateWriteErr("create product", err)
	}
	return nil
}

func (s *PostgresEntities) FindStores(ctx context.Context, contains string) ([]*models.Store, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT id, name, normalized_name, created_at
		FROM stores
		WHERE name ILIKE $1 OR ($2 <> '' AND normalized_name LIKE $3)
		ORDER BY created_at`,
		likePattern(contains), normalize.Normalize(contains), likePattern(normalize.Normalize(contains)),
	)
	if err != nil {
		return nil, fmt.Errorf("find stores: %w", err)
	}
	defer rows.Close()

	var out []*models.Store
	for rows.Next() {
		var (
			st  models.Store
			sid uuid.UUID
		)
		if err := rows.Scan(&sid, &st.Name, &st.NormalizedName, &st.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan store: %w", err)
		}
		st.ID = id.StoreID(sid)
		out = append(out, &st)
	}
	return out, rows.Err()
}

func (s *PostgresEntities) CreateStore(ctx context.Context, st *models.Store) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO stores (id, name, normalized_name, created_at)
		VALUES ($1, $2, $3, $4)`,
		uuid.UUID(st.ID), st.Name, st.NormalizedName, st.CreatedAt,
	)
	if err != nil {
		return translateWriteErr("create store", err)
	}
	return nil
}

// PostgresContributions persists one contribution table in PostgreSQL.
type PostgresContributions struct {
	db    *sql.DB
	table models.Table
}

// NewPostgresContributions binds a store to one of the contribution tables.
func NewPostgresContributions(db *sql.DB, table models.Table) (*PostgresContributions, error) {
	if !table.IsValid() {
		return nil, fmt.Errorf("unknown contribution table %q", table)
	}
	return &PostgresContributions{db: db, table: table}, nil
}

func (s *PostgresContributions) execer(ctx context.Context) txcontext.Executor {
	return txcontext.ExecutorFrom(ctx, s.db)
}

// RunInTx makes every call issued with the derived context part of one transaction.
func (s *PostgresContributions) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return txcontext.Run(ctx, s.db, fn)
}

const contributionColumns = `id, user_id, contributor_name, product_id, store_id, price, quantity,
	unit, city, state, status, notes, created_at, updated_at`

func (s *PostgresContributions) FindContributions(ctx context.Context, q models.ContributionQuery) ([]*models.Contribution, error) {
	where := []string{"product_id = $1", "store_id = $2"}
	args := []any{uuid.UUID(q.ProductID), uuid.UUID(q.StoreID)}
	add := func(clause string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if q.Window != nil {
		add("created_at >= $%d", q.Window.Start)
		add("created_at < $%d", q.Window.End)
	}
	if q.UserID != "" {
		add("user_id = $%d", q.UserID.String())
	}
	if q.ExcludeUserID != "" {
		add("user_id <> $%d", q.ExcludeUserID.String())
	}
	if len(q.Statuses) > 0 {
		add("status = ANY($%d)", pq.Array(statusStrings(q.Statuses)))
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s ORDER BY created_at`,
		contributionColumns, s.table, strings.Join(where, " AND "))
	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find contributions: %w", err)
	}
	defer rows.Close()

	var out []*models.Contribution
	for rows.Next() {
		c, err := scanContribution(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PostgresContributions) InsertContribution(ctx context.Context, c *models.Contribution) error {
	var quantity decimal.NullDecimal
	if c.Quantity != nil {
		quantity = decimal.NullDecimal{Decimal: *c.Quantity, Valid: true}
	}
	query := fmt.Sprintf(`INSERT INTO %s (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`, s.table, contributionColumns)
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(c.ID), c.UserID.String(), c.ContributorName,
		uuid.UUID(c.ProductID), uuid.UUID(c.StoreID),
		c.Price, quantity, c.Unit, c.City, c.State,
		string(c.Status), c.Notes, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return translateWriteErr("insert contribution", err)
	}
	return nil
}

func (s *PostgresContributions) UpdateContributionsStatus(ctx context.Context, ids []id.ContributionID, status models.Status, note string, at time.Time) ([]id.ContributionID, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	raw := make([]string, len(ids))
	for i, cid := range ids {
		raw[i] = cid.String()
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET status = $1,
		    notes = CASE WHEN $2 = '' THEN notes WHEN notes = '' THEN $2 ELSE notes || '; ' || $2 END,
		    updated_at = $3
		WHERE id = ANY($4::uuid[]) AND status = 'pending'
		RETURNING id`, s.table)
	rows, err := s.execer(ctx).QueryContext(ctx, query, string(status), note, at, pq.Array(raw))
	if err != nil {
		return nil, fmt.Errorf("update contribution status: %w", err)
	}
	defer rows.Close()

	var changed []id.ContributionID
	for rows.Next() {
		var cid uuid.UUID
		if err := rows.Scan(&cid); err != nil {
			return nil, fmt.Errorf("scan updated id: %w", err)
		}
		changed = append(changed, id.ContributionID(cid))
	}
	return changed, rows.Err()
}

func (s *PostgresContributions) DeleteContributionsBefore(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.execer(ctx).ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE created_at < $1`, s.table), cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete expired contributions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete expired contributions: %w", err)
	}
	return int(n), nil
}

func (s *PostgresContributions) ListOffers(ctx context.Context, q models.OfferQuery) ([]*models.Offer, error) {
	var (
		where []string
		args  []any
	)
	add := func(clause string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if q.City != "" {
		add("lower(c.city) = lower($%d)", q.City)
	}
	if q.State != "" {
		add("upper(c.state) = upper($%d)", q.State)
	}
	if !q.Since.IsZero() {
		add("c.created_at >= $%d", q.Since)
	}
	if !q.Until.IsZero() {
		add("c.created_at < $%d", q.Until)
	}
	if len(q.Statuses) > 0 {
		add("c.status = ANY($%d)", pq.Array(statusStrings(q.Statuses)))
	}
	filter := ""
	if len(where) > 0 {
		filter = "WHERE " + strings.Join(where, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT c.id, c.user_id, c.contributor_name, c.product_id, p.name, c.store_id, s.name,
		       c.price, c.city, c.state, c.status, c.created_at
		FROM %s c
		JOIN products p ON p.id = c.product_id
		JOIN stores s ON s.id = c.store_id
		%s
		ORDER BY c.created_at DESC`, s.table, filter)
	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list offers: %w", err)
	}
	defer rows.Close()

	var out []*models.Offer
	for rows.Next() {
		var (
			o             models.Offer
			cid, pid, sid uuid.UUID
			userID        string
			status        string
		)
		if err := rows.Scan(&cid, &userID, &o.ContributorName, &pid, &o.ProductName, &sid, &o.StoreName,
			&o.Price, &o.City, &o.State, &status, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan offer: %w", err)
		}
		o.ID = id.ContributionID(cid)
		o.UserID = id.UserID(userID)
		o.ProductID = id.ProductID(pid)
		o.StoreID = id.StoreID(sid)
		o.Status = models.Status(status)
		out = append(out, &o)
	}
	return out, rows.Err()
}

func scanContribution(rows *sql.Rows) (*models.Contribution, error) {
	var (
		c             models.Contribution
		cid, pid, sid uuid.UUID
		userID        string
		status        string
		quantity      decimal.NullDecimal
	)
	if err := rows.Scan(&cid, &userID, &c.ContributorName, &pid, &sid, &c.Price, &quantity,
		&c.Unit, &c.City, &c.State, &status, &c.Notes, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, fmt.Errorf("scan contribution: %w", err)
	}
	c.ID = id.ContributionID(cid)
	c.UserID = id.UserID(userID)
	c.ProductID = id.ProductID(pid)
	c.StoreID = id.StoreID(sid)
	c.Status = models.Status(status)
	if quantity.Valid {
		q := quantity.Decimal
		c.Quantity = &q
	}
	return &c, nil
}

func statusStrings(statuses []models.Status) []string {
	out := make([]string, len(statuses))
	for i, st := range statuses {
		out[i] = string(st)
	}
	return out
}

// likePattern wraps s for a substring LIKE match, escaping wildcards.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

func translateWriteErr(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%s: %w", op, sentinel.ErrConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}
