// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hiethm9980-coder/cebx-code-sub001/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (*SQLRepository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite", "":
		cfg.Driver = "sqlite"
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// SaveAccount inserts or replaces an account.
func (r *SQLRepository) SaveAccount(ctx context.Context, account *domain.Account) error {
	if account.ID == "" {
		return fmt.Errorf("%w: account id is required", ErrInvalidInput)
	}

	query := `
		INSERT INTO accounts (id, name, created_at) VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name, created_at = excluded.created_at
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query), account.ID, account.Name, utc(account.CreatedAt))
	return err
}

// GetAccount retrieves an account by ID.
func (r *SQLRepository) GetAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	query := `SELECT id, name, created_at FROM accounts WHERE id = ?`

	var a domain.Account
	err := r.db.QueryRowContext(ctx, r.rebind(query), accountID).Scan(&a.ID, &a.Name, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	a.CreatedAt = a.CreatedAt.UTC()
	return &a, nil
}

const shipmentColumns = `
	id, tracking_number, account_id, status, mode,
	origin_country, destination_country,
	declared_value, insurance_value, total_charges, cost,
	agent_id, origin_branch_id, destination_branch_id, broker_id,
	created_at, delivered_at`

// SaveShipment inserts or replaces a shipment. Items are replaced when loaded.
func (r *SQLRepository) SaveShipment(ctx context.Context, s *domain.Shipment) error {
	if s.ID == "" {
		return fmt.Errorf("%w: shipment id is required", ErrInvalidInput)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO shipments (` + shipmentColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			tracking_number = excluded.tracking_number,
			account_id = excluded.account_id,
			status = excluded.status,
			mode = excluded.mode,
			origin_country = excluded.origin_country,
			destination_country = excluded.destination_country,
			declared_value = excluded.declared_value,
			insurance_value = excluded.insurance_value,
			total_charges = excluded.total_charges,
			cost = excluded.cost,
			agent_id = excluded.agent_id,
			origin_branch_id = excluded.origin_branch_id,
			destination_branch_id = excluded.destination_branch_id,
			broker_id = excluded.broker_id,
			created_at = excluded.created_at,
			delivered_at = excluded.delivered_at
	`

	var deliveredAt sql.NullTime
	if s.DeliveredAt != nil {
		deliveredAt = sql.NullTime{Time: utc(*s.DeliveredAt), Valid: true}
	}

	_, err = tx.ExecContext(ctx, r.rebind(query),
		s.ID, s.TrackingNumber, s.AccountID, string(s.Status), string(s.Mode),
		s.OriginCountry, s.DestinationCountry,
		nullFloat(s.DeclaredValue), nullFloat(s.InsuranceValue), nullFloat(s.TotalCharges), nullFloat(s.Cost),
		s.AgentID, s.OriginBranchID, s.DestinationBranchID, s.BrokerID,
		utc(s.CreatedAt), deliveredAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save shipment: %w", err)
	}

	if s.Items != nil {
		if _, err := tx.ExecContext(ctx, r.rebind(`DELETE FROM shipment_items WHERE shipment_id = ?`), s.ID); err != nil {
			return fmt.Errorf("failed to clear items: %w", err)
		}

		insert := r.rebind(`
			INSERT INTO shipment_items (id, shipment_id, description, quantity, dangerous_goods)
			VALUES (?, ?, ?, ?, ?)
		`)
		for i, item := range s.Items {
			id := item.ID
			if id == "" {
				id = s.ID + "-" + strconv.Itoa(i+1)
			}
			if _, err := tx.ExecContext(ctx, insert, id, s.ID, item.Description, item.Quantity, boolToInt(item.DangerousGoods)); err != nil {
				return fmt.Errorf("failed to save item %s: %w", id, err)
			}
		}
	}

	return tx.Commit()
}

// GetShipment retrieves a shipment with its items.
func (r *SQLRepository) GetShipment(ctx context.Context, shipmentID string) (*domain.Shipment, error) {
	query := `SELECT ` + shipmentColumns + ` FROM shipments WHERE id = ?`

	s, err := scanShipment(r.db.QueryRowContext(ctx, r.rebind(query), shipmentID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	items, err := r.items(ctx, shipmentID)
	if err != nil {
		return nil, err
	}
	s.Items = items

	return s, nil
}

func (r *SQLRepository) items(ctx context.Context, shipmentID string) ([]domain.Item, error) {
	query := `
		SELECT id, description, quantity, dangerous_goods
		FROM shipment_items
		WHERE shipment_id = ?
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), shipmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Item, 0)
	for rows.Next() {
		var item domain.Item
		var dg int
		if err := rows.Scan(&item.ID, &item.Description, &item.Quantity, &dg); err != nil {
			return nil, err
		}
		item.DangerousGoods = dg != 0
		items = append(items, item)
	}

	return items, rows.Err()
}

// UpdateShipmentStatus moves a shipment to a new status. Delivery also stamps delivered_at.
func (r *SQLRepository) UpdateShipmentStatus(ctx context.Context, shipmentID string, status domain.ShipmentStatus, at time.Time) error {
	var (
		result sql.Result
		err    error
	)
	if status == domain.StatusDelivered {
		result, err = r.db.ExecContext(ctx, r.rebind(`UPDATE shipments SET status = ?, delivered_at = ? WHERE id = ?`),
			string(status), utc(at), shipmentID)
	} else {
		result, err = r.db.ExecContext(ctx, r.rebind(`UPDATE shipments SET status = ? WHERE id = ?`),
			string(status), shipmentID)
	}
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// ListShipments returns shipments matching q in creation order. Items are not loaded.
func (r *SQLRepository) ListShipments(ctx context.Context, q domain.ShipmentQuery) ([]*domain.Shipment, error) {
	var w where
	w.eq("account_id", q.AccountID)
	w.in("status", q.Statuses)
	w.since(q.CreatedSince)
	if !q.CreatedBefore.IsZero() {
		w.add("created_at < ?", utc(q.CreatedBefore))
	}

	query := `SELECT ` + shipmentColumns + ` FROM shipments` + w.String() + ` ORDER BY created_at, id`
	args := w.args
	if q.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, q.Limit)
	}

	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var shipments []*domain.Shipment
	for rows.Next() {
		s, err := scanShipment(rows)
		if err != nil {
			return nil, err
		}
		shipments = append(shipments, s)
	}

	return shipments, rows.Err()
}

// CountShipments counts shipments matching the filter.
func (r *SQLRepository) CountShipments(ctx context.Context, f domain.ShipmentFilter) (int64, error) {
	var w where
	w.eq("account_id", f.AccountID)
	w.eq("origin_country", f.OriginCountry)
	w.eq("destination_country", f.DestinationCountry)
	w.eq("mode", string(f.Mode))
	w.in("status", f.Statuses)
	w.since(f.CreatedSince)

	var n int64
	err := r.db.QueryRowContext(ctx, r.rebind(`SELECT COUNT(*) FROM shipments`+w.String()), w.args...).Scan(&n)
	return n, err
}

// AverageDeclaredValue averages the captured declared values of an account,
// skipping one status. Returns 0 when there is no history.
func (r *SQLRepository) AverageDeclaredValue(ctx context.Context, accountID string, exclude domain.ShipmentStatus) (float64, error) {
	query := `
		SELECT AVG(declared_value)
		FROM shipments
		WHERE account_id = ? AND status <> ? AND declared_value IS NOT NULL
	`

	var avg sql.NullFloat64
	if err := r.db.QueryRowContext(ctx, r.rebind(query), accountID, string(exclude)).Scan(&avg); err != nil {
		return 0, err
	}
	return avg.Float64, nil
}

// HasDangerousItems reports whether any item of the shipment is dangerous goods.
func (r *SQLRepository) HasDangerousItems(ctx context.Context, shipmentID string) (bool, error) {
	query := `SELECT COUNT(*) FROM shipment_items WHERE shipment_id = ? AND dangerous_goods = 1`

	var n int64
	if err := r.db.QueryRowContext(ctx, r.rebind(query), shipmentID).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// SaveFraudScan appends a scan result.
func (r *SQLRepository) SaveFraudScan(ctx context.Context, result *domain.FraudScanResult) error {
	if result.ShipmentID == "" {
		return fmt.Errorf("%w: shipment id is required", ErrInvalidInput)
	}

	subScores, err := json.Marshal(result.SubScores)
	if err != nil {
		return fmt.Errorf("failed to encode sub-scores: %w", err)
	}

	query := `
		INSERT INTO fraud_scans (id, shipment_id, score, tier, recommended_action, sub_scores, scanned_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, r.rebind(query),
		uuid.New().String(), result.ShipmentID, result.FraudScore,
		string(result.Tier), result.RecommendedAction, string(subScores), utc(result.ScannedAt),
	)
	return err
}

// LatestFraudScan returns the most recent scan of a shipment.
func (r *SQLRepository) LatestFraudScan(ctx context.Context, shipmentID string) (*domain.FraudScanResult, error) {
	query := `
		SELECT shipment_id, score, tier, recommended_action, sub_scores, scanned_at
		FROM fraud_scans
		WHERE shipment_id = ?
		ORDER BY scanned_at DESC
		LIMIT 1
	`

	var res domain.FraudScanResult
	var tier, subScores string
	err := r.db.QueryRowContext(ctx, r.rebind(query), shipmentID).Scan(
		&res.ShipmentID, &res.FraudScore, &tier, &res.RecommendedAction, &subScores, &res.ScannedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	res.Tier = domain.Tier(tier)
	res.ScannedAt = res.ScannedAt.UTC()
	if err := json.Unmarshal([]byte(subScores), &res.SubScores); err != nil {
		return nil, fmt.Errorf("failed to decode sub-scores: %w", err)
	}

	return &res, nil
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = strconv.AppendInt(result, int64(n), 10)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanShipment(row rowScanner) (*domain.Shipment, error) {
	var s domain.Shipment
	var status, mode string
	var declared, insurance, charges, cost sql.NullFloat64
	var deliveredAt sql.NullTime

	err := row.Scan(
		&s.ID, &s.TrackingNumber, &s.AccountID, &status, &mode,
		&s.OriginCountry, &s.DestinationCountry,
		&declared, &insurance, &charges, &cost,
		&s.AgentID, &s.OriginBranchID, &s.DestinationBranchID, &s.BrokerID,
		&s.CreatedAt, &deliveredAt,
	)
	if err != nil {
		return nil, err
	}

	s.Status = domain.ShipmentStatus(status)
	s.Mode = domain.ShipmentMode(mode)
	s.DeclaredValue = floatPtr(declared)
	s.InsuranceValue = floatPtr(insurance)
	s.TotalCharges = floatPtr(charges)
	s.Cost = floatPtr(cost)
	s.CreatedAt = s.CreatedAt.UTC()
	if deliveredAt.Valid {
		at := deliveredAt.Time.UTC()
		s.DeliveredAt = &at
	}

	return &s, nil
}

// where accumulates AND-ed conditions. Empty values do not filter.
type where struct {
	conds []string
	args  []any
}

func (w *where) add(cond string, args ...any) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, args...)
}

func (w *where) eq(column, value string) {
	if value != "" {
		w.add(column+" = ?", value)
	}
}

func (w *where) in(column string, statuses []domain.ShipmentStatus) {
	if len(statuses) == 0 {
		return
	}
	marks := make([]string, len(statuses))
	args := make([]any, len(statuses))
	for i, st := range statuses {
		marks[i] = "?"
		args[i] = string(st)
	}
	w.add(column+" IN ("+strings.Join(marks, ", ")+")", args...)
}

func (w *where) since(t time.Time) {
	if !t.IsZero() {
		w.add("created_at >= ?", utc(t))
	}
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

func utc(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var _ domain.Repository = (*SQLRepository)(nil)
