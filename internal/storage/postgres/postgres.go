package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/labelforge/orderdesk/internal/storage"
	"github.com/labelforge/orderdesk/internal/types/notification"
	"github.com/labelforge/orderdesk/internal/types/order"
	"github.com/labelforge/orderdesk/internal/types/pricing"
	"github.com/labelforge/orderdesk/internal/types/shipment"
	"github.com/labelforge/orderdesk/internal/types/token"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const uniqueViolation = "23505"

type PostgresStorage struct {
	db *sql.DB
}

func NewPostgresStorage(dsn string) (*PostgresStorage, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	s := &PostgresStorage{db: db}

	// проверяем, что БД жива
	if err := s.db.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}
	// создаём таблицы
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStorage) initSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS orders (
            id SERIAL PRIMARY KEY,
            number TEXT UNIQUE NOT NULL,
            customer_name TEXT NOT NULL,
            customer_email TEXT NOT NULL,
            billing_name TEXT NOT NULL,
            billing_phone TEXT NOT NULL,
            billing_line1 TEXT NOT NULL,
            billing_line2 TEXT NOT NULL DEFAULT '',
            billing_city TEXT NOT NULL,
            billing_postal_code TEXT NOT NULL,
            shipping_name TEXT NOT NULL,
            shipping_phone TEXT NOT NULL,
            shipping_line1 TEXT NOT NULL,
            shipping_line2 TEXT NOT NULL DEFAULT '',
            shipping_city TEXT NOT NULL,
            shipping_postal_code TEXT NOT NULL,
            quantity INT NOT NULL,
            unit_price DOUBLE PRECISION NOT NULL,
            discount_amount DOUBLE PRECISION NOT NULL DEFAULT 0,
            total_price DOUBLE PRECISION NOT NULL,
            promo_code TEXT,
            status TEXT NOT NULL,
            payment_reference TEXT,
            confirmation_token TEXT UNIQUE,
            created_at TIMESTAMPTZ NOT NULL,
            payment_confirmed_at TIMESTAMPTZ
        )`,
		`CREATE TABLE IF NOT EXISTS pricing_tiers (
            id SERIAL PRIMARY KEY,
            min_quantity INT NOT NULL,
            max_quantity INT,
            unit_price DOUBLE PRECISION NOT NULL,
            active BOOLEAN NOT NULL DEFAULT TRUE
        )`,
		`CREATE TABLE IF NOT EXISTS promo_codes (
            id SERIAL PRIMARY KEY,
            code TEXT UNIQUE NOT NULL,
            discount_amount DOUBLE PRECISION NOT NULL,
            active BOOLEAN NOT NULL DEFAULT TRUE,
            allowed_email TEXT
        )`,
		`CREATE TABLE IF NOT EXISTS shipments (
            id SERIAL PRIMARY KEY,
            order_id INT NOT NULL REFERENCES orders(id),
            courier TEXT NOT NULL,
            tracking_number TEXT NOT NULL,
            tracking_url TEXT NOT NULL,
            shipped_at TIMESTAMPTZ NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS couriers (
            name TEXT PRIMARY KEY,
            url_template TEXT NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS order_emails (
            id SERIAL PRIMARY KEY,
            order_id INT NOT NULL REFERENCES orders(id),
            email_type TEXT NOT NULL,
            status TEXT NOT NULL,
            sent_at TIMESTAMPTZ,
            UNIQUE (order_id, email_type)
        )`,
		`CREATE TABLE IF NOT EXISTS tracking_sessions (
            token TEXT PRIMARY KEY,
            order_id INT NOT NULL REFERENCES orders(id),
            expires_at TIMESTAMPTZ NOT NULL,
            created_at TIMESTAMPTZ NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS invoice_tokens (
            token TEXT PRIMARY KEY,
            order_id INT NOT NULL REFERENCES orders(id),
            expires_at TIMESTAMPTZ NOT NULL,
            created_at TIMESTAMPTZ NOT NULL
        )`,
	}
	for _, q := range stmts {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

func (s *PostgresStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStorage) Close() error {
	return s.db.Close()
}

const orderColumns = `
    id, number, customer_name, customer_email,
    billing_name, billing_phone, billing_line1, billing_line2, billing_city, billing_postal_code,
    shipping_name, shipping_phone, shipping_line1, shipping_line2, shipping_city, shipping_postal_code,
    quantity, unit_price, discount_amount, total_price, promo_code,
    status, payment_reference, confirmation_token, created_at, payment_confirmed_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*order.Order, error) {
	var o order.Order
	var promoCode, paymentRef, confToken sql.NullString
	var paymentConfirmedAt sql.NullTime
	err := row.Scan(
		&o.ID, &o.Number, &o.CustomerName, &o.CustomerEmail,
		&o.Billing.Name, &o.Billing.Phone, &o.Billing.Line1, &o.Billing.Line2, &o.Billing.City, &o.Billing.PostalCode,
		&o.Shipping.Name, &o.Shipping.Phone, &o.Shipping.Line1, &o.Shipping.Line2, &o.Shipping.City, &o.Shipping.PostalCode,
		&o.Quantity, &o.UnitPrice, &o.DiscountAmount, &o.TotalPrice, &promoCode,
		&o.Status, &paymentRef, &confToken, &o.CreatedAt, &paymentConfirmedAt,
	)
	if err != nil {
		return nil, err
	}
	if promoCode.Valid {
		o.PromoCode = &promoCode.String
	}
	if paymentRef.Valid {
		o.PaymentReference = &paymentRef.String
	}
	if confToken.Valid {
		o.ConfirmationToken = &confToken.String
	}
	if paymentConfirmedAt.Valid {
		t := paymentConfirmedAt.Time
		o.PaymentConfirmedAt = &t
	}
	return &o, nil
}

func (s *PostgresStorage) CreateOrder(ctx context.Context, o *order.Order) error {
	q := `
        INSERT INTO orders (
            number, customer_name, customer_email,
            billing_name, billing_phone, billing_line1, billing_line2, billing_city, billing_postal_code,
            shipping_name, shipping_phone, shipping_line1, shipping_line2, shipping_city, shipping_postal_code,
            quantity, unit_price, discount_amount, total_price, promo_code,
            status, confirmation_token, created_at
        ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23)
        RETURNING id`
	err := s.db.QueryRowContext(ctx, q,
		o.Number, o.CustomerName, o.CustomerEmail,
		o.Billing.Name, o.Billing.Phone, o.Billing.Line1, o.Billing.Line2, o.Billing.City, o.Billing.PostalCode,
		o.Shipping.Name, o.Shipping.Phone, o.Shipping.Line1, o.Shipping.Line2, o.Shipping.City, o.Shipping.PostalCode,
		o.Quantity, o.UnitPrice, o.DiscountAmount, o.TotalPrice, o.PromoCode,
		o.Status, o.ConfirmationToken, o.CreatedAt,
	).Scan(&o.ID)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return storage.ErrOrderNumberTaken
	}
	return err
}

func (s *PostgresStorage) FindOrderByID(ctx context.Context, id int64) (*order.Order, error) {
	q := `SELECT` + orderColumns + ` FROM orders WHERE id = $1`
	return scanOrder(s.db.QueryRowContext(ctx, q, id))
}

func (s *PostgresStorage) FindOrderByNumber(ctx context.Context, number string) (*order.Order, error) {
	q := `SELECT` + orderColumns + ` FROM orders WHERE number = $1`
	return scanOrder(s.db.QueryRowContext(ctx, q, number))
}

// UpdateOrderStatus — оптимистичная запись: статус меняется, только если он
// всё ещё равен from.
func (s *PostgresStorage) UpdateOrderStatus(ctx context.Context, id int64, from, to order.OrderStatus, paymentConfirmedAt *time.Time) (bool, error) {
	q := `
        UPDATE orders
        SET status = $1,
            payment_confirmed_at = COALESCE($2, payment_confirmed_at)
        WHERE id = $3 AND status = $4`
	res, err := s.db.ExecContext(ctx, q, to, paymentConfirmedAt, id, from)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *PostgresStorage) UpdatePaymentReference(ctx context.Context, id int64, reference string) error {
	q := `UPDATE orders SET payment_reference = $1 WHERE id = $2`
	_, err := s.db.ExecContext(ctx, q, reference, id)
	return err
}

func (s *PostgresStorage) ListActiveTiers(ctx context.Context) ([]pricing.PricingTier, error) {
	const q = `
        SELECT id, min_quantity, max_quantity, unit_price, active
        FROM pricing_tiers
        WHERE active
        ORDER BY min_quantity`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []pricing.PricingTier
	for rows.Next() {
		var t pricing.PricingTier
		var maxQty sql.NullInt64
		if err := rows.Scan(&t.ID, &t.MinQuantity, &maxQty, &t.UnitPrice, &t.Active); err != nil {
			return nil, err
		}
		if maxQty.Valid {
			v := int(maxQty.Int64)
			t.MaxQuantity = &v
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *PostgresStorage) FindPromoByCode(ctx context.Context, code string) (*pricing.PromoCode, error) {
	const q = `
        SELECT id, code, discount_amount, active, allowed_email
        FROM promo_codes WHERE LOWER(code) = LOWER($1)`
	var p pricing.PromoCode
	var allowedEmail sql.NullString
	if err := s.db.QueryRowContext(ctx, q, code).
		Scan(&p.ID, &p.Code, &p.DiscountAmount, &p.Active, &allowedEmail); err != nil {
		return nil, err
	}
	if allowedEmail.Valid {
		p.AllowedEmail = &allowedEmail.String
	}
	return &p, nil
}

// ConsumeConfirmationToken обнуляет токен и возвращает заказ одним условным
// апдейтом: из двух одновременных запросов выигрывает ровно один.
func (s *PostgresStorage) ConsumeConfirmationToken(ctx context.Context, tok string) (*order.Order, error) {
	q := `
        UPDATE orders SET confirmation_token = NULL
        WHERE confirmation_token = $1
        RETURNING` + orderColumns
	return scanOrder(s.db.QueryRowContext(ctx, q, tok))
}

func (s *PostgresStorage) CreateTrackingSession(ctx context.Context, sess *token.TrackingSession) error {
	q := `INSERT INTO tracking_sessions (token, order_id, expires_at, created_at) VALUES ($1,$2,$3,$4)`
	_, err := s.db.ExecContext(ctx, q, sess.Token, sess.OrderID, sess.ExpiresAt, sess.CreatedAt)
	return err
}

func (s *PostgresStorage) FindTrackingSession(ctx context.Context, tok string) (*token.TrackingSession, error) {
	const q = `SELECT token, order_id, expires_at, created_at FROM tracking_sessions WHERE token = $1`
	var sess token.TrackingSession
	if err := s.db.QueryRowContext(ctx, q, tok).
		Scan(&sess.Token, &sess.OrderID, &sess.ExpiresAt, &sess.CreatedAt); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *PostgresStorage) CreateInvoiceToken(ctx context.Context, t *token.InvoiceToken) error {
	q := `INSERT INTO invoice_tokens (token, order_id, expires_at, created_at) VALUES ($1,$2,$3,$4)`
	_, err := s.db.ExecContext(ctx, q, t.Token, t.OrderID, t.ExpiresAt, t.CreatedAt)
	return err
}

// ConsumeInvoiceToken удаляет токен и возвращает его одной операцией.
func (s *PostgresStorage) ConsumeInvoiceToken(ctx context.Context, tok string) (*token.InvoiceToken, error) {
	const q = `
        DELETE FROM invoice_tokens WHERE token = $1
        RETURNING token, order_id, expires_at, created_at`
	var t token.InvoiceToken
	if err := s.db.QueryRowContext(ctx, q, tok).
		Scan(&t.Token, &t.OrderID, &t.ExpiresAt, &t.CreatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *PostgresStorage) CreateShipment(ctx context.Context, sh *shipment.Shipment) error {
	q := `
        INSERT INTO shipments (order_id, courier, tracking_number, tracking_url, shipped_at)
        VALUES ($1,$2,$3,$4,$5) RETURNING id`
	return s.db.QueryRowContext(ctx, q,
		sh.OrderID, sh.Courier, sh.TrackingNumber, sh.TrackingURL, sh.ShippedAt,
	).Scan(&sh.ID)
}

func (s *PostgresStorage) ListShipmentsByOrder(ctx context.Context, orderID int64) ([]shipment.Shipment, error) {
	const q = `
        SELECT id, order_id, courier, tracking_number, tracking_url, shipped_at
        FROM shipments WHERE order_id = $1 ORDER BY shipped_at DESC`
	rows, err := s.db.QueryContext(ctx, q, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []shipment.Shipment
	for rows.Next() {
		var sh shipment.Shipment
		if err := rows.Scan(&sh.ID, &sh.OrderID, &sh.Courier, &sh.TrackingNumber, &sh.TrackingURL, &sh.ShippedAt); err != nil {
			return nil, err
		}
		out = append(out, sh)
	}
	return out, rows.Err()
}

func (s *PostgresStorage) HasShipment(ctx context.Context, orderID int64) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM shipments WHERE order_id = $1)`
	var has bool
	err := s.db.QueryRowContext(ctx, q, orderID).Scan(&has)
	return has, err
}

func (s *PostgresStorage) FindCourier(ctx context.Context, name string) (*shipment.Courier, error) {
	const q = `SELECT name, url_template FROM couriers WHERE name = $1`
	var c shipment.Courier
	if err := s.db.QueryRowContext(ctx, q, name).Scan(&c.Name, &c.URLTemplate); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *PostgresStorage) SaveCourier(ctx context.Context, c *shipment.Courier) error {
	q := `
        INSERT INTO couriers (name, url_template) VALUES ($1,$2)
        ON CONFLICT (name) DO UPDATE SET url_template = EXCLUDED.url_template`
	_, err := s.db.ExecContext(ctx, q, c.Name, c.URLTemplate)
	return err
}

func (s *PostgresStorage) UpsertEmailRecord(ctx context.Context, orderID int64, emailType notification.EmailType) (*notification.EmailRecord, error) {
	q := `
        INSERT INTO order_emails (order_id, email_type, status, sent_at)
        VALUES ($1,$2,$3,NULL)
        ON CONFLICT (order_id, email_type) DO UPDATE SET status = $3, sent_at = NULL
        RETURNING id`
	rec := &notification.EmailRecord{
		OrderID: orderID,
		Type:    emailType,
		Status:  notification.EmailStatusPending,
	}
	if err := s.db.QueryRowContext(ctx, q, orderID, emailType, notification.EmailStatusPending).Scan(&rec.ID); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *PostgresStorage) MarkEmailSent(ctx context.Context, orderID int64, emailType notification.EmailType, sentAt time.Time) error {
	q := `
        UPDATE order_emails SET status = $1, sent_at = $2
        WHERE order_id = $3 AND email_type = $4`
	_, err := s.db.ExecContext(ctx, q, notification.EmailStatusSent, sentAt, orderID, emailType)
	return err
}

func (s *PostgresStorage) ListEmailRecordsByOrder(ctx context.Context, orderID int64) ([]notification.EmailRecord, error) {
	const q = `
        SELECT id, order_id, email_type, status, sent_at
        FROM order_emails WHERE order_id = $1 ORDER BY email_type`
	rows, err := s.db.QueryContext(ctx, q, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []notification.EmailRecord
	for rows.Next() {
		var rec notification.EmailRecord
		var sentAt sql.NullTime
		if err := rows.Scan(&rec.ID, &rec.OrderID, &rec.Type, &rec.Status, &sentAt); err != nil {
			return nil, err
		}
		if sentAt.Valid {
			t := sentAt.Time
			rec.SentAt = &t
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
