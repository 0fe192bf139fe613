package shipment

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/labelforge/orderdesk/internal/types/shipment"
)

const trackingPlaceholder = "{tracking_number}"

var (
	ErrMissingTracking = errors.New("courier and tracking number are required")
	ErrNoTrackingURL   = errors.New("tracking URL could not be resolved")
	ErrOrderNotFound   = errors.New("order not found")
)

type Service struct {
	shipments ShipmentRepository
	couriers  CourierRepository
	orders    OrderFinder
}

func NewService(shipments ShipmentRepository, couriers CourierRepository, orders OrderFinder) *Service {
	return &Service{shipments: shipments, couriers: couriers, orders: orders}
}

// CreateShipment records a shipping event. The tracking URL comes from the
// caller or from the courier's stored template; an unknown courier learns
// its template from the supplied URL and is persisted for reuse.
func (s *Service) CreateShipment(ctx context.Context, orderID int64, courier, trackingNumber, trackingURL string) (*shipment.Shipment, error) {
	courier = strings.TrimSpace(courier)
	trackingNumber = strings.TrimSpace(trackingNumber)
	trackingURL = strings.TrimSpace(trackingURL)
	if courier == "" || trackingNumber == "" {
		return nil, ErrMissingTracking
	}

	if _, err := s.orders.FindOrderByID(ctx, orderID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	url, err := s.resolveTrackingURL(ctx, courier, trackingNumber, trackingURL)
	if err != nil {
		return nil, err
	}

	sh := &shipment.Shipment{
		OrderID:        orderID,
		Courier:        courier,
		TrackingNumber: trackingNumber,
		TrackingURL:    url,
		ShippedAt:      time.Now().UTC(),
	}
	if err := s.shipments.CreateShipment(ctx, sh); err != nil {
		return nil, err
	}
	return sh, nil
}

func (s *Service) resolveTrackingURL(ctx context.Context, courier, trackingNumber, suppliedURL string) (string, error) {
	known, err := s.couriers.FindCourier(ctx, strings.ToLower(courier))
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return "", err
	}

	if suppliedURL != "" {
		// Учимся на присланном URL: вырезаем номер и запоминаем шаблон.
		if known == nil && strings.Contains(suppliedURL, trackingNumber) {
			template := strings.Replace(suppliedURL, trackingNumber, trackingPlaceholder, 1)
			c := &shipment.Courier{Name: strings.ToLower(courier), URLTemplate: template}
			if err := s.couriers.SaveCourier(ctx, c); err != nil {
				return "", err
			}
		}
		return suppliedURL, nil
	}

	if known != nil && known.URLTemplate != "" {
		return strings.Replace(known.URLTemplate, trackingPlaceholder, trackingNumber, 1), nil
	}
	return "", ErrNoTrackingURL
}

func (s *Service) HasShipment(ctx context.Context, orderID int64) (bool, error) {
	return s.shipments.HasShipment(ctx, orderID)
}

func (s *Service) ListShipments(ctx context.Context, orderID int64) ([]shipment.Shipment, error) {
	return s.shipments.ListShipmentsByOrder(ctx, orderID)
}
