package shipment

import (
	"context"

	"github.com/labelforge/orderdesk/internal/types/order"
	"github.com/labelforge/orderdesk/internal/types/shipment"
)

type ShipmentRepository interface {
	CreateShipment(ctx context.Context, s *shipment.Shipment) error
	ListShipmentsByOrder(ctx context.Context, orderID int64) ([]shipment.Shipment, error)
	HasShipment(ctx context.Context, orderID int64) (bool, error)
}

type OrderFinder interface {
	FindOrderByID(ctx context.Context, id int64) (*order.Order, error)
}

type CourierRepository interface {
	FindCourier(ctx context.Context, name string) (*shipment.Courier, error)
	SaveCourier(ctx context.Context, c *shipment.Courier) error
}
