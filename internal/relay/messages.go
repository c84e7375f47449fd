package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"food-delivery/internal/models"

	"github.com/shopspring/decimal"
)

// Message types on the wire
const (
	TypeDeliveryUpdate   = "delivery_update"
	TypeRiderLocation    = "rider_location"
	TypeOrderStatus      = "order_status"
	TypeNotification     = "notification"
	TypePong             = "pong"
	TypeLocationReceived = "location_received"
	TypeConnection       = "connection"
	TypeActiveDeliveries = "active_deliveries"
	TypeError            = "error"

	TypePing                = "ping"
	TypeLocationUpdate      = "location_update"
	TypeGetActiveDeliveries = "get_active_deliveries"
)

// ErrUnknownMessageType is returned for a frame whose "type" has no decoder
var ErrUnknownMessageType = errors.New("unknown message type")

// Outbound is any message sent to observers
type Outbound interface {
	MessageType() string
}

// DeliveryUpdate reports a status change to observers of one order
type DeliveryUpdate struct {
	OrderID     int64              `json:"order_id"`
	Status      models.OrderStatus `json:"status"`
	Description string             `json:"description"`
	Latitude    *decimal.Decimal   `json:"latitude,omitempty"`
	Longitude   *decimal.Decimal   `json:"longitude,omitempty"`
	Timestamp   time.Time          `json:"timestamp"`
}

// RiderLocationUpdate is a rider GPS sample
type RiderLocationUpdate struct {
	RiderID   int64           `json:"rider_id"`
	OrderID   *int64          `json:"order_id,omitempty"`
	Latitude  decimal.Decimal `json:"latitude"`
	Longitude decimal.Decimal `json:"longitude"`
	Accuracy  float64         `json:"accuracy"`
	Speed     float64         `json:"speed"`
	Heading   float64         `json:"heading"`
	Timestamp time.Time       `json:"timestamp"`
}

// OrderStatusUpdate tells the admin room an order moved
type OrderStatusUpdate struct {
	OrderID     int64              `json:"order_id"`
	OrderNumber string             `json:"order_number"`
	Status      models.OrderStatus `json:"status"`
	RiderID     *int64             `json:"rider_id,omitempty"`
	Timestamp   time.Time          `json:"timestamp"`
}

// Notification is a user-facing alert sent to one account
type Notification struct {
	NotificationType string    `json:"notification_type"`
	Title            string    `json:"title"`
	Message          string    `json:"message"`
	OrderID          *int64    `json:"order_id,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
}

// Pong echoes the client's ping timestamp
type Pong struct {
	Timestamp json.RawMessage `json:"timestamp,omitempty"`
}

// LocationReceived acknowledges a stored rider sample
type LocationReceived struct {
	Timestamp time.Time `json:"timestamp"`
}

// Connected acknowledges a new subscription
type Connected struct {
	Topic   Topic  `json:"topic"`
	Message string `json:"message"`
}

// ActiveDeliveries lists a rider's open orders
type ActiveDeliveries struct {
	Deliveries []models.ActiveDelivery `json:"deliveries"`
}

// ErrorMessage reports a rejected client frame
type ErrorMessage struct {
	Message string `json:"message"`
}

func (DeliveryUpdate) MessageType() string      { return TypeDeliveryUpdate }
func (RiderLocationUpdate) MessageType() string { return TypeRiderLocation }
func (OrderStatusUpdate) MessageType() string   { return TypeOrderStatus }
func (Notification) MessageType() string        { return TypeNotification }
func (Pong) MessageType() string                { return TypePong }
func (LocationReceived) MessageType() string    { return TypeLocationReceived }
func (Connected) MessageType() string           { return TypeConnection }
func (ActiveDeliveries) MessageType() string    { return TypeActiveDeliveries }
func (ErrorMessage) MessageType() string        { return TypeError }

// Encode renders m as a JSON object whose first field is "type"
func Encode(m Outbound) ([]byte, error) {
	body, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	body = bytes.TrimSpace(body)
	if len(body) < 2 || body[0] != '{' {
		return nil, fmt.Errorf("message %s is not an object", m.MessageType())
	}

	typ, _ := json.Marshal(m.MessageType())

	var buf bytes.Buffer
	buf.Grow(len(body) + len(typ) + 10)
	buf.WriteString(`{"type":`)
	buf.Write(typ)
	if len(body) > 2 {
		buf.WriteByte(',')
		buf.Write(body[1:])
	} else {
		buf.WriteByte('}')
	}
	return buf.Bytes(), nil
}

// Inbound is a message received from a client. The set is closed: every
// variant dispatches to one method of InboundHandler.
type Inbound interface {
	dispatch(ctx context.Context, h InboundHandler) (Outbound, error)
}

// InboundHandler reacts to each inbound variant. A nil Outbound means no reply.
type InboundHandler interface {
	OnPing(ctx context.Context, m Ping) (Outbound, error)
	OnLocationUpdate(ctx context.Context, m LocationUpdate) (Outbound, error)
	OnActiveDeliveriesRequest(ctx context.Context, m ActiveDeliveriesRequest) (Outbound, error)
}

// Ping asks for a Pong carrying the same timestamp
type Ping struct {
	Timestamp json.RawMessage `json:"timestamp,omitempty"`
}

// LocationUpdate is a rider's GPS ping. Coordinates missing from the frame
// stay nil.
type LocationUpdate struct {
	OrderID   *int64           `json:"order_id,omitempty"`
	Latitude  *decimal.Decimal `json:"latitude"`
	Longitude *decimal.Decimal `json:"longitude"`
	Accuracy  float64          `json:"accuracy"`
	Speed     float64          `json:"speed"`
	Heading   float64          `json:"heading"`
}

// ActiveDeliveriesRequest asks for the rider's open orders
type ActiveDeliveriesRequest struct{}

func (m Ping) dispatch(ctx context.Context, h InboundHandler) (Outbound, error) {
	return h.OnPing(ctx, m)
}

func (m LocationUpdate) dispatch(ctx context.Context, h InboundHandler) (Outbound, error) {
	return h.OnLocationUpdate(ctx, m)
}

func (m ActiveDeliveriesRequest) dispatch(ctx context.Context, h InboundHandler) (Outbound, error) {
	return h.OnActiveDeliveriesRequest(ctx, m)
}

func decodeAs[T Inbound](data []byte) (Inbound, error) {
	var m T
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

var inboundDecoders = map[string]func([]byte) (Inbound, error){
	TypePing:                decodeAs[Ping],
	TypeLocationUpdate:      decodeAs[LocationUpdate],
	TypeGetActiveDeliveries: decodeAs[ActiveDeliveriesRequest],
}

// DecodeInbound parses a client frame by its "type" field
func DecodeInbound(data []byte) (Inbound, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("invalid message: %w", err)
	}

	decode, ok := inboundDecoders[envelope.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessageType, envelope.Type)
	}

	m, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("invalid %s message: %w", envelope.Type, err)
	}
	return m, nil
}

// Dispatch routes m to the matching handler method
func Dispatch(ctx context.Context, h InboundHandler, m Inbound) (Outbound, error) {
	return m.dispatch(ctx, h)
}

// ErrUnsupported is returned by BaseHandler for messages a socket does not accept
var ErrUnsupported = errors.New("message not supported on this connection")

// BaseHandler answers pings and rejects everything else. Socket handlers
// embed it and override what they accept.
type BaseHandler struct{}

// OnPing echoes the ping timestamp
func (BaseHandler) OnPing(_ context.Context, m Ping) (Outbound, error) {
	return Pong{Timestamp: m.Timestamp}, nil
}

// OnLocationUpdate rejects the sample with ErrUnsupported
func (BaseHandler) OnLocationUpdate(context.Context, LocationUpdate) (Outbound, error) {
	return nil, ErrUnsupported
}

// OnActiveDeliveriesRequest rejects the request with ErrUnsupported
func (BaseHandler) OnActiveDeliveriesRequest(context.Context, ActiveDeliveriesRequest) (Outbound, error) {
	return nil, ErrUnsupported
}
