package models

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"fullName"`
	PhoneNumber  string    `json:"phoneNumber,omitempty"`
	Address      string    `json:"address,omitempty"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

type Category struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type Product struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	Brand        string          `json:"brand,omitempty"`
	Description  string          `json:"description,omitempty"`
	Price        decimal.Decimal `json:"price"`
	ImageURL     string          `json:"imageUrl,omitempty"`
	CategoryID   int64           `json:"categoryId"`
	CategoryName string          `json:"categoryName,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

type Order struct {
	ID           int64           `json:"id"`
	OrderDate    time.Time       `json:"orderDate"`
	UserID       string          `json:"userId"`
	CustomerName string          `json:"customerName,omitempty"`
	Email        string          `json:"email,omitempty"`
	MobileNumber string          `json:"mobileNumber,omitempty"`
	Address      string          `json:"address,omitempty"`
	TotalAmount  decimal.Decimal `json:"totalAmount"`
	Status       OrderStatus     `json:"status"`
	Items        []OrderItem     `json:"items"`
}

// OrderItem is immutable once written. UnitPrice is the catalog price at the
// moment the order was placed.
type OrderItem struct {
	ID          int64           `json:"id"`
	OrderID     int64           `json:"orderId"`
	ProductID   int64           `json:"productId"`
	ProductName string          `json:"productName,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// Money fields go out with exactly two fractional digits, matching the
// NUMERIC(18,2) columns they are read from.

func (p Product) MarshalJSON() ([]byte, error) {
	type product Product
	return json.Marshal(struct {
		product
		Price string `json:"price"`
	}{product(p), p.Price.StringFixed(2)})
}

func (o Order) MarshalJSON() ([]byte, error) {
	type order Order
	return json.Marshal(struct {
		order
		TotalAmount string `json:"totalAmount"`
	}{order(o), o.TotalAmount.StringFixed(2)})
}

func (i OrderItem) MarshalJSON() ([]byte, error) {
	type orderItem OrderItem
	return json.Marshal(struct {
		orderItem
		UnitPrice string `json:"unitPrice"`
		Subtotal  string `json:"subtotal"`
	}{orderItem(i), i.UnitPrice.StringFixed(2), i.Subtotal.StringFixed(2)})
}

// NewOrderItem copies unitPrice onto a new line. The line never refers back
// to the catalog for its price.
func NewOrderItem(productID int64, productName string, quantity int, unitPrice decimal.Decimal) OrderItem {
	return OrderItem{
		ProductID:   productID,
		ProductName: productName,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		Subtotal:    unitPrice.Mul(decimal.NewFromInt(int64(quantity))),
	}
}

// MaxAmount is the first value a NUMERIC(18,2) money column cannot hold.
var MaxAmount = decimal.New(1, 16)

// AmountFits reports whether amount can be stored in a money column.
func AmountFits(amount decimal.Decimal) bool {
	return amount.Abs().LessThan(MaxAmount)
}

// SumItems returns the order total for items.
func SumItems(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal)
	}
	return total
}

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "Pending"
	OrderStatusProcessing OrderStatus = "Processing"
	OrderStatusCompleted  OrderStatus = "Completed"
	OrderStatusCancelled  OrderStatus = "Cancelled"
)

var orderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusProcessing,
	OrderStatusCompleted,
	OrderStatusCancelled,
}

// OrderStatuses returns the valid statuses in lifecycle order.
func OrderStatuses() []OrderStatus {
	out := make([]OrderStatus, len(orderStatuses))
	copy(out, orderStatuses)
	return out
}

// ParseOrderStatus accepts only the exact enumeration spelling.
func ParseOrderStatus(raw string) (OrderStatus, bool) {
	for _, s := range orderStatuses {
		if string(s) == raw {
			return s, true
		}
	}
	return "", false
}

// MatchOrderStatus is the case-insensitive variant used for filtering.
func MatchOrderStatus(raw string) (OrderStatus, bool) {
	raw = strings.TrimSpace(raw)
	for _, s := range orderStatuses {
		if strings.EqualFold(string(s), raw) {
			return s, true
		}
	}
	return "", false
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}
