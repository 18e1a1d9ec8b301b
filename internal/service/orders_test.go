package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/safar/framely/internal/auth"
	"github.com/safar/framely/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("prices the cart from the catalog", func(t *testing.T) {
		mem := newMemStore()
		frames := mem.addProduct("Aviator", "500.00")
		lenses := mem.addProduct("Progressive Lens", "1200.00")
		svc := NewOrderService(mem)

		order, err := svc.Create(ctx, user("u-1"), CreateOrderInput{
			Items: []OrderLineInput{
				{ProductID: frames.ID, Quantity: 2},
				{ProductID: lenses.ID, Quantity: 1},
			},
		})
		require.NoError(t, err)

		assert.Equal(t, "2200.00", order.TotalAmount.StringFixed(2))
		assert.Equal(t, models.OrderStatusPending, order.Status)
		assert.Equal(t, "u-1", order.UserID)
		require.Len(t, order.Items, 2)
		assert.Equal(t, "500.00", order.Items[0].UnitPrice.StringFixed(2))
	})

	t.Run("empty cart", func(t *testing.T) {
		mem := newMemStore()
		svc := NewOrderService(mem)

		_, err := svc.Create(ctx, user("u-1"), CreateOrderInput{})
		assert.ErrorIs(t, err, ErrValidation)
		assert.Empty(t, mem.orders)
	})

	t.Run("invalid lines are itemized", func(t *testing.T) {
		mem := newMemStore()
		p := mem.addProduct("Aviator", "10.00")
		svc := NewOrderService(mem)

		_, err := svc.Create(ctx, user("u-1"), CreateOrderInput{
			Items: []OrderLineInput{
				{ProductID: p.ID, Quantity: 0},
				{ProductID: 0, Quantity: -1},
			},
		})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Len(t, verr.Violations, 3)
		assert.Empty(t, mem.orders)
	})

	t.Run("quantity beyond the column range", func(t *testing.T) {
		mem := newMemStore()
		p := mem.addProduct("Aviator", "10.00")
		svc := NewOrderService(mem)
		over := int64(math.MaxInt32) + 1

		_, err := svc.Create(ctx, user("u-1"), CreateOrderInput{
			Items: []OrderLineInput{{ProductID: p.ID, Quantity: int(over)}},
		})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, []string{"items[0]: quantity must not exceed 2147483647"}, verr.Violations)
		assert.Empty(t, mem.orders)
	})

	t.Run("total beyond the money range", func(t *testing.T) {
		mem := newMemStore()
		p := mem.addProduct("Gold Frame", "9999999999999.99")
		svc := NewOrderService(mem)

		_, err := svc.Create(ctx, user("u-1"), CreateOrderInput{
			Items: []OrderLineInput{{ProductID: p.ID, Quantity: 1000}},
		})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, []string{"order amounts exceed the maximum storable value"}, verr.Violations)
		assert.Empty(t, mem.orders)
	})

	t.Run("unknown product persists nothing", func(t *testing.T) {
		mem := newMemStore()
		p := mem.addProduct("Aviator", "10.00")
		svc := NewOrderService(mem)

		_, err := svc.Create(ctx, user("u-1"), CreateOrderInput{
			Items: []OrderLineInput{
				{ProductID: p.ID, Quantity: 1},
				{ProductID: 404, Quantity: 1},
			},
		})
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Contains(t, err.Error(), "404")
		assert.Empty(t, mem.orders)
	})

	t.Run("anonymous caller", func(t *testing.T) {
		mem := newMemStore()
		p := mem.addProduct("Aviator", "10.00")
		svc := NewOrderService(mem)

		_, err := svc.Create(ctx, nil, CreateOrderInput{Items: []OrderLineInput{{ProductID: p.ID, Quantity: 1}}})
		assert.ErrorIs(t, err, ErrUnauthorized)
		assert.Empty(t, mem.orders)
	})
}

func TestSnapshotPricingSurvivesCatalogChange(t *testing.T) {
	ctx := context.Background()
	mem := newMemStore()
	p := mem.addProduct("Aviator", "500.00")
	svc := NewOrderService(mem)

	order, err := svc.Create(ctx, user("u-1"), CreateOrderInput{Items: []OrderLineInput{{ProductID: p.ID, Quantity: 2}}})
	require.NoError(t, err)

	p.Price = p.Price.Mul(p.Price)
	require.NoError(t, mem.UpdateProduct(ctx, &p))

	fetched, err := svc.Get(ctx, user("u-1"), order.ID)
	require.NoError(t, err)
	assert.Equal(t, "1000.00", fetched.TotalAmount.StringFixed(2))
	assert.Equal(t, "500.00", fetched.Items[0].UnitPrice.StringFixed(2))
}

func TestGetOrderAuthorization(t *testing.T) {
	ctx := context.Background()
	mem := newMemStore()
	order := mem.addOrder("owner", models.OrderStatusPending)
	svc := NewOrderService(mem)

	got, err := svc.Get(ctx, user("owner"), order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)

	got, err = svc.Get(ctx, admin(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)

	got, err = svc.Get(ctx, user("stranger"), order.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Nil(t, got)

	_, err = svc.Get(ctx, user("owner"), 999)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Get(ctx, nil, order.ID)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestCancelOrDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("owner cancels pending order once", func(t *testing.T) {
		mem := newMemStore()
		order := mem.addOrder("owner", models.OrderStatusPending)
		svc := NewOrderService(mem)

		outcome, err := svc.CancelOrDelete(ctx, user("owner"), order.ID)
		require.NoError(t, err)
		assert.Equal(t, OrderCancelled, outcome)
		assert.Equal(t, models.OrderStatusCancelled, mem.status(order.ID))

		_, err = svc.CancelOrDelete(ctx, user("owner"), order.ID)
		assert.ErrorIs(t, err, ErrInvalidState)
		assert.Equal(t, "cannot cancel a non-pending order", err.Error())
		assert.Equal(t, models.OrderStatusCancelled, mem.status(order.ID))
	})

	t.Run("owner cannot cancel past pending", func(t *testing.T) {
		for _, status := range []models.OrderStatus{
			models.OrderStatusProcessing,
			models.OrderStatusCompleted,
			models.OrderStatusCancelled,
		} {
			mem := newMemStore()
			order := mem.addOrder("owner", status)
			svc := NewOrderService(mem)

			_, err := svc.CancelOrDelete(ctx, user("owner"), order.ID)
			assert.ErrorIs(t, err, ErrInvalidState, status)
			assert.Equal(t, status, mem.status(order.ID))
		}
	})

	t.Run("admin deletes in any status", func(t *testing.T) {
		mem := newMemStore()
		order := mem.addOrder("owner", models.OrderStatusCompleted)
		svc := NewOrderService(mem)

		outcome, err := svc.CancelOrDelete(ctx, admin(), order.ID)
		require.NoError(t, err)
		assert.Equal(t, OrderDeleted, outcome)
		assert.NotContains(t, mem.orders, order.ID)
	})

	t.Run("stranger is forbidden before state is checked", func(t *testing.T) {
		mem := newMemStore()
		order := mem.addOrder("owner", models.OrderStatusCompleted)
		svc := NewOrderService(mem)

		_, err := svc.CancelOrDelete(ctx, user("stranger"), order.ID)
		assert.ErrorIs(t, err, ErrForbidden)
		assert.Equal(t, models.OrderStatusCompleted, mem.status(order.ID))
	})

	t.Run("missing order", func(t *testing.T) {
		svc := NewOrderService(newMemStore())
		_, err := svc.CancelOrDelete(ctx, user("owner"), 42)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestUpdateStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("admin may move between any statuses", func(t *testing.T) {
		mem := newMemStore()
		order := mem.addOrder("owner", models.OrderStatusPending)
		svc := NewOrderService(mem)

		for _, from := range models.OrderStatuses() {
			for _, to := range models.OrderStatuses() {
				require.NoError(t, mem.UpdateOrderStatus(ctx, order.ID, from))
				require.NoError(t, svc.UpdateStatus(ctx, admin(), order.ID, string(to)), "%s -> %s", from, to)
				assert.Equal(t, to, mem.status(order.ID))
			}
		}
	})

	t.Run("rejects values outside the enumeration", func(t *testing.T) {
		mem := newMemStore()
		order := mem.addOrder("owner", models.OrderStatusProcessing)
		svc := NewOrderService(mem)

		for _, raw := range []string{"Shipped", "pending", "", "COMPLETED"} {
			err := svc.UpdateStatus(ctx, admin(), order.ID, raw)
			assert.ErrorIs(t, err, ErrValidation, raw)
			assert.Equal(t, models.OrderStatusProcessing, mem.status(order.ID))
		}
	})

	t.Run("owner is forbidden", func(t *testing.T) {
		mem := newMemStore()
		order := mem.addOrder("owner", models.OrderStatusPending)
		svc := NewOrderService(mem)

		err := svc.UpdateStatus(ctx, user("owner"), order.ID, "Completed")
		assert.ErrorIs(t, err, ErrForbidden)
		assert.Equal(t, models.OrderStatusPending, mem.status(order.ID))
	})

	t.Run("missing order", func(t *testing.T) {
		svc := NewOrderService(newMemStore())
		err := svc.UpdateStatus(ctx, admin(), 42, "Completed")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestMutationsRequireCanAct(t *testing.T) {
	ctx := context.Background()
	callers := []*auth.Caller{nil, admin(), user("owner"), user("stranger"), {Role: models.RoleAdmin}}

	for i, caller := range callers {
		mem := newMemStore()
		order := mem.addOrder("owner", models.OrderStatusPending)
		svc := NewOrderService(mem)

		_, err := svc.CancelOrDelete(ctx, caller, order.ID)
		if CanAct(caller, order.UserID) {
			assert.NoError(t, err, "caller %d", i)
			continue
		}
		assert.True(t, errors.Is(err, ErrForbidden) || errors.Is(err, ErrUnauthorized), "caller %d: %v", i, err)
		assert.Equal(t, models.OrderStatusPending, mem.status(order.ID), "caller %d", i)
	}
}

func TestListOrders(t *testing.T) {
	ctx := context.Background()
	mem := newMemStore()
	for i := 0; i < 7; i++ {
		status := models.OrderStatusPending
		if i%3 == 0 {
			status = models.OrderStatusCompleted
		}
		mem.addOrder(fmt.Sprintf("u-%d", i%2), status)
	}
	svc := NewOrderService(mem)

	t.Run("defaults to newest first", func(t *testing.T) {
		page, err := svc.List(ctx, admin(), ListOrdersQuery{})
		require.NoError(t, err)
		assert.Equal(t, int64(7), page.TotalItems)
		assert.Equal(t, 1, page.TotalPages)
		assert.Equal(t, 1, page.CurrentPage)
		assert.Equal(t, DefaultPageSize, page.PageSize)
		for i := 1; i < len(page.Data); i++ {
			assert.False(t, page.Data[i].OrderDate.After(page.Data[i-1].OrderDate))
		}
	})

	t.Run("pages concatenate to the full listing", func(t *testing.T) {
		full, err := svc.List(ctx, admin(), ListOrdersQuery{PageSize: 100})
		require.NoError(t, err)

		for size := 1; size <= 8; size++ {
			first, err := svc.List(ctx, admin(), ListOrdersQuery{Page: 1, PageSize: size})
			require.NoError(t, err)
			assert.Equal(t, (7+size-1)/size, first.TotalPages, "size %d", size)

			var ids []int64
			for page := 1; page <= first.TotalPages; page++ {
				res, err := svc.List(ctx, admin(), ListOrdersQuery{Page: page, PageSize: size})
				require.NoError(t, err)
				for _, o := range res.Data {
					ids = append(ids, o.ID)
				}
			}

			var want []int64
			for _, o := range full.Data {
				want = append(want, o.ID)
			}
			assert.Equal(t, want, ids, "size %d", size)
		}
	})

	t.Run("status filter ignores case", func(t *testing.T) {
		page, err := svc.List(ctx, admin(), ListOrdersQuery{Status: "COMPLETED"})
		require.NoError(t, err)
		assert.Equal(t, int64(3), page.TotalItems)
	})

	t.Run("rejects bad query", func(t *testing.T) {
		for _, q := range []ListOrdersQuery{
			{Page: -1},
			{PageSize: -5},
			{PageSize: MaxPageSize + 1},
			{SortBy: "customer"},
			{SortOrder: "sideways"},
			{Status: "Shipped"},
		} {
			_, err := svc.List(ctx, admin(), q)
			assert.ErrorIs(t, err, ErrValidation, "%+v", q)
		}
	})

	t.Run("admin only", func(t *testing.T) {
		_, err := svc.List(ctx, user("u-0"), ListOrdersQuery{})
		assert.ErrorIs(t, err, ErrForbidden)
	})
}

func TestListByUser(t *testing.T) {
	ctx := context.Background()
	mem := newMemStore()
	first := mem.addOrder("u-1", models.OrderStatusPending)
	second := mem.addOrder("u-1", models.OrderStatusCompleted)
	mem.addOrder("u-2", models.OrderStatusPending)
	svc := NewOrderService(mem)

	mine, err := svc.ListMine(ctx, user("u-1"))
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, second.ID, mine[0].ID)
	assert.Equal(t, first.ID, mine[1].ID)

	theirs, err := svc.ListByUser(ctx, admin(), "u-2")
	require.NoError(t, err)
	assert.Len(t, theirs, 1)

	_, err = svc.ListByUser(ctx, user("u-1"), "u-2")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.ListMine(ctx, nil)
	assert.ErrorIs(t, err, ErrUnauthorized)
}
