package tests

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"zestro/domain"
	"zestro/lifecycle"
	"zestro/order-svc/internal/mocks"
	"zestro/order-svc/internal/service"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (p *recordingPublisher) Publish(_ context.Context, events ...domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) types() []domain.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type orderFixture struct {
	orders      *mocks.OrderRepository
	menu        *mocks.MenuRepository
	restaurants *mocks.RestaurantRepository
	notifier    *mocks.Notifier
	qr          *mocks.QRGenerator
	publisher   *recordingPublisher
	svc         *service.OrderService
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newOrderFixture(t *testing.T) *orderFixture {
	f := &orderFixture{
		orders:      mocks.NewOrderRepository(t),
		menu:        mocks.NewMenuRepository(t),
		restaurants: mocks.NewRestaurantRepository(t),
		notifier:    mocks.NewNotifier(t),
		qr:          mocks.NewQRGenerator(t),
		publisher:   &recordingPublisher{},
	}
	f.svc = service.NewOrderService(f.orders, f.menu, f.restaurants, f.notifier, f.publisher, f.qr).
		WithClock(func() time.Time { return fixedNow })
	return f
}

var (
	customer   = lifecycle.Actor{ID: "cust-1", Role: domain.RoleCustomer}
	owner      = lifecycle.Actor{ID: "owner-1", Role: domain.RoleRestaurant}
	rider      = lifecycle.Actor{ID: "rider-1", Role: domain.RoleRider}
	restaurant = &domain.Restaurant{ID: "rest-1", OwnerID: "owner-1", Name: "Spice Route"}
)

func menuFixture() []domain.MenuItem {
	return []domain.MenuItem{
		{ID: "m1", RestaurantID: "rest-1", Name: "Thali", Price: decimal.NewFromInt(100)},
		{ID: "m2", RestaurantID: "rest-1", Name: "Lassi", Price: decimal.RequireFromString("50.50")},
		{ID: "m3", RestaurantID: "rest-1", Name: "Papad", Price: decimal.NewFromInt(20)},
	}
}

func TestOrderService_Create(t *testing.T) {
	f := newOrderFixture(t)

	f.restaurants.On("GetRestaurant", mock.Anything, "rest-1").Return(restaurant, nil).Once()
	f.menu.On("GetMenuItems", mock.Anything, []string{"m1", "m2", "m3"}).Return(menuFixture(), nil).Once()
	f.orders.On("CreateOrder", mock.Anything, mock.AnythingOfType("*domain.Order")).Return(nil).Once()
	f.qr.On("Generate", mock.AnythingOfType("string")).Return([]byte("png"), nil).Once()
	f.orders.On("SaveQRCode", mock.Anything, mock.AnythingOfType("string"), []byte("png")).Return(nil).Once()
	f.notifier.On("Notify", mock.Anything, "owner-1", mock.AnythingOfType("string"), mock.AnythingOfType("string")).Return(nil).Once()

	order, err := f.svc.Create(context.Background(), customer, service.CreateOrderRequest{
		RestaurantID: "rest-1",
		Items: []service.OrderLine{
			{MenuItemID: "m1", Quantity: 2},
			{MenuItemID: "m2", Quantity: 1},
			{MenuItemID: "m3", Quantity: 3},
		},
	})

	require.NoError(t, err)
	assert.True(t, order.Total.Equal(decimal.RequireFromString("310.5")), order.Total.String())
	assert.Equal(t, domain.StatusPlaced, order.Status)
	assert.Equal(t, "cust-1", order.CustomerID)
	assert.Equal(t, fixedNow, order.CreatedAt)
	assert.Equal(t, "Lassi", order.Items[1].Name)

	require.Len(t, f.publisher.events, 1)
	event := f.publisher.events[0]
	assert.Equal(t, domain.EventOrderCreated, event.Type)
	assert.Equal(t, []string{"owner-1"}, event.Recipients)
	assert.Equal(t, order.ID, event.OrderID)
}

func TestOrderService_CreateValidation(t *testing.T) {
	tests := []struct {
		name    string
		actor   lifecycle.Actor
		req     service.CreateOrderRequest
		setup   func(f *orderFixture)
		wantErr error
	}{
		{
			name:    "no items",
			actor:   customer,
			req:     service.CreateOrderRequest{RestaurantID: "rest-1"},
			wantErr: lifecycle.ErrEmptyCart,
		},
		{
			name:    "no restaurant",
			actor:   customer,
			req:     service.CreateOrderRequest{Items: []service.OrderLine{{MenuItemID: "m1", Quantity: 1}}},
			wantErr: lifecycle.ErrMissingRestaurant,
		},
		{
			name:    "rider cannot order",
			actor:   rider,
			req:     service.CreateOrderRequest{RestaurantID: "rest-1", Items: []service.OrderLine{{MenuItemID: "m1", Quantity: 1}}},
			wantErr: lifecycle.ErrUnauthorized,
		},
		{
			name:  "unknown restaurant",
			actor: customer,
			req:   service.CreateOrderRequest{RestaurantID: "nope", Items: []service.OrderLine{{MenuItemID: "m1", Quantity: 1}}},
			setup: func(f *orderFixture) {
				f.restaurants.On("GetRestaurant", mock.Anything, "nope").Return(nil, lifecycle.ErrNotFound).Once()
			},
			wantErr: lifecycle.ErrMissingRestaurant,
		},
		{
			name:  "item from another restaurant",
			actor: customer,
			req:   service.CreateOrderRequest{RestaurantID: "rest-1", Items: []service.OrderLine{{MenuItemID: "x1", Quantity: 1}}},
			setup: func(f *orderFixture) {
				f.restaurants.On("GetRestaurant", mock.Anything, "rest-1").Return(restaurant, nil).Once()
				f.menu.On("GetMenuItems", mock.Anything, []string{"x1"}).
					Return([]domain.MenuItem{{ID: "x1", RestaurantID: "rest-2", Price: decimal.NewFromInt(5)}}, nil).Once()
			},
			wantErr: lifecycle.ErrMissingRestaurant,
		},
		{
			name:  "unknown item",
			actor: customer,
			req:   service.CreateOrderRequest{RestaurantID: "rest-1", Items: []service.OrderLine{{MenuItemID: "ghost", Quantity: 1}}},
			setup: func(f *orderFixture) {
				f.restaurants.On("GetRestaurant", mock.Anything, "rest-1").Return(restaurant, nil).Once()
				f.menu.On("GetMenuItems", mock.Anything, []string{"ghost"}).Return([]domain.MenuItem{}, nil).Once()
			},
			wantErr: lifecycle.ErrNotFound,
		},
		{
			name:  "zero quantity",
			actor: customer,
			req:   service.CreateOrderRequest{RestaurantID: "rest-1", Items: []service.OrderLine{{MenuItemID: "m1", Quantity: 0}}},
			setup: func(f *orderFixture) {
				f.restaurants.On("GetRestaurant", mock.Anything, "rest-1").Return(restaurant, nil).Once()
			},
			wantErr: service.ErrInvalidInput,
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			f := newOrderFixture(t)
			if testCase.setup != nil {
				testCase.setup(f)
			}

			order, err := f.svc.Create(context.Background(), testCase.actor, testCase.req)

			assert.ErrorIs(t, err, testCase.wantErr)
			assert.Nil(t, order)
			assert.Empty(t, f.publisher.events)
		})
	}
}

func TestOrderService_Accept(t *testing.T) {
	f := newOrderFixture(t)
	placed := &domain.Order{ID: "o1", RestaurantID: "rest-1", CustomerID: "cust-1", Status: domain.StatusPlaced}

	f.restaurants.On("GetRestaurantByOwner", mock.Anything, "owner-1").Return(restaurant, nil).Once()
	f.orders.On("GetOrder", mock.Anything, "o1").Return(placed, nil).Once()
	f.orders.On("UpdateStatus", mock.Anything, "o1", domain.StatusPlaced, domain.StatusAccepted, fixedNow).Return(int64(1), nil).Once()
	f.restaurants.On("GetRestaurant", mock.Anything, "rest-1").Return(restaurant, nil).Once()
	f.notifier.On("Notify", mock.Anything, "cust-1", "o1", "Your order #o1 is now ACCEPTED").Return(nil).Once()

	order, err := f.svc.Accept(context.Background(), owner, "o1")

	require.NoError(t, err)
	assert.Equal(t, domain.StatusAccepted, order.Status)
	assert.Equal(t, []domain.EventType{domain.EventStatusChanged, domain.EventAssignmentChanged}, f.publisher.types())
	assert.ElementsMatch(t, []string{"cust-1", "owner-1"}, f.publisher.events[0].Recipients)
	assert.Equal(t, []domain.Role{domain.RoleRider}, f.publisher.events[1].Roles)
	assert.Empty(t, f.publisher.events[1].RiderID)
}

func TestOrderService_UpdateStatusRejected(t *testing.T) {
	tests := []struct {
		name    string
		actor   lifecycle.Actor
		order   domain.Order
		to      domain.Status
		setup   func(f *orderFixture)
		wantErr error
	}{
		{
			name:  "owner of another restaurant",
			actor: owner,
			order: domain.Order{ID: "o1", RestaurantID: "rest-9", Status: domain.StatusPlaced},
			to:    domain.StatusAccepted,
			setup: func(f *orderFixture) {
				f.restaurants.On("GetRestaurantByOwner", mock.Anything, "owner-1").Return(restaurant, nil).Once()
			},
			wantErr: lifecycle.ErrUnauthorized,
		},
		{
			name:  "skip ahead",
			actor: owner,
			order: domain.Order{ID: "o1", RestaurantID: "rest-1", Status: domain.StatusPlaced},
			to:    domain.StatusReady,
			setup: func(f *orderFixture) {
				f.restaurants.On("GetRestaurantByOwner", mock.Anything, "owner-1").Return(restaurant, nil).Once()
			},
			wantErr: lifecycle.ErrInvalidTransition,
		},
		{
			name:    "rider not assigned",
			actor:   rider,
			order:   domain.Order{ID: "o1", RestaurantID: "rest-1", RiderID: "rider-2", Status: domain.StatusReady},
			to:      domain.StatusPicked,
			wantErr: lifecycle.ErrUnauthorized,
		},
		{
			name:  "lost race",
			actor: rider,
			order: domain.Order{ID: "o1", RestaurantID: "rest-1", RiderID: "rider-1", Status: domain.StatusPicked},
			to:    domain.StatusDelivered,
			setup: func(f *orderFixture) {
				f.orders.On("UpdateStatus", mock.Anything, "o1", domain.StatusPicked, domain.StatusDelivered, fixedNow).
					Return(int64(0), nil).Once()
			},
			wantErr: lifecycle.ErrInvalidTransition,
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			f := newOrderFixture(t)
			order := testCase.order
			f.orders.On("GetOrder", mock.Anything, "o1").Return(&order, nil).Once()
			if testCase.setup != nil {
				testCase.setup(f)
			}

			_, err := f.svc.UpdateStatus(context.Background(), testCase.actor, "o1", testCase.to)

			assert.ErrorIs(t, err, testCase.wantErr)
			assert.Empty(t, f.publisher.events)
		})
	}
}

func TestOrderService_Claim(t *testing.T) {
	t.Run("success keeps status", func(t *testing.T) {
		f := newOrderFixture(t)
		ready := &domain.Order{ID: "o1", RestaurantID: "rest-1", CustomerID: "cust-1", Status: domain.StatusReady}
		f.orders.On("GetOrder", mock.Anything, "o1").Return(ready, nil).Once()
		f.orders.On("AssignRider", mock.Anything, "o1", "rider-1", fixedNow).Return(int64(1), nil).Once()
		f.restaurants.On("GetRestaurant", mock.Anything, "rest-1").Return(restaurant, nil).Once()
		f.notifier.On("Notify", mock.Anything, "cust-1", "o1", mock.AnythingOfType("string")).Return(nil).Once()

		order, err := f.svc.Claim(context.Background(), rider, "o1")

		require.NoError(t, err)
		assert.Equal(t, "rider-1", order.RiderID)
		assert.Equal(t, domain.StatusReady, order.Status)
		require.Len(t, f.publisher.events, 1)
		assert.Equal(t, domain.EventAssignmentChanged, f.publisher.events[0].Type)
		assert.Equal(t, "rider-1", f.publisher.events[0].RiderID)
	})

	t.Run("already assigned", func(t *testing.T) {
		f := newOrderFixture(t)
		taken := &domain.Order{ID: "o1", RiderID: "rider-2", Status: domain.StatusPicked}
		f.orders.On("GetOrder", mock.Anything, "o1").Return(taken, nil).Once()

		_, err := f.svc.Claim(context.Background(), rider, "o1")

		assert.ErrorIs(t, err, lifecycle.ErrAlreadyAssigned)
		assert.Equal(t, "order already claimed by another rider", lifecycle.Message(err))
	})

	t.Run("another rider wins the race", func(t *testing.T) {
		f := newOrderFixture(t)
		f.orders.On("GetOrder", mock.Anything, "o1").
			Return(&domain.Order{ID: "o1", Status: domain.StatusReady}, nil).Once()
		f.orders.On("AssignRider", mock.Anything, "o1", "rider-1", fixedNow).Return(int64(0), nil).Once()
		f.orders.On("GetOrder", mock.Anything, "o1").
			Return(&domain.Order{ID: "o1", RiderID: "rider-2", Status: domain.StatusReady}, nil).Once()

		_, err := f.svc.Claim(context.Background(), rider, "o1")

		assert.ErrorIs(t, err, lifecycle.ErrAlreadyAssigned)
		assert.Empty(t, f.publisher.events)
	})
}

func TestOrderService_Lists(t *testing.T) {
	f := newOrderFixture(t)
	f.orders.On("ListOrders", mock.Anything, service.OrderFilter{CustomerID: "cust-1"}).Return([]domain.Order{{ID: "a"}}, nil).Once()
	f.orders.On("ListOrders", mock.Anything, service.OrderFilter{RiderID: "rider-1"}).Return([]domain.Order{{ID: "b"}}, nil).Once()
	f.orders.On("ListOrders", mock.Anything, service.OrderFilter{
		Unassigned: true,
		Statuses:   lifecycle.ClaimableStatuses(),
	}).Return([]domain.Order{{ID: "c"}}, nil).Once()
	f.restaurants.On("GetRestaurantByOwner", mock.Anything, "owner-1").Return(nil, lifecycle.ErrNotFound).Once()

	mine, err := f.svc.ListMine(context.Background(), customer)
	require.NoError(t, err)
	assert.Equal(t, "a", mine[0].ID)

	mine, err = f.svc.ListMine(context.Background(), rider)
	require.NoError(t, err)
	assert.Equal(t, "b", mine[0].ID)

	available, err := f.svc.ListAvailable(context.Background(), rider)
	require.NoError(t, err)
	assert.Equal(t, "c", available[0].ID)

	_, err = f.svc.ListAvailable(context.Background(), customer)
	assert.ErrorIs(t, err, lifecycle.ErrUnauthorized)

	mine, err = f.svc.ListMine(context.Background(), owner)
	require.NoError(t, err)
	assert.Empty(t, mine)
}

func TestOrderService_Get(t *testing.T) {
	order := &domain.Order{ID: "o1", RestaurantID: "rest-1", CustomerID: "cust-1", Status: domain.StatusPlaced}

	f := newOrderFixture(t)
	f.orders.On("GetOrder", mock.Anything, "o1").Return(order, nil)

	got, err := f.svc.Get(context.Background(), customer, "o1")
	require.NoError(t, err)
	assert.Equal(t, "o1", got.ID)

	_, err = f.svc.Get(context.Background(), lifecycle.Actor{ID: "cust-2", Role: domain.RoleCustomer}, "o1")
	assert.ErrorIs(t, err, lifecycle.ErrUnauthorized)

	// a placed order is not yet visible to riders
	_, err = f.svc.Get(context.Background(), rider, "o1")
	assert.ErrorIs(t, err, lifecycle.ErrUnauthorized)
}

func TestOrderService_GetQRCodeRegenerates(t *testing.T) {
	f := newOrderFixture(t)
	f.orders.On("GetQRCode", mock.Anything, "o1").Return([]byte(nil), nil).Once()
	f.qr.On("Generate", "o1").Return([]byte("png"), nil).Once()
	f.orders.On("SaveQRCode", mock.Anything, "o1", []byte("png")).Return(nil).Once()

	qr, err := f.svc.GetQRCode(context.Background(), "o1")

	require.NoError(t, err)
	assert.Equal(t, []byte("png"), qr)
	assert.Equal(t, "/api/orders/o1/qrcode", f.svc.QRLink("o1"))
}
