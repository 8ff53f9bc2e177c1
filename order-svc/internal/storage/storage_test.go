package storage

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zestro/domain"
	"zestro/lifecycle"
	"zestro/order-svc/internal/service"
)

func setupTestDB(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mockDB.Close()
	})
	return NewPostgresRepository(mockDB), mock
}

var testTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestCreateOrder(t *testing.T) {
	repo, mock := setupTestDB(t)
	order := &domain.Order{
		ID:           "o1",
		RestaurantID: "rest-1",
		CustomerID:   "cust-1",
		Status:       domain.StatusPlaced,
		Total:        decimal.RequireFromString("150.5"),
		CreatedAt:    testTime,
		UpdatedAt:    testTime,
		Items: []domain.OrderItem{
			{MenuItemID: "m1", Name: "Thali", Quantity: 1, Price: decimal.NewFromInt(100)},
			{MenuItemID: "m2", Name: "Lassi", Quantity: 1, Price: decimal.RequireFromString("50.5")},
		},
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO orders").
		WithArgs("o1", "rest-1", "cust-1", nil, sqlmock.AnyArg(), "PLACED", testTime, testTime).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO order_items").
		WithArgs("o1", 0, "m1", "Thali", 1, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO order_items").
		WithArgs("o1", 1, "m2", "Lassi", 1, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.CreateOrder(context.Background(), order))
}

func TestCreateOrder_RollsBackOnItemFailure(t *testing.T) {
	repo, mock := setupTestDB(t)
	order := &domain.Order{
		ID:     "o1",
		Status: domain.StatusPlaced,
		Items:  []domain.OrderItem{{MenuItemID: "m1", Quantity: 1}},
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO orders").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO order_items").WillReturnError(assert.AnError)
	mock.ExpectRollback()

	assert.ErrorIs(t, repo.CreateOrder(context.Background(), order), assert.AnError)
}

func TestGetOrder(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(mock sqlmock.Sqlmock)
		wantErr error
	}{
		{
			name: "with items",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT id, restaurant_id, customer_id, COALESCE\\(rider_id, ''\\)").
					WithArgs("o1").
					WillReturnRows(sqlmock.NewRows([]string{"id", "restaurant_id", "customer_id", "rider_id", "total", "status", "created_at", "updated_at"}).
						AddRow("o1", "rest-1", "cust-1", "", "120", "READY", testTime, testTime))
				mock.ExpectQuery("SELECT order_id, menu_item_id").
					WithArgs(sqlmock.AnyArg()).
					WillReturnRows(sqlmock.NewRows([]string{"order_id", "menu_item_id", "name", "quantity", "price"}).
						AddRow("o1", "m1", "Thali", 1, "100").
						AddRow("o1", "m3", "Papad", 1, "20"))
			},
		},
		{
			name: "missing order",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT id, restaurant_id").
					WithArgs("o1").
					WillReturnRows(sqlmock.NewRows([]string{"id"}))
			},
			wantErr: lifecycle.ErrNotFound,
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			repo, mock := setupTestDB(t)
			testCase.setup(mock)

			order, err := repo.GetOrder(context.Background(), "o1")

			if testCase.wantErr != nil {
				assert.ErrorIs(t, err, testCase.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, domain.StatusReady, order.Status)
			assert.False(t, order.Assigned())
			require.Len(t, order.Items, 2)
			assert.Equal(t, "Papad", order.Items[1].Name)
			assert.True(t, order.Total.Equal(decimal.NewFromInt(120)))
		})
	}
}

func TestListOrders_AvailableFilter(t *testing.T) {
	repo, mock := setupTestDB(t)

	mock.ExpectQuery("FROM orders WHERE rider_id IS NULL AND status = ANY\\(\\$1\\) ORDER BY created_at DESC").
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "restaurant_id", "customer_id", "rider_id", "total", "status", "created_at", "updated_at"}))

	orders, err := repo.ListOrders(context.Background(), service.OrderFilter{
		Unassigned: true,
		Statuses:   lifecycle.ClaimableStatuses(),
	})

	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestListOrders_CustomerFilter(t *testing.T) {
	repo, mock := setupTestDB(t)

	mock.ExpectQuery("FROM orders WHERE customer_id = \\$1 ORDER BY").
		WithArgs("cust-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "restaurant_id", "customer_id", "rider_id", "total", "status", "created_at", "updated_at"}).
			AddRow("o2", "rest-1", "cust-1", "rider-1", "50", "PICKED", testTime, testTime).
			AddRow("o1", "rest-1", "cust-1", "", "20", "PLACED", testTime, testTime))
	mock.ExpectQuery("SELECT order_id, menu_item_id").
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"order_id", "menu_item_id", "name", "quantity", "price"}).
			AddRow("o1", "m3", "Papad", 1, "20"))

	orders, err := repo.ListOrders(context.Background(), service.OrderFilter{CustomerID: "cust-1"})

	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "rider-1", orders[0].RiderID)
	assert.Empty(t, orders[0].Items)
	assert.Len(t, orders[1].Items, 1)
}

func TestUpdateStatus(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
	}{
		{name: "applied", affected: 1},
		{name: "lost the race", affected: 0},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			repo, mock := setupTestDB(t)
			mock.ExpectExec("UPDATE orders SET status = \\$1, updated_at = \\$2 WHERE id = \\$3 AND status = \\$4").
				WithArgs("ACCEPTED", testTime, "o1", "PLACED").
				WillReturnResult(sqlmock.NewResult(0, testCase.affected))

			rows, err := repo.UpdateStatus(context.Background(), "o1", domain.StatusPlaced, domain.StatusAccepted, testTime)

			require.NoError(t, err)
			assert.Equal(t, testCase.affected, rows)
		})
	}
}

func TestAssignRider(t *testing.T) {
	repo, mock := setupTestDB(t)
	mock.ExpectExec("UPDATE orders SET rider_id = \\$1").
		WithArgs("rider-1", testTime, "o1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rows, err := repo.AssignRider(context.Background(), "o1", "rider-1", testTime)

	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	repo, mock := setupTestDB(t)
	mock.ExpectExec("INSERT INTO users").
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.CreateUser(context.Background(), &domain.Identity{ID: "u1", Email: "a@b.c", Role: domain.RoleCustomer}, "hash")

	assert.ErrorIs(t, err, service.ErrEmailTaken)
}

func TestGetUserByEmail(t *testing.T) {
	repo, mock := setupTestDB(t)
	mock.ExpectQuery("SELECT id, name, email, phone, role, password_hash, created_at").
		WithArgs("a@b.c").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "phone", "role", "password_hash", "created_at"}).
			AddRow("u1", "Asha", "a@b.c", "", "Rider", "hash", testTime))

	user, hash, err := repo.GetUserByEmail(context.Background(), "a@b.c")

	require.NoError(t, err)
	assert.Equal(t, domain.RoleRider, user.Role)
	assert.Equal(t, "hash", hash)
}

func TestMarkRead_NotFound(t *testing.T) {
	repo, mock := setupTestDB(t)
	mock.ExpectQuery("UPDATE notifications SET read = TRUE WHERE id = \\$1 AND user_id = \\$2 RETURNING").
		WithArgs("n1", "u1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.MarkRead(context.Background(), "u1", "n1")

	assert.ErrorIs(t, err, lifecycle.ErrNotFound)
}

func TestMarkAllRead(t *testing.T) {
	repo, mock := setupTestDB(t)
	mock.ExpectExec("UPDATE notifications SET read = TRUE WHERE user_id = \\$1 AND read = FALSE").
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := repo.MarkAllRead(context.Background(), "u1")

	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return w.err
}

func TestKafkaPublisher_Publish(t *testing.T) {
	writer := &fakeWriter{}
	publisher := NewKafkaPublisher(writer)

	err := publisher.Publish(context.Background(),
		domain.Event{Type: domain.EventStatusChanged, OrderID: "o1", Status: domain.StatusAccepted},
		domain.Event{Type: domain.EventAssignmentChanged, OrderID: "o1", Status: domain.StatusAccepted},
	)

	require.NoError(t, err)
	require.Len(t, writer.msgs, 2)
	for _, msg := range writer.msgs {
		assert.Equal(t, "o1", string(msg.Key))
	}
	assert.Equal(t, string(domain.EventAssignmentChanged), string(writer.msgs[1].Headers[0].Value))

	var decoded domain.Event
	require.NoError(t, json.Unmarshal(writer.msgs[0].Value, &decoded))
	assert.Equal(t, domain.EventStatusChanged, decoded.Type)
	assert.Equal(t, domain.StatusAccepted, decoded.Status)
}

func TestKafkaPublisher_NoEvents(t *testing.T) {
	writer := &fakeWriter{err: assert.AnError}
	assert.NoError(t, NewKafkaPublisher(writer).Publish(context.Background()))
	assert.Empty(t, writer.msgs)
}
