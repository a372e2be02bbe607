package repository

import (
	"context"
	"database/sql"
	"log"
	"testing"
	"time"

	"cake-haven/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	_ "github.com/jackc/pgx/v5/stdlib"
)

var testDB *sql.DB

func setupTestDB() (func(context.Context, ...testcontainers.TerminateOption) error, error) {
	var (
		dbName = "testdb"
		dbPwd  = "password"
		dbUser = "user"
	)

	dbContainer, err := postgres.Run(
		context.Background(),
		"postgres:15",
		postgres.WithDatabase(dbName),
		postgres.WithUsername(dbUser),
		postgres.WithPassword(dbPwd),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second)),
	)
	if err != nil {
		return nil, err
	}

	dbHost, err := dbContainer.Host(context.Background())
	if err != nil {
		return dbContainer.Terminate, err
	}

	dbPort, err := dbContainer.MappedPort(context.Background(), "5432/tcp")
	if err != nil {
		return dbContainer.Terminate, err
	}

	connStr := "postgres://" + dbUser + ":" + dbPwd + "@" + dbHost + ":" + dbPort.Port() + "/" + dbName + "?sslmode=disable"
	testDB, err = sql.Open("pgx", connStr)
	if err != nil {
		return dbContainer.Terminate, err
	}

	_, err = testDB.Exec(`
		CREATE TABLE IF NOT EXISTS products (
			id UUID PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			description TEXT,
			price DECIMAL(10, 2) NOT NULL CHECK (price >= 0),
			image_url VARCHAR(500),
			stock INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
			category VARCHAR(100),
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return dbContainer.Terminate, err
	}

	_, err = testDB.Exec(`
		CREATE TABLE IF NOT EXISTS orders (
			id UUID PRIMARY KEY,
			customer_name VARCHAR(255) NOT NULL,
			email VARCHAR(255) NOT NULL,
			phone VARCHAR(50),
			address JSONB NOT NULL,
			total DECIMAL(10, 2) NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'pending'
				CHECK (status IN ('pending', 'paid', 'fulfilled', 'canceled')),
			notes TEXT,
			admin_notes TEXT,
			created_at TIMESTAMP NOT NULL,
			fulfilled_at TIMESTAMP
		)
	`)
	if err != nil {
		return dbContainer.Terminate, err
	}

	_, err = testDB.Exec(`
		CREATE TABLE IF NOT EXISTS order_items (
			id UUID PRIMARY KEY,
			order_id UUID NOT NULL REFERENCES orders(id),
			product_id UUID NOT NULL REFERENCES products(id),
			name VARCHAR(255) NOT NULL,
			price DECIMAL(10, 2) NOT NULL,
			quantity INTEGER NOT NULL CHECK (quantity > 0),
			image_url VARCHAR(500)
		)
	`)
	if err != nil {
		return dbContainer.Terminate, err
	}

	_, err = testDB.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			email VARCHAR(255) UNIQUE NOT NULL,
			password_hash VARCHAR(255) NOT NULL,
			first_name VARCHAR(100),
			last_name VARCHAR(100),
			role VARCHAR(50) NOT NULL DEFAULT 'admin',
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return dbContainer.Terminate, err
	}

	_, err = testDB.Exec(`
		CREATE TABLE IF NOT EXISTS refresh_tokens (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL REFERENCES users(id),
			token VARCHAR(255) UNIQUE NOT NULL,
			expires_at TIMESTAMP NOT NULL,
			created_at TIMESTAMP NOT NULL,
			revoked BOOLEAN NOT NULL DEFAULT FALSE
		)
	`)
	if err != nil {
		return dbContainer.Terminate, err
	}

	return dbContainer.Terminate, nil
}

func TestMain(m *testing.M) {
	teardown, err := setupTestDB()
	if err != nil {
		log.Fatalf("could not start postgres container: %v", err)
	}

	m.Run()

	if teardown != nil {
		if err := teardown(context.Background()); err != nil {
			log.Fatalf("could not teardown postgres container: %v", err)
		}
	}
}

func insertTestProduct(t *testing.T, stock int) *domain.Product {
	t.Helper()

	product := &domain.Product{
		ID:        uuid.New(),
		Name:      "Test Cake " + uuid.New().String()[:8],
		Price:     19.99,
		Stock:     stock,
		Category:  "cakes",
		IsActive:  true,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	repo := NewProductRepository(testDB)
	require.NoError(t, repo.Create(context.Background(), product))
	return product
}

func testOrder() *domain.Order {
	return &domain.Order{
		ID:           uuid.New(),
		CustomerName: "Ada Lovelace",
		Email:        "ada@example.com",
		Phone:        "555-0100",
		Address:      domain.Address{Street: "1 Main St", City: "Springfield", State: "IL", Zip: "62701"},
		Total:        39.98,
		Status:       domain.OrderStatusPending,
		Notes:        "no nuts please",
		CreatedAt:    time.Now(),
	}
}

func orderItemsFor(order *domain.Order, products ...*domain.Product) []*domain.OrderItem {
	items := make([]*domain.OrderItem, 0, len(products))
	for _, p := range products {
		items = append(items, &domain.OrderItem{
			ID:        uuid.New(),
			OrderID:   order.ID,
			ProductID: p.ID,
			Name:      p.Name,
			Price:     p.Price,
			Quantity:  2,
		})
	}
	return items
}

func TestCreateWithItemsPersistsOrderAndItems(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository(testDB)

	product := insertTestProduct(t, 10)
	order := testOrder()
	items := orderItemsFor(order, product)

	require.NoError(t, repo.CreateWithItems(ctx, order, items))

	found, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)

	assert.Equal(t, order.CustomerName, found.CustomerName)
	assert.Equal(t, order.Email, found.Email)
	assert.Equal(t, order.Address, found.Address)
	assert.Equal(t, domain.OrderStatusPending, found.Status)
	require.Len(t, found.Items, 1)
	assert.Equal(t, product.ID, found.Items[0].ProductID)
	assert.Equal(t, 2, found.Items[0].Quantity)
}

func TestCreateWithItemsRejectsEmptyItems(t *testing.T) {
	repo := NewOrderRepository(testDB)

	err := repo.CreateWithItems(context.Background(), testOrder(), nil)
	assert.ErrorIs(t, err, ErrNoOrderItems)
}

func TestCreateWithItemsRollsBackOnItemFailure(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository(testDB)

	product := insertTestProduct(t, 10)
	order := testOrder()
	items := orderItemsFor(order, product)
	// Second item references a product that does not exist, which violates
	// the foreign key and must abort the whole transaction.
	items = append(items, &domain.OrderItem{
		ID:        uuid.New(),
		OrderID:   order.ID,
		ProductID: uuid.New(),
		Name:      "Ghost Product",
		Price:     1,
		Quantity:  1,
	})

	err := repo.CreateWithItems(ctx, order, items)
	require.Error(t, err)

	_, err = repo.FindByID(ctx, order.ID)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestMarkPaidIsGuardedAndIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository(testDB)

	product := insertTestProduct(t, 10)
	order := testOrder()
	require.NoError(t, repo.CreateWithItems(ctx, order, orderItemsFor(order, product)))

	require.NoError(t, repo.MarkPaid(ctx, order.ID))

	found, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPaid, found.Status)

	// A redelivered confirmation hits an order that already left pending.
	err = repo.MarkPaid(ctx, order.ID)
	assert.ErrorIs(t, err, ErrOrderAlreadyPaid)

	err = repo.MarkPaid(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestUpdateStatusEnforcesTransitions(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository(testDB)

	product := insertTestProduct(t, 10)
	order := testOrder()
	require.NoError(t, repo.CreateWithItems(ctx, order, orderItemsFor(order, product)))

	// pending -> fulfilled records the fulfillment time
	require.NoError(t, repo.UpdateStatus(ctx, order.ID, domain.OrderStatusFulfilled))
	found, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusFulfilled, found.Status)
	require.NotNil(t, found.FulfilledAt)

	// fulfilled -> pending is never allowed
	err = repo.UpdateStatus(ctx, order.ID, domain.OrderStatusPending)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	// fulfilled -> canceled is allowed
	require.NoError(t, repo.UpdateStatus(ctx, order.ID, domain.OrderStatusCanceled))

	err = repo.UpdateStatus(ctx, uuid.New(), domain.OrderStatusPaid)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestSetAdminNotes(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository(testDB)

	product := insertTestProduct(t, 10)
	order := testOrder()
	require.NoError(t, repo.CreateWithItems(ctx, order, orderItemsFor(order, product)))

	require.NoError(t, repo.SetAdminNotes(ctx, order.ID, "called customer, pickup at 3pm"))

	found, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "called customer, pickup at 3pm", found.AdminNotes)

	err = repo.SetAdminNotes(ctx, uuid.New(), "nope")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestListFiltersByStatusAndSearch(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository(testDB)

	product := insertTestProduct(t, 10)

	order := testOrder()
	order.CustomerName = "Zebulon Searchable"
	order.Email = "zebulon@example.com"
	require.NoError(t, repo.CreateWithItems(ctx, order, orderItemsFor(order, product)))

	orders, total, err := repo.List(ctx, OrderFilter{Search: "zebulon"}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, orders, 1)
	assert.Equal(t, order.ID, orders[0].ID)

	orders, _, err = repo.List(ctx, OrderFilter{Status: string(domain.OrderStatusPending), Search: "zebulon"}, 1, 10)
	require.NoError(t, err)
	require.Len(t, orders, 1)

	orders, total, err = repo.List(ctx, OrderFilter{Status: string(domain.OrderStatusCanceled), Search: "zebulon"}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.Empty(t, orders)
}
