package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/seed"
	"go.mongodb.org/mongo-driver/mongo"
)

const orderDemoSeedApplication = "order_demo"

// ApplyDemoSeeds creates realistic in-flight coffee orders so the staff queue
// and dashboard have something to show on a fresh install.
func ApplyDemoSeeds(ctx context.Context, repo OrderRepo, counter TicketCounter, db *mongo.Database, logger apt.Logger) error {
	if db == nil {
		return errors.New("database is required for demo seeding")
	}

	tracker := seed.NewMongoTracker(db)

	demoSeeds := []seed.Seed{
		{
			ID:          "2026-08-01_demo_orders_v1",
			Description: "Create demo coffee orders across the status pipeline",
			Run: func(ctx context.Context) error {
				return seedDemoOrders(ctx, repo, counter, logger)
			},
		},
	}

	logger.Info("Applying demo order seeds")
	if err := seed.Apply(ctx, tracker, demoSeeds, orderDemoSeedApplication); err != nil {
		return err
	}
	logger.Info("Demo order seeds applied successfully")
	return nil
}

func seedDemoOrders(ctx context.Context, repo OrderRepo, counter TicketCounter, logger apt.Logger) error {
	now := time.Now()

	scenarios := []struct {
		customer string
		status   string
		age      time.Duration
		items    []OrderLine
	}{
		{
			customer: "Maya",
			status:   "pending",
			age:      2 * time.Minute,
			items: []OrderLine{
				{Name: "Latte", Size: "Large", Temperature: "Hot", Milk: "Oat Milk", Modifications: []string{"Oat Milk"}, BasePrice: 5.75, ModificationsPrice: 0.75, TotalPrice: 6.50, Quantity: 1},
				{Name: "Croissant", BasePrice: 3.75, TotalPrice: 3.75, Quantity: 2},
			},
		},
		{
			customer: "Devon",
			status:   "in_progress",
			age:      6 * time.Minute,
			items: []OrderLine{
				{Name: "Cold Brew", Size: "Large", Temperature: "Iced", IceLevel: "Regular", BasePrice: 5.25, TotalPrice: 5.25, Quantity: 1},
			},
		},
		{
			customer: "Guest",
			status:   "pending",
			age:      30 * time.Second,
			items: []OrderLine{
				{Name: "Cappuccino", Size: "Small", Temperature: "Hot", BasePrice: 4.75, TotalPrice: 4.75, Quantity: 2},
				{Name: "Espresso", BasePrice: 3.50, TotalPrice: 3.50, Quantity: 1},
			},
		},
	}

	for _, sc := range scenarios {
		order := NewOrder()
		order.CustomerName = sc.customer
		order.Items = sc.items
		order.ApplyPricing()
		order.BeforeCreate()
		order.Status = sc.status
		order.CreatedAt = now.Add(-sc.age)
		order.UpdatedAt = now.Add(-sc.age)

		number, err := counter.Next(ctx)
		if err != nil {
			return fmt.Errorf("assign demo order number: %w", err)
		}
		order.OrderNumber = number

		if err := repo.Create(ctx, order); err != nil {
			return fmt.Errorf("create demo order for %s: %w", sc.customer, err)
		}
	}

	logger.Info("Demo orders created successfully", "count", len(scenarios))
	return nil
}

// DemoSeedingFunc returns a lifecycle OnStart-compatible function for demo seeding.
func DemoSeedingFunc(seedCtx context.Context, repo OrderRepo, counter TicketCounter, db *mongo.Database, logger apt.Logger) func(ctx context.Context) error {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}

	return func(ctx context.Context) error {
		logger.Info("Starting demo order seeding in background")
		go func() {
			if err := ApplyDemoSeeds(seedCtx, repo, counter, db, logger); err != nil && !errors.Is(err, context.Canceled) {
				logger.Errorf("Demo order seeds failed: %v", err)
			} else if err == nil {
				logger.Info("Demo order seeding completed successfully")
			}
		}()
		return nil
	}
}
