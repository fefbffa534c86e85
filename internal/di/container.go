package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avicolanorte/api/internal/platform/config"
	"github.com/avicolanorte/api/internal/repositories"
	"github.com/avicolanorte/api/internal/services"
)

// Services bundles the service-layer contracts that handlers rely upon.
// Concrete implementations are assembled in NewContainer.
type Services struct {
	Sessions      *services.SessionStore
	Conversations services.ConversationService
	Customers     services.CustomerService
	Orders        services.OrderService
	Notifications services.NotificationService
	Accounts      services.AccountService
}

// Container wires repositories and services for runtime use.
type Container struct {
	Config       config.Config
	Repositories repositories.Registry
	Services     Services
}

// ContainerOption customises container construction.
type ContainerOption func(*containerConfig)

type containerConfig struct {
	publisher services.OrderEventPublisher
	clock     func() time.Time
	logger    services.Logger
}

// WithOrderEventPublisher injects the Pub/Sub publisher order lifecycle events
// flow through. Without it, orders are still persisted but no events are emitted.
func WithOrderEventPublisher(publisher services.OrderEventPublisher) ContainerOption {
	return func(cfg *containerConfig) {
		cfg.publisher = publisher
	}
}

// WithClock overrides the time source used by every service, for tests.
func WithClock(clock func() time.Time) ContainerOption {
	return func(cfg *containerConfig) {
		if clock != nil {
			cfg.clock = clock
		}
	}
}

// WithServiceLogger sets the structured event callback services log through.
func WithServiceLogger(logger services.Logger) ContainerOption {
	return func(cfg *containerConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// NewContainer constructs the runtime dependencies. Production wiring provides
// the Firestore-backed registry, while tests can supply in-memory stand-ins.
func NewContainer(ctx context.Context, cfg config.Config, reg repositories.Registry, opts ...ContainerOption) (*Container, error) {
	if reg == nil {
		return nil, errors.New("repositories registry is required")
	}

	options := containerConfig{clock: time.Now}
	for _, opt := range opts {
		opt(&options)
	}

	svc, err := buildServices(reg, options)
	if err != nil {
		return nil, err
	}

	return &Container{
		Config:       cfg,
		Repositories: reg,
		Services:     svc,
	}, nil
}

// Close releases resources such as repository clients.
func (c *Container) Close(ctx context.Context) error {
	if c == nil || c.Repositories == nil {
		return nil
	}
	return c.Repositories.Close(ctx)
}

func buildServices(reg repositories.Registry, options containerConfig) (Services, error) {
	var svc Services

	sessions, err := services.NewSessionStore(services.SessionStoreDeps{Clock: options.clock})
	if err != nil {
		return Services{}, fmt.Errorf("build session store: %w", err)
	}
	svc.Sessions = sessions

	customers, err := services.NewCustomerService(services.CustomerServiceDeps{
		Repository: reg.Customers(),
		Clock:      options.clock,
		Logger:     options.logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build customer service: %w", err)
	}
	svc.Customers = customers

	notifications, err := services.NewNotificationService(services.NotificationServiceDeps{
		Notifications: reg.Notifications(),
		Accounts:      reg.Accounts(),
		Clock:         options.clock,
		Logger:        options.logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build notification service: %w", err)
	}
	svc.Notifications = notifications

	orders, err := services.NewOrderService(services.OrderServiceDeps{
		Orders:        reg.Orders(),
		Customers:     reg.Customers(),
		Conversations: reg.Conversations(),
		Sessions:      sessions,
		Notifier:      notifications,
		Publisher:     options.publisher,
		Clock:         options.clock,
		Logger:        options.logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build order service: %w", err)
	}
	svc.Orders = orders

	accounts, err := services.NewAccountService(services.AccountServiceDeps{
		Repository: reg.Accounts(),
		Notifier:   notifications,
		Clock:      options.clock,
		Logger:     options.logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build account service: %w", err)
	}
	svc.Accounts = accounts

	conversations, err := services.NewConversationService(services.ConversationServiceDeps{
		Sessions:      sessions,
		Customers:     customers,
		Orders:        orders,
		Conversations: reg.Conversations(),
		Clock:         options.clock,
		Logger:        options.logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build conversation service: %w", err)
	}
	svc.Conversations = conversations

	return svc, nil
}
