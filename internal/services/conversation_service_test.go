package services

import (
	"context"
	"strings"
	"testing"
	"time"

	domain "github.com/avicolanorte/api/internal/domain"
)

type conversationFixture struct {
	service  ConversationService
	sessions *SessionStore
	orders   *stubOrderRepo
	profiles map[string]domain.CustomerProfile
	notifier *captureNotifier
}

func newConversationFixture(t *testing.T) *conversationFixture {
	t.Helper()
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	profiles := make(map[string]domain.CustomerProfile)
	customerRepo := &stubCustomerRepo{
		findFn: func(_ context.Context, phone string) (domain.CustomerProfile, error) {
			profile, ok := profiles[phone]
			if !ok {
				return domain.CustomerProfile{}, stubNotFoundError{}
			}
			return profile, nil
		},
		saveFn: func(_ context.Context, profile domain.CustomerProfile) error {
			profiles[profile.Phone] = profile
			return nil
		},
	}

	sessions, err := NewSessionStore(SessionStoreDeps{Clock: clock})
	if err != nil {
		t.Fatalf("NewSessionStore: %v", err)
	}
	customers, err := NewCustomerService(CustomerServiceDeps{Repository: customerRepo, Clock: clock})
	if err != nil {
		t.Fatalf("NewCustomerService: %v", err)
	}

	orderRepo := newStubOrderRepo()
	notifier := &captureNotifier{}
	orders, err := NewOrderService(OrderServiceDeps{
		Orders:        orderRepo,
		Customers:     customerRepo,
		Conversations: &stubConversationRepo{},
		Sessions:      sessions,
		Notifier:      notifier,
		Clock:         clock,
		Random:        func() int { return 4242 },
		IDGenerator:   func() string { return "entry" },
	})
	if err != nil {
		t.Fatalf("NewOrderService: %v", err)
	}

	service, err := NewConversationService(ConversationServiceDeps{
		Sessions:      sessions,
		Customers:     customers,
		Orders:        orders,
		Conversations: &stubConversationRepo{},
		Clock:         clock,
		IDGenerator:   func() string { return "entry" },
	})
	if err != nil {
		t.Fatalf("NewConversationService: %v", err)
	}

	return &conversationFixture{
		service:  service,
		sessions: sessions,
		orders:   orderRepo,
		profiles: profiles,
		notifier: notifier,
	}
}

func (f *conversationFixture) send(t *testing.T, uid, text string) []string {
	t.Helper()
	replies, err := f.service.HandleInboundMessage(context.Background(), uid, text)
	if err != nil {
		t.Fatalf("HandleInboundMessage(%q): %v", text, err)
	}
	if len(replies) == 0 {
		t.Fatalf("HandleInboundMessage(%q): expected at least one reply", text)
	}
	return replies
}

func containsReply(replies []string, fragment string) bool {
	for _, reply := range replies {
		if strings.Contains(reply, fragment) {
			return true
		}
	}
	return false
}

func TestConversationGreetsUnknownUsers(t *testing.T) {
	f := newConversationFixture(t)

	replies := f.send(t, "573000000001", "buenas")
	if !containsReply(replies, "asistente de Avícola del Norte") {
		t.Fatalf("expected the greeting, got %v", replies)
	}
}

func TestConversationHomeOrderEndToEnd(t *testing.T) {
	f := newConversationFixture(t)
	uid := "573000000002"

	replies := f.send(t, uid, "Hogar")
	if !containsReply(replies, "Pollo Entero: $22000") {
		t.Fatalf("expected home prices, got %v", replies)
	}

	f.send(t, uid, "pedido")
	replies = f.send(t, uid, "2 pollo entero y 3 alitas")
	if !containsReply(replies, "2 x Pollo Entero = $44000") {
		t.Fatalf("expected echo of added lines, got %v", replies)
	}
	if !containsReply(replies, "Total hasta ahora: $90500") {
		t.Fatalf("expected running total, got %v", replies)
	}

	replies = f.send(t, uid, "listo")
	if !containsReply(replies, "Pedido confirmado") || !containsReply(replies, "AV-20260302-4242") {
		t.Fatalf("expected confirmation with order id, got %v", replies)
	}
	if !containsReply(replies, "Coordinador Consumo Masivo") {
		t.Fatalf("home orders route to the mass-market desk, got %v", replies)
	}

	order, ok := f.orders.orders["AV-20260302-4242"]
	if !ok {
		t.Fatal("order must be persisted")
	}
	if order.Total != 44000+46500 {
		t.Fatalf("unexpected total %d", order.Total)
	}

	session, _ := f.sessions.Load(uid)
	if session.Mode != domain.ModeIdle || len(session.Cart) != 0 {
		t.Fatalf("session must return to idle, got mode %s with %d lines", session.Mode, len(session.Cart))
	}
}

func TestConversationBusinessRegistrationFlow(t *testing.T) {
	f := newConversationFixture(t)
	uid := "573000000003"

	f.send(t, uid, "negocio")
	f.send(t, uid, "Asadero El Buen Sabor")
	f.send(t, uid, "Facatativá")
	f.send(t, uid, "Carrera 8 # 3-21")
	f.send(t, uid, "Luis Gómez")
	replies := f.send(t, uid, "asadero")
	if !containsReply(replies, "Asadero El Buen Sabor quedó registrado") {
		t.Fatalf("expected registration confirmation, got %v", replies)
	}
	if !containsReply(replies, "Pollo Despresado") {
		t.Fatalf("expected grill-house prices, got %v", replies)
	}

	profile := f.profiles[uid]
	if profile.Segment != domain.SegmentGrillHouse {
		t.Fatalf("expected grill_house segment, got %s", profile.Segment)
	}
	if profile.ResponsibleType != domain.CoordinatorMassMarket {
		t.Fatalf("an outlying municipality routes to mass market, got %s", profile.ResponsibleType)
	}
}

func TestConversationRejectsUnknownSegmentKeyword(t *testing.T) {
	f := newConversationFixture(t)
	uid := "573000000004"

	f.send(t, uid, "negocio")
	f.send(t, uid, "Panadería La Espiga")
	f.send(t, uid, "Bogotá")
	f.send(t, uid, "Calle 1")
	f.send(t, uid, "Marta")
	replies := f.send(t, uid, "panadería")
	if !containsReply(replies, "No reconocí el tipo de negocio") {
		t.Fatalf("expected the segment re-prompt, got %v", replies)
	}
	if _, registered := f.profiles[uid]; registered {
		t.Fatal("profile must not be saved until a valid segment arrives")
	}
}

func TestConversationOrderKeywordRequiresRegistration(t *testing.T) {
	f := newConversationFixture(t)

	replies := f.send(t, "573000000005", "pedido")
	if !containsReply(replies, "Aún no estás registrado") {
		t.Fatalf("expected registration prompt, got %v", replies)
	}
}

func TestConversationUnrecognizedProductsKeepCart(t *testing.T) {
	f := newConversationFixture(t)
	uid := "573000000006"

	f.send(t, uid, "hogar")
	f.send(t, uid, "pedido")
	f.send(t, uid, "2 alitas")
	replies := f.send(t, uid, "quiero algo rico")
	if !containsReply(replies, "No reconocí productos") {
		t.Fatalf("expected retry prompt, got %v", replies)
	}

	session, _ := f.sessions.Load(uid)
	if len(session.Cart) != 1 {
		t.Fatalf("cart must stay intact, got %d lines", len(session.Cart))
	}
}

func TestConversationCancelClearsCart(t *testing.T) {
	f := newConversationFixture(t)
	uid := "573000000007"

	f.send(t, uid, "hogar")
	f.send(t, uid, "pedido")
	f.send(t, uid, "2 alitas")
	f.send(t, uid, "cancelar")

	session, _ := f.sessions.Load(uid)
	if len(session.Cart) != 0 || session.Mode != domain.ModeIdle {
		t.Fatalf("cancel must clear the cart, got mode %s with %d lines", session.Mode, len(session.Cart))
	}
}

func TestConversationHomeKeywordKeepsBusinessSegment(t *testing.T) {
	f := newConversationFixture(t)
	uid := "573000000008"
	f.profiles[uid] = domain.CustomerProfile{
		Phone:           uid,
		Segment:         domain.SegmentWholesaler,
		BusinessName:    "Distribuidora El Porvenir",
		City:            "Bogotá",
		ResponsibleType: domain.CoordinatorWholesale,
		RegisteredAt:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	replies := f.send(t, uid, "hogar")
	if !containsReply(replies, "Pollo Entero: $17000") {
		t.Fatalf("business customers keep their prices, got %v", replies)
	}
	if f.profiles[uid].Segment != domain.SegmentWholesaler {
		t.Fatalf("segment must not downgrade, got %s", f.profiles[uid].Segment)
	}
}

func TestConversationMenuUsesSessionSegment(t *testing.T) {
	f := newConversationFixture(t)
	uid := "573000000009"

	f.send(t, uid, "hogar")
	replies := f.send(t, uid, "menú")
	if !containsReply(replies, "Huevos AA x30: $18000") {
		t.Fatalf("expected the home menu, got %v", replies)
	}
}
