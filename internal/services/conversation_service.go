package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/avicolanorte/api/internal/domain"
	"github.com/avicolanorte/api/internal/repositories"
)

var (
	errConversationSessionsRequired  = errors.New("conversation service: session store is required")
	errConversationCustomersRequired = errors.New("conversation service: customer service is required")
	errConversationOrdersRequired    = errors.New("conversation service: order service is required")
	errConversationClockRequired     = errors.New("conversation service: clock is required")
)

// ErrConversationInvalidInput indicates an empty user id.
var ErrConversationInvalidInput = errors.New("conversation service: invalid input")

// Dialogue keywords, matched case and diacritic insensitively.
const (
	keywordHome     = "hogar"
	keywordBusiness = "negocio"
	keywordOrder    = "pedido"
	keywordDone     = "listo"
	keywordConfirm  = "confirmar"
	keywordCancel   = "cancelar"
	keywordMenu     = "menu"
)

// Registration segment keywords, in declaration order because "restaurante"
// is a prefix of "restaurante premium".
var segmentKeywords = []struct {
	keyword string
	segment domain.Segment
}{
	{"restaurante premium", domain.SegmentPremiumRestaurant},
	{"restaurante", domain.SegmentStandardRestaurant},
	{"tienda", domain.SegmentStore},
	{"asadero", domain.SegmentGrillHouse},
	{"mayorista", domain.SegmentWholesaler},
}

// ConversationServiceDeps wires the collaborators of the dialogue engine.
type ConversationServiceDeps struct {
	Sessions      *SessionStore
	Customers     CustomerService
	Orders        OrderService
	Conversations repositories.ConversationRepository
	Clock         func() time.Time
	IDGenerator   func() string
	Logger        Logger
}

type conversationService struct {
	sessions      *SessionStore
	customers     CustomerService
	orders        OrderService
	conversations repositories.ConversationRepository
	now           func() time.Time
	newID         func() string
	logger        Logger
}

// NewConversationService constructs a ConversationService enforcing dependency validation.
func NewConversationService(deps ConversationServiceDeps) (ConversationService, error) {
	if deps.Sessions == nil {
		return nil, errConversationSessionsRequired
	}
	if deps.Customers == nil {
		return nil, errConversationCustomersRequired
	}
	if deps.Orders == nil {
		return nil, errConversationOrdersRequired
	}
	if deps.Clock == nil {
		return nil, errConversationClockRequired
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	logger := deps.Logger
	if logger == nil {
		logger = noopLogger
	}
	return &conversationService{
		sessions:      deps.Sessions,
		customers:     deps.Customers,
		orders:        deps.Orders,
		conversations: deps.Conversations,
		now:           func() time.Time { return deps.Clock().UTC() },
		newID:         idGen,
		logger:        logger,
	}, nil
}

// HandleInboundMessage runs one inbound message through the dialogue machine
// and returns the replies to send back. User mistakes come back as replies,
// never as errors; an error means infrastructure failed and the channel
// should redeliver.
func (s *conversationService) HandleInboundMessage(ctx context.Context, userID, text string) ([]string, error) {
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return nil, ErrConversationInvalidInput
	}

	message := strings.TrimSpace(text)
	s.appendLog(ctx, uid, domain.DirectionInbound, message, "")
	if err := s.customers.RecordInteraction(ctx, uid, s.now()); err != nil {
		s.logger(ctx, "conversation.interaction_count_failed", map[string]any{
			"phone": uid,
			"error": err.Error(),
		})
	}

	replies, err := s.dispatch(ctx, uid, message)
	if err != nil {
		return nil, err
	}
	for _, reply := range replies {
		s.appendLog(ctx, uid, domain.DirectionOutbound, reply, "")
	}
	return replies, nil
}

func (s *conversationService) dispatch(ctx context.Context, uid, message string) ([]string, error) {
	switch domain.FoldCity(message) {
	case keywordHome:
		return s.enterHomeFlow(ctx, uid)
	case keywordBusiness:
		return s.enterRegistration(ctx, uid)
	case keywordOrder:
		return s.enterOrderFlow(ctx, uid)
	case keywordDone, keywordConfirm:
		return s.finalize(ctx, uid)
	case keywordCancel:
		return s.cancelCart(ctx, uid)
	case keywordMenu:
		return s.showMenu(ctx, uid)
	}
	return s.continueFlow(ctx, uid, message)
}

// enterHomeFlow registers (or refreshes) a household profile and shows the
// retail menu. A business customer typing the home keyword keeps their
// business segment and prices.
func (s *conversationService) enterHomeFlow(ctx context.Context, uid string) ([]string, error) {
	profile, err := s.customers.SaveProfile(ctx, SaveProfileCommand{
		Phone:   uid,
		Segment: domain.SegmentHome,
	})
	if err != nil {
		return nil, err
	}

	err = s.sessions.Mutate(ctx, uid, func(session *domain.Session) error {
		session.Segment = profile.Segment
		session.Mode = domain.ModeIdle
		session.Cart = nil
		session.Draft = domain.ProfileDraft{}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return []string{
		"¡Bienvenido a Avícola del Norte! Estos son nuestros precios:",
		menuText(profile.Segment),
		"Escribe \"pedido\" cuando quieras ordenar.",
	}, nil
}

func (s *conversationService) enterRegistration(ctx context.Context, uid string) ([]string, error) {
	err := s.sessions.Mutate(ctx, uid, func(session *domain.Session) error {
		session.Mode = domain.ModeCollectingBusinessProfile
		session.Draft = domain.ProfileDraft{}
		session.Cart = nil
		return nil
	})
	if err != nil {
		return nil, err
	}
	return []string{"Registremos tu negocio. ¿Cuál es el nombre del negocio?"}, nil
}

func (s *conversationService) enterOrderFlow(ctx context.Context, uid string) ([]string, error) {
	segment := domain.SegmentHome
	profile, err := s.customers.GetByPhone(ctx, uid)
	switch {
	case err == nil:
		segment = profile.Segment
	case errors.Is(err, ErrCustomerNotFound):
		return []string{
			"Aún no estás registrado. Escribe \"hogar\" si compras para tu casa o \"negocio\" si compras para tu negocio.",
		}, nil
	default:
		return nil, err
	}

	err = s.sessions.Mutate(ctx, uid, func(session *domain.Session) error {
		session.Segment = segment
		session.Mode = domain.ModeCollectingCart
		return nil
	})
	if err != nil {
		return nil, err
	}

	return []string{
		"Perfecto, dime qué necesitas. Ejemplo: \"2 pollo entero, 3 alitas\".",
		"Escribe \"listo\" para confirmar o \"cancelar\" para descartar.",
	}, nil
}

func (s *conversationService) finalize(ctx context.Context, uid string) ([]string, error) {
	order, err := s.orders.Finalize(ctx, uid)
	switch {
	case err == nil:
		return []string{
			orderConfirmationText(order),
		}, nil
	case errors.Is(err, ErrEmptyCart):
		return []string{"Tu carrito está vacío. Escribe \"pedido\" y dime qué necesitas."}, nil
	case errors.Is(err, ErrUnknownCustomer):
		return []string{"Necesitamos tus datos antes de tomar el pedido. Escribe \"hogar\" o \"negocio\" para registrarte."}, nil
	default:
		return nil, err
	}
}

func (s *conversationService) cancelCart(ctx context.Context, uid string) ([]string, error) {
	err := s.sessions.Mutate(ctx, uid, func(session *domain.Session) error {
		session.Cart = nil
		session.Mode = domain.ModeIdle
		session.Draft = domain.ProfileDraft{}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return []string{"Listo, descarté el pedido. Escribe \"pedido\" cuando quieras empezar de nuevo."}, nil
}

func (s *conversationService) showMenu(ctx context.Context, uid string) ([]string, error) {
	session, err := s.sessions.Load(uid)
	if err != nil {
		return nil, err
	}
	segment := session.Segment
	if segment == "" {
		profile, err := s.customers.GetByPhone(ctx, uid)
		if err == nil {
			segment = profile.Segment
		} else if !errors.Is(err, ErrCustomerNotFound) {
			return nil, err
		}
	}
	return []string{menuText(segment)}, nil
}

// continueFlow handles free text according to the current dialogue mode.
func (s *conversationService) continueFlow(ctx context.Context, uid, message string) ([]string, error) {
	var replies []string
	err := s.sessions.Mutate(ctx, uid, func(session *domain.Session) error {
		switch session.Mode {
		case domain.ModeCollectingBusinessProfile:
			out, err := s.advanceRegistration(ctx, uid, session, message)
			replies = out
			return err
		case domain.ModeCollectingCart:
			replies = s.addToCart(session, message)
			return nil
		default:
			replies = []string{
				"Hola, soy el asistente de Avícola del Norte. Escribe \"hogar\" para compras de casa, \"negocio\" para registrar tu negocio, \"pedido\" para ordenar o \"menu\" para ver precios.",
			}
			return nil
		}
	})
	if err != nil {
		return nil, err
	}
	return replies, nil
}

func (s *conversationService) advanceRegistration(ctx context.Context, uid string, session *domain.Session, message string) ([]string, error) {
	if message == "" {
		return []string{registrationPrompt(session.Draft.NextField())}, nil
	}

	switch session.Draft.NextField() {
	case "businessName":
		session.Draft.BusinessName = message
		return []string{"¿En qué ciudad o municipio está el negocio?"}, nil
	case "city":
		session.Draft.City = message
		return []string{"¿Cuál es la dirección?"}, nil
	case "address":
		session.Draft.Address = message
		return []string{"¿Quién es la persona de contacto?"}, nil
	case "contactPerson":
		session.Draft.ContactPerson = message
		return []string{"¿Qué tipo de negocio es? (tienda, asadero, restaurante, restaurante premium o mayorista)"}, nil
	}

	segment, ok := matchSegmentKeyword(message)
	if !ok {
		return []string{"No reconocí el tipo de negocio. Responde: tienda, asadero, restaurante, restaurante premium o mayorista."}, nil
	}

	profile, err := s.customers.SaveProfile(ctx, SaveProfileCommand{
		Phone:         uid,
		Segment:       segment,
		BusinessName:  session.Draft.BusinessName,
		City:          session.Draft.City,
		Address:       session.Draft.Address,
		ContactPerson: session.Draft.ContactPerson,
	})
	if err != nil {
		return nil, err
	}

	session.Mode = domain.ModeIdle
	session.Segment = profile.Segment
	session.Draft = domain.ProfileDraft{}

	return []string{
		fmt.Sprintf("¡%s quedó registrado! Estos son tus precios:", profile.BusinessName),
		menuText(profile.Segment),
		"Escribe \"pedido\" cuando quieras ordenar.",
	}, nil
}

func (s *conversationService) addToCart(session *domain.Session, message string) []string {
	segment := session.Segment
	if segment == "" {
		segment = domain.SegmentHome
	}
	added, err := ResolveCartLines(message, domain.CatalogFor(segment))
	if err != nil {
		return []string{"No reconocí productos en tu mensaje. Ejemplo: \"2 pollo entero, 3 alitas\"."}
	}

	session.Cart = append(session.Cart, added...)

	var b strings.Builder
	b.WriteString("Agregué a tu pedido:\n")
	for _, line := range added {
		fmt.Fprintf(&b, "- %d x %s = $%d\n", line.Quantity, line.Name, line.Subtotal)
	}
	fmt.Fprintf(&b, "Total hasta ahora: $%d", session.CartTotal())
	return []string{
		b.String(),
		"¿Algo más? Escribe \"listo\" para confirmar.",
	}
}

func (s *conversationService) appendLog(ctx context.Context, uid string, direction domain.ConversationDirection, text, orderRef string) {
	if s.conversations == nil || strings.TrimSpace(text) == "" {
		return
	}
	entry := domain.ConversationEntry{
		ID:        s.newID(),
		Phone:     uid,
		Direction: direction,
		Text:      text,
		OrderRef:  orderRef,
		CreatedAt: s.now(),
	}
	if err := s.conversations.Append(ctx, entry); err != nil {
		s.logger(ctx, "conversation.log_failed", map[string]any{
			"phone":     uid,
			"direction": string(direction),
			"error":     err.Error(),
		})
	}
}

func matchSegmentKeyword(message string) (domain.Segment, bool) {
	folded := domain.FoldCity(message)
	for _, candidate := range segmentKeywords {
		if strings.Contains(folded, candidate.keyword) {
			return candidate.segment, true
		}
	}
	return "", false
}

func registrationPrompt(nextField string) string {
	switch nextField {
	case "businessName":
		return "¿Cuál es el nombre del negocio?"
	case "city":
		return "¿En qué ciudad o municipio está el negocio?"
	case "address":
		return "¿Cuál es la dirección?"
	case "contactPerson":
		return "¿Quién es la persona de contacto?"
	}
	return "¿Qué tipo de negocio es? (tienda, asadero, restaurante, restaurante premium o mayorista)"
}

func menuText(segment domain.Segment) string {
	var b strings.Builder
	b.WriteString("Lista de precios:\n")
	for _, item := range domain.CatalogFor(segment) {
		fmt.Fprintf(&b, "- %s: $%d\n", item.Name, item.UnitPrice)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func orderConfirmationText(order Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "¡Pedido confirmado! Número: %s\n", order.OrderID)
	for _, line := range order.Lines {
		fmt.Fprintf(&b, "- %d x %s = $%d\n", line.Quantity, line.Name, line.Subtotal)
	}
	fmt.Fprintf(&b, "Total: $%d\n", order.Total)
	fmt.Fprintf(&b, "Te atenderá %s.", order.Coordinator.Name)
	return b.String()
}
