package domain

import (
	"time"
)

// Pagination defines standard cursor-based paging inputs for list operations.
type Pagination struct {
	PageSize  int
	PageToken string
}

// Segment classifies a customer into one of the commercial categories the
// distributor serves. Pricing and order routing both key off the segment.
type Segment string

const (
	// SegmentHome identifies household (direct-to-consumer) customers.
	SegmentHome Segment = "home"
	// SegmentStore identifies neighbourhood stores (tiendas).
	SegmentStore Segment = "store"
	// SegmentGrillHouse identifies grill houses (asaderos).
	SegmentGrillHouse Segment = "grill_house"
	// SegmentStandardRestaurant identifies standard restaurants.
	SegmentStandardRestaurant Segment = "standard_restaurant"
	// SegmentPremiumRestaurant identifies premium (horeca) restaurants.
	SegmentPremiumRestaurant Segment = "premium_restaurant"
	// SegmentWholesaler identifies wholesale buyers (mayoristas).
	SegmentWholesaler Segment = "wholesaler"
)

// IsBusiness reports whether the segment is a commercial segment. Business
// segments are sticky: a later home-flow interaction never downgrades them.
func (s Segment) IsBusiness() bool {
	switch s {
	case SegmentStore, SegmentGrillHouse, SegmentStandardRestaurant, SegmentPremiumRestaurant, SegmentWholesaler:
		return true
	}
	return false
}

// KnownSegments lists every valid segment value.
func KnownSegments() []Segment {
	return []Segment{
		SegmentHome,
		SegmentStore,
		SegmentGrillHouse,
		SegmentStandardRestaurant,
		SegmentPremiumRestaurant,
		SegmentWholesaler,
	}
}

// DialogueMode enumerates the states of the per-user conversation machine.
type DialogueMode string

const (
	// ModeIdle indicates no flow is in progress.
	ModeIdle DialogueMode = "idle"
	// ModeCollectingBusinessProfile indicates the registration flow is active.
	ModeCollectingBusinessProfile DialogueMode = "collecting_business_profile"
	// ModeCollectingCart indicates the order-capture flow is active.
	ModeCollectingCart DialogueMode = "collecting_cart"
)

// CartLine is a single resolved order line. Insertion order is preserved
// because the sequence is echoed back to the user verbatim.
type CartLine struct {
	Name      string
	Quantity  int
	UnitPrice int64
	Subtotal  int64
}

// ProfileDraft accumulates the answers of the business registration dialogue.
// Fields fill top to bottom, one inbound message each.
type ProfileDraft struct {
	BusinessName  string
	City          string
	Address       string
	ContactPerson string
}

// NextField returns the name of the first unanswered registration field, or
// "" when only the segment keyword is still pending.
func (d ProfileDraft) NextField() string {
	switch {
	case d.BusinessName == "":
		return "businessName"
	case d.City == "":
		return "city"
	case d.Address == "":
		return "address"
	case d.ContactPerson == "":
		return "contactPerson"
	}
	return ""
}

// Session is the ephemeral per-user dialogue state. Cart is non-empty only
// while Mode is ModeCollectingCart.
type Session struct {
	UserID       string
	Segment      Segment
	Mode         DialogueMode
	Cart         []CartLine
	Draft        ProfileDraft
	LastActiveAt time.Time
}

// CartTotal sums the line subtotals.
func (s Session) CartTotal() int64 {
	var total int64
	for _, line := range s.Cart {
		total += line.Subtotal
	}
	return total
}

// CoordinatorType identifies the back-office desk responsible for a customer.
type CoordinatorType string

const (
	// CoordinatorWholesale owns wholesale accounts.
	CoordinatorWholesale CoordinatorType = "wholesale"
	// CoordinatorHoreca owns premium restaurant accounts.
	CoordinatorHoreca CoordinatorType = "horeca"
	// CoordinatorMassMarket owns home customers and outlying municipalities.
	CoordinatorMassMarket CoordinatorType = "mass_market"
	// CoordinatorCommercial owns the remaining commercial accounts.
	CoordinatorCommercial CoordinatorType = "commercial"
)

// Coordinator is the human contact an order is routed to.
type Coordinator struct {
	Name    string
	Contact string
	Type    CoordinatorType
}

// CustomerProfile is the persisted record of a customer, keyed by phone.
type CustomerProfile struct {
	Phone            string
	Segment          Segment
	BusinessName     string
	City             string
	Address          string
	ContactPerson    string
	ResponsibleType  CoordinatorType
	InteractionCount int64
	RegisteredAt     time.Time
	LastActiveAt     time.Time
}

// OrderStatus enumerates the lifecycle states of an order.
type OrderStatus string

const (
	// OrderStatusPending indicates the order was received and awaits a coordinator.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusInProgress indicates a coordinator took the order.
	OrderStatusInProgress OrderStatus = "in_progress"
	// OrderStatusCompleted indicates the order was delivered. Terminal.
	OrderStatusCompleted OrderStatus = "completed"
	// OrderStatusCancelled indicates the order was cancelled. Terminal.
	OrderStatusCancelled OrderStatus = "cancelled"
)

// IsTerminal reports whether no further transition can leave the status.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// StatusChange is one append-only entry of an order's audit trail.
type StatusChange struct {
	Status     OrderStatus
	Timestamp  time.Time
	OperatorID string
	Note       string
}

// BusinessSnapshot copies the customer profile fields relevant to an order at
// finalize time. Later profile edits never change a placed order.
type BusinessSnapshot struct {
	BusinessName  string
	City          string
	Address       string
	ContactPerson string
}

// Order is the persisted outcome of a finalized cart.
type Order struct {
	OrderID          string
	CustomerPhone    string
	Segment          Segment
	Business         BusinessSnapshot
	Lines            []CartLine
	Total            int64
	Coordinator      Coordinator
	Status           OrderStatus
	StatusHistory    []StatusChange
	CancellationNote string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NotificationKind labels the event a notification record was fanned out for.
type NotificationKind string

const (
	// NotificationNewOrder announces a freshly placed order.
	NotificationNewOrder NotificationKind = "new_order"
	// NotificationOrderCompleted announces an order reaching completed.
	NotificationOrderCompleted NotificationKind = "order_completed"
	// NotificationOrderCancelled announces an order reaching cancelled.
	NotificationOrderCancelled NotificationKind = "order_cancelled"
	// NotificationAccountDeactivated announces a deactivated back-office account.
	NotificationAccountDeactivated NotificationKind = "account_deactivated"
	// NotificationAccountDeleted announces a deleted back-office account.
	NotificationAccountDeleted NotificationKind = "account_deleted"
)

// NotificationRecord is one per-recipient row written by the fan-out.
type NotificationRecord struct {
	ID               string
	RecipientID      string
	RecipientContact string
	Kind             NotificationKind
	Message          string
	ReferenceID      string
	Read             bool
	CreatedAt        time.Time
}

// Role enumerates back-office account roles.
type Role string

const (
	// RoleAdmin may act on any order and receives account lifecycle alerts.
	RoleAdmin Role = "admin"
	// RoleSupport may act on any order.
	RoleSupport Role = "support"
	// RoleCoordinator acts only on orders owned by its coordinator type.
	RoleCoordinator Role = "coordinator"
	// RoleHomeDesk receives home-segment order notifications.
	RoleHomeDesk Role = "home_desk"
)

// Account is a back-office operator account.
type Account struct {
	ID              string
	Name            string
	Contact         string
	Role            Role
	CoordinatorType CoordinatorType
	Active          bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ConversationDirection distinguishes inbound from outbound entries.
type ConversationDirection string

const (
	// DirectionInbound marks a message received from the customer.
	DirectionInbound ConversationDirection = "inbound"
	// DirectionOutbound marks a reply or summary written by the engine.
	DirectionOutbound ConversationDirection = "outbound"
)

// ConversationEntry is one append-only line of a customer's conversation log.
type ConversationEntry struct {
	ID        string
	Phone     string
	Direction ConversationDirection
	Text      string
	OrderRef  string
	CreatedAt time.Time
}

// CursorPage packages list results with an encoded next token.
type CursorPage[T any] struct {
	Items         []T
	NextPageToken string
}
