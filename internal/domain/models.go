package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/victorytouchdown/vtshop-api/internal/pricing"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// BeforeCreate assigns a new UUID when none has been set
func (m *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// UserRole is the single role carried by every user
type UserRole string

const (
	RoleAdministrator UserRole = "ADMINISTRATOR"
	RoleEmployee      UserRole = "EMPLOYEE"
	RoleCustomer      UserRole = "CUSTOMER"
)

// IsValid reports whether the role is one of the known roles
func (r UserRole) IsValid() bool {
	switch r {
	case RoleAdministrator, RoleEmployee, RoleCustomer:
		return true
	}
	return false
}

// EmployeeCompany is the company recorded on every employee account
const EmployeeCompany = "Victory Touchdown"

// User represents anyone able to authenticate against the API.
// CreatedAt doubles as the date the user joined.
type User struct {
	BaseModel
	Email        string   `gorm:"type:varchar(255);not null;uniqueIndex"`
	PasswordHash string   `gorm:"type:varchar(255);not null;column:password_hash"`
	FirstName    string   `gorm:"type:varchar(150);column:first_name"`
	LastName     string   `gorm:"type:varchar(150);column:last_name"`
	Role         UserRole `gorm:"type:varchar(20);not null;index"`
	RegNumber    *string  `gorm:"type:varchar(4);uniqueIndex;column:reg_number"`
	Company      string   `gorm:"type:varchar(200)"`
	IsActive     bool     `gorm:"not null;default:true;column:is_active"`
}

// FullName returns the user's full name, falling back to the email address
func (u *User) FullName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	case u.LastName != "":
		return u.LastName
	}
	return u.Email
}

// CustomerAccount is the commercial side of a CUSTOMER user
type CustomerAccount struct {
	BaseModel
	UserID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex;column:user_id"`
	User        *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	EmployeeReg *string   `gorm:"type:varchar(4);index;column:employee_reg"`
	IsActive    bool      `gorm:"not null;default:true;column:is_active"`
	Cart        *Cart     `gorm:"foreignKey:CustomerAccountID"`
}

// Category groups products in the catalog
type Category struct {
	BaseModel
	Name string `gorm:"type:varchar(200);not null;uniqueIndex"`
	Slug string `gorm:"type:varchar(200);not null;uniqueIndex"`
}

// ReservedCategoryName cannot be used because it collides with the API prefix
const ReservedCategoryName = "api"

// Product is a catalog entry. Price is the unit price.
type Product struct {
	BaseModel
	Name             string          `gorm:"type:varchar(200);not null;uniqueIndex"`
	Slug             string          `gorm:"type:varchar(200);not null;uniqueIndex"`
	Description      string          `gorm:"type:text"`
	Price            decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0"`
	CategoryID       *uuid.UUID      `gorm:"type:uuid;index;column:category_id"`
	Category         *Category       `gorm:"foreignKey:CategoryID;constraint:OnDelete:SET NULL"`
	ImagePath        *string         `gorm:"type:varchar(500);column:image_path"`
	ImageContentType string          `gorm:"type:varchar(100);column:image_content_type"`
}

// MinLineItemQuantity is the smallest quantity a line item may hold
const MinLineItemQuantity = 1000

// MaxLineItemQuantity is the largest quantity a line item may hold
const MaxLineItemQuantity = 1_000_000

// MaxAmount is the largest amount a numeric(12,2) price column can store
var MaxAmount = decimal.RequireFromString("9999999999.99")

// LineItem belongs to a cart until the cart is turned into an order,
// then to that order. Never to both.
type LineItem struct {
	BaseModel
	ProductID uuid.UUID       `gorm:"type:uuid;not null;index;uniqueIndex:idx_line_items_cart_product,priority:2;column:product_id"`
	Product   *Product        `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	Quantity  int             `gorm:"not null;default:1000"`
	Price     decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0"`
	CartID    *uuid.UUID      `gorm:"type:uuid;uniqueIndex:idx_line_items_cart_product,priority:1;column:cart_id"`
	OrderID   *uuid.UUID      `gorm:"type:uuid;index;column:order_id"`
}

// Normalize enforces the minimum quantity and derives the price from the
// product's unit price. Must run before every save.
func (li *LineItem) Normalize(unitPrice decimal.Decimal) {
	if li.Quantity < MinLineItemQuantity {
		li.Quantity = MinLineItemQuantity
	}
	li.Price = pricing.LinePrice(unitPrice, li.Quantity)
}

// Cart holds the line items a customer has not ordered yet
type Cart struct {
	BaseModel
	CustomerAccountID *uuid.UUID      `gorm:"type:uuid;uniqueIndex;column:customer_account_id"`
	TotalPrice        decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0;column:total_price"`
	LineItems         []LineItem      `gorm:"foreignKey:CartID"`
}

// Recalculate sets the total to the sum of the line item prices
func (c *Cart) Recalculate() {
	c.TotalPrice = sumLineItems(c.LineItems)
}

// OrderStatus represents where an order stands in fulfilment
type OrderStatus string

const (
	OrderStatusCreated           OrderStatus = "created"
	OrderStatusProcessing        OrderStatus = "processing"
	OrderStatusAwaitingSupply    OrderStatus = "awaiting_supply"
	OrderStatusPreparingShipment OrderStatus = "preparing_shipment"
	OrderStatusAwaitingPayment   OrderStatus = "awaiting_payment"
	OrderStatusShipped           OrderStatus = "shipped"
	OrderStatusArchived          OrderStatus = "archived"
	OrderStatusCancelled         OrderStatus = "cancelled"
)

var orderStatusLabels = map[OrderStatus]string{
	OrderStatusCreated:           "Created",
	OrderStatusProcessing:        "Processing",
	OrderStatusAwaitingSupply:    "Awaiting supply",
	OrderStatusPreparingShipment: "Preparing shipment",
	OrderStatusAwaitingPayment:   "Awaiting payment",
	OrderStatusShipped:           "Shipped",
	OrderStatusArchived:          "Archived",
	OrderStatusCancelled:         "Cancelled",
}

// IsValid reports whether the status is one of the known statuses
func (s OrderStatus) IsValid() bool {
	_, ok := orderStatusLabels[s]
	return ok
}

// Label returns the human readable status
func (s OrderStatus) Label() string {
	if label, ok := orderStatusLabels[s]; ok {
		return label
	}
	return string(s)
}

// OrderCreatedComment is attached to every order when it is placed
const OrderCreatedComment = "Order just created."

// Order is a placed cart
type Order struct {
	BaseModel
	Status            OrderStatus      `gorm:"type:varchar(30);not null;default:'created';index"`
	RefNumber         string           `gorm:"type:varchar(20);not null;uniqueIndex;column:ref_number"`
	Slug              string           `gorm:"type:varchar(50);not null;uniqueIndex"`
	TotalPrice        decimal.Decimal  `gorm:"type:numeric(12,2);not null;default:0;column:total_price"`
	VATAmount         decimal.Decimal  `gorm:"type:numeric(12,2);not null;default:0;column:vat_amount"`
	InclVATPrice      decimal.Decimal  `gorm:"type:numeric(12,2);not null;default:0;column:incl_vat_price"`
	CustomerAccountID uuid.UUID        `gorm:"type:uuid;not null;index;column:customer_account_id"`
	CustomerAccount   *CustomerAccount `gorm:"foreignKey:CustomerAccountID;constraint:OnDelete:RESTRICT"`
	LineItems         []LineItem       `gorm:"foreignKey:OrderID"`
	Comments          []Comment        `gorm:"foreignKey:OrderID"`
}

// Recalculate derives the total from the line items, then the VAT figures
// from the total
func (o *Order) Recalculate() {
	o.TotalPrice = sumLineItems(o.LineItems)
	o.VATAmount, o.InclVATPrice = pricing.VATPrices(o.TotalPrice)
}

// Comment is a back-office note on an order
type Comment struct {
	BaseModel
	OrderID uuid.UUID `gorm:"type:uuid;not null;index;column:order_id"`
	Content string    `gorm:"type:varchar(2000);not null"`
}

// Conversation is a message thread between users. CustomerID and EmployeeID
// are set for the advisor thread opened for each customer account.
type Conversation struct {
	BaseModel
	Subject      string     `gorm:"type:varchar(300);not null"`
	CustomerID   *uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_conversations_pair;column:customer_id"`
	EmployeeID   *uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_conversations_pair;column:employee_id"`
	Participants []User     `gorm:"many2many:conversation_participants"`
	Messages     []Message  `gorm:"foreignKey:ConversationID"`
}

// HasParticipant reports whether the user takes part in the conversation
func (c *Conversation) HasParticipant(userID uuid.UUID) bool {
	for _, p := range c.Participants {
		if p.ID == userID {
			return true
		}
	}
	return false
}

// ConversationParticipant is the join row between conversations and users
type ConversationParticipant struct {
	ConversationID uuid.UUID `gorm:"type:uuid;primaryKey;column:conversation_id"`
	UserID         uuid.UUID `gorm:"type:uuid;primaryKey;column:user_id"`
}

// AdvisorConversationSubject is used for the thread opened at registration
const AdvisorConversationSubject = "Exchanges with my advisor"

// Message is a single post in a conversation
type Message struct {
	BaseModel
	ConversationID uuid.UUID `gorm:"type:uuid;not null;index;column:conversation_id"`
	AuthorID       uuid.UUID `gorm:"type:uuid;not null;index;column:author_id"`
	Author         *User     `gorm:"foreignKey:AuthorID"`
	Content        string    `gorm:"type:varchar(5000);not null"`
	IsRead         bool      `gorm:"not null;default:false;column:is_read"`
}

// AuditAction represents the type of mutation recorded
type AuditAction string

const (
	AuditActionCreate AuditAction = "create"
	AuditActionUpdate AuditAction = "update"
	AuditActionDelete AuditAction = "delete"
	AuditActionLogin  AuditAction = "login"
	AuditActionLogout AuditAction = "logout"
)

// AuditLog represents an audit trail entry
type AuditLog struct {
	ID          uuid.UUID   `gorm:"type:uuid;primary_key"`
	UserID      string      `gorm:"type:varchar(100);column:user_id;index"`
	UserEmail   string      `gorm:"type:varchar(255);column:user_email"`
	UserRole    UserRole    `gorm:"type:varchar(20);column:user_role"`
	Action      AuditAction `gorm:"type:varchar(20);not null"`
	EntityType  string      `gorm:"type:varchar(50);not null;column:entity_type;index"`
	EntityID    *uuid.UUID  `gorm:"type:uuid;column:entity_id"`
	EntityKey   string      `gorm:"type:varchar(200);column:entity_key"`
	NewValues   string      `gorm:"type:text;column:new_values"`
	IPAddress   string      `gorm:"type:varchar(64);column:ip_address"`
	UserAgent   string      `gorm:"type:text;column:user_agent"`
	RequestID   string      `gorm:"type:varchar(100);column:request_id"`
	PerformedAt time.Time   `gorm:"not null;default:CURRENT_TIMESTAMP;column:performed_at;index"`
}

// BeforeCreate assigns a new UUID when none has been set
func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

func sumLineItems(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, li := range items {
		total = total.Add(li.Price)
	}
	return total
}
