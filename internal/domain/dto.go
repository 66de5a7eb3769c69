package domain

import (
	"github.com/google/uuid"
)

// DTOs for API responses. Monetary amounts are serialized as strings with
// two decimals, timestamps as ISO 8601.

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}

// PaginatedResponse wraps a page of results
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"pageSize"`
	TotalPages int         `json:"totalPages"`
}

// API Response wrapper
type APIResponse struct {
	Data    interface{} `json:"data,omitempty"`
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
}

type UserDTO struct {
	ID         uuid.UUID `json:"id"`
	Email      string    `json:"email"`
	FirstName  string    `json:"firstName,omitempty"`
	LastName   string    `json:"lastName,omitempty"`
	FullName   string    `json:"fullName"`
	Role       UserRole  `json:"role"`
	RegNumber  string    `json:"regNumber,omitempty"`
	Company    string    `json:"company,omitempty"`
	IsActive   bool      `json:"isActive"`
	DateJoined string    `json:"dateJoined"` // ISO 8601
}

// AuthUserDTO represents the current authenticated principal
type AuthUserDTO struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Email     string   `json:"email"`
	Role      UserRole `json:"role"`
	RegNumber string   `json:"regNumber,omitempty"`
	Initials  string   `json:"initials"`
}

type TokenResponse struct {
	Token     string      `json:"token"`
	TokenType string      `json:"tokenType"`
	ExpiresAt string      `json:"expiresAt"` // ISO 8601
	User      AuthUserDTO `json:"user"`
}

type CustomerAccountDTO struct {
	ID          uuid.UUID `json:"id"`
	User        UserDTO   `json:"user"`
	EmployeeReg string    `json:"employeeReg,omitempty"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   string    `json:"createdAt"` // ISO 8601
}

type CategoryDTO struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Slug string    `json:"slug"`
}

type ProductDTO struct {
	ID               uuid.UUID    `json:"id"`
	Name             string       `json:"name"`
	Slug             string       `json:"slug"`
	Description      string       `json:"description,omitempty"`
	Price            string       `json:"price"`
	PricePerThousand string       `json:"pricePerThousand"`
	Category         *CategoryDTO `json:"category,omitempty"`
	HasImage         bool         `json:"hasImage"`
	ImageURL         string       `json:"imageUrl,omitempty"`
	MinimumQuantity  int          `json:"minimumQuantity"`
	CreatedAt        string       `json:"createdAt"` // ISO 8601
	UpdatedAt        string       `json:"updatedAt"` // ISO 8601
}

type LineItemDTO struct {
	ID          uuid.UUID `json:"id"`
	ProductID   uuid.UUID `json:"productId"`
	ProductName string    `json:"productName,omitempty"`
	ProductSlug string    `json:"productSlug,omitempty"`
	Quantity    int       `json:"quantity"`
	Price       string    `json:"price"`
}

type CartDTO struct {
	ID         uuid.UUID     `json:"id"`
	TotalPrice string        `json:"totalPrice"`
	LineItems  []LineItemDTO `json:"lineItems"`
}

type CommentDTO struct {
	ID        uuid.UUID `json:"id"`
	Content   string    `json:"content"`
	CreatedAt string    `json:"createdAt"` // ISO 8601
}

type OrderDTO struct {
	ID                uuid.UUID     `json:"id"`
	RefNumber         string        `json:"refNumber"`
	Slug              string        `json:"slug"`
	Status            OrderStatus   `json:"status"`
	StatusLabel       string        `json:"statusLabel"`
	TotalPrice        string        `json:"totalPrice"`
	VATAmount         string        `json:"vatAmount"`
	InclVATPrice      string        `json:"inclVatPrice"`
	CustomerAccountID uuid.UUID     `json:"customerAccountId"`
	CustomerName      string        `json:"customerName,omitempty"`
	CreatedAt         string        `json:"createdAt"` // ISO 8601
	LineItems         []LineItemDTO `json:"lineItems,omitempty"`
	Comments          []CommentDTO  `json:"comments,omitempty"`
}

// MakeOrderResponse reports the outcome of turning the cart into an order.
// Created is false when the cart was empty.
type MakeOrderResponse struct {
	Created bool      `json:"created"`
	Order   *OrderDTO `json:"order,omitempty"`
}

type MessageDTO struct {
	ID         uuid.UUID `json:"id"`
	AuthorID   uuid.UUID `json:"authorId"`
	AuthorName string    `json:"authorName,omitempty"`
	Content    string    `json:"content"`
	IsRead     bool      `json:"isRead"`
	CreatedAt  string    `json:"createdAt"` // ISO 8601
}

type ConversationDTO struct {
	ID           uuid.UUID    `json:"id"`
	Subject      string       `json:"subject"`
	Participants []UserDTO    `json:"participants,omitempty"`
	UnreadCount  int64        `json:"unreadCount"`
	CreatedAt    string       `json:"createdAt"`  // ISO 8601
	ModifiedAt   string       `json:"modifiedAt"` // ISO 8601
	Messages     []MessageDTO `json:"messages,omitempty"`
}

// MySpaceDTO is the customer's landing view
type MySpaceDTO struct {
	Account      CustomerAccountDTO `json:"account"`
	Employee     *UserDTO           `json:"employee,omitempty"`
	Conversation *ConversationDTO   `json:"conversation,omitempty"`
	Orders       []OrderDTO         `json:"orders"`
}

type AuditLogDTO struct {
	ID          uuid.UUID   `json:"id"`
	UserID      string      `json:"userId,omitempty"`
	UserEmail   string      `json:"userEmail,omitempty"`
	UserRole    UserRole    `json:"userRole,omitempty"`
	Action      AuditAction `json:"action"`
	EntityType  string      `json:"entityType"`
	EntityID    *uuid.UUID  `json:"entityId,omitempty"`
	EntityKey   string      `json:"entityKey,omitempty"`
	NewValues   string      `json:"newValues,omitempty"`
	IPAddress   string      `json:"ipAddress,omitempty"`
	UserAgent   string      `json:"userAgent,omitempty"`
	RequestID   string      `json:"requestId,omitempty"`
	PerformedAt string      `json:"performedAt"` // ISO 8601
}

// Request DTOs

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,max=128"`
}

type RegisterCustomerRequest struct {
	Email     string `json:"email" validate:"required,email,max=255"`
	Password  string `json:"password" validate:"required,max=128"`
	FirstName string `json:"firstName,omitempty" validate:"max=150"`
	LastName  string `json:"lastName,omitempty" validate:"max=150"`
}

type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email,max=255"`
}

type PasswordResetConfirmRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,max=128"`
}

type CreateEmployeeRequest struct {
	Email     string `json:"email" validate:"required,email,max=255"`
	Password  string `json:"password" validate:"required,max=128"`
	FirstName string `json:"firstName" validate:"required,max=150"`
	LastName  string `json:"lastName" validate:"required,max=150"`
}

type SetPasswordRequest struct {
	Password string `json:"password" validate:"required,max=128"`
}

type CreateCategoryRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

type UpdateCategoryRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

type CreateProductRequest struct {
	Name        string     `json:"name" validate:"required,max=200"`
	Description string     `json:"description,omitempty"`
	Price       string     `json:"price" validate:"required,numeric"`
	CategoryID  *uuid.UUID `json:"categoryId,omitempty"`
}

type UpdateProductRequest struct {
	Name        *string    `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string    `json:"description,omitempty"`
	Price       *string    `json:"price,omitempty" validate:"omitempty,numeric"`
	CategoryID  *uuid.UUID `json:"categoryId,omitempty"`
}

// CartLineItemRequest adds to or sets the quantity of a product in the cart
type CartLineItemRequest struct {
	ProductID uuid.UUID `json:"productId" validate:"required"`
	Quantity  int       `json:"quantity" validate:"gte=0,lte=1000000"`
}

type UpdateOrderStatusRequest struct {
	Status OrderStatus `json:"status" validate:"required,oneof=created processing awaiting_supply preparing_shipment awaiting_payment shipped archived cancelled"`
}

type AddCommentRequest struct {
	Content string `json:"content,omitempty" validate:"max=2000"`
}

type PostMessageRequest struct {
	Content string `json:"content" validate:"required,max=5000"`
}
