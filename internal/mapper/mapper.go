package mapper

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/victorytouchdown/vtshop-api/internal/domain"
	"github.com/victorytouchdown/vtshop-api/internal/pricing"
)

const isoLayout = "2006-01-02T15:04:05Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(isoLayout)
}

func formatMoney(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// ToUserDTO converts User to UserDTO
func ToUserDTO(user *domain.User) domain.UserDTO {
	return domain.UserDTO{
		ID:         user.ID,
		Email:      user.Email,
		FirstName:  user.FirstName,
		LastName:   user.LastName,
		FullName:   user.FullName(),
		Role:       user.Role,
		RegNumber:  deref(user.RegNumber),
		Company:    user.Company,
		IsActive:   user.IsActive,
		DateJoined: formatTime(user.CreatedAt),
	}
}

// ToUserDTOs converts a slice of users
func ToUserDTOs(users []domain.User) []domain.UserDTO {
	dtos := make([]domain.UserDTO, len(users))
	for i := range users {
		dtos[i] = ToUserDTO(&users[i])
	}
	return dtos
}

// ToAuthUserDTO converts a User to the principal representation
func ToAuthUserDTO(user *domain.User) domain.AuthUserDTO {
	return domain.AuthUserDTO{
		ID:        user.ID.String(),
		Name:      user.FullName(),
		Email:     user.Email,
		Role:      user.Role,
		RegNumber: deref(user.RegNumber),
		Initials:  Initials(user.FirstName, user.LastName, user.Email),
	}
}

// Initials returns up to two upper-case initials, falling back to the
// first letter of the email
func Initials(firstName, lastName, email string) string {
	var b strings.Builder
	for _, part := range []string{firstName, lastName} {
		part = strings.TrimSpace(part)
		if part != "" {
			b.WriteString(strings.ToUpper(string([]rune(part)[0])))
		}
	}
	if b.Len() == 0 && email != "" {
		b.WriteString(strings.ToUpper(string([]rune(email)[0])))
	}
	return b.String()
}

// ToCustomerAccountDTO converts CustomerAccount to CustomerAccountDTO.
// The account's User must be loaded.
func ToCustomerAccountDTO(account *domain.CustomerAccount) domain.CustomerAccountDTO {
	dto := domain.CustomerAccountDTO{
		ID:          account.ID,
		EmployeeReg: deref(account.EmployeeReg),
		IsActive:    account.IsActive,
		CreatedAt:   formatTime(account.CreatedAt),
	}
	if account.User != nil {
		dto.User = ToUserDTO(account.User)
	}
	return dto
}

// ToCategoryDTO converts Category to CategoryDTO
func ToCategoryDTO(category *domain.Category) domain.CategoryDTO {
	return domain.CategoryDTO{
		ID:   category.ID,
		Name: category.Name,
		Slug: category.Slug,
	}
}

// ToProductDTO converts Product to ProductDTO
func ToProductDTO(product *domain.Product) domain.ProductDTO {
	dto := domain.ProductDTO{
		ID:               product.ID,
		Name:             product.Name,
		Slug:             product.Slug,
		Description:      product.Description,
		Price:            formatMoney(product.Price),
		PricePerThousand: formatMoney(pricing.LinePrice(product.Price, 1000)),
		HasImage:         product.ImagePath != nil,
		MinimumQuantity:  domain.MinLineItemQuantity,
		CreatedAt:        formatTime(product.CreatedAt),
		UpdatedAt:        formatTime(product.UpdatedAt),
	}
	if product.Category != nil {
		category := ToCategoryDTO(product.Category)
		dto.Category = &category
	}
	if dto.HasImage {
		dto.ImageURL = "/api/v1/products/" + product.Slug + "/image"
	}
	return dto
}

// ToLineItemDTO converts LineItem to LineItemDTO
func ToLineItemDTO(item *domain.LineItem) domain.LineItemDTO {
	dto := domain.LineItemDTO{
		ID:        item.ID,
		ProductID: item.ProductID,
		Quantity:  item.Quantity,
		Price:     formatMoney(item.Price),
	}
	if item.Product != nil {
		dto.ProductName = item.Product.Name
		dto.ProductSlug = item.Product.Slug
	}
	return dto
}

func toLineItemDTOs(items []domain.LineItem) []domain.LineItemDTO {
	dtos := make([]domain.LineItemDTO, len(items))
	for i := range items {
		dtos[i] = ToLineItemDTO(&items[i])
	}
	return dtos
}

// ToCartDTO converts Cart to CartDTO
func ToCartDTO(cart *domain.Cart) domain.CartDTO {
	return domain.CartDTO{
		ID:         cart.ID,
		TotalPrice: formatMoney(cart.TotalPrice),
		LineItems:  toLineItemDTOs(cart.LineItems),
	}
}

// ToCommentDTO converts Comment to CommentDTO
func ToCommentDTO(comment *domain.Comment) domain.CommentDTO {
	return domain.CommentDTO{
		ID:        comment.ID,
		Content:   comment.Content,
		CreatedAt: formatTime(comment.CreatedAt),
	}
}

// ToCommentDTOs converts a slice of comments
func ToCommentDTOs(comments []domain.Comment) []domain.CommentDTO {
	dtos := make([]domain.CommentDTO, len(comments))
	for i := range comments {
		dtos[i] = ToCommentDTO(&comments[i])
	}
	return dtos
}

// ToOrderDTO converts Order to OrderDTO including whatever line items and
// comments were loaded
func ToOrderDTO(order *domain.Order) domain.OrderDTO {
	dto := domain.OrderDTO{
		ID:                order.ID,
		RefNumber:         order.RefNumber,
		Slug:              order.Slug,
		Status:            order.Status,
		StatusLabel:       order.Status.Label(),
		TotalPrice:        formatMoney(order.TotalPrice),
		VATAmount:         formatMoney(order.VATAmount),
		InclVATPrice:      formatMoney(order.InclVATPrice),
		CustomerAccountID: order.CustomerAccountID,
		CreatedAt:         formatTime(order.CreatedAt),
	}
	if order.CustomerAccount != nil && order.CustomerAccount.User != nil {
		dto.CustomerName = order.CustomerAccount.User.FullName()
	}
	if len(order.LineItems) > 0 {
		dto.LineItems = toLineItemDTOs(order.LineItems)
	}
	if len(order.Comments) > 0 {
		dto.Comments = ToCommentDTOs(order.Comments)
	}
	return dto
}

// ToOrderDTOs converts a slice of orders
func ToOrderDTOs(orders []domain.Order) []domain.OrderDTO {
	dtos := make([]domain.OrderDTO, len(orders))
	for i := range orders {
		dtos[i] = ToOrderDTO(&orders[i])
	}
	return dtos
}

// ToMessageDTO converts Message to MessageDTO
func ToMessageDTO(message *domain.Message) domain.MessageDTO {
	dto := domain.MessageDTO{
		ID:        message.ID,
		AuthorID:  message.AuthorID,
		Content:   message.Content,
		IsRead:    message.IsRead,
		CreatedAt: formatTime(message.CreatedAt),
	}
	if message.Author != nil {
		dto.AuthorName = message.Author.FullName()
	}
	return dto
}

// ToMessageDTOs converts a slice of messages
func ToMessageDTOs(messages []domain.Message) []domain.MessageDTO {
	dtos := make([]domain.MessageDTO, len(messages))
	for i := range messages {
		dtos[i] = ToMessageDTO(&messages[i])
	}
	return dtos
}

// ToConversationDTO converts Conversation to ConversationDTO
func ToConversationDTO(conv *domain.Conversation, unread int64) domain.ConversationDTO {
	dto := domain.ConversationDTO{
		ID:          conv.ID,
		Subject:     conv.Subject,
		UnreadCount: unread,
		CreatedAt:   formatTime(conv.CreatedAt),
		ModifiedAt:  formatTime(conv.UpdatedAt),
	}
	if len(conv.Participants) > 0 {
		dto.Participants = ToUserDTOs(conv.Participants)
	}
	if len(conv.Messages) > 0 {
		dto.Messages = ToMessageDTOs(conv.Messages)
	}
	return dto
}

// ToAuditLogDTO converts AuditLog to AuditLogDTO
func ToAuditLogDTO(log *domain.AuditLog) domain.AuditLogDTO {
	return domain.AuditLogDTO{
		ID:          log.ID,
		UserID:      log.UserID,
		UserEmail:   log.UserEmail,
		UserRole:    log.UserRole,
		Action:      log.Action,
		EntityType:  log.EntityType,
		EntityID:    log.EntityID,
		EntityKey:   log.EntityKey,
		NewValues:   log.NewValues,
		IPAddress:   log.IPAddress,
		UserAgent:   log.UserAgent,
		RequestID:   log.RequestID,
		PerformedAt: formatTime(log.PerformedAt),
	}
}
