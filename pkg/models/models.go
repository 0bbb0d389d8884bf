// Package models defines the persistent data model shared across services.
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order status values.
const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusCompleted  = "completed"
	OrderStatusCancelled  = "cancelled"
)

// Payment status values. PaymentStatus is monotonic: unpaid -> paid.
const (
	PaymentStatusUnpaid = "unpaid"
	PaymentStatusPaid   = "paid"
)

// User roles.
const (
	RoleBuyer  = "buyer"
	RoleEditor = "editor"
	RoleAdmin  = "admin"
)

// User represents a marketplace account.
type User struct {
	ID           uuid.UUID       `json:"id" gorm:"primaryKey;type:uuid" validate:"required"`
	Name         string          `json:"name" validate:"required,min=1,max=100"`
	Email        string          `json:"email" gorm:"uniqueIndex" validate:"required,email,max=254"`
	PasswordHash string          `json:"-" gorm:"column:password_hash" validate:"required,min=60"`
	Phone        string          `json:"phone" validate:"omitempty,max=20"`
	Country      string          `json:"country" validate:"omitempty,max=60"`
	Role         string          `json:"role" gorm:"default:buyer" validate:"required,oneof=buyer editor admin"`
	Balance      decimal.Decimal `json:"balance" gorm:"type:numeric(14,2);default:0"`
	Status       string          `json:"status" gorm:"default:active" validate:"required,oneof=active inactive"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Website represents a site sellable as a backlink placement.
type Website struct {
	ID               uuid.UUID       `json:"id" gorm:"primaryKey;type:uuid" validate:"required"`
	Domain           string          `json:"domain" gorm:"uniqueIndex" validate:"required,fqdn,max=253"`
	Title            string          `json:"title" validate:"required,max=200"`
	Description      string          `json:"description" validate:"omitempty,max=2000"`
	Category         string          `json:"category" gorm:"index" validate:"omitempty,max=60"`
	Country          string          `json:"country" gorm:"index" validate:"omitempty,max=60"`
	Language         string          `json:"language" validate:"omitempty,max=30"`
	Price            decimal.Decimal `json:"price" gorm:"type:numeric(12,2)" validate:"required"`
	DomainRating     int             `json:"domain_rating" validate:"min=0,max=100"`
	AuthorityScore   int             `json:"authority_score" validate:"min=0,max=100"`
	TrustFlow        int             `json:"trust_flow" validate:"min=0,max=100"`
	CitationFlow     int             `json:"citation_flow" validate:"min=0,max=100"`
	SpamScore        int             `json:"spam_score" validate:"min=0,max=100"`
	ReferringDomains int             `json:"referring_domains" validate:"min=0"`
	TotalBacklinks   int             `json:"total_backlinks" validate:"min=0"`
	MinimumWordCount int             `json:"minimum_word_count" validate:"min=0"`
	LinkValidityDays int             `json:"link_validity_days" validate:"min=0"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// Cart holds the websites a user intends to order. One cart per user.
type Cart struct {
	ID        uuid.UUID  `json:"id" gorm:"primaryKey;type:uuid"`
	UserID    uuid.UUID  `json:"user_id" gorm:"type:uuid;uniqueIndex"`
	Items     []CartItem `json:"items" gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// CartItem captures the website price at the time it was added.
type CartItem struct {
	ID        uuid.UUID       `json:"id" gorm:"primaryKey;type:uuid"`
	CartID    uuid.UUID       `json:"cart_id" gorm:"type:uuid;index"`
	WebsiteID uuid.UUID       `json:"website_id" gorm:"type:uuid;index"`
	Price     decimal.Decimal `json:"price" gorm:"type:numeric(12,2)"`
	AddedAt   time.Time       `json:"added_at"`
}

// Order is the settleable unit produced at checkout.
//
// Reference is the opaque identifier the payment gateway echoes back in its
// callback. It is assigned once at checkout and never changes. Status moves
// pending -> completed through the settlement flow only; PaymentStatus moves
// unpaid -> paid at the same moment. PaymentRef and PaymentSignature are
// written exactly once, at first successful settlement.
type Order struct {
	ID               uuid.UUID       `json:"id" gorm:"primaryKey;type:uuid"`
	UserID           uuid.UUID       `json:"user_id" gorm:"type:uuid;index"`
	Reference        string          `json:"reference" gorm:"uniqueIndex" validate:"required,max=64"`
	Items            []OrderItem     `json:"items" gorm:"foreignKey:OrderID"`
	TotalPrice       decimal.Decimal `json:"total_price" gorm:"type:numeric(14,2)"`
	Status           string          `json:"status" gorm:"default:pending;index" validate:"required,oneof=pending processing completed cancelled"`
	PaymentStatus    string          `json:"payment_status" gorm:"default:unpaid" validate:"required,oneof=unpaid paid"`
	PaymentRef       string          `json:"payment_ref,omitempty" validate:"omitempty,max=64"`
	PaymentSignature string          `json:"-" gorm:"column:payment_signature"`
	PaidAt           *time.Time      `json:"paid_at,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// OrderItem is a single placement purchase inside an order.
type OrderItem struct {
	ID        uuid.UUID       `json:"id" gorm:"primaryKey;type:uuid"`
	OrderID   uuid.UUID       `json:"order_id" gorm:"type:uuid;index"`
	WebsiteID uuid.UUID       `json:"website_id" gorm:"type:uuid;index"`
	Price     decimal.Decimal `json:"price" gorm:"type:numeric(12,2)"`
	Status    string          `json:"status" gorm:"default:pending" validate:"required,oneof=pending processing completed cancelled"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
