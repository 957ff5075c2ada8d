package datastore

import "time"

// User is a household member subscriptions are assigned to.
type User struct {
	ID                  uint      `gorm:"primaryKey" json:"id"`
	Name                string    `gorm:"size:100;not null" json:"name"`
	Email               string    `gorm:"size:255" json:"email"`
	Color               string    `gorm:"size:20" json:"color"`
	AvatarURL           string    `gorm:"size:500" json:"avatarUrl,omitempty"`
	IsDefault           bool      `json:"isDefault"`
	NotificationEnabled bool      `json:"notificationEnabled"`
	ReminderDays        int       `gorm:"default:7" json:"reminderDays"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

// Category groups subscriptions for reporting.
type Category struct {
	ID    uint   `gorm:"primaryKey" json:"id"`
	Name  string `gorm:"size:100;uniqueIndex;not null" json:"name"`
	Color string `gorm:"size:20" json:"color"`
	Icon  string `gorm:"size:50" json:"icon,omitempty"`
}

// Service is a known subscription provider from the built-in catalog.
type Service struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"size:100;index;not null" json:"name"`
	CategoryID  uint   `gorm:"index" json:"categoryId"`
	LogoURL     string `gorm:"size:500" json:"logoUrl,omitempty"`
	Description string `gorm:"size:500" json:"description,omitempty"`

	Category *Category     `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Plans    []ServicePlan `gorm:"foreignKey:ServiceID" json:"plans,omitempty"`
}

// ServicePlan is a priced tier of a catalog service.
type ServicePlan struct {
	ID           uint    `gorm:"primaryKey" json:"id"`
	ServiceID    uint    `gorm:"index;not null" json:"serviceId"`
	Name         string  `gorm:"size:100;not null" json:"name"`
	Price        float64 `gorm:"not null" json:"price"`
	BillingCycle string  `gorm:"size:20;default:monthly" json:"billingCycle"`
}

// Billing cycle values for subscriptions and plans.
const (
	CycleMonthly = "monthly"
	CycleYearly  = "yearly"
	CycleWeekly  = "weekly"
)

// Subscription is one recurring payment being tracked.
type Subscription struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	UserID          uint      `gorm:"index;not null" json:"userId"`
	Name            string    `gorm:"size:200;not null" json:"name"`
	Amount          float64   `gorm:"not null" json:"amount"`
	Currency        string    `gorm:"size:3;default:USD" json:"currency"`
	BillingCycle    string    `gorm:"size:20;default:monthly" json:"billingCycle"`
	NextPaymentDate time.Time `gorm:"index;not null" json:"nextPaymentDate"`
	CategoryID      uint      `gorm:"index" json:"categoryId"`
	ServiceID       *uint     `gorm:"index" json:"serviceId,omitempty"`
	Active          bool      `gorm:"index" json:"active"`
	Notes           string    `gorm:"size:1000" json:"notes,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`

	User     *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}

// NotificationRecord logs one reminder sent for a subscription, used both as
// history and to suppress duplicate reminders for the same payment.
type NotificationRecord struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	UserID         uint      `gorm:"index;not null" json:"userId"`
	SubscriptionID uint      `gorm:"index;not null" json:"subscriptionId"`
	PaymentDate    time.Time `gorm:"index;not null" json:"paymentDate"`
	Channels       string    `gorm:"size:200" json:"channels"` // comma-separated channels that accepted
	SentAt         time.Time `gorm:"index" json:"sentAt"`

	Subscription *Subscription `gorm:"foreignKey:SubscriptionID" json:"subscription,omitempty"`
}

// APIKey is a saved third-party push credential for a household member.
// Pushover keys are stored in the combined token:userkey form.
type APIKey struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex:idx_api_keys_user_service;not null" json:"userId"`
	Service   string    `gorm:"size:50;uniqueIndex:idx_api_keys_user_service;not null" json:"service"`
	APIKey    string    `gorm:"size:500;not null" json:"apiKey"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
