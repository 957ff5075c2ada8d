// Package datastore persists subscriptions, household members, the service
// catalog and notification history behind a driver-agnostic interface backed
// by GORM with SQLite and MySQL drivers.
package datastore

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/subtrackr/subtrackr/internal/conf"
	"github.com/subtrackr/subtrackr/internal/errors"
)

// Interface is the persistence surface the rest of the application uses.
type Interface interface {
	Open() error
	Close() error

	// Users
	GetUsers() ([]User, error)
	GetUser(id uint) (*User, error)
	GetDefaultUser() (*User, error)
	SetDefaultUser(id uint) error
	CreateUser(user *User) error
	UpdateUser(user *User) error
	DeleteUser(id uint) error

	// Subscriptions
	GetSubscriptions() ([]Subscription, error)
	GetSubscription(id uint) (*Subscription, error)
	GetSubscriptionsByUser(userID uint) ([]Subscription, error)
	GetDueSubscriptions(userID uint, within time.Duration) ([]Subscription, error)
	CreateSubscription(sub *Subscription) error
	UpdateSubscription(sub *Subscription) error
	DeleteSubscription(id uint) error

	// Catalog
	GetCategories() ([]Category, error)
	CreateCategory(cat *Category) error
	GetServices() ([]Service, error)
	GetService(id uint) (*Service, error)
	GetServicePlans(serviceID uint) ([]ServicePlan, error)

	// Notification history
	CreateNotificationRecord(rec *NotificationRecord) error
	GetNotificationRecords(userID uint, limit int) ([]NotificationRecord, error)
	HasNotificationRecord(subscriptionID uint, paymentDate time.Time) (bool, error)

	// API keys
	GetAPIKeys(userID uint) ([]APIKey, error)
	GetAPIKeyByService(userID uint, service string) (*APIKey, error)
	SaveAPIKey(key *APIKey) error
	DeleteAPIKey(userID uint, service string) error
}

// DataStore implements Interface on a GORM handle. Driver-specific stores
// embed it and provide Open.
type DataStore struct {
	DB *gorm.DB
}

// New creates the store matching the enabled database backend.
func New(settings *conf.Settings) Interface {
	switch {
	case settings.Database.MySQL.Enabled:
		return &MySQLStore{Settings: settings}
	default:
		return &SQLiteStore{Settings: settings}
	}
}

func (ds *DataStore) Close() error {
	if ds.DB == nil {
		return nil
	}
	sqlDB, err := ds.DB.DB()
	if err != nil {
		return dbError(err, "failed to access underlying database")
	}
	return sqlDB.Close()
}

func dbError(err error, msg string) error {
	return errors.New(err).
		Component("datastore").
		Category(errors.CategoryDatabase).
		Context("detail", msg).
		Build()
}

func notFoundError(err error, entity string, id uint) error {
	return errors.New(err).
		Component("datastore").
		Category(errors.CategoryNotFound).
		Context("entity", entity).
		Context("id", id).
		Build()
}

// GetUsers returns all household members, default member first.
func (ds *DataStore) GetUsers() ([]User, error) {
	var users []User
	if err := ds.DB.Order("is_default DESC, name ASC").Find(&users).Error; err != nil {
		return nil, dbError(err, "failed to list users")
	}
	return users, nil
}

func (ds *DataStore) GetUser(id uint) (*User, error) {
	var user User
	if err := ds.DB.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError(err, "user", id)
		}
		return nil, dbError(err, "failed to get user")
	}
	return &user, nil
}

// GetDefaultUser returns the member marked as default, falling back to the
// first member when none is marked.
func (ds *DataStore) GetDefaultUser() (*User, error) {
	var user User
	err := ds.DB.Where("is_default = ?", true).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = ds.DB.Order("id ASC").First(&user).Error
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError(err, "user", 0)
		}
		return nil, dbError(err, "failed to get default user")
	}
	return &user, nil
}

// SetDefaultUser marks the given member as the household default and clears
// the flag on everyone else.
func (ds *DataStore) SetDefaultUser(id uint) error {
	return ds.DB.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&User{}).Where("id = ?", id).Update("is_default", true)
		if result.Error != nil {
			return dbError(result.Error, "failed to set default user")
		}
		if result.RowsAffected == 0 {
			return notFoundError(gorm.ErrRecordNotFound, "user", id)
		}
		if err := tx.Model(&User{}).Where("id <> ?", id).Update("is_default", false).Error; err != nil {
			return dbError(err, "failed to clear default user flag")
		}
		return nil
	})
}

func (ds *DataStore) CreateUser(user *User) error {
	if err := ds.DB.Create(user).Error; err != nil {
		return dbError(err, "failed to create user")
	}
	return nil
}

func (ds *DataStore) UpdateUser(user *User) error {
	result := ds.DB.Model(&User{}).Where("id = ?", user.ID).
		Select("Name", "Email", "Color", "AvatarURL", "IsDefault", "NotificationEnabled", "ReminderDays").
		Updates(user)
	if result.Error != nil {
		return dbError(result.Error, "failed to update user")
	}
	if result.RowsAffected == 0 {
		return notFoundError(gorm.ErrRecordNotFound, "user", user.ID)
	}
	return nil
}

func (ds *DataStore) DeleteUser(id uint) error {
	result := ds.DB.Delete(&User{}, id)
	if result.Error != nil {
		return dbError(result.Error, "failed to delete user")
	}
	if result.RowsAffected == 0 {
		return notFoundError(gorm.ErrRecordNotFound, "user", id)
	}
	return nil
}

func (ds *DataStore) GetSubscriptions() ([]Subscription, error) {
	var subs []Subscription
	if err := ds.DB.Preload("Category").Order("next_payment_date ASC").Find(&subs).Error; err != nil {
		return nil, dbError(err, "failed to list subscriptions")
	}
	return subs, nil
}

func (ds *DataStore) GetSubscription(id uint) (*Subscription, error) {
	var sub Subscription
	if err := ds.DB.Preload("Category").First(&sub, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError(err, "subscription", id)
		}
		return nil, dbError(err, "failed to get subscription")
	}
	return &sub, nil
}

func (ds *DataStore) GetSubscriptionsByUser(userID uint) ([]Subscription, error) {
	var subs []Subscription
	err := ds.DB.Preload("Category").
		Where("user_id = ?", userID).
		Order("next_payment_date ASC").
		Find(&subs).Error
	if err != nil {
		return nil, dbError(err, "failed to list subscriptions for user")
	}
	return subs, nil
}

// GetDueSubscriptions returns a user's active subscriptions whose next
// payment falls between now and now+within.
func (ds *DataStore) GetDueSubscriptions(userID uint, within time.Duration) ([]Subscription, error) {
	now := time.Now()
	var subs []Subscription
	err := ds.DB.
		Where("user_id = ? AND active = ? AND next_payment_date BETWEEN ? AND ?",
			userID, true, now, now.Add(within)).
		Order("next_payment_date ASC").
		Find(&subs).Error
	if err != nil {
		return nil, dbError(err, "failed to list due subscriptions")
	}
	return subs, nil
}

func (ds *DataStore) CreateSubscription(sub *Subscription) error {
	if err := ds.DB.Create(sub).Error; err != nil {
		return dbError(err, "failed to create subscription")
	}
	return nil
}

func (ds *DataStore) UpdateSubscription(sub *Subscription) error {
	result := ds.DB.Model(&Subscription{}).Where("id = ?", sub.ID).
		Select("UserID", "Name", "Amount", "Currency", "BillingCycle",
			"NextPaymentDate", "CategoryID", "ServiceID", "Active", "Notes").
		Updates(sub)
	if result.Error != nil {
		return dbError(result.Error, "failed to update subscription")
	}
	if result.RowsAffected == 0 {
		return notFoundError(gorm.ErrRecordNotFound, "subscription", sub.ID)
	}
	return nil
}

func (ds *DataStore) DeleteSubscription(id uint) error {
	result := ds.DB.Delete(&Subscription{}, id)
	if result.Error != nil {
		return dbError(result.Error, "failed to delete subscription")
	}
	if result.RowsAffected == 0 {
		return notFoundError(gorm.ErrRecordNotFound, "subscription", id)
	}
	return nil
}

func (ds *DataStore) GetCategories() ([]Category, error) {
	var cats []Category
	if err := ds.DB.Order("name ASC").Find(&cats).Error; err != nil {
		return nil, dbError(err, "failed to list categories")
	}
	return cats, nil
}

func (ds *DataStore) CreateCategory(cat *Category) error {
	if err := ds.DB.Create(cat).Error; err != nil {
		return dbError(err, "failed to create category")
	}
	return nil
}

func (ds *DataStore) GetServices() ([]Service, error) {
	var services []Service
	if err := ds.DB.Preload("Plans").Preload("Category").Order("name ASC").Find(&services).Error; err != nil {
		return nil, dbError(err, "failed to list services")
	}
	return services, nil
}

func (ds *DataStore) GetService(id uint) (*Service, error) {
	var service Service
	if err := ds.DB.Preload("Plans").Preload("Category").First(&service, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError(err, "service", id)
		}
		return nil, dbError(err, "failed to get service")
	}
	return &service, nil
}

func (ds *DataStore) GetServicePlans(serviceID uint) ([]ServicePlan, error) {
	var plans []ServicePlan
	if err := ds.DB.Where("service_id = ?", serviceID).Order("price ASC").Find(&plans).Error; err != nil {
		return nil, dbError(err, "failed to list service plans")
	}
	return plans, nil
}

func (ds *DataStore) CreateNotificationRecord(rec *NotificationRecord) error {
	if rec.SentAt.IsZero() {
		rec.SentAt = time.Now()
	}
	if err := ds.DB.Create(rec).Error; err != nil {
		return dbError(err, "failed to record notification")
	}
	return nil
}

func (ds *DataStore) GetNotificationRecords(userID uint, limit int) ([]NotificationRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var recs []NotificationRecord
	err := ds.DB.Preload("Subscription").
		Where("user_id = ?", userID).
		Order("sent_at DESC").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, dbError(err, "failed to list notification records")
	}
	return recs, nil
}

// HasNotificationRecord reports whether a reminder was already sent for the
// given payment occurrence.
func (ds *DataStore) HasNotificationRecord(subscriptionID uint, paymentDate time.Time) (bool, error) {
	var count int64
	err := ds.DB.Model(&NotificationRecord{}).
		Where("subscription_id = ? AND payment_date = ?", subscriptionID, paymentDate).
		Count(&count).Error
	if err != nil {
		return false, dbError(err, "failed to check notification history")
	}
	return count > 0, nil
}

func (ds *DataStore) GetAPIKeys(userID uint) ([]APIKey, error) {
	var keys []APIKey
	if err := ds.DB.Where("user_id = ?", userID).Order("service ASC").Find(&keys).Error; err != nil {
		return nil, dbError(err, "failed to list api keys")
	}
	return keys, nil
}

// GetAPIKeyByService returns (nil, nil) when no key is stored for the
// service.
func (ds *DataStore) GetAPIKeyByService(userID uint, service string) (*APIKey, error) {
	var key APIKey
	err := ds.DB.Where("user_id = ? AND service = ?", userID, service).First(&key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, dbError(err, "failed to get api key")
	}
	return &key, nil
}

// SaveAPIKey upserts the key on (user_id, service).
func (ds *DataStore) SaveAPIKey(key *APIKey) error {
	err := ds.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "service"}},
		DoUpdates: clause.AssignmentColumns([]string{"api_key", "enabled", "updated_at"}),
	}).Create(key).Error
	if err != nil {
		return dbError(err, "failed to save api key")
	}
	return nil
}

func (ds *DataStore) DeleteAPIKey(userID uint, service string) error {
	result := ds.DB.Where("user_id = ? AND service = ?", userID, service).Delete(&APIKey{})
	if result.Error != nil {
		return dbError(result.Error, "failed to delete api key")
	}
	if result.RowsAffected == 0 {
		return notFoundError(gorm.ErrRecordNotFound, "api_key", userID)
	}
	return nil
}
