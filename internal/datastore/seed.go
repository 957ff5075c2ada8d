package datastore

import (
	"gorm.io/gorm"

	"github.com/subtrackr/subtrackr/internal/errors"
)

type seedService struct {
	name        string
	category    string
	description string
	plans       []ServicePlan
}

var defaultCategories = []Category{
	{Name: "Streaming", Color: "#ef4444", Icon: "tv"},
	{Name: "Music", Color: "#22c55e", Icon: "music"},
	{Name: "Software", Color: "#3b82f6", Icon: "code"},
	{Name: "Gaming", Color: "#a855f7", Icon: "gamepad"},
	{Name: "Cloud Storage", Color: "#f59e0b", Icon: "cloud"},
	{Name: "News", Color: "#64748b", Icon: "newspaper"},
	{Name: "Fitness", Color: "#ec4899", Icon: "dumbbell"},
	{Name: "Other", Color: "#6b7280", Icon: "folder"},
}

var defaultServices = []seedService{
	{
		name: "Netflix", category: "Streaming",
		description: "Movie and TV streaming",
		plans: []ServicePlan{
			{Name: "Standard with ads", Price: 7.99, BillingCycle: CycleMonthly},
			{Name: "Standard", Price: 17.99, BillingCycle: CycleMonthly},
			{Name: "Premium", Price: 24.99, BillingCycle: CycleMonthly},
		},
	},
	{
		name: "Spotify", category: "Music",
		description: "Music streaming",
		plans: []ServicePlan{
			{Name: "Individual", Price: 11.99, BillingCycle: CycleMonthly},
			{Name: "Duo", Price: 16.99, BillingCycle: CycleMonthly},
			{Name: "Family", Price: 19.99, BillingCycle: CycleMonthly},
		},
	},
	{
		name: "Disney+", category: "Streaming",
		description: "Disney, Pixar, Marvel and Star Wars streaming",
		plans: []ServicePlan{
			{Name: "Basic", Price: 9.99, BillingCycle: CycleMonthly},
			{Name: "Premium", Price: 15.99, BillingCycle: CycleMonthly},
		},
	},
	{
		name: "YouTube Premium", category: "Streaming",
		description: "Ad-free YouTube and YouTube Music",
		plans: []ServicePlan{
			{Name: "Individual", Price: 13.99, BillingCycle: CycleMonthly},
			{Name: "Family", Price: 22.99, BillingCycle: CycleMonthly},
		},
	},
	{
		name: "iCloud+", category: "Cloud Storage",
		description: "Apple cloud storage",
		plans: []ServicePlan{
			{Name: "50GB", Price: 0.99, BillingCycle: CycleMonthly},
			{Name: "200GB", Price: 2.99, BillingCycle: CycleMonthly},
			{Name: "2TB", Price: 9.99, BillingCycle: CycleMonthly},
		},
	},
	{
		name: "Xbox Game Pass", category: "Gaming",
		description: "Game subscription library",
		plans: []ServicePlan{
			{Name: "Core", Price: 9.99, BillingCycle: CycleMonthly},
			{Name: "Ultimate", Price: 19.99, BillingCycle: CycleMonthly},
		},
	},
	{
		name: "Adobe Creative Cloud", category: "Software",
		description: "Design and photo tooling",
		plans: []ServicePlan{
			{Name: "Photography", Price: 19.99, BillingCycle: CycleMonthly},
			{Name: "All Apps", Price: 59.99, BillingCycle: CycleMonthly},
		},
	},
}

// Seed populates the catalog and creates the default household member.
// It is idempotent: a non-empty table is left untouched.
func Seed(store Interface) error {
	ds, ok := store.(interface{ gormDB() *gorm.DB })
	if !ok {
		return errors.Newf("store does not expose a database handle for seeding").
			Component("datastore").
			Category(errors.CategorySystem).
			Build()
	}
	db := ds.gormDB()

	if err := seedCategories(db); err != nil {
		return err
	}
	if err := seedServices(db); err != nil {
		return err
	}
	return seedDefaultUser(db)
}

func (ds *DataStore) gormDB() *gorm.DB { return ds.DB }

func seedCategories(db *gorm.DB) error {
	var count int64
	if err := db.Model(&Category{}).Count(&count).Error; err != nil {
		return dbError(err, "failed to count categories")
	}
	if count > 0 {
		return nil
	}
	if err := db.Create(&defaultCategories).Error; err != nil {
		return dbError(err, "failed to seed categories")
	}
	getLogger().Info("seeded categories", "count", len(defaultCategories))
	return nil
}

func seedServices(db *gorm.DB) error {
	var count int64
	if err := db.Model(&Service{}).Count(&count).Error; err != nil {
		return dbError(err, "failed to count services")
	}
	if count > 0 {
		return nil
	}

	categoryIDs := make(map[string]uint)
	var cats []Category
	if err := db.Find(&cats).Error; err != nil {
		return dbError(err, "failed to load categories for seeding")
	}
	for _, c := range cats {
		categoryIDs[c.Name] = c.ID
	}

	for _, s := range defaultServices {
		service := Service{
			Name:        s.name,
			CategoryID:  categoryIDs[s.category],
			Description: s.description,
			Plans:       s.plans,
		}
		if err := db.Create(&service).Error; err != nil {
			return dbError(err, "failed to seed service")
		}
	}
	getLogger().Info("seeded service catalog", "count", len(defaultServices))
	return nil
}

func seedDefaultUser(db *gorm.DB) error {
	var count int64
	if err := db.Model(&User{}).Count(&count).Error; err != nil {
		return dbError(err, "failed to count users")
	}
	if count > 0 {
		return nil
	}
	user := User{
		Name:                "Me",
		Color:               "#3b82f6",
		IsDefault:           true,
		NotificationEnabled: true,
		ReminderDays:        7,
	}
	if err := db.Create(&user).Error; err != nil {
		return dbError(err, "failed to seed default user")
	}
	getLogger().Info("created default household member", "user_id", user.ID)
	return nil
}
