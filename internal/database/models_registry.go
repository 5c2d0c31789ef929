package database

import "vibeu/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.Profile{},
		&models.Post{},
		&models.Like{},
		&models.Comment{},
		&models.Notification{},
	}
}
