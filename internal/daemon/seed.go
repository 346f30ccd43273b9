package daemon

import (
	"gorm.io/gorm"

	"github.com/ippel-tech/ippel-rnc/internal/config"
	"github.com/ippel-tech/ippel-rnc/internal/db/models"
)

// defaultGroups are created on first start so permissions and field locks
// have something to attach to.
var defaultGroups = []models.Group{
	{Name: "Qualidade", Description: "Equipe de qualidade"},
	{Name: "Operadores", Description: "Operadores de produção"},
}

func seed(_ *config.Config, db *gorm.DB) {
	// Seed initial data if user table is empty

	var count int64
	db.Model(&models.User{}).Count(&count)
	if count == 0 {
		// Create default admin user
		// change the password after first login

		db.Create(
			&models.User{
				Username: "admin",
				Name:     "Administrador",
				Password: models.HashPassword("changeme"),
				Active:   true,
				Role:     models.RoleAdmin,
			},
		)
	}

	db.Model(&models.Group{}).Count(&count)
	if count == 0 {
		for i := range defaultGroups {
			db.Create(&defaultGroups[i])
		}
	}
}
