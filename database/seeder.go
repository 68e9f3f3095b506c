package database

import (
	"corredorflow/models"
	"corredorflow/utils"

	"gorm.io/gorm"
)

// SeedProviders upserts the insurer catalog. Providers without a live API are
// quoted from the manual rate table until their integration ships.
func SeedProviders(db *gorm.DB) {
	providers := []models.Provider{
		{Slug: "internacional", Name: "Internacional de Seguros", Categories: "auto,health,home,travel", Countries: "PA", HasLiveAPI: true},
		{Slug: "acerta", Name: "Acerta Seguros", Categories: "auto,home,business", Countries: "PA", HasLiveAPI: true},
		{Slug: "mapfre", Name: "MAPFRE Panamá", Categories: "auto,health,home,travel,business", Countries: "PA,CR,CO"},
		{Slug: "assa", Name: "ASSA Compañía de Seguros", Categories: "auto,health,home,business", Countries: "PA,CR,NI,SV,GT,HN"},
		{Slug: "sura", Name: "Seguros SURA", Categories: "auto,health,home", Countries: "PA,CO,MX,CL"},
		{Slug: "fedpa", Name: "FEDPA Seguros", Categories: "auto,home", Countries: "PA"},
	}

	for _, p := range providers {
		var existing models.Provider
		err := db.Where("slug = ?", p.Slug).First(&existing).Error
		if err == gorm.ErrRecordNotFound {
			if err := db.Create(&p).Error; err != nil {
				utils.LogError(err, "Seed provider "+p.Slug)
			}
			continue
		}
		if err != nil {
			utils.LogError(err, "Seed provider "+p.Slug)
			continue
		}
		existing.Name = p.Name
		existing.Categories = p.Categories
		existing.Countries = p.Countries
		existing.HasLiveAPI = p.HasLiveAPI
		if err := db.Save(&existing).Error; err != nil {
			utils.LogError(err, "Seed provider "+p.Slug)
		}
	}
}
