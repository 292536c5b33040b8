// Package models contains domain entities and business models for the platform
package models

import "time"

// SiteContent is the single editable marketing copy record. Reads backfill
// any missing field from the defaults so the record always has all fields.
type SiteContent struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	HeroTitle    string    `gorm:"type:text;not null" json:"hero_title"`
	HeroSubtitle string    `gorm:"type:text;not null" json:"hero_subtitle"`
	UpdatedAt    time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (SiteContent) TableName() string {
	return "site_content"
}

// Default site content values
const (
	DefaultHeroTitle    = "Navigate Legal Complexity with **Confidence**."
	DefaultHeroSubtitle = "Elby AI provides sophisticated tools for legal professionals, powered by cutting-edge artificial intelligence. From general legal queries to deep blockchain analysis, get the insights you need, fast."
)

// ApplyDefaults fills empty fields with the documented defaults.
func (c *SiteContent) ApplyDefaults() {
	if c.HeroTitle == "" {
		c.HeroTitle = DefaultHeroTitle
	}
	if c.HeroSubtitle == "" {
		c.HeroSubtitle = DefaultHeroSubtitle
	}
}
