package dto

// SiteContentResponse represents the editable landing-page copy
type SiteContentResponse struct {
	HeroTitle    string `json:"hero_title"`
	HeroSubtitle string `json:"hero_subtitle"`
}

// UpdateSiteContentRequest updates the landing-page copy. Blank fields fall
// back to the defaults.
type UpdateSiteContentRequest struct {
	HeroTitle    string `json:"hero_title" validate:"omitempty,max=500"`
	HeroSubtitle string `json:"hero_subtitle" validate:"omitempty,max=1000"`
}
