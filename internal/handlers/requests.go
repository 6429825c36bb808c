package handlers

// PitchCreateRequest represents a request to create a pitch
type PitchCreateRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"required,max=5000"`
	Presenter   string `json:"presenter" validate:"required,max=200"`
	ImageURL    string `json:"imageUrl" validate:"required,max=2048"`
	Category    string `json:"category" validate:"required,max=100"`
	Visible     *bool  `json:"visible"`
}

// PitchUpdateRequest represents a partial pitch update. Ratings is the
// complete rating array; everything else is an admin-only field.
type PitchUpdateRequest struct {
	Title       *string    `json:"title" validate:"omitempty,max=200"`
	Description *string    `json:"description" validate:"omitempty,max=5000"`
	Presenter   *string    `json:"presenter" validate:"omitempty,max=200"`
	ImageURL    *string    `json:"imageUrl" validate:"omitempty,max=2048"`
	Category    *string    `json:"category" validate:"omitempty,max=100"`
	Visible     *bool      `json:"visible"`
	Ratings     *[]float64 `json:"ratings"`
}

// hasAdminFields reports whether the update touches anything but ratings
func (r PitchUpdateRequest) hasAdminFields() bool {
	return r.Title != nil || r.Description != nil || r.Presenter != nil ||
		r.ImageURL != nil || r.Category != nil || r.Visible != nil
}

// RatingSubmitRequest represents one audience rating
type RatingSubmitRequest struct {
	Score *float64 `json:"score" validate:"required"`
}

// CategoryCreateRequest represents a request to create a category
type CategoryCreateRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

// ShowcaseStartRequest represents a request to showcase a category winner
type ShowcaseStartRequest struct {
	CategoryID string `json:"categoryId" validate:"required"`
}

// SettingsUpdateRequest represents a request to update settings
type SettingsUpdateRequest struct {
	BaseURL *string `json:"baseUrl" validate:"omitempty,max=2048"`
}
