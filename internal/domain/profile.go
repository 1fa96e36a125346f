package domain

// DefaultEmoji is the avatar assigned to new profiles.
const DefaultEmoji = "👨‍🍳"

// UserProfile is the single profile record for a user. RecipeCount is a
// cached projection of the user's recipe collection, not a source of truth.
type UserProfile struct {
	ID          string  `json:"id"`
	UserID      string  `json:"userId"`
	Name        string  `json:"name"`
	PhoneNumber *string `json:"phoneNumber,omitempty"`
	Emoji       string  `json:"profileEmoji"`
	RecipeCount int     `json:"recipeCount"`
}

// Phone returns the phone number, or "" when unset.
func (p UserProfile) Phone() string {
	if p.PhoneNumber == nil {
		return ""
	}
	return *p.PhoneNumber
}
