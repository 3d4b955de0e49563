package models

// Account links a Facebook user to a Campaign Monitor account.
// At most one row exists per (user_id, api_key) pair; rows are created with
// FirstOrCreate when the user exchanges their credentials for an API key and
// removed when Facebook reports the app was deauthorized.
type Account struct {
	BaseModel
	UserID string `json:"user_id" gorm:"not null;index:idx_account_user_key"`
	APIKey string `json:"api_key" gorm:"not null;index:idx_account_user_key"`

	Forms []Form `json:"forms,omitempty" gorm:"foreignKey:AccountID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}
