package models

import "strings"

// Form is the subscribe form configured for a Facebook Page. The subscribe
// flow looks forms up by page_id and uses the first match.
type Form struct {
	BaseModel
	AccountID     uint   `json:"account_id" gorm:"not null;index"`
	PageID        string `json:"page_id" gorm:"not null;index"`
	ClientID      string `json:"client_id"`
	ListID        string `json:"list_id"`
	IntroMessage  string `json:"intro_message" gorm:"type:text"`
	ThanksMessage string `json:"thanks_message" gorm:"type:text"`

	Account      *Account      `json:"-" gorm:"foreignKey:AccountID"`
	CustomFields []CustomField `json:"custom_fields,omitempty" gorm:"foreignKey:FormID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// Validate reports whether the form may be saved. Intro and thanks messages
// must be non-blank after trimming and the form must belong to an account.
func (f *Form) Validate() []string {
	var problems []string
	if strings.TrimSpace(f.IntroMessage) == "" {
		problems = append(problems, "intro message must not be blank")
	}
	if strings.TrimSpace(f.ThanksMessage) == "" {
		problems = append(problems, "thanks message must not be blank")
	}
	if f.AccountID == 0 {
		problems = append(problems, "form must belong to an account")
	}
	return problems
}

// FieldOptionsDelimiter joins multi-value option lists for storage.
const FieldOptionsDelimiter = "^"

// CustomField mirrors one Campaign Monitor custom field definition selected
// for a form. The set is owned wholly by its form and replaced together.
type CustomField struct {
	BaseModel
	FormID       uint   `json:"form_id" gorm:"not null;index"`
	Name         string `json:"name"`
	FieldKey     string `json:"field_key"` // bracketed, e.g. "[field]"
	DataType     string `json:"data_type"`
	FieldOptions string `json:"field_options"` // "^"-joined option list
}

// FieldID is the HTML-form-safe id for the field: the key without its
// surrounding square brackets, e.g. "[city]" -> "city".
func (cf CustomField) FieldID() string {
	return strings.Trim(cf.FieldKey, "[]")
}

// Options splits the stored option list.
func (cf CustomField) Options() []string {
	if cf.FieldOptions == "" {
		return nil
	}
	return strings.Split(cf.FieldOptions, FieldOptionsDelimiter)
}
