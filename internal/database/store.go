package database

import (
	"errors"

	"cmfbsub/internal/models"

	"gorm.io/gorm"
)

// Store is the query surface the handlers use.
type Store struct {
	db *gorm.DB
}

// NewStore creates a store over an open database
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// FirstOrCreateAccount finds the account for (userID, apiKey), creating it
// when missing. Repeated calls with the same pair never create a duplicate.
func (s *Store) FirstOrCreateAccount(userID, apiKey string) (*models.Account, error) {
	var account models.Account
	err := s.db.Where(&models.Account{UserID: userID, APIKey: apiKey}).
		FirstOrCreate(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// AccountByUserID returns the first account linked to a Facebook user,
// or nil when the user has not linked one.
func (s *Store) AccountByUserID(userID string) (*models.Account, error) {
	var account models.Account
	err := s.db.Where("user_id = ?", userID).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// AccountByUserAndKey returns the account for (userID, apiKey), or nil.
func (s *Store) AccountByUserAndKey(userID, apiKey string) (*models.Account, error) {
	var account models.Account
	err := s.db.Where("user_id = ? AND api_key = ?", userID, apiKey).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// DeleteAccountsByUserID removes every account stored for a Facebook user,
// cascading to owned forms and their custom fields. Deleting zero rows is
// not an error.
func (s *Store) DeleteAccountsByUserID(userID string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var accounts []models.Account
		if err := tx.Where("user_id = ?", userID).Find(&accounts).Error; err != nil {
			return err
		}
		for _, account := range accounts {
			var forms []models.Form
			if err := tx.Where("account_id = ?", account.ID).Find(&forms).Error; err != nil {
				return err
			}
			for _, form := range forms {
				if err := tx.Where("form_id = ?", form.ID).Delete(&models.CustomField{}).Error; err != nil {
					return err
				}
			}
			if err := tx.Where("account_id = ?", account.ID).Delete(&models.Form{}).Error; err != nil {
				return err
			}
			if err := tx.Delete(&account).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// FormByPageID returns the first form saved for a Facebook Page, or nil.
func (s *Store) FormByPageID(pageID string) (*models.Form, error) {
	var form models.Form
	err := s.db.Where("page_id = ?", pageID).First(&form).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &form, nil
}

// FormByAccountAndPage returns the form an account saved for a page, or nil.
func (s *Store) FormByAccountAndPage(accountID uint, pageID string) (*models.Form, error) {
	var form models.Form
	err := s.db.Where("account_id = ? AND page_id = ?", accountID, pageID).First(&form).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &form, nil
}

// SaveFormReplacingFields saves the form and replaces its custom field set
// with fields, all inside one transaction so a crash cannot leave the form
// with a partial field set.
func (s *Store) SaveFormReplacingFields(form *models.Form, fields []models.CustomField) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("CustomFields").Save(form).Error; err != nil {
			return err
		}
		if err := tx.Where("form_id = ?", form.ID).Delete(&models.CustomField{}).Error; err != nil {
			return err
		}
		for i := range fields {
			fields[i].ID = 0
			fields[i].FormID = form.ID
			if err := tx.Create(&fields[i]).Error; err != nil {
				return err
			}
		}
		form.CustomFields = fields
		return nil
	})
}

// CustomFieldsByForm returns a form's custom fields ordered by name ascending.
func (s *Store) CustomFieldsByForm(formID uint) ([]models.CustomField, error) {
	var fields []models.CustomField
	err := s.db.Where("form_id = ?", formID).Order("name ASC").Find(&fields).Error
	return fields, err
}

// AccountForForm loads the owning account of a form.
func (s *Store) AccountForForm(form *models.Form) (*models.Account, error) {
	var account models.Account
	err := s.db.First(&account, form.AccountID).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// SavedForms returns an account's forms indexed by page id, and their
// custom fields indexed by form id. Both maps are empty for a nil account.
func (s *Store) SavedForms(account *models.Account) (map[string]models.Form, map[uint][]models.CustomField, error) {
	forms := make(map[string]models.Form)
	fields := make(map[uint][]models.CustomField)
	if account == nil {
		return forms, fields, nil
	}

	var owned []models.Form
	if err := s.db.Where("account_id = ?", account.ID).Find(&owned).Error; err != nil {
		return nil, nil, err
	}
	for _, f := range owned {
		forms[f.PageID] = f
		cfs, err := s.CustomFieldsByForm(f.ID)
		if err != nil {
			return nil, nil, err
		}
		fields[f.ID] = cfs
	}
	return forms, fields, nil
}
