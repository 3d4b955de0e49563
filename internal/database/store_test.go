package database

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"

	"cmfbsub/internal/models"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		NamingStrategy: schema.NamingStrategy{SingularTable: true},
	})
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))
	return db
}

func TestFirstOrCreateAccountDoesNotDuplicate(t *testing.T) {
	store := NewStore(openTestDB(t))

	first, err := store.FirstOrCreateAccount("7654321", "testapikey")
	require.NoError(t, err)
	second, err := store.FirstOrCreateAccount("7654321", "testapikey")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	// A different key for the same user is a separate account.
	third, err := store.FirstOrCreateAccount("7654321", "otherkey")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, third.ID)
}

func TestAccountLookups(t *testing.T) {
	store := NewStore(openTestDB(t))

	account, err := store.AccountByUserID("nobody")
	require.NoError(t, err)
	assert.Nil(t, account)

	created, err := store.FirstOrCreateAccount("7654321", "testapikey")
	require.NoError(t, err)

	account, err = store.AccountByUserID("7654321")
	require.NoError(t, err)
	require.NotNil(t, account)
	assert.Equal(t, created.ID, account.ID)

	account, err = store.AccountByUserAndKey("7654321", "wrongkey")
	require.NoError(t, err)
	assert.Nil(t, account)

	account, err = store.AccountByUserAndKey("7654321", "testapikey")
	require.NoError(t, err)
	require.NotNil(t, account)
}

func TestSaveFormReplacingFields(t *testing.T) {
	db := openTestDB(t)
	store := NewStore(db)

	account, err := store.FirstOrCreateAccount("7654321", "testapikey")
	require.NoError(t, err)

	form := &models.Form{
		AccountID:     account.ID,
		PageID:        "111",
		ClientID:      "clientid",
		ListID:        "listid",
		IntroMessage:  "Hi",
		ThanksMessage: "Bye",
	}
	err = store.SaveFormReplacingFields(form, []models.CustomField{
		{Name: "City", FieldKey: "[city]", DataType: "Text"},
		{Name: "Age", FieldKey: "[age]", DataType: "Number"},
	})
	require.NoError(t, err)
	require.NotZero(t, form.ID)

	fields, err := store.CustomFieldsByForm(form.ID)
	require.NoError(t, err)
	require.Len(t, fields, 2)
	// Ordered by name ascending.
	assert.Equal(t, "Age", fields[0].Name)
	assert.Equal(t, "City", fields[1].Name)

	// A re-save replaces the set wholesale, leaving no leftovers.
	err = store.SaveFormReplacingFields(form, []models.CustomField{
		{Name: "Country", FieldKey: "[country]", DataType: "MultiSelectOne", FieldOptions: "Australia^New Zealand"},
	})
	require.NoError(t, err)

	fields, err = store.CustomFieldsByForm(form.ID)
	require.NoError(t, err)
	require.Len(t, fields, 1)
	assert.Equal(t, "[country]", fields[0].FieldKey)
	assert.Equal(t, []string{"Australia", "New Zealand"}, fields[0].Options())

	var count int64
	require.NoError(t, db.Model(&models.Form{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestFormByPageID(t *testing.T) {
	store := NewStore(openTestDB(t))

	form, err := store.FormByPageID("missing")
	require.NoError(t, err)
	assert.Nil(t, form)

	account, err := store.FirstOrCreateAccount("7654321", "testapikey")
	require.NoError(t, err)
	saved := &models.Form{AccountID: account.ID, PageID: "111", IntroMessage: "Hi", ThanksMessage: "Bye"}
	require.NoError(t, store.SaveFormReplacingFields(saved, nil))

	form, err = store.FormByPageID("111")
	require.NoError(t, err)
	require.NotNil(t, form)
	assert.Equal(t, saved.ID, form.ID)

	owner, err := store.AccountForForm(form)
	require.NoError(t, err)
	assert.Equal(t, "testapikey", owner.APIKey)
}

func TestDeleteAccountsByUserIDCascades(t *testing.T) {
	db := openTestDB(t)
	store := NewStore(db)

	// Deleting for an unknown user is not an error.
	require.NoError(t, store.DeleteAccountsByUserID("nobody"))

	first, err := store.FirstOrCreateAccount("7654321", "key-one")
	require.NoError(t, err)
	second, err := store.FirstOrCreateAccount("7654321", "key-two")
	require.NoError(t, err)

	form := &models.Form{AccountID: first.ID, PageID: "111", IntroMessage: "Hi", ThanksMessage: "Bye"}
	require.NoError(t, store.SaveFormReplacingFields(form, []models.CustomField{
		{Name: "City", FieldKey: "[city]", DataType: "Text"},
	}))
	other := &models.Form{AccountID: second.ID, PageID: "222", IntroMessage: "Hi", ThanksMessage: "Bye"}
	require.NoError(t, store.SaveFormReplacingFields(other, nil))

	require.NoError(t, store.DeleteAccountsByUserID("7654321"))

	var accounts, forms, fields int64
	require.NoError(t, db.Model(&models.Account{}).Count(&accounts).Error)
	require.NoError(t, db.Model(&models.Form{}).Count(&forms).Error)
	require.NoError(t, db.Model(&models.CustomField{}).Count(&fields).Error)
	assert.Zero(t, accounts)
	assert.Zero(t, forms)
	assert.Zero(t, fields)
}

func TestSavedForms(t *testing.T) {
	store := NewStore(openTestDB(t))

	forms, fields, err := store.SavedForms(nil)
	require.NoError(t, err)
	assert.Empty(t, forms)
	assert.Empty(t, fields)

	account, err := store.FirstOrCreateAccount("7654321", "testapikey")
	require.NoError(t, err)
	form := &models.Form{AccountID: account.ID, PageID: "111", IntroMessage: "Hi", ThanksMessage: "Bye"}
	require.NoError(t, store.SaveFormReplacingFields(form, []models.CustomField{
		{Name: "City", FieldKey: "[city]", DataType: "Text"},
	}))

	forms, fields, err = store.SavedForms(account)
	require.NoError(t, err)
	require.Contains(t, forms, "111")
	assert.Len(t, fields[form.ID], 1)
}
