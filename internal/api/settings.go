package api

import (
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"cmfbsub/internal/models"
	"cmfbsub/internal/response"
	"cmfbsub/internal/services"
	"cmfbsub/pkg/logging"
)

// Settings renders the page-admin configuration UI. Three states: not
// authenticated with Facebook (redirected by checkAuth), authenticated but
// not signed into Campaign Monitor, and fully linked.
// GET /
func (h *Handler) Settings(c *gin.Context) {
	if !h.checkAuth(c) {
		return
	}

	token := h.token(c)
	user, err := h.fb.CurrentUser(token)
	if err != nil {
		logging.Errorf("Failed to fetch current user: %v", err)
	}

	var pages []services.Page
	var account *models.Account
	var clients []services.Client
	if user != nil {
		if pages, err = h.fb.Pages(token); err != nil {
			logging.Errorf("Failed to fetch pages: %v", err)
			pages = nil
		}
		if account, err = h.store.AccountByUserID(user.ID); err != nil {
			logging.Errorf("Failed to load account: %v", err)
			account = nil
		}
	}
	if account != nil {
		if clients, err = h.cs.GetClients(account.APIKey); err != nil {
			logging.Errorf("Failed to fetch clients: %v", err)
			clients = nil
		}
	}

	savedForms, formFields, err := h.store.SavedForms(account)
	if err != nil {
		logging.Errorf("Failed to load saved forms: %v", err)
	}

	var jsData template.JS
	if account != nil && user != nil {
		data, _ := json.Marshal(gin.H{
			"account": gin.H{
				"api_key": account.APIKey,
				"user_id": user.ID,
				"clients": clients,
				"saved_forms": gin.H{
					"forms":  savedForms,
					"fields": formFields,
				},
			},
		})
		jsData = template.JS(data)
	}

	sess := sessions.Default(c)
	flash, _ := sess.Get(sessionError).(string)

	c.HTML(http.StatusOK, "settings.html", gin.H{
		"JSConf":     h.jsConf(c),
		"JSData":     jsData,
		"Flash":      flash,
		"User":       user,
		"Pages":      pages,
		"Account":    account,
		"Clients":    clients,
		"SavedForms": savedForms,
		"FormFields": formFields,
	})
}

// SavedPage renders the post-save confirmation with a "next" link: the
// page itself when the tab is already installed, otherwise the Facebook
// add-to-page dialog.
// GET /saved/:pageId
func (h *Handler) SavedPage(c *gin.Context) {
	pageID := c.Param("pageId")
	page, err := h.fb.GetPage(pageID, h.token(c))
	if err != nil {
		logging.Errorf("Failed to fetch page %s: %v", pageID, err)
		c.HTML(http.StatusInternalServerError, "error.html", nil)
		return
	}

	nextURL := page.Link
	if !page.HasAddedApp {
		nextURL = fmt.Sprintf("http://www.facebook.com/add.php?api_key=%s&pages=1&page=%s",
			h.cfg.AppAPIKey, page.ID)
	}

	c.HTML(http.StatusOK, "saved.html", gin.H{
		"JSConf":  h.jsConf(c),
		"Page":    page,
		"NextURL": nextURL,
	})
}

// APIKey exchanges submitted Campaign Monitor credentials for an API key
// and links the resulting account to the authenticated Facebook user.
// POST /apikey
func (h *Handler) APIKey(c *gin.Context) {
	apiKey, err := h.cs.GetAPIKey(c.PostForm("site_url"), c.PostForm("username"), c.PostForm("password"))
	if err != nil {
		logging.Errorf("API key exchange failed: %v", err)
	}

	user, userErr := h.fb.CurrentUser(h.token(c))
	if userErr != nil {
		logging.Errorf("Failed to fetch current user: %v", userErr)
		user = nil
	}

	if err != nil || apiKey == "" || user == nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Error getting API key..."})
		return
	}

	account, err := h.store.FirstOrCreateAccount(user.ID, apiKey)
	if err != nil {
		logging.Errorf("Failed to create account: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"message": "Error getting API key..."})
		return
	}

	clients, err := h.cs.GetClients(account.APIKey)
	if err != nil {
		clients = nil
	}

	c.JSON(http.StatusOK, gin.H{
		"account": gin.H{
			"api_key": account.APIKey,
			"user_id": user.ID,
			"clients": emptyIfNil(clients),
		},
	})
}

// Clients is a read-through to the Campaign Monitor clients list.
// Upstream failures yield an empty array, never an HTTP error.
// GET /clients/:apiKey
func (h *Handler) Clients(c *gin.Context) {
	clients, err := h.cs.GetClients(c.Param("apiKey"))
	if err != nil {
		clients = nil
	}
	c.JSON(http.StatusOK, emptyIfNil(clients))
}

// Lists is a read-through to a client's subscriber lists.
// GET /lists/:apiKey/:clientId
func (h *Handler) Lists(c *gin.Context) {
	lists, err := h.cs.GetLists(c.Param("apiKey"), c.Param("clientId"))
	if err != nil {
		lists = nil
	}
	c.JSON(http.StatusOK, emptyIfNil(lists))
}

// CustomFields is a read-through to a list's custom field definitions.
// GET /customfields/:apiKey/:listId
func (h *Handler) CustomFields(c *gin.Context) {
	fields, err := h.cs.GetCustomFields(c.Param("apiKey"), c.Param("listId"))
	if err != nil {
		fields = nil
	}
	c.JSON(http.StatusOK, emptyIfNil(fields))
}

// SavePage upserts the subscribe form for a page and replaces its custom
// field set from the submitted cf- parameters, matched against the list's
// live field definitions. Vendor failures answer 200 with a failure status;
// validation failures answer 400.
// POST /page/:pageId
func (h *Handler) SavePage(c *gin.Context) {
	if !h.checkAuth(c) {
		return
	}
	pageID := c.Param("pageId")

	user, err := h.fb.CurrentUser(h.token(c))
	if err != nil || user == nil {
		logging.Errorf("Failed to fetch current user: %v", err)
		c.JSON(http.StatusBadRequest, response.Error("You must be signed into Facebook to save a form."))
		return
	}

	account, err := h.store.AccountByUserAndKey(user.ID, c.PostForm("api_key"))
	if err != nil || account == nil {
		c.JSON(http.StatusBadRequest, response.Error("No linked Campaign Monitor account was found."))
		return
	}

	form, err := h.store.FormByAccountAndPage(account.ID, pageID)
	if err != nil {
		logging.Errorf("Failed to load form for page %s: %v", pageID, err)
	}
	if form == nil {
		form = &models.Form{AccountID: account.ID, PageID: pageID}
	}
	form.ClientID = c.PostForm("client_id")
	form.ListID = c.PostForm("list_id")
	form.IntroMessage = strings.TrimSpace(c.PostForm("intro_message"))
	form.ThanksMessage = strings.TrimSpace(c.PostForm("thanks_message"))

	if problems := form.Validate(); len(problems) > 0 {
		c.JSON(http.StatusBadRequest, response.Error(strings.Join(problems, "; ")))
		return
	}

	pageName := "your page"
	if page, pageErr := h.fb.GetPage(pageID, h.token(c)); pageErr == nil {
		pageName = page.Name
	}

	defs, err := h.cs.GetCustomFields(account.APIKey, form.ListID)
	if err != nil {
		logging.Errorf("Failed to fetch custom fields for list %s: %v", form.ListID, err)
		response.OK(c, response.Failure(saveFailureMessage(pageName)))
		return
	}

	fields := matchCustomFields(c, defs)
	if err := h.store.SaveFormReplacingFields(form, fields); err != nil {
		logging.Errorf("Failed to save form for page %s: %v", pageID, err)
		response.OK(c, response.Failure(saveFailureMessage(pageName)))
		return
	}

	response.OK(c, response.Success(
		fmt.Sprintf("Thanks, you successfully saved your subscribe form for %s.", pageName)))
}

func saveFailureMessage(pageName string) string {
	return fmt.Sprintf("Sorry, something went wrong while saving your subscribe form for %s. Please try again.", pageName)
}

// matchCustomFields pairs submitted cf- parameters with the list's field
// definitions. The stored field id strips the surrounding square brackets
// for HTML form-safe naming, so "cf-city" matches the definition keyed
// "[city]". Unmatched parameters are dropped.
func matchCustomFields(c *gin.Context, defs []services.CustomFieldDef) []models.CustomField {
	var fields []models.CustomField
	_ = c.Request.ParseForm()
	for param := range c.Request.PostForm {
		if !strings.HasPrefix(param, "cf-") {
			continue
		}
		key := "[" + strings.TrimPrefix(param, "cf-") + "]"
		for _, def := range defs {
			if def.Key == key {
				fields = append(fields, models.CustomField{
					Name:         def.FieldName,
					FieldKey:     def.Key,
					DataType:     def.DataType,
					FieldOptions: strings.Join(def.FieldOptions, models.FieldOptionsDelimiter),
				})
				break
			}
		}
	}
	return fields
}

// jsConf is the bootstrap payload for the client-side script.
func (h *Handler) jsConf(c *gin.Context) template.JS {
	var uid interface{}
	if h.token(c) != "" {
		uid = h.uid(c)
	}
	conf, _ := json.Marshal(gin.H{
		"appId":          h.cfg.AppID,
		"canvasName":     h.cfg.AppCanvasName,
		"userIdOnServer": uid,
	})
	return template.JS(conf)
}

// emptyIfNil keeps upstream-failure responses as JSON arrays, not null.
func emptyIfNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
