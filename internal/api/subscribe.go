package api

import (
	"encoding/json"
	"html/template"
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"

	"cmfbsub/internal/models"
	"cmfbsub/internal/response"
	"cmfbsub/internal/services"
	"cmfbsub/pkg/logging"
)

const subscribeErrorMessage = "Sorry, there was a problem subscribing you to our list. Please try again."

// Tab renders the embeddable subscribe form for the page the tab is
// installed on, or a not-configured state when no form has been saved.
// GET /tab (Facebook POSTs the page tab request with a signed_request)
func (h *Handler) Tab(c *gin.Context) {
	pageID := h.signedRequest(c).PageID()

	var form *models.Form
	var fields []models.CustomField
	if pageID != "" {
		var err error
		if form, err = h.store.FormByPageID(pageID); err != nil {
			logging.Errorf("Failed to load form for page %s: %v", pageID, err)
			form = nil
		}
		if form != nil {
			if fields, err = h.store.CustomFieldsByForm(form.ID); err != nil {
				logging.Errorf("Failed to load custom fields: %v", err)
				fields = nil
			}
		}
	}

	jsData, _ := json.Marshal(gin.H{"page_id": pageID})
	c.HTML(http.StatusOK, "subscribe.html", gin.H{
		"JSConf": h.jsConf(c),
		"JSData": template.JS(jsData),
		"PageID": pageID,
		"Form":   form,
		"Fields": fields,
	})
}

// Subscribe processes a visitor submission against Campaign Monitor.
// Always answers 200; success or error is carried in the status body.
// POST /subscribe/:pageId
func (h *Handler) Subscribe(c *gin.Context) {
	pageID := c.Param("pageId")

	form, err := h.store.FormByPageID(pageID)
	if err != nil || form == nil {
		response.OK(c, response.Error(subscribeErrorMessage))
		return
	}
	account, err := h.store.AccountForForm(form)
	if err != nil {
		logging.Errorf("Failed to load account for form %d: %v", form.ID, err)
		response.OK(c, response.Error(subscribeErrorMessage))
		return
	}

	err = h.cs.AddSubscriber(account.APIKey, form.ListID,
		strings.TrimSpace(c.PostForm("email")), strings.TrimSpace(c.PostForm("name")),
		collectCustomFieldValues(c), true)
	if err != nil {
		logging.Errorf("Failed to add subscriber to list %s: %v", form.ListID, err)
		response.OK(c, response.Error(subscribeErrorMessage))
		return
	}

	response.OK(c, response.Success(form.ThanksMessage))
}

// collectCustomFieldValues turns the submitted cf- parameters into
// {Key, Value} pairs. A multi-value selection contributes one pair per
// selected value, sharing the same key.
func collectCustomFieldValues(c *gin.Context) []services.SubscriberField {
	var fields []services.SubscriberField
	_ = c.Request.ParseForm()

	params := make([]string, 0, len(c.Request.PostForm))
	for param := range c.Request.PostForm {
		params = append(params, param)
	}
	sort.Strings(params)

	for _, param := range params {
		if !strings.HasPrefix(param, "cf-") {
			continue
		}
		key := "[" + strings.TrimPrefix(param, "cf-") + "]"
		for _, value := range c.Request.PostForm[param] {
			fields = append(fields, services.SubscriberField{Key: key, Value: value})
		}
	}
	return fields
}
