package api

import (
	"log/slog"
	"net/http"
	"strings"

	"chili-cookoff-backend/models"
	"chili-cookoff-backend/service"

	"github.com/gin-gonic/gin"
)

// HeaderWebhookSecret carries the shared webhook secret.
const HeaderWebhookSecret = "X-Webhook-Secret"

// WebhookRequest accepts either flat entry fields or the question/answer map
// posted by a Google Forms Apps Script trigger.
type WebhookRequest struct {
	Name        string            `json:"name"`
	ChefName    string            `json:"chef_name"`
	Description string            `json:"description"`
	Ingredients string            `json:"ingredients"`
	Responses   map[string]string `json:"responses"`
}

// form question titles, matched case-insensitively
var formFields = map[string]string{
	"chili name":  "name",
	"name":        "name",
	"chef name":   "chef_name",
	"your name":   "chef_name",
	"chef":        "chef_name",
	"description": "description",
	"ingredients": "ingredients",
}

// Input flattens the request into entry fields. Flat fields win over form answers.
func (r WebhookRequest) Input() models.EntryInput {
	in := models.EntryInput{
		Name:        r.Name,
		ChefName:    r.ChefName,
		Description: r.Description,
		Ingredients: r.Ingredients,
	}

	for question, answer := range r.Responses {
		field, ok := formFields[strings.ToLower(strings.TrimSpace(question))]
		if !ok {
			continue
		}
		switch field {
		case "name":
			in.Name = firstNonEmpty(in.Name, answer)
		case "chef_name":
			in.ChefName = firstNonEmpty(in.ChefName, answer)
		case "description":
			in.Description = firstNonEmpty(in.Description, answer)
		case "ingredients":
			in.Ingredients = firstNonEmpty(in.Ingredients, answer)
		}
	}
	return in
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return a
	}
	return b
}

// WebhookController creates entries from form submissions.
type WebhookController struct {
	entries *service.EntryService
	log     *slog.Logger
}

func NewWebhookController(entries *service.EntryService, log *slog.Logger) *WebhookController {
	return &WebhookController{entries: entries, log: log}
}

func (c *WebhookController) RegisterRoutes(api *gin.RouterGroup) {
	api.POST("/webhook/entries", c.CreateEntry)
}

// CreateEntry
// @Summary Create an entry from a form submission
// @Tags webhook
// @Accept json
// @Produce json
// @Param X-Webhook-Secret header string true "Shared secret"
// @Success 201 {object} models.Entry
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/webhook/entries [post]
func (c *WebhookController) CreateEntry(ctx *gin.Context) {
	var req WebhookRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request: " + err.Error()})
		return
	}

	entry, err := c.entries.CreateFromWebhook(ctx.Request.Context(), ctx.GetHeader(HeaderWebhookSecret), req.Input())
	if err != nil {
		writeError(ctx, c.log, err)
		return
	}
	c.log.Info("entry created from webhook", "entry_id", entry.ID, "name", entry.Name)
	ctx.JSON(http.StatusCreated, entry)
}
