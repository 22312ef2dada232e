package api

import (
	"context"
	"log/slog"
	"net/http"

	"chili-cookoff-backend/handlers"
	"chili-cookoff-backend/identity"
	"chili-cookoff-backend/models"
	"chili-cookoff-backend/service"

	"github.com/gin-gonic/gin"
)

// BypassResolver turns an admin token into an AuthContext.
type BypassResolver interface {
	Context(ctx context.Context, token string) service.AuthContext
}

// IdentityConfig controls how voter identity is read and stored.
type IdentityConfig struct {
	CookieMaxAge int
	SecureCookie bool
	IPHashSalt   string
}

// VoteRequest is the body of a vote submission. The session comes from the
// session cookie, the fingerprint preferably from the X-Device-Fingerprint header.
type VoteRequest struct {
	OverallRating     int                    `json:"overall_rating"`
	CategoryRatings   models.CategoryRatings `json:"category_ratings"`
	Comments          string                 `json:"comments"`
	DeviceFingerprint string                 `json:"device_fingerprint"`
}

// VoterStatus lists what the caller's session has voted for.
type VoterStatus struct {
	SessionID    string   `json:"session_id"`
	VotedEntries []string `json:"voted_entries"`
}

// VoteController serves vote submission and voter status.
type VoteController struct {
	votes    *service.VoteService
	bypass   BypassResolver
	identity IdentityConfig
	log      *slog.Logger
}

func NewVoteController(votes *service.VoteService, bypass BypassResolver, cfg IdentityConfig, log *slog.Logger) *VoteController {
	if cfg.CookieMaxAge == 0 {
		cfg.CookieMaxAge = 365 * 24 * 60 * 60
	}
	return &VoteController{votes: votes, bypass: bypass, identity: cfg, log: log}
}

// RegisterRoutes registers the vote routes. limit guards the submission endpoint.
func (c *VoteController) RegisterRoutes(api *gin.RouterGroup, limit gin.HandlerFunc) {
	api.POST("/entries/:id/votes", limit, c.SubmitVote)
	api.GET("/voter/status", c.GetVoterStatus)
}

func (c *VoteController) provider(ctx *gin.Context, bodyFingerprint string) *identity.Provider {
	store := identity.NewCookieStore(ctx, c.identity.CookieMaxAge, c.identity.SecureCookie)
	if header := ctx.GetHeader(identity.HeaderSessionID); header != "" {
		if _, ok := store.Get(identity.KeySession); !ok {
			store.Set(identity.KeySession, header)
		}
	}

	fp := ctx.GetHeader(identity.HeaderFingerprint)
	if fp == "" {
		fp = bodyFingerprint
	}
	return identity.NewProvider(store, identity.Static(fp), identity.TraitsFromRequest(ctx.Request))
}

// SubmitVote
// @Summary Submit a vote
// @Description Rates an entry. Duplicate votes are answered with 409 and a reason.
// @Tags votes
// @Accept json
// @Produce json
// @Param id path string true "Entry ID"
// @Param vote body VoteRequest true "Ratings"
// @Success 201 {object} models.VoteResult
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} models.VoteResult
// @Failure 429 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /api/entries/{id}/votes [post]
func (c *VoteController) SubmitVote(ctx *gin.Context) {
	var req VoteRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request: " + err.Error()})
		return
	}

	entryID := ctx.Param("id")
	reqCtx := ctx.Request.Context()
	voter := c.provider(ctx, req.DeviceFingerprint)

	sub := models.VoteSubmission{
		EntryID:           entryID,
		OverallRating:     req.OverallRating,
		CategoryRatings:   req.CategoryRatings,
		Comments:          req.Comments,
		SessionID:         voter.SessionID(),
		DeviceFingerprint: voter.DeviceFingerprint(reqCtx),
		IPAddress:         identity.HashIP(ctx.ClientIP(), c.identity.IPHashSalt),
	}
	auth := c.bypass.Context(reqCtx, handlers.AdminToken(ctx))

	result, err := c.votes.SubmitVote(reqCtx, sub, auth)
	if err != nil {
		writeError(ctx, c.log, err)
		return
	}

	if result.Accepted {
		voter.MarkVoted(entryID)
		ctx.JSON(http.StatusCreated, result)
		return
	}
	if result.Reason != service.ReasonNetworkRecent {
		voter.MarkVoted(entryID)
	}
	ctx.JSON(http.StatusConflict, result)
}

// GetVoterStatus returns the entries the caller's session voted for and
// refreshes the client-side cache from them.
func (c *VoteController) GetVoterStatus(ctx *gin.Context) {
	voter := c.provider(ctx, "")
	sessionID := voter.SessionID()

	ids, err := c.votes.VotedEntries(ctx.Request.Context(), sessionID)
	if err != nil {
		writeError(ctx, c.log, err)
		return
	}
	voter.ReplaceVoted(ids)

	ctx.JSON(http.StatusOK, VoterStatus{SessionID: sessionID, VotedEntries: ids})
}
