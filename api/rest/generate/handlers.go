package generate

import (
	"context"
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"codeberg.org/cvforge/server/cvforge/resumes"
	"codeberg.org/cvforge/server/internal/auth"
	"codeberg.org/cvforge/server/internal/errors"
	"codeberg.org/cvforge/server/internal/llm"
	"codeberg.org/cvforge/server/internal/logger"
	"codeberg.org/cvforge/server/internal/quota"
)

// Handler godoc
// @Summary Generate an enhanced CV
// @Description Consumes one daily credit and returns the fields the enhancer improved. The credit is refunded when enhancement fails.
// @Tags generate
// @Accept json
// @Produce json
// @Param request body Request true "CV data and optional prompt"
// @Success 200 {object} Response
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.QuotaExhaustedResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /api/v1/cv/generate [post]
// @Security BearerAuth
func Handler(svc *quota.Service, enhancer llm.Enhancer) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := auth.GetUserID(c)
		if !ok {
			errors.Unauthorized(c, "user not authenticated")
			return
		}

		// payload is validated before any quota mutation
		var req Request
		if err := c.ShouldBindJSON(&req); err != nil {
			errors.ValidationError(c, err)
			return
		}

		var result resumes.Enhancement

		snapshot, err := svc.ConsumeFor(c.Request.Context(), userID, func(ctx context.Context) error {
			enhancement, err := enhancer.Enhance(ctx, *req.CVData, req.Prompt)
			if err != nil {
				return err
			}

			result = enhancement
			return nil
		})

		var exhausted *quota.ExhaustedError

		switch {
		case err == nil:
		case stderrors.As(err, &exhausted):
			errors.QuotaExhausted(c, exhausted.Message(), exhausted.Snapshot.Used, exhausted.Snapshot.Total)
			return
		case stderrors.Is(err, quota.ErrNotAuthenticated):
			errors.Unauthorized(c, "user not authenticated")
			return
		case c.Request.Context().Err() != nil:
			// client went away; the credit stays spent
			logger.FromContext(c.Request.Context()).Warn("generation abandoned by client",
				"user_id", userID,
				"error", err,
			)
			return
		default:
			errors.InternalError(c, "failed to generate CV", err)
			return
		}

		c.JSON(http.StatusOK, Response{
			Success:   true,
			Result:    result,
			Remaining: snapshot.Remaining,
			Used:      snapshot.Used,
			Total:     snapshot.Total,
		})
	}
}
