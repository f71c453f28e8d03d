package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// EligibilityVerifier asks the account backend whether a subject may use the
// tracking feature (standing, outstanding flags). It is an external
// collaborator and can be unreachable.
type EligibilityVerifier interface {
	IsEligible(ctx context.Context, subjectID string) (bool, error)
}

// EligibilityMiddleware gates tracking actions on account standing. It fails
// OPEN: when the verifier itself errors, access is granted and the error is
// logged, because availability of a safety feature outweighs strict gating
// while the gating service is down. A definite "not eligible" still blocks.
func EligibilityMiddleware(verifier EligibilityVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		subjectID := c.GetString("subjectID")
		if subjectID == "" {
			c.Next()
			return
		}

		eligible, err := verifier.IsEligible(c.Request.Context(), subjectID)
		if err != nil {
			zap.L().Error("eligibility check failed, allowing access",
				zap.String("subjectId", subjectID), zap.Error(err))
			c.Next()
			return
		}
		if !eligible {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "Account is not eligible for this action",
			})
			return
		}
		c.Next()
	}
}
