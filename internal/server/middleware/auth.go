package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/nulzo/bifrost/internal/auth"
	"github.com/nulzo/bifrost/pkg/api"
)

// VirtualKeyAuth resolves the x-bf-vk credential into an auth outcome and
// stashes it on the request context. The outcome is uniform for the whole
// request: model listing and routing both read the same resolution.
//
// With rejectInvalid off (the default), unknown and inactive credentials are
// treated exactly like an absent header: the request proceeds unrestricted.
// With it on, such requests fail with 403 before reaching any handler.
func VirtualKeyAuth(resolver *auth.Resolver, rejectInvalid bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		credential := c.GetHeader(api.HeaderVirtualKey)

		outcome, err := resolver.Resolve(c.Request.Context(), credential)
		if err != nil {
			// a store failure must not silently degrade into an
			// unrestricted catalog
			_ = c.Error(api.InternalError("failed to resolve virtual key", err))
			c.Abort()
			return
		}

		if rejectInvalid {
			switch outcome.Kind {
			case auth.UnknownCredential:
				_ = c.Error(api.AuthPolicyError("unknown virtual key"))
				c.Abort()
				return
			case auth.ValidInactiveKey:
				_ = c.Error(api.AuthPolicyError("virtual key is inactive"))
				c.Abort()
				return
			}
		}

		c.Request = c.Request.WithContext(auth.WithOutcome(c.Request.Context(), outcome))
		c.Next()
	}
}
