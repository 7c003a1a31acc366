package httputil

import (
	"net/http"
	"net/url"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
)

// RedirectWithQuery sends a 302 to target with params merged into its query string.
// Existing query parameters of target are kept unless params overrides them.
func RedirectWithQuery(c *gin.Context, target string, params url.Values) {
	u, err := url.Parse(target)
	if err != nil {
		c.JSON(internalErrorRule.status, ErrorResponse{
			Error:     internalErrorRule.code,
			Message:   internalErrorRule.message,
			RequestID: requestid.Get(c),
		})
		return
	}

	query := u.Query()
	for key, values := range params {
		query.Del(key)
		for _, v := range values {
			query.Add(key, v)
		}
	}
	u.RawQuery = query.Encode()

	c.Redirect(http.StatusFound, u.String())
}
