package middleware

import (
	"github.com/gin-gonic/gin"
	"golang.org/x/text/language"

	pkglog "github.com/weiawesome/microblog/pkg/log"
)

// LocaleKey is the gin context key holding the negotiated locale.
const LocaleKey = pkglog.FieldLocale

// Locale negotiates the response language from Accept-Language against
// the supported list. The first supported language is the fallback.
func Locale(supported ...string) gin.HandlerFunc {
	if len(supported) == 0 {
		supported = []string{"en"}
	}

	tags := make([]language.Tag, 0, len(supported))
	for _, s := range supported {
		tags = append(tags, language.Make(s))
	}
	matcher := language.NewMatcher(tags)

	return func(c *gin.Context) {
		locale := BestMatch(matcher, supported, c.GetHeader("Accept-Language"))
		c.Set(LocaleKey, locale)
		c.Header("Content-Language", locale)
		c.Next()
	}
}

// BestMatch returns the supported entry that best matches header.
func BestMatch(m language.Matcher, supported []string, header string) string {
	desired, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(desired) == 0 {
		return supported[0]
	}
	_, idx, conf := m.Match(desired...)
	if conf == language.No {
		return supported[0]
	}
	return supported[idx]
}

// GetLocale returns the locale chosen by Locale, or "" outside it.
func GetLocale(c *gin.Context) string {
	return c.GetString(LocaleKey)
}
