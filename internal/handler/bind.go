package handler

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	pkglog "github.com/weiawesome/microblog/pkg/log"
	"github.com/weiawesome/microblog/pkg/response"
)

// bindJSON decodes the request body into req. On failure it answers 400
// and returns false. missing is the message used when a required field
// is absent. An empty body binds as an empty object.
func bindJSON(c *gin.Context, req any, missing string) bool {
	err := c.ShouldBindJSON(req)
	if errors.Is(err, io.EOF) {
		err = binding.Validator.ValidateStruct(req)
	}
	if err == nil {
		return true
	}

	l := pkglog.Ctx(c.Request.Context())
	l.Warn().Err(err).Msg("failed to bind request body")

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		response.BadRequest(c, "request body must be a JSON object")
		return false
	}
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			response.BadRequest(c, missing)
			return false
		}
	}
	fe := verrs[0]
	response.BadRequest(c, fmt.Sprintf("%s must be at most %s characters", jsonName(fe), fe.Param()))
	return false
}

// jsonName converts a struct field name such as AboutMe to about_me.
func jsonName(fe validator.FieldError) string {
	var b strings.Builder
	for i, r := range fe.Field() {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
