package apperr

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type body struct {
	Error   string       `json:"error"`
	Message string       `json:"message"`
	Errors  []FieldError `json:"errors,omitempty"`
}

// Responder writes errors as JSON bodies. Internal errors are logged and,
// unless Verbose is set, their details are hidden from the client.
type Responder struct {
	Log     logrus.FieldLogger
	Verbose bool
}

func (r Responder) Respond(c *gin.Context, err error) {
	ae := From(err)

	msg := ae.Message
	if ae.Kind == KindInternal {
		if r.Log != nil {
			r.Log.WithError(err).
				WithField("path", c.FullPath()).
				WithField("method", c.Request.Method).
				Error("request failed")
		}
		if r.Verbose && ae.Err != nil {
			msg = ae.Error()
		}
	}

	code := ae.Code
	if code == "" {
		code = ae.Kind.Code()
	}

	c.AbortWithStatusJSON(ae.HTTPStatus(), body{
		Error:   code,
		Message: msg,
		Errors:  ae.Fields,
	})
}

const ctxResponderKey = "apperr_responder"

// Middleware installs r for Respond calls made further down the chain.
func Middleware(r Responder) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ctxResponderKey, r)
		c.Next()
	}
}

// Respond writes err using the responder installed by Middleware, or a
// quiet default when none is present.
func Respond(c *gin.Context, err error) {
	r := Responder{}
	if v, ok := c.Get(ctxResponderKey); ok {
		if rr, ok := v.(Responder); ok {
			r = rr
		}
	}
	r.Respond(c, err)
}
