package response

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Additional-Code/handyman/pkg/errorbank"
)

// ErrorKey is the echo context key holding the error rendered for a request.
const ErrorKey = "response.error"

// Builder renders the {success, data | error} envelope shared by every
// endpoint.
type Builder struct {
	ctx    echo.Context
	status int
	data   any
	err    error
	meta   map[string]any
}

type successBody struct {
	Success bool           `json:"success"`
	Data    any            `json:"data,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
}

type errorBody struct {
	Success bool           `json:"success"`
	Error   errorDetail    `json:"error"`
	Meta    map[string]any `json:"meta,omitempty"`
}

type errorDetail struct {
	Kind    string         `json:"kind"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// New instantiates a Builder for the provided request context.
func New(ctx echo.Context) *Builder {
	return &Builder{ctx: ctx, status: http.StatusOK}
}

// WithStatus overrides the response status code.
func (b *Builder) WithStatus(status int) *Builder {
	if status > 0 {
		b.status = status
	}
	return b
}

// WithData attaches a success payload.
func (b *Builder) WithData(data any) *Builder {
	b.data = data
	return b
}

// Created marks the response as 201 with data as payload.
func (b *Builder) Created(data any) *Builder {
	return b.WithStatus(http.StatusCreated).WithData(data)
}

// WithError records an error to be rendered.
func (b *Builder) WithError(err error) *Builder {
	b.err = err
	return b
}

// WithMeta appends auxiliary metadata to the response.
func (b *Builder) WithMeta(key string, value any) *Builder {
	if key == "" {
		return b
	}
	if b.meta == nil {
		b.meta = make(map[string]any)
	}
	b.meta[key] = value
	return b
}

// WithTotal records the item count of a list payload.
func (b *Builder) WithTotal(n int) *Builder {
	return b.WithMeta("total", n)
}

// Build finalises and emits the HTTP response.
func (b *Builder) Build() error {
	if b.err != nil {
		return b.buildError()
	}
	return b.ctx.JSON(b.status, successBody{Success: true, Data: b.data, Meta: b.meta})
}

func (b *Builder) buildError() error {
	appErr := errorbank.From(b.err)
	b.ctx.Set(ErrorKey, appErr)

	status := b.status
	if status < http.StatusBadRequest {
		status = appErr.StatusCode()
	}
	// Echo sets the request id on the response before handlers run.
	if id := b.ctx.Response().Header().Get(echo.HeaderXRequestID); id != "" {
		b.WithMeta("request_id", id)
	}

	return b.ctx.JSON(status, errorBody{
		Error: errorDetail{
			Kind:    string(appErr.Kind()),
			Message: appErr.Message(),
			Details: appErr.Details(),
		},
		Meta: b.meta,
	})
}
