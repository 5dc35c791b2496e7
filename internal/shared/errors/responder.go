package errors

import (
	"errors"

	"github.com/gin-gonic/gin"
)

// ContentTypeProblemJSON is the media type for Problem Details responses.
const ContentTypeProblemJSON = "application/problem+json"

// ErrorMapper translates domain and application errors into problem
// documents. A false return passes the error to the next mapper.
type ErrorMapper func(err error) (ProblemDetail, bool)

// Responder writes Problem Details responses for a gin handler, running
// registered mappers before the default translation.
type Responder struct {
	// BaseURI is prepended to relative problem type URIs.
	BaseURI string
	mappers []ErrorMapper
}

// NewChainedResponder builds a responder that consults the given mappers in
// order when translating errors.
func NewChainedResponder(baseURI string, mappers ...ErrorMapper) *Responder {
	return &Responder{BaseURI: baseURI, mappers: mappers}
}

// Respond writes the problem document with the problem+json content type.
// The request path fills Instance when the problem leaves it empty.
func (r *Responder) Respond(c *gin.Context, problem ProblemDetail) {
	if r.BaseURI != "" && len(problem.Type) > 0 && problem.Type[0] == '/' {
		problem.Type = r.BaseURI + problem.Type
	}
	if problem.Instance == "" {
		problem.Instance = c.Request.URL.Path
	}
	c.Header("Content-Type", ContentTypeProblemJSON)
	c.JSON(problem.Status, problem)
}

// RespondError translates err through the mapper chain. Errors that are
// already problem documents pass through; anything unmatched becomes a 500.
func (r *Responder) RespondError(c *gin.Context, err error) {
	for _, mapper := range r.mappers {
		if problem, ok := mapper(err); ok {
			r.Respond(c, problem)
			return
		}
	}
	var problem ProblemDetail
	if errors.As(err, &problem) {
		r.Respond(c, problem)
		return
	}
	r.Respond(c, ErrInternal.WithDetail(err.Error()))
}

// BadRequest writes a 400 problem with the given detail.
func (r *Responder) BadRequest(c *gin.Context, detail string) {
	r.Respond(c, ErrBadRequest.WithDetail(detail))
}

// NotFound writes a 404 problem for a specific resource.
func (r *Responder) NotFound(c *gin.Context, resourceType string, identifier any) {
	r.Respond(c, NewNotFoundProblem(resourceType, identifier))
}
