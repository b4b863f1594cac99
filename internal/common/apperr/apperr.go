package apperr

import "github.com/gofiber/fiber/v2"

// Stable error codes the client UI keys specific guidance off.
const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeForbidden         = "FORBIDDEN"
	CodeApprovalRequired  = "APPROVAL_REQUIRED"
	CodeScopeInvalid      = "PLAYBOOK_SCOPE_INVALID"
	CodeRulesChanged      = "PLAYBOOK_RULES_CHANGED"
	CodeDraftNotFound     = "PLAYBOOK_DRAFT_NOT_FOUND"
	CodeAiQuotaExceeded   = "AI_QUOTA_EXCEEDED"
	CodePlanNotEligible   = "PLAN_NOT_ELIGIBLE"
	CodeEntitlementsLimit = "ENTITLEMENTS_LIMIT_REACHED"
	CodeNotFound          = "NOT_FOUND"
)

// Error is a structured application error with a stable code string.
type Error struct {
	Status  int
	Code    string
	Message string
	Meta    fiber.Map
}

func (e *Error) Error() string {
	return e.Message
}

func New(status int, code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message}
}

// WithMeta attaches extra structured fields to the error envelope.
func (e *Error) WithMeta(key string, value interface{}) *Error {
	if e.Meta == nil {
		e.Meta = fiber.Map{}
	}
	e.Meta[key] = value
	return e
}

func Validation(message string) *Error {
	return New(fiber.StatusBadRequest, CodeValidation, message)
}

func Forbidden(message string) *Error {
	return New(fiber.StatusForbidden, CodeForbidden, message)
}

func NotFound(message string) *Error {
	return New(fiber.StatusNotFound, CodeNotFound, message)
}

// Render writes an error response, preserving structured codes when the
// error is an *Error and falling back to a plain envelope otherwise.
func Render(c *fiber.Ctx, err error) error {
	if appErr, ok := err.(*Error); ok {
		return c.Status(appErr.Status).JSON(appErr.Envelope())
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
}

// Envelope is the JSON body a structured error renders to.
func (e *Error) Envelope() fiber.Map {
	body := fiber.Map{
		"error": e.Message,
		"code":  e.Code,
	}
	for k, v := range e.Meta {
		body[k] = v
	}
	return body
}
