package xerror

import "net/http"

const (
	CodeInternalError    = http.StatusInternalServerError
	CodeUnableConnect    = http.StatusServiceUnavailable
	CodeForbidden        = http.StatusForbidden
	CodeUnauthorized     = http.StatusUnauthorized
	CodeInvalidParams    = http.StatusBadRequest
	CodeConvertFailed    = http.StatusUnprocessableEntity
	CodeDataNotExist     = http.StatusNotFound
	CodeOperateTooFast   = http.StatusTooManyRequests
	CodeCallFailed       = http.StatusBadGateway
	CodeNotAnEnvelope    = http.StatusUnsupportedMediaType
	CodeDecryptFailed    = http.StatusPreconditionFailed
	CodeKeyUnavailable   = http.StatusFailedDependency
	CodeTablesConflicted = http.StatusConflict
)

var ErrMsgs = map[int]string{
	CodeInternalError:    "service internal error",
	CodeInvalidParams:    "invalid request params",
	CodeOperateTooFast:   "operation too fast",
	CodeDataNotExist:     "data not exist",
	CodeConvertFailed:    "malformed envelope",
	CodeNotAnEnvelope:    "not an envelope",
	CodeDecryptFailed:    "decrypt failed",
	CodeKeyUnavailable:   "key material unavailable",
	CodeTablesConflicted: "substitution tables conflict",
}
