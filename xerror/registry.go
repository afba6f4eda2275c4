package xerror

import (
	"errors"
	"sync"
)

var (
	registryMu sync.RWMutex
	registry   []registered
)

type registered struct {
	target error
	code   int
}

// RegisterCode binds a sentinel error to a response code for FromCodec.
func RegisterCode(target error, code int) {
	registryMu.Lock()
	defer registryMu.Unlock()

	for i, r := range registry {
		if r.target == target {
			registry[i].code = code
			return
		}
	}
	registry = append(registry, registered{target: target, code: code})
}

// CodeOf returns the code registered for the first matching sentinel in err's chain.
func CodeOf(err error) (int, bool) {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.code, true
	}

	registryMu.RLock()
	defer registryMu.RUnlock()
	for _, r := range registry {
		if errors.Is(err, r.target) {
			return r.code, true
		}
	}
	return 0, false
}

// FromCodec converts err into an *Error, using the registered code or CodeInternalError.
func FromCodec(err error) *Error {
	if err == nil {
		return nil
	}

	var ce *Error
	if errors.As(err, &ce) {
		return ce
	}
	if code, ok := CodeOf(err); ok {
		return New(code, err)
	}
	return New(CodeInternalError, err)
}
