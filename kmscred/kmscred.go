package kmscred

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/samber/lo"
	"gomod.pri/codec/xerror"
)

// ErrSecretNotFound is returned by vendor clients when the secret name does not exist.
var ErrSecretNotFound = errors.New("secret not found")

func init() {
	xerror.RegisterCode(ErrSecretNotFound, xerror.CodeKeyUnavailable)
}

// Client reads a secret value by name from a vendor secrets manager.
type Client interface {
	GetSecretValue(ctx context.Context, secretName string) (string, error)
}

type Factory func(cfg Config) (Client, error)

var (
	mu       sync.RWMutex
	registry = map[Vendor]Factory{}
)

// Register 由各厂商包在 init 中调用，重复注册直接 panic
func Register(v Vendor, f Factory) {
	if f == nil {
		panic("kmscred: Register factory is nil")
	}

	mu.Lock()
	defer mu.Unlock()
	if _, ok := registry[v]; ok {
		panic(fmt.Sprintf("kmscred: Register called twice for vendor %q", v))
	}
	registry[v] = f
}

// Vendors lists the registered vendors in name order.
func Vendors() []Vendor {
	mu.RLock()
	vs := lo.Keys(registry)
	mu.RUnlock()

	sort.Slice(vs, func(i, j int) bool { return vs[i] < vs[j] })
	return vs
}

func New(cfg Config) (Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	mu.RLock()
	f, ok := registry[cfg.Vendor]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("kmscred: unsupported vendor %q, registered: %v", cfg.Vendor, Vendors())
	}
	return f(cfg)
}
