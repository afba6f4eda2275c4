package interceptor

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
	"gomod.pri/codec/primitive"
)

func primitiveKey(t *testing.T) (string, string, error) {
	t.Helper()
	return primitive.NewSM2(nil).GenerateKeyHex()
}

func mustInt(t *testing.T, s string) int64 {
	t.Helper()
	n, err := strconv.ParseInt(s, 10, 64)
	require.NoError(t, err)
	return n
}
