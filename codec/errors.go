package codec

import (
	"errors"

	"gomod.pri/codec/envelope"
	"gomod.pri/codec/xerror"
)

var (
	ErrSymmetricDecrypt  = errors.New("symmetric decrypt failed")
	ErrAsymmetricDecrypt = errors.New("asymmetric decrypt failed")
	ErrKeyLengthMode     = errors.New("key length supplied, key is inline")
	ErrUnknownAlgorithm  = errors.New("unknown storage algorithm")
)

func init() {
	xerror.RegisterCode(envelope.ErrNotAnEnvelope, xerror.CodeNotAnEnvelope)
	xerror.RegisterCode(envelope.ErrTooShort, xerror.CodeConvertFailed)
	xerror.RegisterCode(envelope.ErrIndexOutOfRange, xerror.CodeConvertFailed)
	xerror.RegisterCode(envelope.ErrHexDecode, xerror.CodeConvertFailed)
	xerror.RegisterCode(envelope.ErrKeyLengthParse, xerror.CodeInvalidParams)
	xerror.RegisterCode(ErrSymmetricDecrypt, xerror.CodeDecryptFailed)
	xerror.RegisterCode(ErrAsymmetricDecrypt, xerror.CodeDecryptFailed)
	xerror.RegisterCode(ErrKeyLengthMode, xerror.CodeInvalidParams)
	xerror.RegisterCode(ErrUnknownAlgorithm, xerror.CodeInvalidParams)
}
