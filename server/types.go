package server

import "gomod.pri/codec/confuse"

type DecryptResponseReq struct {
	Body      string `json:"body" validate:"required"`
	KeyLength string `json:"keyLength,optional"`
	OriginKey string `json:"originKey,optional"`
	Timestamp string `json:"timestamp,optional"`
}

type DecryptFixedReq struct {
	Body      string `json:"body" validate:"required"`
	Token     string `json:"token" validate:"required"`
	Timestamp string `json:"timestamp" validate:"required"`
}

type DecryptFixedResp struct {
	Data string `json:"data"`
}

type SealReq struct {
	Plain     string `json:"plain" validate:"required"`
	Variant   string `json:"variant,default=inline,options=inline|fixed"`
	Timestamp string `json:"timestamp,optional" validate:"omitempty,timestamp"`
}

type EncryptRequestReq struct {
	URL  string `json:"url" validate:"required"`
	Body string `json:"body,optional"`
}

type EncryptRequestResp struct {
	Data      string `json:"data"`
	Encrypted bool   `json:"encrypted"`
}

type SignReq struct {
	Params    string `json:"params,optional"`
	Timestamp string `json:"timestamp" validate:"required,timestamp"`
	Nonce     string `json:"nonce" validate:"required,nonce"`
}

type SignResp struct {
	Sign string `json:"sign"`
}

type NonceResp struct {
	Nonce string `json:"nonce"`
}

type ObfuscateReq struct {
	Text    string `json:"text"`
	Digits  bool   `json:"digits,default=true"`
	Chinese bool   `json:"chinese,default=true"`
}

type DeobfuscateReq struct {
	Text string `json:"text"`
}

type TextResp struct {
	Text string `json:"text"`
}

type TablesResp struct {
	Tables *confuse.Tables `json:"tables"`
	Count  confuse.Count   `json:"count"`
}

type PublishReq struct {
	Force bool `json:"force,optional"`
}

type PublishResp struct {
	ID          string `json:"id"`
	PublishedAt int64  `json:"publishedAt,omitempty"` // unix ms, taken from the id
}
