package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cast"
	"gomod.pri/codec/bus"
	"gomod.pri/codec/codec"
	"gomod.pri/codec/confuse"
	"gomod.pri/codec/envelope"
	"gomod.pri/codec/snowflake"
	"gomod.pri/codec/tablestore"
	"gomod.pri/codec/xerror"
	"gomod.pri/codec/xrequest"
)

const serviceName = "codec"

// DecryptResponseHandler never fails at the HTTP level, the outcome is in Result.
func DecryptResponseHandler(svc *ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req DecryptResponseReq
		if !xrequest.Parse(w, r, &req) {
			return
		}

		res := svc.Codec().ParseAndDecryptResponse(r.Context(), req.Body, codec.Headers{
			KeyLength: req.KeyLength,
			OriginKey: req.OriginKey,
			Timestamp: req.Timestamp,
		})
		xrequest.OK(w, r, res)
	}
}

func DecryptFixedHandler(svc *ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req DecryptFixedReq
		if !xrequest.Parse(w, r, &req) {
			return
		}

		data := svc.Codec().DecryptFixedOffsetResponse(r.Context(), req.Body, req.Token, req.Timestamp)
		xrequest.OK(w, r, &DecryptFixedResp{Data: data})
	}
}

func SealHandler(svc *ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SealReq
		if !xrequest.Parse(w, r, &req) {
			return
		}

		priv, err := svc.Keys.PrivateKey(r.Context())
		if err != nil {
			xrequest.Fail(w, r, err)
			return
		}

		variant := envelope.VariantInlineKey
		if req.Variant == "fixed" {
			variant = envelope.VariantFixedOffset
		}
		sealed, err := svc.Codec().SealResponse(req.Plain, priv, variant, req.Timestamp)
		if err != nil {
			xrequest.Fail(w, r, err)
			return
		}
		xrequest.OK(w, r, sealed)
	}
}

func EncryptRequestHandler(svc *ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req EncryptRequestReq
		if !xrequest.Parse(w, r, &req) {
			return
		}

		body := []byte(req.Body)
		if !svc.Codec().ShouldEncrypt(req.URL, body) {
			xrequest.OK(w, r, &EncryptRequestResp{Data: req.Body})
			return
		}

		data, err := svc.Codec().EncryptRequest(r.Context(), req.URL, body)
		if err != nil {
			xrequest.Fail(w, r, err)
			return
		}
		xrequest.OK(w, r, &EncryptRequestResp{Data: data, Encrypted: true})
	}
}

func SignHandler(svc *ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SignReq
		if !xrequest.Parse(w, r, &req) {
			return
		}

		ts, err := cast.ToInt64E(req.Timestamp)
		if err != nil {
			xrequest.Fail(w, r, xerror.New(xerror.CodeInvalidParams, err, true))
			return
		}
		sign := codec.Sign(req.Params, ts, req.Nonce, svc.Config.Codec.SignSecret)
		xrequest.OK(w, r, &SignResp{Sign: sign})
	}
}

func NonceHandler(svc *ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		nonce, err := svc.Codec().Nonce()
		if err != nil {
			xrequest.Fail(w, r, xerror.New(xerror.CodeInternalError, err, false))
			return
		}
		xrequest.OK(w, r, &NonceResp{Nonce: nonce})
	}
}

func ObfuscateHandler(svc *ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ObfuscateReq
		if !xrequest.Parse(w, r, &req) {
			return
		}
		xrequest.OK(w, r, &TextResp{Text: svc.Engine().Obfuscate(req.Text, req.Digits, req.Chinese)})
	}
}

func DeobfuscateHandler(svc *ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req DeobfuscateReq
		if !xrequest.Parse(w, r, &req) {
			return
		}
		xrequest.OK(w, r, &TextResp{Text: svc.Engine().Deobfuscate(req.Text)})
	}
}

func TablesHandler(svc *ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		engine := svc.Engine()
		t, err := engine.Tables()
		if err != nil {
			xrequest.Fail(w, r, xerror.New(xerror.CodeInternalError, err, false))
			return
		}
		xrequest.OK(w, r, &TablesResp{Tables: t, Count: engine.MappedCharCount()})
	}
}

// PublishTablesHandler saves the engine's tables as the latest set, so a restart or
// another replica restores the same map. A different latest set is only replaced
// with force.
func PublishTablesHandler(svc *ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PublishReq
		if !xrequest.Parse(w, r, &req) {
			return
		}

		ctx, span := xrequest.NewContext(r, serviceName, true)
		defer span.End()

		m, err := svc.Engine().Cached()
		if err != nil {
			xrequest.Fail(w, r, xerror.New(xerror.CodeInternalError, err, false))
			return
		}

		latest, err := svc.Tables.Latest(ctx)
		switch {
		case err == nil:
			prev, perr := confuse.FromTables(latest)
			if perr == nil && prev.Equal(m) {
				xrequest.OK(w, r, newPublishResp(latest.ID))
				return
			}
			if !req.Force {
				xrequest.Fail(w, r, xerror.New(xerror.CodeTablesConflicted,
					fmt.Errorf("latest tables %s hold a different map", latest.ID)))
				return
			}
		case !errors.Is(err, tablestore.ErrNotFound):
			xrequest.Fail(w, r, xerror.RaiseCtx(ctx, xerror.CodeInternalError, err))
			return
		}

		t := m.Tables()

		id, err := svc.Tables.Save(ctx, t)
		if err != nil {
			xrequest.Fail(w, r, xerror.RaiseCtx(ctx, xerror.CodeInternalError, err))
			return
		}
		// replicas catch up on restart when the notice is lost
		_ = svc.Events.Publish(ctx, bus.Event{Topic: bus.TopicTablesPublished, Key: id})
		xrequest.OK(w, r, newPublishResp(id))
	}
}

func newPublishResp(id string) *PublishResp {
	resp := &PublishResp{ID: id}
	if at, err := snowflake.Time(id); err == nil {
		resp.PublishedAt = at.UnixMilli()
	}
	return resp
}
