package server

import (
	"net/http"

	"github.com/zeromicro/go-zero/rest"
)

func RegisterHandlers(server *rest.Server, svc *ServiceContext) {
	server.AddRoutes(
		[]rest.Route{
			{
				Method:  http.MethodPost,
				Path:    "/response/decrypt",
				Handler: DecryptResponseHandler(svc),
			},
			{
				Method:  http.MethodPost,
				Path:    "/response/fixed",
				Handler: DecryptFixedHandler(svc),
			},
			{
				Method:  http.MethodPost,
				Path:    "/response/seal",
				Handler: SealHandler(svc),
			},
			{
				Method:  http.MethodPost,
				Path:    "/request/encrypt",
				Handler: EncryptRequestHandler(svc),
			},
			{
				Method:  http.MethodPost,
				Path:    "/sign",
				Handler: SignHandler(svc),
			},
			{
				Method:  http.MethodGet,
				Path:    "/nonce",
				Handler: NonceHandler(svc),
			},
		},
		rest.WithPrefix("/codec"),
	)

	server.AddRoutes(
		[]rest.Route{
			{
				Method:  http.MethodPost,
				Path:    "/obfuscate",
				Handler: ObfuscateHandler(svc),
			},
			{
				Method:  http.MethodPost,
				Path:    "/deobfuscate",
				Handler: DeobfuscateHandler(svc),
			},
		},
		rest.WithPrefix("/codec/text"),
	)

	server.AddRoutes(
		[]rest.Route{
			{
				Method:  http.MethodGet,
				Path:    "/",
				Handler: TablesHandler(svc),
			},
			{
				Method:  http.MethodPost,
				Path:    "/publish",
				Handler: PublishTablesHandler(svc),
			},
		},
		rest.WithPrefix("/codec/tables"),
	)
}
