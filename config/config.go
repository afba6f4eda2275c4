package config

import (
	"github.com/zeromicro/go-zero/rest"
	"gomod.pri/codec/codec"
	"gomod.pri/codec/keyring"
	"gomod.pri/codec/rocketmq"
	"gomod.pri/codec/tablestore"
	"gomod.pri/codec/xutils/logutil"
)

type Config struct {
	rest.RestConf
	Codec   codec.Conf
	Keyring keyring.Conf
	Tables  tablestore.Conf
	Alert   logutil.Config `json:",optional"`
	Sync    rocketmq.Conf  `json:",optional"` // tables-published notices between replicas
	// span processor limits, 0 keeps the defaults
	Detector struct {
		AttrMaxBytes int `json:",optional"`
		SpanMaxBytes int `json:",optional"`
	} `json:",optional"`
}
