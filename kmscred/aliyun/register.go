package aliyun

import "gomod.pri/codec/kmscred"

func init() {
	kmscred.Register(kmscred.VendorAliyun, func(cfg kmscred.Config) (kmscred.Client, error) {
		return New(cfg)
	})
}
