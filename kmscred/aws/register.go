package aws

import "gomod.pri/codec/kmscred"

func init() {
	kmscred.Register(kmscred.VendorAWS, func(cfg kmscred.Config) (kmscred.Client, error) {
		return New(cfg)
	})
}
