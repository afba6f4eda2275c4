package kmscred

import (
	"errors"
	"fmt"
)

type Vendor string
type Mode string

const (
	VendorAliyun Vendor = "aliyun"
	VendorAWS    Vendor = "aws"

	// ModeAKSK 显式 AccessKey/SecretKey
	ModeAKSK Mode = "aksk"
	// ModeRAM 实例角色，凭证取自元数据服务
	ModeRAM Mode = "ram"
)

type Config struct {
	Vendor    Vendor `json:",optional"`
	Mode      Mode   `json:",default=ram,options=aksk|ram"`
	AccessKey string `json:",optional"`
	SecretKey string `json:",optional"`
	Region    string `json:",optional"`
}

// Validate checks the fields every vendor needs. Vendor specific rules stay in the vendor package.
func (c Config) Validate() error {
	if c.Vendor == "" {
		return errors.New("kmscred: vendor is required")
	}
	switch c.Mode {
	case ModeRAM:
		return nil
	case ModeAKSK:
		if c.AccessKey == "" || c.SecretKey == "" {
			return errors.New("kmscred: accessKey and secretKey are required for aksk mode")
		}
		return nil
	case "":
		return errors.New("kmscred: mode is required")
	default:
		return fmt.Errorf("kmscred: invalid mode %q, must be aksk or ram", c.Mode)
	}
}
