package logutil

type Config struct {
	Enabled     bool   `json:",optional"`
	Channel     string `json:",default=dingtalk,options=dingtalk|feishu"`
	Webhook     string `json:",optional"`
	Secret      string `json:",optional"`
	IntervalSec int64  `json:",default=60"`
	Limit       int    `json:",default=10"`
}
