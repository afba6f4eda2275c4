package apollo

import (
	"fmt"
	"sort"
	"strings"

	"github.com/apolloconfig/agollo/v4"
	"github.com/apolloconfig/agollo/v4/env/config"
	"github.com/apolloconfig/agollo/v4/storage"
	"github.com/zeromicro/go-zero/core/logx"
)

// ApplicationNamespace 公共命名空间，私有命名空间里没有的 key 从这里取
const ApplicationNamespace = "application"

type Config struct {
	AppID        string `json:",optional"`
	Cluster      string `json:",default=default"`
	Addr         string `json:",optional"`
	Secret       string `json:",optional"`
	PrivateSpace string `json:",default=codec"` // 存放密钥的命名空间
	Backup       bool   `json:",default=true"`  // 本地备份，配置中心不可用时仍能启动
}

// Client reads keys from the private namespace first, then application.
type Client struct {
	client     agollo.Client
	namespaces []string
}

func NewClient(conf *Config) (*Client, error) {
	if conf.AppID == "" || conf.Addr == "" {
		return nil, fmt.Errorf("apollo: appId and addr are required")
	}

	namespaces := []string{conf.PrivateSpace, ApplicationNamespace}
	client, err := agollo.StartWithConfig(func() (*config.AppConfig, error) {
		return &config.AppConfig{
			AppID:          conf.AppID,
			Cluster:        conf.Cluster,
			NamespaceName:  strings.Join(namespaces, ","),
			IP:             conf.Addr,
			Secret:         conf.Secret,
			IsBackupConfig: conf.Backup,
		}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("create apollo client error: %w", err)
	}

	c := &Client{client: client, namespaces: namespaces}
	c.Watch(func(ns string, keys []string) {
		// 只记 key，值是密钥
		logx.Infof("apollo namespace %s changed, keys: %v", ns, keys)
	})
	return c, nil
}

// Value 按命名空间顺序查找，空值视为不存在
func (c *Client) Value(key string) (string, bool) {
	for _, ns := range c.namespaces {
		cfg := c.client.GetConfig(ns)
		if cfg == nil {
			continue
		}
		if v := cfg.GetValue(key); v != "" {
			return v, true
		}
	}
	return "", false
}

// Watch calls fn with the sorted names of the keys changed in a namespace.
func (c *Client) Watch(fn func(namespace string, keys []string)) {
	c.client.AddChangeListener(changeFunc(fn))
}

type changeFunc func(namespace string, keys []string)

func (f changeFunc) OnChange(event *storage.ChangeEvent) {
	if len(event.Changes) == 0 {
		return
	}
	keys := make([]string, 0, len(event.Changes))
	for k := range event.Changes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	f(event.Namespace, keys)
}

func (f changeFunc) OnNewestChange(*storage.FullChangeEvent) {}
