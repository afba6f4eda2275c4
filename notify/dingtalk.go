package notify

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/zeromicro/go-zero/core/jsonx"
)

// DingTalkNotification 钉钉通知实现
type DingTalkNotification struct {
	robot
}

func (d *DingTalkNotification) SendText(ctx context.Context, content string) error {
	msg := &dtext{Msgtype: "text"}
	msg.Text.Content = content
	return d.send(ctx, msg)
}

func (d *DingTalkNotification) SendCard(ctx context.Context, title, content string) error {
	msg := &dmarkdown{Msgtype: "markdown"}
	msg.Markdown.Title = title
	msg.Markdown.Text = content
	return d.send(ctx, msg)
}

// Sign 生成钉钉签名: base64(hmac-sha256(secret, timestamp + "\n" + secret))
func (d *DingTalkNotification) Sign() (string, int64) {
	timestamp := d.now().UnixMilli()
	return hmacSign(d.secret, fmt.Sprintf("%d\n%s", timestamp, d.secret)), timestamp
}

func (d *DingTalkNotification) send(ctx context.Context, msg any) error {
	data, err := jsonx.Marshal(msg)
	if err != nil {
		return err
	}

	robotUrl := d.webhook
	if d.secret != "" {
		sign, timestamp := d.Sign()
		sep := "&"
		if !strings.Contains(robotUrl, "?") {
			sep = "?"
		}
		robotUrl = fmt.Sprintf("%s%stimestamp=%d&sign=%s", robotUrl, sep, timestamp, url.QueryEscape(sign))
	}

	resp, err := d.client.Post(ctx, robotUrl, map[string]string{"Content-Type": "application/json"}, data)
	if err != nil {
		return err
	}

	var res talkResponse
	if err = jsonx.Unmarshal(resp.Body, &res); err != nil {
		return err
	}
	if res.Code != 0 {
		return fmt.Errorf("dingtalk: %d %s", res.Code, res.Msg)
	}
	return nil
}

// 钉钉消息结构体
type dtext struct {
	Msgtype string `json:"msgtype"` // 固定为 text
	Text    struct {
		Content string `json:"content"`
	} `json:"text"`
}

type dmarkdown struct {
	Msgtype  string `json:"msgtype"` // 固定为 markdown
	Markdown struct {
		Title string `json:"title"`
		Text  string `json:"text"`
	} `json:"markdown"`
}

type talkResponse struct {
	Code int    `json:"errcode"`
	Msg  string `json:"errmsg"`
}
