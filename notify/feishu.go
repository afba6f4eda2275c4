package notify

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/zeromicro/go-zero/core/jsonx"
)

// FeishuNotification 飞书通知实现
type FeishuNotification struct {
	robot
}

func (f *FeishuNotification) SendText(ctx context.Context, content string) error {
	msg := &feishuText{MsgType: "text"}
	msg.Content.Text = content
	msg.Timestamp, msg.Sign = f.Sign()
	return f.send(ctx, msg)
}

func (f *FeishuNotification) SendCard(ctx context.Context, title, content string) error {
	msg := &feishuCard{MsgType: "interactive"}
	msg.Timestamp, msg.Sign = f.Sign()
	msg.Card.Config.EnableForward = true
	msg.Card.Config.WideScreenMode = true
	msg.Card.Header.Template = "red"
	msg.Card.Header.Title.Tag = "plain_text"
	msg.Card.Header.Title.Content = title

	hostname, _ := os.Hostname()
	msg.Card.Elements = []element{{
		Tag:     "markdown",
		Content: fmt.Sprintf("Hostname: [%s]\n%s\n", hostname, content),
	}}
	return f.send(ctx, msg)
}

// Sign 生成飞书签名: hmac key 为 timestamp + "\n" + secret，消息体为空
func (f *FeishuNotification) Sign() (string, string) {
	ts := strconv.FormatInt(f.now().Unix(), 10)
	return ts, hmacSign(ts+"\n"+f.secret, "")
}

func (f *FeishuNotification) send(ctx context.Context, msg any) error {
	data, err := jsonx.Marshal(msg)
	if err != nil {
		return err
	}

	resp, err := f.client.Post(ctx, f.webhook, map[string]string{"Content-Type": "application/json;charset=UTF-8"}, data)
	if err != nil {
		return err
	}

	var res struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
	}
	if err = jsonx.Unmarshal(resp.Body, &res); err != nil {
		return err
	}
	if res.Code != 0 {
		return fmt.Errorf("feishu: %d %s", res.Code, res.Msg)
	}
	return nil
}

// 飞书消息结构体
type feishuText struct {
	MsgType string `json:"msg_type"`
	Content struct {
		Text string `json:"text"`
	} `json:"content"`
	Timestamp string `json:"timestamp"`
	Sign      string `json:"sign"`
}

type feishuCard struct {
	MsgType   string `json:"msg_type"`
	Timestamp string `json:"timestamp"`
	Sign      string `json:"sign"`
	Card      struct {
		Config struct {
			WideScreenMode bool `json:"wide_screen_mode"`
			EnableForward  bool `json:"enable_forward"`
		} `json:"config"`
		Header struct {
			Template string `json:"template"`
			Title    struct {
				Tag     string `json:"tag"`
				Content string `json:"content"`
			} `json:"title"`
		} `json:"header"`
		Elements []element `json:"elements"`
	} `json:"card"`
}

type element struct {
	Tag     string `json:"tag"`
	Content string `json:"content"`
}
