package rocketmq

import (
	"os"
	"sync"

	rmq "github.com/apache/rocketmq-clients/golang/v5"
)

var loggerOnce sync.Once

// SetLogger points the client's own logger at ./rocketmqlogs, warn level and up.
func SetLogger() {
	loggerOnce.Do(func() {
		os.Setenv(rmq.CLIENT_LOG_ROOT, "./rocketmqlogs")
		os.Setenv(rmq.ENABLE_CONSOLE_APPENDER, "true")
		os.Setenv(rmq.CLIENT_LOG_LEVEL, "warn")
		rmq.ResetLogger()
	})
}
