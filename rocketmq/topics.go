package rocketmq

import "fmt"

type Topic string

// TopicTables carries tables-published notices between replicas.
const TopicTables Topic = "tables"

func GetTopicName(appName string, topic Topic) string {
	return fmt.Sprintf("%s_%s", appName, string(topic))
}
