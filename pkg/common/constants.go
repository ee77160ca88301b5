package common

const (
	RedisStreamSchedulerTaskExecution = "schedule.task.execution"

	RedisStreamGroup    = "executor-group"
	RedisStreamConsumer = "executor-consumer"

	// RedisChannelPipelineEvents carries pipeline progress events to the API websocket hub.
	RedisChannelPipelineEvents = "pipeline.events"

	// RedisKeySentimentAlert prefixes per symbol/type/day alert de-duplication keys.
	RedisKeySentimentAlert = "sentiment.alert"

	DefaultUserID = 1
)
