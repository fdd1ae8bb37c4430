package record

import "time"

var (
	logSchema = MustSchema(KindLog,
		TimeField("Timestamp", func(e *LogEntry) time.Time { return e.Timestamp }),
		LevelField("Level", func(e *LogEntry) Level { return e.Level }),
		StringField("Source", func(e *LogEntry) string { return e.Source }),
		StringField("Message", func(e *LogEntry) string { return e.Message }),
		StringField("StackTrace", func(e *LogEntry) string { return e.StackTrace }),
		StringField("File", func(e *LogEntry) string { return e.File }),
		NumberField("Line", func(e *LogEntry) (float64, bool) { return float64(e.Line), e.Line > 0 }),
	)

	iisSchema = MustSchema(KindIIS,
		TimeField("Timestamp", func(e *IISEntry) time.Time { return e.Timestamp }),
		StringField("ServerIP", func(e *IISEntry) string { return e.ServerIP }),
		StringField("Method", func(e *IISEntry) string { return e.Method }),
		StringField("URIStem", func(e *IISEntry) string { return e.URIStem }),
		StringField("URIQuery", func(e *IISEntry) string { return e.URIQuery }),
		IntField("ServerPort", func(e *IISEntry) int { return e.ServerPort }),
		StringField("UserName", func(e *IISEntry) string { return e.UserName }),
		StringField("ClientIP", func(e *IISEntry) string { return e.ClientIP }),
		StringField("UserAgent", func(e *IISEntry) string { return e.UserAgent }),
		StringField("Referer", func(e *IISEntry) string { return e.Referer }),
		IntField("Status", func(e *IISEntry) int { return e.Status }),
		IntField("SubStatus", func(e *IISEntry) int { return e.SubStatus }),
		IntField("Win32Status", func(e *IISEntry) int { return e.Win32Status }),
		IntField("TimeTaken", func(e *IISEntry) int { return e.TimeTaken }),
		StringField("Browser", func(e *IISEntry) string { return e.Browser }),
		StringField("OS", func(e *IISEntry) string { return e.OS }),
		StringField("Country", func(e *IISEntry) string { return e.Country }),
		StringField("City", func(e *IISEntry) string { return e.City }),
		StringField("File", func(e *IISEntry) string { return e.File }),
	)

	rabbitSchema = MustSchema(KindRabbit,
		StringField("MessageID", func(e *RabbitEntry) string { return e.MessageID }),
		TimeField("Timestamp", func(e *RabbitEntry) time.Time { return e.Timestamp }),
		TimeField("SentTime", func(e *RabbitEntry) time.Time { return e.SentTime }),
		LevelField("Level", func(e *RabbitEntry) Level { return e.Level }),
		StringField("Node", func(e *RabbitEntry) string { return e.Node }),
		StringField("MessageType", func(e *RabbitEntry) string { return e.MessageType }),
		StringField("Message", func(e *RabbitEntry) string { return e.Message }),
		StringField("ProcessUID", func(e *RabbitEntry) string { return e.ProcessUID }),
		StringField("UserName", func(e *RabbitEntry) string { return e.UserName }),
		StringField("FaultMessage", func(e *RabbitEntry) string { return e.FaultMessage }),
		TimeField("FaultTimestamp", func(e *RabbitEntry) time.Time { return e.FaultTimestamp }),
		StringField("StackTrace", func(e *RabbitEntry) string { return e.StackTrace }),
		StringField("EffectiveStackTrace", func(e *RabbitEntry) string { return e.EffectiveStackTrace() }),
		StringField("File", func(e *RabbitEntry) string { return e.File }),
	)
)

// LogSchema returns the field schema for generic log entries.
func LogSchema() *Schema[*LogEntry] { return logSchema }

// IISSchema returns the field schema for IIS W3C entries.
func IISSchema() *Schema[*IISEntry] { return iisSchema }

// RabbitSchema returns the field schema for RabbitMQ entries.
func RabbitSchema() *Schema[*RabbitEntry] { return rabbitSchema }
