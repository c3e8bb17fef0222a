package logging

type Category string
type SubCategory string
type ExtraKey string

const (
	General         Category = "General"
	Internal        Category = "Internal"
	WebSocket       Category = "WebSocket"
	RabbitMQ        Category = "RabbitMQ"
	Mongo           Category = "Mongo"
	Validation      Category = "Validation"
	RequestResponse Category = "RequestResponse"
	Prometheus      Category = "Prometheus"
)

const (
	// General
	Startup         SubCategory = "Startup"
	Shutdown        SubCategory = "Shutdown"
	RateLimiting    SubCategory = "RateLimiting"
	ExternalService SubCategory = "ExternalService"

	// WebSocket
	Handshake SubCategory = "Handshake"
	Lifecycle SubCategory = "Lifecycle"
	Broadcast SubCategory = "Broadcast"
	Presence  SubCategory = "Presence"

	// RabbitMQ
	Consume SubCategory = "Consume"

	// Mongo
	Query SubCategory = "Query"
)

const (
	AppName      ExtraKey = "AppName"
	LoggerName   ExtraKey = "Logger"
	ConnectionID ExtraKey = "ConnectionID"
	UserID       ExtraKey = "UserID"
	TenantID     ExtraKey = "TenantID"
	RoomName     ExtraKey = "RoomName"
	EventName    ExtraKey = "EventName"
	ClientIp     ExtraKey = "ClientIp"
	Method       ExtraKey = "Method"
	StatusCode   ExtraKey = "StatusCode"
	Path         ExtraKey = "Path"
	Latency      ExtraKey = "Latency"
	ErrorMessage ExtraKey = "ErrorMessage"
)
