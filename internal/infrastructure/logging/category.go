package logging

type Category string
type SubCategory string
type ExtraKey string

const (
	General         Category = "General"
	IO              Category = "IO"
	Internal        Category = "Internal"
	Realtime        Category = "Realtime"
	Redis           Category = "Redis"
	Validation      Category = "Validation"
	RequestResponse Category = "RequestResponse"
	Prometheus      Category = "Prometheus"
)

const (
	// General
	Startup      SubCategory = "Startup"
	Shutdown     SubCategory = "Shutdown"
	RateLimiting SubCategory = "RateLimiting"

	// Realtime
	RoomJoin  SubCategory = "RoomJoin"
	RoomLeave SubCategory = "RoomLeave"
	Broadcast SubCategory = "Broadcast"
	Intent    SubCategory = "Intent"

	// IO
	Upload  SubCategory = "Upload"
	Storage SubCategory = "Storage"

	// RequestResponse
	Handled SubCategory = "Handled"
)

const (
	AppName      ExtraKey = "AppName"
	LoggerName   ExtraKey = "Logger"
	ClientIp     ExtraKey = "ClientIp"
	Method       ExtraKey = "Method"
	StatusCode   ExtraKey = "StatusCode"
	Path         ExtraKey = "Path"
	Latency      ExtraKey = "Latency"
	RoomID       ExtraKey = "RoomID"
	UserID       ExtraKey = "UserID"
	EventType    ExtraKey = "EventType"
	FileName     ExtraKey = "FileName"
	FileSize     ExtraKey = "FileSize"
	ErrorMessage ExtraKey = "ErrorMessage"
)
