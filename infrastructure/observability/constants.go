package observability

// Metric name prefixes
const (
	MetricPrefix = "spinningrats"
)

// Metric names
const (
	// Session metrics
	LoginsTotal   = MetricPrefix + ".sessions.logins_total"
	SessionsEnded = MetricPrefix + ".sessions.ended_total"

	// Realtime metrics
	ViewersActive         = MetricPrefix + ".viewers.active"
	ScoreSubmissionsTotal = MetricPrefix + ".scores.submissions_total"

	// Notification metrics
	NotificationsTotal = MetricPrefix + ".notifications.total"

	// NATS metrics
	NATSMessagesPublishedTotal = MetricPrefix + ".nats.messages_published_total"

	// Store metrics
	StoreOperationsTotal   = MetricPrefix + ".store.operations_total"
	StoreOperationDuration = MetricPrefix + ".store.operation_duration"
)

// Label keys
const (
	LabelType      = "type"
	LabelEventType = "event_type"
	LabelResult    = "result"
	LabelBackend   = "backend"
	LabelMethod    = "method"
)

// Login types
const (
	LoginTypeFirst     = "first"
	LoginTypeReturning = "returning"
)

// Results
const (
	ResultAccepted = "accepted"
	ResultRejected = "rejected"
	ResultSent     = "sent"
	ResultDropped  = "dropped"
	ResultFailed   = "failed"
	ResultOK       = "ok"
	ResultError    = "error"
)
