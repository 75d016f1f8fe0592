package log

// Common field names for structured logging
const (
	FieldComponent    = "component"
	FieldRequestID    = "request_id"
	FieldRunID        = "run_id"
	FieldClientIP     = "client_ip"
	FieldMethod       = "method"
	FieldPath         = "path"
	FieldStatusCode   = "status_code"
	FieldDuration     = "duration_ms"
	FieldError        = "error"
	FieldOperation    = "operation"
	FieldCardIndex    = "card_index"
	FieldCardCount    = "card_count"
	FieldItemCount    = "item_count"
	FieldItemURL      = "item_url"
	FieldStatus       = "status"
	FieldQuantity     = "quantity"
	FieldQuantityText = "quantity_text"
	FieldCurrency     = "currency"
	FieldTotal        = "total"
	FieldState        = "state"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentPipeline  = "pipeline"
	ComponentResolver  = "resolver"
	ComponentAggregate = "aggregate"
	ComponentFetch     = "fetch"
	ComponentBrowser   = "browser"
	ComponentAMQP      = "amqp"
	ComponentRender    = "render"
	ComponentCache     = "cache"
	ComponentRateLimit = "rate_limit"
)

// Operations defines standard operation names
const (
	OpExtract   = "extract"
	OpResolve   = "resolve"
	OpAggregate = "aggregate"
	OpDeliver   = "deliver"
	OpLoad      = "load"
	OpPublish   = "publish"
	OpStartup   = "startup"
	OpShutdown  = "shutdown"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithCard adds the card position and its outcome.
func (f LogFields) WithCard(index int, state string) LogFields {
	f[FieldCardIndex] = index
	f[FieldState] = state
	return f
}

// WithTotal adds the computed total of a card.
func (f LogFields) WithTotal(currency, text string) LogFields {
	f[FieldCurrency] = currency
	f[FieldTotal] = text
	return f
}

// WithHTTP adds request and response fields
func (f LogFields) WithHTTP(method, path string, statusCode int, durationMs int64) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
