package log

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldRequestID     = "request_id"
	FieldClientIP      = "client_ip"
	FieldMethod        = "method"
	FieldPath          = "path"
	FieldQuery         = "query"
	FieldStatusCode    = "status_code"
	FieldDuration      = "duration_ms"
	FieldDurationHuman = "duration_human"
	FieldUserAgent     = "user_agent"
	FieldSuccess       = "success"
	FieldError         = "error"
	FieldOperation     = "operation"
	FieldOwnerID       = "owner_id"
	FieldTransactionID = "transaction_id"
	FieldTransferGroup = "transfer_group_id"
	FieldAccountID     = "account_id"
	FieldTxType        = "transaction_type"
	FieldAmount        = "amount"
	FieldBudgetID      = "budget_id"
	FieldEventKind     = "event_kind"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentLedger    = "ledger"
	ComponentEngine    = "engine"
	ComponentBudget    = "budget"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentRecurring = "recurring"
	ComponentSheets    = "sheets"
	ComponentInsights  = "insights"
	ComponentBackend   = "backend"
)

// Operations defines standard operation names
const (
	OpCreate      = "create"
	OpRead        = "read"
	OpUpdate      = "update"
	OpDelete      = "delete"
	OpList        = "list"
	OpReconcile   = "reconcile"
	OpRecalculate = "recalculate"
	OpProgress    = "budget_progress"
	OpMirror      = "mirror"
	OpShutdown    = "shutdown"
	OpStartup     = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithRequestID adds request ID field
func (f LogFields) WithRequestID(requestID string) LogFields {
	f[FieldRequestID] = requestID
	return f
}

// WithClientIP adds client IP field
func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
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

// WithTransaction adds the identifying fields of a ledger row.
func (f LogFields) WithTransaction(ownerID, id, txType string) LogFields {
	f[FieldOwnerID] = ownerID
	f[FieldTransactionID] = id
	f[FieldTxType] = txType
	return f
}

// WithHTTPRequest adds HTTP request fields
func (f LogFields) WithHTTPRequest(method, path, query, userAgent string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldQuery] = query
	f[FieldUserAgent] = userAgent
	return f
}

// WithHTTPResponse adds HTTP response fields
func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64, success bool) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = success
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
