package log

// Field names shared across packages so log lines stay greppable.
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldUserAgent  = "user_agent"
	FieldError      = "error"

	FieldUsername    = "username"
	FieldPeriod      = "period"
	FieldDataset     = "dataset"
	FieldConcept     = "concept"
	FieldCategory    = "category"
	FieldAmountCents = "amount_cents"
	FieldDebtName    = "debt_name"
)

// Component names used with NewLogger.
const (
	ComponentHTTP      = "http"
	ComponentAuth      = "auth"
	ComponentExpenses  = "expenses"
	ComponentDebts     = "debts"
	ComponentStorage   = "storage"
	ComponentDatasets  = "datasets"
	ComponentAMQP      = "amqp"
	ComponentMirror    = "mirror"
	ComponentWorker    = "worker"
	ComponentSecurity  = "security"
	ComponentRateLimit = "rate_limit"
)
