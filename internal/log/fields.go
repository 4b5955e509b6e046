package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldError       = "error"
	FieldErrorType   = "error_type"
	FieldOperation   = "operation"
	FieldUserID      = "user_id"
	FieldEmail       = "email"
	FieldTxnID       = "transaction_id"
	FieldCategory    = "category"
	FieldKind        = "kind"
	FieldAmountCents = "amount_cents"
	FieldCeiling     = "ceiling_cents"
	FieldRemaining   = "remaining_cents"
	FieldAttempt     = "attempt"
	FieldModel       = "model"
	FieldCount       = "count"
)

// Components defines standard component names
const (
	ComponentApp      = "app"
	ComponentCLI      = "cli"
	ComponentAuth     = "auth"
	ComponentSession  = "session"
	ComponentStorage  = "storage"
	ComponentAI       = "ai"
	ComponentBudget   = "budget"
	ComponentFinance  = "finance"
	ComponentAMQP     = "amqp"
	ComponentNotifier = "notifier"
)

// Operations defines standard operation names
const (
	OpSignup     = "signup"
	OpLogin      = "login"
	OpLogout     = "logout"
	OpAddTxn     = "add_transaction"
	OpUpdateTxn  = "update_transaction"
	OpDeleteTxns = "delete_transactions"
	OpSetBudget  = "set_budget"
	OpCategorize = "categorize"
	OpAdvise     = "advise"
	OpSimulate   = "simulate"
	OpPublish    = "publish"
	OpConsume    = "consume"
	OpMigrate    = "migrate"
	OpStartup    = "startup"
	OpShutdown   = "shutdown"
)

// ErrorTypes defines standard error type categories
const (
	ErrorTypeValidation    = "validation_error"
	ErrorTypeConfiguration = "configuration_error"
	ErrorTypeDatabase      = "database_error"
	ErrorTypeNetwork       = "network_error"
	ErrorTypeAuth          = "auth_error"
	ErrorTypeTimeout       = "timeout_error"
	ErrorTypeNotFound      = "not_found_error"
	ErrorTypeConflict      = "conflict_error"
	ErrorTypeModel         = "model_error"
	ErrorTypeInternal      = "internal_error"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithError adds error and error type fields
func (f LogFields) WithError(err error, errorType string) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
		f[FieldErrorType] = errorType
	}
	return f
}

// WithUser adds user identity fields
func (f LogFields) WithUser(id int64, email string) LogFields {
	f[FieldUserID] = id
	if email != "" {
		f[FieldEmail] = email
	}
	return f
}

// WithTransaction adds transaction-related fields
func (f LogFields) WithTransaction(id int64, category, kind string, amountCents int64) LogFields {
	f[FieldTxnID] = id
	f[FieldCategory] = category
	f[FieldKind] = kind
	f[FieldAmountCents] = amountCents
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
