package jobs

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"

	// TaskLedgerAudit recomputes on-hand quantities from the movement ledger
	// and reports quant rows that drifted.
	TaskLedgerAudit = "ledger:audit"

	// TaskLowStockScan looks for products whose on-hand quantity fell to or
	// below their minimum and logs them for replenishment.
	TaskLowStockScan = "stock:low_stock_scan"
)
