package common

const (
	// KEY_PRICE_SERIES is formatted with symbol, start date and end date.
	KEY_PRICE_SERIES = "price_series:%s:%s:%s"
)

const (
	RUN_STATUS_RUNNING   = "running"
	RUN_STATUS_COMPLETED = "completed"
	RUN_STATUS_FAILED    = "failed"
)

const (
	PRICE_SOURCE_YAHOO  = "yahoo"
	PRICE_SOURCE_IMPORT = "import"
)
