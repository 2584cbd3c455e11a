package exitcode

const (
	Success        = 0
	UsageError     = 1
	TableError     = 2 // reference table failed to load or validate
	IngestError    = 3 // claims file unreadable or empty
	DBConnError    = 4
	RunError       = 5 // evaluation produced no usable results
	StoreError     = 6 // results computed but persistence failed
	PartialSuccess = 7 // run completed with quarantined claims
)
