package model

import "github.com/regulahealth/parity/internal/money"

// GroupSummary aggregates violation exposure for one group key: a payer id,
// a service category, or a "YYYY-MM" service month.
type GroupSummary struct {
	Key              string
	Claims           int64
	Violations       int64
	Recoverable      money.Cents
	ViolationRateBps int32
	AvgUnderpayment  money.Cents
}

// AggregateSummary is the batch-level rollup of violation findings, with
// per-payer, per-category, and per-month breakdowns sorted by recoverable
// amount descending (ties by key ascending).
type AggregateSummary struct {
	Claims           int64
	Violations       int64
	Recoverable      money.Cents
	ViolationRateBps int32
	AvgUnderpayment  money.Cents

	ByPayer    []GroupSummary
	ByCategory []GroupSummary
	ByMonth    []GroupSummary
}
