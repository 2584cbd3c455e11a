package sql

import (
	"embed"
)

// Migrations holds the schema files applied by store.ApplyMigrations,
// ordered by filename.
//
//go:embed migrations/*.sql
var Migrations embed.FS

//go:embed queries/insert_run.sql
var InsertRun string

//go:embed queries/finalize_run.sql
var FinalizeRun string

//go:embed queries/insert_quarantine.sql
var InsertQuarantine string

//go:embed queries/insert_summary_group.sql
var InsertSummaryGroup string
