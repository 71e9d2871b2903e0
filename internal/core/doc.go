// Package core provides the extract, clean, quality check and load logic of
// the ETL pipeline.
//
// The package is independent of the CLI and HTTP layers. MongoDB, email and
// run history are reached through the [DocumentSource], [DocumentSink],
// notify.Notifier and [RunRecorder] interfaces so tests can supply fakes.
//
// # Datasets
//
// A dataset names the staging files and the ordered cleaning operations for
// one source collection. Built-in datasets register themselves at init time
// with [Register]; a YAML rules file can add or override them:
//
//	datasets:
//	  - key: orders
//	    staging: orders
//	    operations:
//	      - op: normalize_headers
//	      - op: to_datetime
//	        columns: [created]
//	      - op: fill_mean
//	        columns: [amount]
//
// # Steps
//
// A run executes [StepOrder]:
//
//  1. check_connection pings the source
//  2. extract writes every source document to <staging>.csv
//  3. clean applies the dataset's operations and writes <staging>_clean.csv
//  4. quality_check reports row, column and missing-value counts
//  5. load replaces the target collection with the cleaned rows
//  6. notify sends the run summary
//
// Steps communicate only through the staging files, so any step can run on
// its own with [Service.RunStep]. Failed steps are retried and the first
// failure stops the run.
//
// # Values
//
// Staging files are typed on read the way dataframe CSV readers do it: NA
// markers become null and each column is int, float, bool or string. See
// [InferColumn].
//
// # Error Handling
//
// Errors wrap sentinels such as [ErrStagingFileMissing] and [ErrQualityGate].
// [MapError] turns any error into a coded, operator-facing message.
package core
