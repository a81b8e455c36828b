// Package dataprocessing turns a CORD-19 style metadata file into a cleaned
// record table and derives the filtered views and aggregates the dashboard
// renders.
//
// # Architecture
//
// The package is organized into four steps:
//
// 1. Loader: reads a delimited file with a header row into a RawTable
// 2. Cleaner: prunes sparse columns, backfills key columns, coerces
// publish_time and derives publish_year and abstract_word_count
// 3. Filter: selects rows by publication year range and journal
// 4. Analytics: year counts, category counts, selector options and
// word frequencies
//
// # Usage
//
//	raw, err := dataprocessing.LoadFile(ctx, source, "metadata.csv")
//	if err != nil {
//	    return err
//	}
//	table, err := dataprocessing.Clean(raw)
//	if err != nil {
//	    return err
//	}
//	view := dataprocessing.Filter(table, dataprocessing.Query{
//	    MinYear: 2019, MaxYear: 2021, Journal: dataprocessing.AllCategories,
//	})
//
// # Data Flow
//
//	CSV → Loader → RawTable → Cleaner → Table → Filter → Table → Analytics
//
// # Error Handling
//
// Malformed individual values never fail the pipeline: unparseable dates
// become null timestamps and missing text is backfilled. A DataLoadError is
// returned when the file cannot be read or parsed, or when title,
// publish_time or abstract do not survive column pruning.
package dataprocessing
