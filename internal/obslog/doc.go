/*
Package obslog provides structured logging for protobase using zerolog.

The package wraps zerolog to give every subsystem — the paged store, the
transaction layer, the atom/codec layer, and the persistent collections — a
component-scoped logger with consistent fields, without threading a logger
through every call.

# Usage

Initializing the global logger:

	obslog.Init(obslog.Config{
		Level:      obslog.InfoLevel,
		JSONOutput: true,
		Output:     os.Stdout,
	})

Component loggers:

	storeLog := obslog.Component("pagestore")
	storeLog.Info().Int("page", pageNum).Msg("page flushed")

	txnLog := obslog.WithDatabase(obslog.Component("txn"), "orders")
	txnLog.Debug().Msg("transaction committed")

# Fields

Every component logger carries a "component" field. Operations that touch a
specific atom add "stream_id"/"offset" via WithPointer; operations scoped to a
database add "database" via WithDatabase. Corruption errors are logged at
Error level by the caller before being returned — obslog never calls
os.Exit; only embedding programs decide whether an error is fatal.

# Log levels

Debug is for page-cache hits/misses and rebalance steps — verbose, disabled
in production. Info covers transaction commits/aborts and root-slot flushes.
Warn covers recoverable conditions like a transient write-queue stall. Error
covers ValidationError/CorruptionError/IOError returned to callers.
*/
package obslog
