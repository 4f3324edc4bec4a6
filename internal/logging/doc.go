// Package logging provides structured logging for fortune-teller sessions.
//
// It wraps Go's log/slog to write JSON lines either to {dir}/debug.log or to
// stderr. Child loggers carry persistent attributes so that every line
// emitted by the debate engine can be filtered by session, agent, round and
// phase after the fact.
//
// # Basic Usage
//
//	logger, err := logging.NewLogger("/path/to/logs", "INFO")
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	roundLog := logger.WithSession(id).WithRound(2)
//	roundLog.WithAgent("skeptic").Warn("attempt failed", "kind", "rate_limit")
//
// # Rotation and Aggregation
//
// [NewRotatingLogger] rotates debug.log by size, keeping numbered and
// optionally gzipped backups. [ReadEntries] reads a log directory back,
// backups included, and [FilterEntries] narrows the result by session,
// agent, round, level or time for the `logs` command.
//
// # Thread Safety
//
// [Logger] is safe for concurrent use. Child loggers created via the With*
// methods share the underlying writer.
package logging
