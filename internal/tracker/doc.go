// Package tracker holds the recurrence, streak and statistics rules.
//
// Every function here works on value copies of model.Task and takes the
// relevant instant as an argument. The only side effects go through the
// CompletionAppender and HistoryQuery interfaces supplied by the caller.
// Callers must serialise writes to the same task: a completion is a
// read-modify-write of several fields and is not idempotent.
package tracker
