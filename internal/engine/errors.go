package engine

import "errors"

// ErrMalformedInput means stdin was unreadable, not JSON, or failed
// schema validation (missing required field, wrong hook_event_name).
// Distinguished from ErrFlagUsage because it always exits 2, never 1.
var ErrMalformedInput = errors.New("engine: malformed permission request")

// ErrFlagUsage means the CLI was invoked with an unknown or conflicting
// flag combination (e.g. --shadow with --audit). Exits 1, not 2.
var ErrFlagUsage = errors.New("engine: invalid flag usage")

// ErrProviderFailed wraps any provider-local failure (subprocess
// non-zero exit, HTTP non-2xx, timeout, unparseable model response).
// Callers at the pipeline boundary must recover this into Abstain and
// never let it escape to the request boundary.
var ErrProviderFailed = errors.New("engine: provider failed")

// ErrPersistence means the relational store is corrupt or at a schema
// version the running binary cannot serve. The hot path must still
// produce a decision when this occurs; only cold-path commands
// (stats, db migrate) surface it as a process exit failure.
var ErrPersistence = errors.New("engine: persistence error")

// ErrSchemaOutOfDate means the store's schema_version is older than the
// version this binary expects; the user must run the migrate command.
var ErrSchemaOutOfDate = errors.New("engine: database schema out of date, run 'tyr db migrate'")

// ErrSchemaTooNew means the store's schema_version is newer than the
// version this binary expects; the user must upgrade tyr.
var ErrSchemaTooNew = errors.New("engine: database schema newer than this build of tyr, please upgrade")

// ErrRuleFileParse is isolated to the offending scope file; sibling
// files in other scopes are unaffected and the process continues.
var ErrRuleFileParse = errors.New("engine: rule file parse error")
