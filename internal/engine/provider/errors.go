package provider

import "errors"

// errNotAnObject means the model replied with a JSON array or scalar
// instead of the required object shape.
var errNotAnObject = errors.New("provider: model response is not a JSON object")

// errUnknownDecision means the model's "decision" field held a value
// outside {"allow","deny","abstain"}.
var errUnknownDecision = errors.New("provider: model response has an unrecognised decision value")
