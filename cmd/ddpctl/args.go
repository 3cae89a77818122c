package main

import (
	segjson "github.com/segmentio/encoding/json"
)

// parseArgs turns positional arguments into method params. Each argument
// is decoded as JSON; anything that is not valid JSON is passed as a string.
func parseArgs(args []string) []any {
	params := make([]any, 0, len(args))
	for _, a := range args {
		var v any
		if err := segjson.Unmarshal([]byte(a), &v); err != nil {
			params = append(params, a)
			continue
		}
		params = append(params, v)
	}
	return params
}
