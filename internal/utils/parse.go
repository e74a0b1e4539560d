package utils

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// ParseLenient unmarshals content into T. When strict decoding fails the
// content is passed through jsonrepair (single quotes, unquoted keys, trailing
// commas, truncated objects) and decoding is retried once.
//
// Example usage:
//
//	type apiError struct {
//	    Message string `json:"message"`
//	}
//
//	parsed, err := ParseLenient[apiError](`{message: 'model overloaded'}`)
func ParseLenient[T any](content string) (T, error) {
	var result T

	if strings.TrimSpace(content) == "" {
		return result, fmt.Errorf("empty content")
	}

	err := json.Unmarshal([]byte(content), &result)
	if err == nil {
		return result, nil
	}

	repairedJSON, repairErr := jsonrepair.JSONRepair(content)
	if repairErr != nil {
		return result, fmt.Errorf("failed to unmarshal content as %T and failed to repair JSON: unmarshal error: %w, repair error: %v", result, err, repairErr)
	}

	var repaired T
	if err = json.Unmarshal([]byte(repairedJSON), &repaired); err != nil {
		return result, fmt.Errorf("failed to unmarshal repaired JSON as %T: %w", result, err)
	}
	return repaired, nil
}
