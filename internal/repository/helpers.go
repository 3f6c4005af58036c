package repository

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/forgo/lootbound/api/internal/database"
)

// isRecordOf reports whether id is a record id of table. Ids from other
// tables or malformed ids are treated as missing rather than sent to
// type::record, which rejects them with a query error.
func isRecordOf(id, table string) bool {
	return strings.HasPrefix(id, table+":") && len(id) > len(table)+1
}

// formatTime renders a time for a <datetime> cast
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// statementRecords returns the records of statement idx in a multi-statement response
func statementRecords(results []interface{}, idx int) []map[string]interface{} {
	if idx < 0 || idx >= len(results) {
		return nil
	}
	return toRecords(results[idx])
}

// lastStatement returns the raw result of the final statement
func lastStatement(results []interface{}) interface{} {
	if len(results) == 0 {
		return nil
	}
	if resp, ok := results[len(results)-1].(map[string]interface{}); ok {
		if r, exists := resp["result"]; exists {
			return r
		}
	}
	return results[len(results)-1]
}

// toRecords unwraps a {status, result} wrapper into record maps
func toRecords(v interface{}) []map[string]interface{} {
	if resp, ok := v.(map[string]interface{}); ok {
		if _, isWrapper := resp["status"]; isWrapper {
			v = resp["result"]
		}
	}
	switch data := v.(type) {
	case []interface{}:
		out := make([]map[string]interface{}, 0, len(data))
		for _, item := range data {
			if m, ok := item.(map[string]interface{}); ok {
				out = append(out, m)
			}
		}
		return out
	case map[string]interface{}:
		return []map[string]interface{}{data}
	}
	return nil
}

// firstRecord returns the first record of a QueryOne result
func firstRecord(result interface{}) (map[string]interface{}, error) {
	records := toRecords(result)
	if len(records) == 0 {
		return nil, database.ErrNotFound
	}
	return records[0], nil
}

// extractCount extracts count from a `SELECT count() AS count ... GROUP ALL` statement
func extractCount(results []interface{}, idx int) int {
	records := statementRecords(results, idx)
	if len(records) == 0 {
		return 0
	}
	return extractCountValue(records[0]["count"])
}

// extractCountValue converts various numeric types to int
func extractCountValue(v interface{}) int {
	switch c := v.(type) {
	case float64:
		return int(c)
	case float32:
		return int(c)
	case int:
		return c
	case int64:
		return int(c)
	case uint64:
		return int(c)
	}
	return 0
}

// extractIDs converts a list of record ids returned by `RETURN [...]`
func extractIDs(v interface{}) []string {
	arr, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		out = append(out, convertSurrealID(item))
	}
	return out
}

// convertSurrealID converts a SurrealDB ID (which may be a complex object) to a string
func convertSurrealID(id interface{}) string {
	switch v := id.(type) {
	case nil:
		return ""
	case string:
		return v
	case models.RecordID:
		return fmt.Sprintf("%s:%v", v.Table, v.ID)
	case *models.RecordID:
		if v != nil {
			return fmt.Sprintf("%s:%v", v.Table, v.ID)
		}
		return ""
	case map[string]interface{}:
		// Fetched record: use its own id
		if inner, ok := v["id"]; ok {
			if tb, ok := v["tb"].(string); ok {
				return tb + ":" + extractIDValue(inner)
			}
			return convertSurrealID(inner)
		}
	}
	return fmt.Sprintf("%v", id)
}

// extractIDValue extracts the ID value which may be nested
func extractIDValue(val interface{}) string {
	if str, ok := val.(string); ok {
		return str
	}
	if m, ok := val.(map[string]interface{}); ok {
		if s, ok := m["String"].(string); ok {
			return s
		}
	}
	return fmt.Sprintf("%v", val)
}

type createdRecord struct {
	ID        string
	CreatedOn time.Time
}

// extractCreatedRecord reads the id and creation time from a CREATE response
func extractCreatedRecord(result []interface{}) (*createdRecord, error) {
	records := statementRecords(result, 0)
	if len(records) == 0 {
		return nil, errors.New("no result returned")
	}
	data := records[0]
	return &createdRecord{
		ID:        convertSurrealID(data["id"]),
		CreatedOn: parseTime(data["created_on"]),
	}, nil
}

// parseTime parses time from various formats
func parseTime(v interface{}) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		if parsed, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return parsed
		}
	case models.CustomDateTime:
		return t.Time
	case *models.CustomDateTime:
		if t != nil {
			return t.Time
		}
	}
	return time.Time{}
}

// getString extracts a string value from a map
func getString(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

// getStringPtr extracts an optional string value from a map
func getStringPtr(m map[string]interface{}, key string) *string {
	if v, ok := m[key].(string); ok && v != "" {
		return &v
	}
	return nil
}

// getInt extracts an int value from a map
func getInt(m map[string]interface{}, key string) int {
	return extractCountValue(m[key])
}

// getInt64 extracts an int64 value from a map
func getInt64(m map[string]interface{}, key string) int64 {
	switch v := m[key].(type) {
	case int64:
		return v
	case uint64:
		return int64(v)
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}

// getFloat extracts a float value from a map
func getFloat(m map[string]interface{}, key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case uint64:
		return float64(v)
	}
	return 0
}

// getBool extracts a bool value from a map
func getBool(m map[string]interface{}, key string) bool {
	if v, ok := m[key].(bool); ok {
		return v
	}
	return false
}

// getStringSlice extracts a string slice from a map
func getStringSlice(m map[string]interface{}, key string) []string {
	if v, ok := m[key].([]interface{}); ok {
		result := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				result = append(result, s)
			}
		}
		return result
	}
	return nil
}

// getRecordID extracts a record link, which may be fetched into a full record
func getRecordID(m map[string]interface{}, key string) string {
	return convertSurrealID(m[key])
}
