// internal/model/jsonb.go
package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// jsonValue and jsonScan back the JSONB columns (workflow graphs, form
// fields, DNS records).
func jsonValue(v any) (driver.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func jsonScan(src any, dst any) error {
	switch s := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(s, dst)
	case string:
		return json.Unmarshal([]byte(s), dst)
	default:
		return fmt.Errorf("unsupported JSON column type %T", src)
	}
}
