package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
)

// Document is a JSON value kept in a text column. Scalar documents such as
// `1` or `true` may come back from a driver as numbers or booleans, so Scan
// accepts every driver value type.
type Document []byte

func (d *Document) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		*d = nil
	case []byte:
		*d = append(Document(nil), v...)
	case string:
		*d = Document(v)
	case int64:
		*d = strconv.AppendInt(nil, v, 10)
	case float64:
		*d = strconv.AppendFloat(nil, v, 'g', -1, 64)
	case bool:
		*d = strconv.AppendBool(nil, v)
	default:
		return fmt.Errorf("cannot scan %T into a JSON document", value)
	}

	return nil
}

func (d Document) Value() (driver.Value, error) {
	if len(d) == 0 {
		return nil, nil //nolint:nilnil
	}

	return string(d), nil
}

func (d Document) raw() json.RawMessage {
	if len(d) == 0 {
		return nil
	}

	return json.RawMessage(d)
}
