package verification

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Payload is an opaque JSON document. The core never inspects it; handlers may decode it.
type Payload []byte

var emptyPayload = Payload("{}")

func (p Payload) MarshalJSON() ([]byte, error) {
	if len(p) == 0 {
		return emptyPayload, nil
	}
	return p, nil
}

func (p *Payload) UnmarshalJSON(data []byte) error {
	if p == nil {
		return fmt.Errorf("verification: UnmarshalJSON on nil Payload")
	}
	if string(data) == "null" {
		*p = nil
		return nil
	}
	*p = append((*p)[0:0], data...)
	return nil
}

// Value stores the payload as text so both jsonb and TEXT columns accept it.
func (p Payload) Value() (driver.Value, error) {
	if len(p) == 0 {
		return string(emptyPayload), nil
	}
	if !json.Valid(p) {
		return nil, fmt.Errorf("verification: payload is not valid JSON")
	}
	return string(p), nil
}

func (p *Payload) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*p = nil
	case []byte:
		*p = append(Payload(nil), v...)
	case string:
		*p = Payload(v)
	default:
		return fmt.Errorf("verification: cannot scan %T into Payload", src)
	}
	return nil
}

// Decode unmarshals the payload into dst. An empty payload leaves dst untouched.
func (p Payload) Decode(dst any) error {
	if len(p) == 0 {
		return nil
	}
	return json.Unmarshal(p, dst)
}
