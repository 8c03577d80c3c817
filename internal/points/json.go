package points

import "encoding/json"

// UnmarshalJSON decodes a pair, treating a missing "active" field as true.
func (p *Pair) UnmarshalJSON(data []byte) error {
	type plain Pair
	v := plain{Active: true}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*p = Pair(v)
	return nil
}
