package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ResultSet maps agent identifier to result and remembers first-seen key order.
// Setting an existing key replaces its value in place.
type ResultSet struct {
	order   []string
	results map[string]SpecialistResult
}

func NewResultSet() ResultSet {
	return ResultSet{results: make(map[string]SpecialistResult)}
}

func (s *ResultSet) Set(id string, r SpecialistResult) {
	if s.results == nil {
		s.results = make(map[string]SpecialistResult)
	}
	if _, ok := s.results[id]; !ok {
		s.order = append(s.order, id)
	}
	s.results[id] = r
}

func (s ResultSet) Get(id string) (SpecialistResult, bool) {
	r, ok := s.results[id]
	return r, ok
}

func (s ResultSet) Len() int {
	return len(s.order)
}

func (s ResultSet) Keys() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Each visits results in key order.
func (s ResultSet) Each(fn func(id string, r SpecialistResult)) {
	for _, id := range s.order {
		fn(id, s.results[id])
	}
}

// Failed returns the ids whose result is not completed, in key order.
func (s ResultSet) Failed() []string {
	var ids []string
	s.Each(func(id string, r SpecialistResult) {
		if r.Failed() {
			ids = append(ids, id)
		}
	})
	return ids
}

func (s ResultSet) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, id := range s.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(id)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(s.results[id])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (s *ResultSet) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("result set: expected object, got %v", tok)
	}
	*s = NewResultSet()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		id, ok := tok.(string)
		if !ok {
			return fmt.Errorf("result set: expected key, got %v", tok)
		}
		var r SpecialistResult
		if err := dec.Decode(&r); err != nil {
			return fmt.Errorf("result set: %s: %w", id, err)
		}
		s.Set(id, r)
	}
	_, err = dec.Token()
	return err
}
