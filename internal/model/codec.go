package model

import (
	"bytes"
	"encoding/json"
)

// RawField is an undecoded, compacted JSON value.
type RawField = json.RawMessage

// Wire field names.
const (
	fieldID         = "id"
	fieldTitle      = "title"
	fieldType       = "type"
	fieldCompleted  = "completed"
	fieldTime       = "time"
	fieldPeriod     = "period"
	fieldLocation   = "location"
	fieldDate       = "date"
	fieldSource     = "source"
	fieldFromGoogle = "fromGoogle"
	fieldDesc       = "desc"
)

func stringField(s string) RawField {
	b, _ := json.Marshal(s)
	return b
}

// MarshalJSON writes the flat wire shape. Known fields win over Extra.
func (it Item) MarshalJSON() ([]byte, error) {
	m := make(map[string]RawField, len(it.Extra)+8)
	for k, v := range it.Extra {
		m[k] = v
	}
	// An empty typed value never clobbers a mistyped original kept in Extra.
	put := func(k, v string) {
		if _, kept := it.Extra[k]; kept && v == "" {
			return
		}
		m[k] = stringField(v)
	}
	if it.ID != "" {
		m[fieldID] = stringField(it.ID)
	}
	put(fieldTitle, it.Title)
	m[fieldType] = stringField(string(it.Type()))
	if it.Completed {
		m[fieldCompleted] = RawField("true")
	} else {
		m[fieldCompleted] = RawField("false")
	}
	for k, v := range variantFields(it.Details) {
		put(k, v)
	}
	if it.Details == nil {
		put(fieldTime, "")
	}
	if it.Date != "" {
		m[fieldDate] = stringField(it.Date)
	}
	if it.Source != "" {
		m[fieldSource] = stringField(string(it.Source))
	}
	if it.FromGoogle {
		m[fieldFromGoogle] = RawField("true")
	}
	if it.Description != "" {
		m[fieldDesc] = stringField(it.Description)
	}
	return json.Marshal(m)
}

// UnmarshalJSON reads a loosely-typed record. Missing or mistyped known
// fields take their defaults; unknown fields land in Extra.
func (it *Item) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*it = Item{}

	take := func(k string) (string, bool) {
		v, ok := raw[k]
		if !ok {
			return "", false
		}
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			delete(raw, k)
			return s, true
		}
		var n json.Number
		if err := json.Unmarshal(v, &n); err == nil {
			delete(raw, k)
			return n.String(), true
		}
		// Neither string nor number: keep it verbatim under its own name.
		return "", false
	}

	it.ID, _ = take(fieldID)
	it.Title, _ = take(fieldTitle)
	it.Date, _ = take(fieldDate)
	if s, ok := take(fieldSource); ok {
		it.Source = Source(s)
	}
	it.Description, _ = take(fieldDesc)

	if v, ok := raw[fieldCompleted]; ok {
		it.Completed = truthy(v)
		delete(raw, fieldCompleted)
	}
	if v, ok := raw[fieldFromGoogle]; ok {
		it.FromGoogle = truthy(v)
		delete(raw, fieldFromGoogle)
	}

	typeName, _ := take(fieldType)
	t, ok := ParseType(typeName)
	if !ok {
		t = TypeEvent
	}
	switch t {
	case TypeMeal:
		p, _ := take(fieldPeriod)
		it.Details = MealDetails{Period: p}
	case TypeShopping:
		loc, _ := take(fieldLocation)
		tm, _ := take(fieldTime)
		it.Details = ShoppingDetails{Location: loc, Time: tm}
	default:
		tm, _ := take(fieldTime)
		it.Details = EventDetails{Time: tm}
	}

	if len(raw) > 0 {
		it.Extra = make(map[string]RawField, len(raw))
		for k, v := range raw {
			var buf bytes.Buffer
			if err := json.Compact(&buf, v); err != nil {
				return err
			}
			it.Extra[k] = buf.Bytes()
		}
	}
	return nil
}

// truthy follows loose JSON truthiness: false, 0, "", null are false.
func truthy(v json.RawMessage) bool {
	var x any
	if err := json.Unmarshal(v, &x); err != nil {
		return false
	}
	switch t := x.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	case nil:
		return false
	default:
		return true
	}
}
