// Package model defines planner items: a common record plus one of three
// variant payloads (event, meal, shopping).
package model

import (
	"strings"

	"github.com/google/uuid"
)

// Type tags an item's variant.
type Type string

const (
	TypeEvent    Type = "event"
	TypeMeal     Type = "meal"
	TypeShopping Type = "shopping"
)

// Types lists the variants in the fixed display order used by calendar
// indicators and dashboard tables.
var Types = []Type{TypeEvent, TypeMeal, TypeShopping}

// ParseType parses a variant tag. The empty string and unknown tags are
// reported as not ok.
func ParseType(s string) (Type, bool) {
	switch Type(strings.ToLower(strings.TrimSpace(s))) {
	case TypeEvent:
		return TypeEvent, true
	case TypeMeal:
		return TypeMeal, true
	case TypeShopping:
		return TypeShopping, true
	default:
		return "", false
	}
}

// Label is the plural noun used in UI text ("No meals for this date").
func (t Type) Label() string {
	switch t {
	case TypeMeal:
		return "meals"
	case TypeShopping:
		return "shopping"
	default:
		return "events"
	}
}

// Source records where an item came from. It is informational only.
type Source string

const (
	SourceLocal      Source = "local"
	SourceLegacyMeal Source = "legacy_meal"
	SourceLegacyPlan Source = "legacy_plan"
	SourceGoogle     Source = "google_calendar"
)

// Details is the variant payload of an Item.
type Details interface {
	Type() Type
	isDetails()
}

// EventDetails carries the event time, free-form ("10:00", "after lunch").
type EventDetails struct {
	Time string
}

// MealDetails carries the meal period (breakfast, lunch, dinner...).
type MealDetails struct {
	Period string
}

// ShoppingDetails carries where and when to shop.
type ShoppingDetails struct {
	Location string
	Time     string
}

func (EventDetails) Type() Type    { return TypeEvent }
func (MealDetails) Type() Type     { return TypeMeal }
func (ShoppingDetails) Type() Type { return TypeShopping }

func (EventDetails) isDetails()    {}
func (MealDetails) isDetails()     {}
func (ShoppingDetails) isDetails() {}

// Item is one entry in a day's sequence.
type Item struct {
	ID          string
	Title       string
	Completed   bool
	Date        string
	Source      Source
	FromGoogle  bool
	Description string

	// Details is nil only for records decoded without a usable type; Type()
	// then reports an event.
	Details Details

	// Extra keeps wire fields this model does not know about so a
	// read/write cycle never drops data.
	Extra map[string]RawField
}

// Type reports the item's variant, defaulting to event.
func (it Item) Type() Type {
	if it.Details == nil {
		return TypeEvent
	}
	return it.Details.Type()
}

// Time is the event or shopping time; meals have none.
func (it Item) Time() string {
	switch d := it.Details.(type) {
	case EventDetails:
		return d.Time
	case ShoppingDetails:
		return d.Time
	}
	return ""
}

func (it Item) Period() string {
	if d, ok := it.Details.(MealDetails); ok {
		return d.Period
	}
	return ""
}

func (it Item) Location() string {
	if d, ok := it.Details.(ShoppingDetails); ok {
		return d.Location
	}
	return ""
}

// Text is the searchable text of an item as it is shown in a row.
func (it Item) Text() string {
	parts := []string{it.Title}
	for _, s := range []string{it.Time(), it.Period(), it.Location()} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// NewID returns a fresh, globally unique item id.
func NewID() string {
	return "id_" + uuid.NewString()
}

// Fields are the user-editable inputs of the add/edit form.
type Fields struct {
	Title    string
	Time     string
	Period   string
	Location string
}

// DetailsFor builds the variant payload for t from the form fields that
// are relevant to it.
func DetailsFor(t Type, f Fields) Details {
	switch t {
	case TypeMeal:
		return MealDetails{Period: f.Period}
	case TypeShopping:
		return ShoppingDetails{Location: f.Location, Time: f.Time}
	default:
		return EventDetails{Time: f.Time}
	}
}

// NewItem constructs a local item of type t for the given date key. It
// always carries a fresh id.
func NewItem(t Type, dateKey string, f Fields) Item {
	return Item{
		ID:      NewID(),
		Title:   f.Title,
		Date:    dateKey,
		Source:  SourceLocal,
		Details: DetailsFor(t, f),
	}
}

func NewEvent(dateKey, title, time string) Item {
	return NewItem(TypeEvent, dateKey, Fields{Title: title, Time: time})
}

func NewMeal(dateKey, title, period string) Item {
	return NewItem(TypeMeal, dateKey, Fields{Title: title, Period: period})
}

func NewShopping(dateKey, title, location, time string) Item {
	return NewItem(TypeShopping, dateKey, Fields{Title: title, Location: location, Time: time})
}

// EnsureIDs assigns a fresh id to every item lacking one, in place, and
// reports whether anything changed.
func EnsureIDs(items []Item) ([]Item, bool) {
	mutated := false
	for i := range items {
		if items[i].ID == "" {
			items[i].ID = NewID()
			mutated = true
		}
	}
	return items, mutated
}

// Merge applies an edit onto an existing record. Title, date and the
// variant payload come from update; everything the form does not carry
// (id, completion, provenance, description, unknown fields) is kept.
// Variant fields that the new payload has no slot for are kept in Extra.
func Merge(existing, update Item) Item {
	out := existing
	out.Title = update.Title
	if update.Date != "" {
		out.Date = update.Date
	}
	out.Extra = cloneExtra(existing.Extra)

	old := variantFields(existing.Details)
	out.Details = update.Details
	if out.Details == nil {
		out.Details = EventDetails{}
	}
	kept := variantFields(out.Details)
	for k, v := range old {
		if _, ok := kept[k]; ok || v == "" {
			continue
		}
		if out.Extra == nil {
			out.Extra = map[string]RawField{}
		}
		out.Extra[k] = stringField(v)
	}
	for k := range kept {
		delete(out.Extra, k)
	}
	if len(out.Extra) == 0 {
		out.Extra = nil
	}
	return out
}

// variantFields lists the wire fields a payload owns.
func variantFields(d Details) map[string]string {
	switch v := d.(type) {
	case EventDetails:
		return map[string]string{"time": v.Time}
	case MealDetails:
		return map[string]string{"period": v.Period}
	case ShoppingDetails:
		return map[string]string{"location": v.Location, "time": v.Time}
	}
	return map[string]string{}
}

func cloneExtra(m map[string]RawField) map[string]RawField {
	if m == nil {
		return nil
	}
	out := make(map[string]RawField, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
