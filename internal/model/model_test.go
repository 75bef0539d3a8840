package model

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func TestFactoriesMintIDs(t *testing.T) {
	a := NewEvent("2026-10-15", "Doctor", "10:00")
	b := NewEvent("2026-10-15", "Doctor", "10:00")

	if a.ID == "" || b.ID == "" {
		t.Fatal("factory item without id")
	}
	if a.ID == b.ID {
		t.Fatalf("ids collide: %s", a.ID)
	}
	if !strings.HasPrefix(a.ID, "id_") {
		t.Fatalf("unexpected id shape %q", a.ID)
	}
	if a.Type() != TypeEvent || a.Time() != "10:00" || a.Completed || a.Source != SourceLocal {
		t.Fatalf("unexpected event %+v", a)
	}
}

func TestVariantAccessors(t *testing.T) {
	m := NewMeal("k", "Jollof", "dinner")
	s := NewShopping("k", "Eggs", "Market", "09:00")

	if m.Type() != TypeMeal || m.Period() != "dinner" || m.Time() != "" || m.Location() != "" {
		t.Fatalf("meal accessors: %+v", m)
	}
	if s.Type() != TypeShopping || s.Location() != "Market" || s.Time() != "09:00" || s.Period() != "" {
		t.Fatalf("shopping accessors: %+v", s)
	}
	if got := s.Text(); got != "Eggs 09:00 Market" {
		t.Fatalf("text = %q", got)
	}
	if (Item{}).Type() != TypeEvent {
		t.Fatal("untyped item should be an event")
	}
}

func TestDecodeDefaultsAndExtras(t *testing.T) {
	var it Item
	in := `{"title":"Rice","name":"Rice","class":"A","completed":1,"time":"","type":"meal","period":"lunch"}`
	if err := json.Unmarshal([]byte(in), &it); err != nil {
		t.Fatal(err)
	}
	if it.Type() != TypeMeal || it.Period() != "lunch" || !it.Completed {
		t.Fatalf("decoded %+v", it)
	}
	for _, k := range []string{"name", "class", "time"} {
		if _, ok := it.Extra[k]; !ok {
			t.Errorf("extra %q dropped", k)
		}
	}

	var untyped Item
	if err := json.Unmarshal([]byte(`{"title":"Old plan","time":"8am"}`), &untyped); err != nil {
		t.Fatal(err)
	}
	if untyped.Type() != TypeEvent || untyped.Time() != "8am" {
		t.Fatalf("untyped decoded %+v", untyped)
	}
}

func TestCodecRoundTrip(t *testing.T) {
	in := []Item{
		NewEvent("2026-1-1", "New Year", ""),
		NewShopping("2026-1-1", "Bread", "Corner shop", "18:00"),
		{
			ID:          "id_x",
			Title:       "Holiday",
			Date:        "2026-1-1",
			Source:      SourceGoogle,
			FromGoogle:  true,
			Description: "Public holiday",
			Details:     EventDetails{},
			Extra:       map[string]RawField{"color": RawField(`{"hex":"#f00"}`)},
		},
	}
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatal(err)
	}
	var out []Item
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Fatalf("round trip mismatch:\n in=%+v\nout=%+v", in, out)
	}
}

func TestEnsureIDs(t *testing.T) {
	items := []Item{{Title: "a"}, {ID: "keep", Title: "b"}}
	items, mutated := EnsureIDs(items)
	if !mutated {
		t.Fatal("expected mutation")
	}
	if items[0].ID == "" || items[1].ID != "keep" {
		t.Fatalf("ids = %q, %q", items[0].ID, items[1].ID)
	}
	if _, again := EnsureIDs(items); again {
		t.Fatal("second pass should not mutate")
	}
}

func TestMergePreservesUnformedFields(t *testing.T) {
	existing := Item{
		ID:         "id_1",
		Title:      "Old",
		Completed:  true,
		Source:     SourceGoogle,
		FromGoogle: true,
		Date:       "2026-1-1",
		Details:    EventDetails{Time: "10:00"},
	}
	update := NewItem(TypeMeal, "2026-1-1", Fields{Title: "New", Period: "lunch"})

	got := Merge(existing, update)
	if got.ID != "id_1" || !got.FromGoogle || !got.Completed || got.Source != SourceGoogle {
		t.Fatalf("lost preserved fields: %+v", got)
	}
	if got.Title != "New" || got.Type() != TypeMeal || got.Period() != "lunch" {
		t.Fatalf("update not applied: %+v", got)
	}
	if string(got.Extra["time"]) != `"10:00"` {
		t.Fatalf("old variant field not kept: %v", got.Extra)
	}

	back := Merge(got, NewItem(TypeEvent, "2026-1-1", Fields{Title: "New", Time: "11:00"}))
	if _, ok := back.Extra["time"]; ok {
		t.Fatal("stale extra time should yield to the payload field")
	}
	if string(back.Extra["period"]) != `"lunch"` {
		t.Fatalf("period not kept: %v", back.Extra)
	}
}

func TestParseType(t *testing.T) {
	for in, want := range map[string]Type{"event": TypeEvent, " Meal ": TypeMeal, "SHOPPING": TypeShopping} {
		got, ok := ParseType(in)
		if !ok || got != want {
			t.Errorf("ParseType(%q) = %q,%v", in, got, ok)
		}
	}
	if _, ok := ParseType(""); ok {
		t.Error("empty type should not parse")
	}
}

func TestMistypedKnownFieldsSurviveEncode(t *testing.T) {
	var it Item
	in := `{"title":42,"time":1030,"location":{"aisle":3},"type":"shopping"}`
	if err := json.Unmarshal([]byte(in), &it); err != nil {
		t.Fatal(err)
	}
	if it.Title != "42" || it.Time() != "1030" {
		t.Fatalf("numbers not read as text: %+v", it)
	}
	if string(it.Extra["location"]) != `{"aisle":3}` {
		t.Fatalf("extra = %v", it.Extra)
	}

	data, err := json.Marshal(it)
	if err != nil {
		t.Fatal(err)
	}
	var out map[string]json.RawMessage
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	if string(out["location"]) != `{"aisle":3}` {
		t.Fatalf("location clobbered: %s", data)
	}
	if string(out["title"]) != `"42"` || string(out["time"]) != `"1030"` {
		t.Fatalf("encoded %s", data)
	}
}
