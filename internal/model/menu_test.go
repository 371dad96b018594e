package model

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestMenu_AddKeepsFirstSeenOrder(t *testing.T) {
	m := NewMenu()
	m.Add(CategorizedItem{Category: "Mains", Name: "Burger"})
	m.Add(CategorizedItem{Category: "Starters", Name: "Fries"})
	m.Add(CategorizedItem{Category: "Mains", Name: "Wrap"})

	cats := m.Categories()
	if strings.Join(cats, ",") != "Mains,Starters" {
		t.Errorf("Unexpected category order: %v", cats)
	}

	mains := m.Items("Mains")
	if len(mains) != 2 || mains[0].Name != "Burger" || mains[1].Name != "Wrap" {
		t.Errorf("Unexpected Mains items: %+v", mains)
	}
	if m.ItemCount() != 3 {
		t.Errorf("Expected 3 items, got %d", m.ItemCount())
	}
	if m.Len() != 2 {
		t.Errorf("Expected 2 categories, got %d", m.Len())
	}
}

func TestMenu_ZeroValueUsable(t *testing.T) {
	var m Menu
	m.Add(CategorizedItem{Category: Uncategorized, Name: "Soda"})
	if m.ItemCount() != 1 {
		t.Errorf("Expected 1 item, got %d", m.ItemCount())
	}
}

func TestMenu_JSONRoundTripPreservesOrder(t *testing.T) {
	m := NewMenu()
	m.Add(CategorizedItem{Category: "Zesty", Name: "Lemonade", Price: "$2.49"})
	m.Add(CategorizedItem{Category: "Apples", Name: "Pie", MediaRef: "https://img/pie.png"})

	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if !strings.HasPrefix(string(data), `{"Zesty":`) {
		t.Errorf("Expected insertion order in JSON, got %s", data)
	}

	var back Menu
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if strings.Join(back.Categories(), ",") != "Zesty,Apples" {
		t.Errorf("Order lost after round trip: %v", back.Categories())
	}
	pie := back.Items("Apples")
	if len(pie) != 1 || pie[0].MediaRef != "https://img/pie.png" || pie[0].Category != "Apples" {
		t.Errorf("Unexpected item after round trip: %+v", pie)
	}
}

func TestMenu_UnmarshalRejectsNonObject(t *testing.T) {
	var m Menu
	if err := json.Unmarshal([]byte(`[1,2]`), &m); err == nil {
		t.Error("Expected error for array input")
	}
}

func TestDiscoveryResult_ItemCountNilSafe(t *testing.T) {
	var r *DiscoveryResult
	if r.ItemCount() != 0 {
		t.Error("Expected 0 for nil result")
	}
	r = &DiscoveryResult{}
	if r.ItemCount() != 0 {
		t.Error("Expected 0 for result without categories")
	}
}
