package sanitizer

import (
	"reflect"
	"testing"

	"cowork/pkg/model"
)

func TestTrimAndNormalize(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"  Hub   North  ", "Hub North"},
		{"Floor\t2\nEast", "Floor 2 East"},
		{"", ""},
		{"   ", ""},
		{"Café Área", "Café Área"},
	}

	for _, tt := range tests {
		if got := TrimAndNormalize(tt.input); got != tt.want {
			t.Errorf("TrimAndNormalize(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestNormalizeFeature(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Standing Desk", "standing_desk"},
		{"standing-desk", "standing_desk"},
		{"  4K -- Monitor ", "4k_monitor"},
		{"!!!", ""},
	}

	for _, tt := range tests {
		if got := NormalizeFeature(tt.input); got != tt.want {
			t.Errorf("NormalizeFeature(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestNormalizeFeatures_DropsDuplicatesAndBlanks(t *testing.T) {
	got := NormalizeFeatures([]string{"Whiteboard", "white board", "whiteboard", "", "  ", "Projector"})
	want := []string{"projector", "white_board", "whiteboard"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("NormalizeFeatures() = %v, want %v", got, want)
	}

	if got := NormalizeFeatures(nil); got == nil || len(got) != 0 {
		t.Errorf("NormalizeFeatures(nil) = %v, want empty slice", got)
	}
}

func TestMember(t *testing.T) {
	m := model.Member{
		Name:  "  Ada   Lovelace ",
		Email: " Ada@Example.COM ",
		Phone: "+1 (212) 555-1234",
	}
	Member(&m)

	if m.Name != "Ada Lovelace" || m.Email != "ada@example.com" || m.Phone != "+12125551234" {
		t.Errorf("unexpected sanitized member: %+v", m)
	}
}

func TestResource(t *testing.T) {
	r := model.Resource{Name: " Room  A ", Location: "Floor   2", Features: []string{"TV", "tv"}}
	Resource(&r)

	if r.Name != "Room A" || r.Location != "Floor 2" || !reflect.DeepEqual(r.Features, []string{"tv"}) {
		t.Errorf("unexpected sanitized resource: %+v", r)
	}
}
