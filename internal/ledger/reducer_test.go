package ledger

import (
	"reflect"
	"testing"
)

type item struct {
	id   string
	name string
}

func (i item) EntityID() string { return i.id }

func ids(items []item) []string {
	out := make([]string, 0, len(items))
	for _, i := range items {
		out = append(out, i.id)
	}
	return out
}

func TestReduce(t *testing.T) {
	base := []item{{"a", "A"}, {"b", "B"}, {"c", "C"}}

	tests := []struct {
		name   string
		action Action[item]
		want   []item
	}{
		{
			name:   "add appends at the end",
			action: Add[item]{Item: item{"d", "D"}},
			want:   []item{{"a", "A"}, {"b", "B"}, {"c", "C"}, {"d", "D"}},
		},
		{
			name:   "update replaces in place",
			action: Update[item]{Item: item{"b", "B2"}},
			want:   []item{{"a", "A"}, {"b", "B2"}, {"c", "C"}},
		},
		{
			name:   "update of unknown id is a no-op",
			action: Update[item]{Item: item{"z", "Z"}},
			want:   base,
		},
		{
			name:   "delete keeps the order of the rest",
			action: Delete[item]{ID: "a"},
			want:   []item{{"b", "B"}, {"c", "C"}},
		},
		{
			name:   "delete of unknown id is a no-op",
			action: Delete[item]{ID: "z"},
			want:   base,
		},
		{
			name:   "set all replaces everything",
			action: SetAll[item]{Items: []item{{"x", "X"}}},
			want:   []item{{"x", "X"}},
		},
		{
			name:   "set all with nothing empties",
			action: SetAll[item]{},
			want:   []item{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := append([]item(nil), base...)
			got := Reduce(base, tt.action)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Reduce() = %v, want %v", got, tt.want)
			}
			if !reflect.DeepEqual(base, before) {
				t.Errorf("Reduce() modified its input: %v", base)
			}
		})
	}
}

func TestRegistry_DeleteThenUpdate(t *testing.T) {
	var r Registry[item]
	r.Dispatch(SetAll[item]{Items: []item{{"1", "one"}, {"2", "two"}, {"3", "three"}}})
	r.Dispatch(Delete[item]{ID: "2"})
	r.Dispatch(Update[item]{Item: item{"3", "THREE"}})

	if got, want := ids(r.Items()), []string{"1", "3"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("ids = %v, want %v", got, want)
	}
	if got, _ := r.Find("3"); got.name != "THREE" {
		t.Errorf("Find(3) = %+v", got)
	}
	if _, ok := r.Find("2"); ok {
		t.Error("Find(2) found a deleted entry")
	}
	if r.Len() != 2 {
		t.Errorf("Len() = %d, want 2", r.Len())
	}
}

func TestRegistry_ItemsIsACopy(t *testing.T) {
	var r Registry[item]
	r.Dispatch(Add[item]{Item: item{"1", "one"}})

	items := r.Items()
	items[0].name = "changed"

	if got, _ := r.Find("1"); got.name != "one" {
		t.Errorf("registry changed through Items(): %+v", got)
	}
}
