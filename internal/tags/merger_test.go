package tags

import (
	"reflect"
	"testing"
)

func TestMergeAddsNewKeys(t *testing.T) {
	existing := TagSet{"amenity": "cafe"}
	result := Merge(existing, TagSet{"cuisine": "coffee_shop", "wifi": "yes"}, PolicyAsk)

	if result.Merged["cuisine"] != "coffee_shop" || result.Merged["wifi"] != "yes" {
		t.Errorf("merged = %v", result.Merged)
	}
	if !reflect.DeepEqual(result.Added, []string{"cuisine", "wifi"}) {
		t.Errorf("added = %v", result.Added)
	}
	if len(result.Conflicts) != 0 || len(result.Updated) != 0 {
		t.Errorf("unexpected conflicts %v or updates %v", result.Conflicts, result.Updated)
	}
}

func TestMergeConflictPolicies(t *testing.T) {
	existing := TagSet{"amenity": "cafe"}
	incoming := TagSet{"amenity": "restaurant"}

	tests := []struct {
		policy MergePolicy
		want   string
	}{
		{PolicyAsk, "cafe"},
		{PolicyKeepExisting, "cafe"},
		{PolicyUseNew, "restaurant"},
	}
	for _, tt := range tests {
		t.Run(string(tt.policy), func(t *testing.T) {
			result := Merge(existing, incoming, tt.policy)
			if result.Merged["amenity"] != tt.want {
				t.Errorf("merged amenity = %q, want %q", result.Merged["amenity"], tt.want)
			}
			// The conflict is reported regardless of policy.
			if len(result.Conflicts) != 1 {
				t.Fatalf("conflicts = %v, want exactly one", result.Conflicts)
			}
			c := result.Conflicts[0]
			if c.Key != "amenity" || c.ExistingValue != "cafe" || c.NewValue != "restaurant" {
				t.Errorf("conflict = %+v", c)
			}
			if !reflect.DeepEqual(result.Updated, []string{"amenity"}) {
				t.Errorf("updated = %v", result.Updated)
			}
		})
	}
}

func TestMergeIdenticalPairIsNoOp(t *testing.T) {
	result := Merge(TagSet{"amenity": "cafe"}, TagSet{"amenity": "cafe"}, PolicyAsk)
	if len(result.Added)+len(result.Updated)+len(result.Conflicts) != 0 {
		t.Errorf("identical pair produced changes: %+v", result)
	}
}

func TestMergeDoesNotMutateInputs(t *testing.T) {
	existing := TagSet{"amenity": "cafe"}
	incoming := TagSet{"amenity": "restaurant", "cuisine": "pizza"}

	Merge(existing, incoming, PolicyUseNew)
	if existing["amenity"] != "cafe" || len(existing) != 1 {
		t.Errorf("existing mutated: %v", existing)
	}
	if incoming["amenity"] != "restaurant" || len(incoming) != 2 {
		t.Errorf("incoming mutated: %v", incoming)
	}
}

func TestMergeIdempotent(t *testing.T) {
	existing := TagSet{"amenity": "cafe", "name": "Bean There"}
	incoming := TagSet{"amenity": "restaurant", "cuisine": "pizza"}

	first := Merge(existing, incoming, PolicyUseNew)
	second := Merge(existing, incoming, PolicyUseNew)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("re-merge differs:\nfirst  %+v\nsecond %+v", first, second)
	}

	// Merging a set with itself is change-free.
	self := Merge(existing, existing, PolicyAsk)
	if len(self.Added)+len(self.Updated)+len(self.Conflicts) != 0 {
		t.Errorf("self-merge produced changes: %+v", self)
	}
}

func TestMergeNilExisting(t *testing.T) {
	result := Merge(nil, TagSet{"amenity": "cafe"}, PolicyAsk)
	if result.Merged["amenity"] != "cafe" {
		t.Errorf("merged = %v", result.Merged)
	}
	if !reflect.DeepEqual(result.Added, []string{"amenity"}) {
		t.Errorf("added = %v", result.Added)
	}
}

func TestMergeSummary(t *testing.T) {
	result := Merge(TagSet{"amenity": "cafe"}, TagSet{"amenity": "restaurant", "cuisine": "pizza"}, PolicyAsk)
	if result.Summary != "Added 1 tags, updated 1 tags, 1 conflicts" {
		t.Errorf("summary = %q", result.Summary)
	}
}
