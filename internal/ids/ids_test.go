package ids

import (
	"testing"

	"github.com/google/uuid"
)

func TestGenerators(t *testing.T) {
	t.Parallel()
	for _, scheme := range []string{"ksid", "uuid"} {
		t.Run(scheme, func(t *testing.T) {
			t.Parallel()
			gen, err := ByName(scheme)
			if err != nil {
				t.Fatalf("ByName(%q) failed: %v", scheme, err)
			}
			seen := make(map[string]bool)
			for range 1000 {
				id := gen()
				if id == "" {
					t.Fatal("generator returned empty id")
				}
				if seen[id] {
					t.Fatalf("duplicate id %q", id)
				}
				seen[id] = true
			}
		})
	}

	t.Run("uuid format", func(t *testing.T) {
		t.Parallel()
		if _, err := uuid.Parse(UUID()); err != nil {
			t.Errorf("UUID() is not parseable: %v", err)
		}
	})

	t.Run("default", func(t *testing.T) {
		t.Parallel()
		if gen, err := ByName(""); err != nil || gen == nil {
			t.Errorf("ByName(\"\") = %v, %v", gen, err)
		}
	})

	t.Run("unknown", func(t *testing.T) {
		t.Parallel()
		if _, err := ByName("snowflake"); err == nil {
			t.Error("ByName(snowflake) succeeded")
		}
	})
}
