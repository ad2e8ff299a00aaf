package store_test

import (
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/ledger/store"
)

func TestNewRegistry(t *testing.T) {
	r := store.NewRegistry()
	if r == nil {
		t.Fatal("expected non-nil Registry")
	}
	if len(r.EntityTypes()) != 0 {
		t.Errorf("expected no entity types, got %v", r.EntityTypes())
	}
}

func TestRegistry_Register(t *testing.T) {
	r := store.NewRegistry()
	r.Register("wallet", func(id store.Identity) store.PK {
		return store.PK{"pk": store.String(id.OwnerID)}
	})

	if !r.Has("wallet") {
		t.Error("expected wallet to be registered")
	}
	if r.Has("holder") {
		t.Error("expected holder not to be registered")
	}
}

func TestRegistry_Register_Replaces(t *testing.T) {
	r := store.NewRegistry()
	r.Register("wallet", func(id store.Identity) store.PK {
		return store.PK{"pk": store.String("old")}
	})
	r.Register("wallet", func(id store.Identity) store.PK {
		return store.PK{"pk": store.String("new")}
	})

	key, err := r.Key("wallet", store.Identity{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key["pk"].(*types.AttributeValueMemberS).Value != "new" {
		t.Errorf("expected replaced key function, got %v", key["pk"])
	}
	if len(r.EntityTypes()) != 1 {
		t.Errorf("expected 1 entity type, got %d", len(r.EntityTypes()))
	}
}

func TestRegistry_Key_Deterministic(t *testing.T) {
	r := testRegistry()
	id := store.Identity{OwnerID: "1337", AccountType: "Checking"}

	first, _ := r.Key("wallet", id)
	second, _ := r.Key("wallet", id)

	for attr := range first {
		a := first[attr].(*types.AttributeValueMemberS).Value
		b := second[attr].(*types.AttributeValueMemberS).Value
		if a != b {
			t.Errorf("attribute %s: %q != %q", attr, a, b)
		}
	}
}

func TestRegistry_Key_Unknown(t *testing.T) {
	r := testRegistry()

	_, err := r.Key("ghost", store.Identity{})
	if !errors.Is(err, store.ErrUnknownEntity) {
		t.Errorf("expected ErrUnknownEntity, got %v", err)
	}
}

func TestRegistry_EntityTypes_Sorted(t *testing.T) {
	r := testRegistry()

	kinds := r.EntityTypes()
	if len(kinds) != 2 || kinds[0] != "holder" || kinds[1] != "wallet" {
		t.Errorf("expected [holder wallet], got %v", kinds)
	}
}
