package auth

import (
	"context"
	"errors"
	"testing"
)

func TestVisibility(t *testing.T) {
	if !All().Allows("anything") {
		t.Error("All must allow every field")
	}
	if None().Allows("name") {
		t.Error("None must allow nothing")
	}

	v := Fields("name", "orders")
	if !v.Allows("name") {
		t.Error("listed field must be allowed")
	}
	if v.Allows("salary") {
		t.Error("unlisted field must be denied")
	}
	// Qualified names are governed by the association segment.
	if !v.Allows("orders.total") {
		t.Error("nested field of a visible association must be allowed")
	}
	if v.Allows("payments.amount") {
		t.Error("nested field of a hidden association must be denied")
	}
}

func TestGateNilCallbackAllowsAll(t *testing.T) {
	var g *Gate
	if err := g.Check(context.Background(), "users", []string{"a", "b"}); err != nil {
		t.Fatal(err)
	}
	g = &Gate{}
	if err := g.Check(context.Background(), "users", []string{"a"}); err != nil {
		t.Fatal(err)
	}
}

func TestGateReportsEveryDeniedField(t *testing.T) {
	g := &Gate{Callback: func(ctx context.Context, object string) (Visibility, error) {
		if object != "users" {
			t.Errorf("object = %q", object)
		}
		return Fields("name"), nil
	}}

	err := g.Check(context.Background(), "users",
		[]string{"name", "salary", "ssn", "orders.total", "salary"})
	var ue *UnauthorizedFieldsError
	if !errors.As(err, &ue) {
		t.Fatalf("err = %v, want UnauthorizedFieldsError", err)
	}
	want := []string{"orders.total", "salary", "ssn"}
	if len(ue.Fields) != len(want) {
		t.Fatalf("fields = %v, want %v", ue.Fields, want)
	}
	for i := range want {
		if ue.Fields[i] != want[i] {
			t.Fatalf("fields = %v, want %v", ue.Fields, want)
		}
	}
}

func TestGatePropagatesCallbackError(t *testing.T) {
	boom := errors.New("directory unavailable")
	g := &Gate{Callback: func(context.Context, string) (Visibility, error) {
		return Visibility{}, boom
	}}
	if err := g.Check(context.Background(), "users", []string{"a"}); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped callback error", err)
	}
}

func TestIdentityContext(t *testing.T) {
	ctx := context.Background()
	if got := IdentityFromContext(ctx); got != "" {
		t.Errorf("identity = %q, want empty", got)
	}
	ctx = WithIdentity(ctx, "alice@example.com")
	if got := IdentityFromContext(ctx); got != "alice@example.com" {
		t.Errorf("identity = %q", got)
	}
}
