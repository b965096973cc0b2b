package auth

import (
	"context"
	"log/slog"
)

// Gate authorizes the set of fields a request references before anything is
// compiled. A Gate with a nil Callback allows everything.
type Gate struct {
	Callback Callback
	Logger   *slog.Logger
}

func (g *Gate) logger() *slog.Logger {
	if g == nil || g.Logger == nil {
		return slog.Default()
	}
	return g.Logger
}

// Check resolves the caller's visibility for object and verifies every
// referenced field against it. On denial it returns an
// UnauthorizedFieldsError listing every offending field, never a prefix.
func (g *Gate) Check(ctx context.Context, object string, fields []string) error {
	if g == nil || g.Callback == nil {
		return nil
	}
	vis, err := g.Callback(ctx, object)
	if err != nil {
		return err
	}

	denied := make(map[string]struct{})
	for _, f := range fields {
		if !vis.Allows(f) {
			denied[f] = struct{}{}
		}
	}
	if len(denied) == 0 {
		return nil
	}

	list := sortedDenied(denied)
	g.logger().WarnContext(ctx, "unauthorized field access",
		"object", object,
		"identity", IdentityFromContext(ctx),
		"fields", list,
	)
	return &UnauthorizedFieldsError{Object: object, Fields: list}
}
