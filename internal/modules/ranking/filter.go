package ranking

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"ridescore/internal/modules/dataset"
	"ridescore/internal/types"
)

var filterEnv = func() *cel.Env {
	env, err := cel.NewEnv(
		cel.Variable("ride", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("user", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		panic(fmt.Sprintf("ranking: build filter environment: %v", err))
	}
	return env
}()

// Filter is a compiled candidate predicate, e.g.
//
//	ride.distance < 10.0 && ride.day == "Friday"
//
// Numeric ride fields (distance, origin_lat, origin_lng) and
// user.acceptance_rate are doubles; every other field is the raw string.
// A field that is missing or malformed on a record is absent from its map,
// so guard optional fields with has(ride.field).
type Filter struct {
	expr string
	prg  cel.Program
}

// CompileFilter parses expr. An empty expression yields a nil filter that
// matches everything.
func CompileFilter(expr string) (*Filter, error) {
	if expr == "" {
		return nil, nil
	}
	ast, issues := filterEnv.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, types.Invalid("", "filter", issues.Err().Error())
	}
	if out := ast.OutputType(); !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return nil, types.Invalid("", "filter", "expression must be boolean, got "+out.String())
	}
	prg, err := filterEnv.Program(ast)
	if err != nil {
		return nil, types.Invalid("", "filter", err.Error())
	}
	return &Filter{expr: expr, prg: prg}, nil
}

func (f *Filter) String() string {
	if f == nil {
		return ""
	}
	return f.expr
}

// Match reports whether the ride passes the filter for user. A nil filter
// matches everything.
func (f *Filter) Match(user dataset.User, ride dataset.Ride) (bool, error) {
	if f == nil {
		return true, nil
	}
	out, _, err := f.prg.Eval(map[string]any{
		"ride": rideVars(ride),
		"user": userVars(user),
	})
	if err != nil {
		return false, types.Invalid(string(ride.ID), "filter", err.Error())
	}
	ok, isBool := out.Value().(bool)
	if !isBool {
		return false, types.Invalid(string(ride.ID), "filter", fmt.Sprintf("expression must be boolean, got %T", out.Value()))
	}
	return ok, nil
}

func rideVars(r dataset.Ride) map[string]any {
	vars := make(map[string]any)
	for k, v := range r.Details() {
		vars[k] = v
	}
	vars["id"] = string(r.ID)
	delete(vars, dataset.ColDistance)
	delete(vars, dataset.ColOriginLat)
	delete(vars, dataset.ColOriginLng)
	if d, err := r.Distance(); err == nil {
		vars["distance"] = d
	}
	if p, err := r.Origin(); err == nil {
		vars["origin_lat"] = p.Lat
		vars["origin_lng"] = p.Lng
	}
	return vars
}

func userVars(u dataset.User) map[string]any {
	vars := map[string]any{"id": string(u.ID)}
	if rate, err := u.AcceptanceRate(); err == nil {
		vars["acceptance_rate"] = rate
	}
	return vars
}
