// Package inspect statically checks type switches over sealed
// interfaces. A sealed interface (one with at least one unexported
// method) is a closed union: the set of types that can implement it is
// fixed at its declaring package. Every type switch over such an
// interface must name every implementer, and a default clause does not
// count as coverage, because a default is exactly the silent path that
// swallows a variant added later.
package inspect

import (
	"fmt"
	"go/ast"
	"go/types"
	"os"
	"sort"
	"strings"

	"golang.org/x/tools/go/packages"
)

// Finding is one non-exhaustive type switch.
type Finding struct {
	// Pos is the switch position in file:line:column form.
	Pos string

	// Interface is the name of the sealed interface being switched over.
	Interface string

	// Missing lists implementers with no case clause, sorted. A case
	// listing T or *T covers the implementer T.
	Missing []string

	// HasDefault is true when the switch carries a default clause.
	HasDefault bool
}

func (f Finding) String() string {
	msg := fmt.Sprintf("%s: type switch over %s is not exhaustive: missing %s",
		f.Pos, f.Interface, strings.Join(f.Missing, ", "))
	if f.HasDefault {
		msg += " (default clause hides them)"
	}
	return msg
}

// sealedInterface is a discovered closed union and its implementer set.
type sealedInterface struct {
	obj   *types.TypeName
	iface *types.Interface
	impls []implementer
}

// implementer is a concrete type satisfying a sealed interface.
// pointerOnly means only *T satisfies it (pointer receiver methods).
type implementer struct {
	named       *types.Named
	pointerOnly bool
}

// Check loads the packages matched by patterns (relative to dir,
// "./..." when none are given), finds every sealed interface declared
// in them, and reports each type switch whose case clauses do not cover
// the full implementer set. Load and type errors fail the check rather
// than being skipped.
func Check(dir string, patterns ...string) ([]Finding, error) {
	if len(patterns) == 0 {
		patterns = []string{"./..."}
	}

	cfg := &packages.Config{
		Mode: packages.NeedName |
			packages.NeedTypes |
			packages.NeedTypesInfo |
			packages.NeedSyntax |
			packages.NeedImports |
			packages.NeedDeps,
		Dir: dir,
		Env: append(os.Environ(), "GOWORK=off"),
	}
	pkgs, err := packages.Load(cfg, patterns...)
	if err != nil {
		return nil, fmt.Errorf("loading packages: %w", err)
	}

	var errs []string
	for _, pkg := range pkgs {
		for _, e := range pkg.Errors {
			errs = append(errs, fmt.Sprintf("%s: %s", pkg.PkgPath, e.Msg))
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("package errors:\n  %s", strings.Join(errs, "\n  "))
	}

	sealed := collectSealed(pkgs)
	if len(sealed) == 0 {
		return nil, nil
	}
	collectImplementers(pkgs, sealed)

	var findings []Finding
	for _, pkg := range pkgs {
		for _, file := range pkg.Syntax {
			ast.Inspect(file, func(n ast.Node) bool {
				sw, ok := n.(*ast.TypeSwitchStmt)
				if !ok {
					return true
				}
				if f := checkSwitch(pkg, sw, sealed); f != nil {
					findings = append(findings, *f)
				}
				return true
			})
		}
	}

	sort.Slice(findings, func(i, j int) bool { return findings[i].Pos < findings[j].Pos })
	return findings, nil
}

// collectSealed finds interfaces with at least one unexported method
// declared in the loaded packages.
func collectSealed(pkgs []*packages.Package) []*sealedInterface {
	var sealed []*sealedInterface
	for _, pkg := range pkgs {
		scope := pkg.Types.Scope()
		for _, name := range scope.Names() {
			tn, ok := scope.Lookup(name).(*types.TypeName)
			if !ok || tn.IsAlias() {
				continue
			}
			named, ok := tn.Type().(*types.Named)
			if !ok {
				continue
			}
			iface, ok := named.Underlying().(*types.Interface)
			if !ok {
				continue
			}
			if !hasUnexportedMethod(iface) {
				continue
			}
			sealed = append(sealed, &sealedInterface{obj: tn, iface: iface})
		}
	}
	return sealed
}

func hasUnexportedMethod(iface *types.Interface) bool {
	for i := 0; i < iface.NumMethods(); i++ {
		if !iface.Method(i).Exported() {
			return true
		}
	}
	return false
}

// collectImplementers fills each sealed interface's implementer set
// from the named concrete types of the loaded packages, checking both
// value and pointer receivers.
func collectImplementers(pkgs []*packages.Package, sealed []*sealedInterface) {
	for _, pkg := range pkgs {
		scope := pkg.Types.Scope()
		for _, name := range scope.Names() {
			tn, ok := scope.Lookup(name).(*types.TypeName)
			if !ok || tn.IsAlias() {
				continue
			}
			named, ok := tn.Type().(*types.Named)
			if !ok {
				continue
			}
			if _, ok := named.Underlying().(*types.Interface); ok {
				continue
			}
			for _, s := range sealed {
				switch {
				case types.Implements(named, s.iface):
					s.impls = append(s.impls, implementer{named: named})
				case types.Implements(types.NewPointer(named), s.iface):
					s.impls = append(s.impls, implementer{named: named, pointerOnly: true})
				}
			}
		}
	}
}

func checkSwitch(pkg *packages.Package, sw *ast.TypeSwitchStmt, sealed []*sealedInterface) *Finding {
	scrutinee := switchScrutinee(sw)
	if scrutinee == nil {
		return nil
	}
	t := pkg.TypesInfo.TypeOf(scrutinee)
	named, ok := t.(*types.Named)
	if !ok {
		return nil
	}

	var si *sealedInterface
	for _, s := range sealed {
		if s.obj == named.Obj() {
			si = s
			break
		}
	}
	if si == nil {
		return nil
	}

	var caseTypes []types.Type
	hasDefault := false
	for _, stmt := range sw.Body.List {
		clause := stmt.(*ast.CaseClause)
		if clause.List == nil {
			hasDefault = true
			continue
		}
		for _, expr := range clause.List {
			if ident, ok := expr.(*ast.Ident); ok && ident.Name == "nil" {
				continue
			}
			if ct := pkg.TypesInfo.TypeOf(expr); ct != nil {
				caseTypes = append(caseTypes, ct)
			}
		}
	}

	var missing []string
	for _, impl := range si.impls {
		if !coveredBy(impl, caseTypes) {
			missing = append(missing, implLabel(pkg, impl))
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)

	return &Finding{
		Pos:        pkg.Fset.Position(sw.Switch).String(),
		Interface:  si.obj.Name(),
		Missing:    missing,
		HasDefault: hasDefault,
	}
}

// switchScrutinee digs the switched expression out of the statement,
// which is either `x.(type)` or `v := x.(type)`.
func switchScrutinee(sw *ast.TypeSwitchStmt) ast.Expr {
	switch assign := sw.Assign.(type) {
	case *ast.ExprStmt:
		if ta, ok := assign.X.(*ast.TypeAssertExpr); ok {
			return ta.X
		}
	case *ast.AssignStmt:
		if len(assign.Rhs) == 1 {
			if ta, ok := assign.Rhs[0].(*ast.TypeAssertExpr); ok {
				return ta.X
			}
		}
	}
	return nil
}

// coveredBy reports whether any case type matches the implementer. A
// case naming another interface covers every implementer assignable to
// it.
func coveredBy(impl implementer, caseTypes []types.Type) bool {
	ptr := types.NewPointer(impl.named)
	for _, ct := range caseTypes {
		if types.Identical(ct, ptr) {
			return true
		}
		if !impl.pointerOnly && types.Identical(ct, impl.named) {
			return true
		}
		if iface, ok := ct.Underlying().(*types.Interface); ok {
			if types.Implements(ptr, iface) {
				return true
			}
			if !impl.pointerOnly && types.Implements(impl.named, iface) {
				return true
			}
		}
	}
	return false
}

func implLabel(pkg *packages.Package, impl implementer) string {
	name := impl.named.Obj().Name()
	if p := impl.named.Obj().Pkg(); p != nil && p != pkg.Types {
		name = p.Name() + "." + name
	}
	if impl.pointerOnly {
		return "*" + name
	}
	return name
}
