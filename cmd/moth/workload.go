package main

import (
	"fmt"

	"github.com/FinnC/moth-SOMns/vm"
)

const workloadSource = "workload"

func at(line int) vm.SourceSection {
	return vm.SourceSection{File: workloadSource, Line: line, Column: 1}
}

// defineShapes declares Shape and n subclasses that each override #area.
func defineShapes(rt *vm.Runtime, n int) ([]*vm.Class, error) {
	b := rt.NewClassBuilder("Shape", nil, at(1))
	if err := b.DeclareSlot(vm.SlotDecl{Name: "size", Mutable: true, Type: vm.ClassType{ClassName: "Integer"}, Init: constant(int64(1)), Source: at(2)}); err != nil {
		return nil, err
	}
	d, err := b.Assemble()
	if err != nil {
		return nil, err
	}
	shape, err := d.Instantiate(rt, nil)
	if err != nil {
		return nil, err
	}

	classes := make([]*vm.Class, n)
	for i := range classes {
		factor := int64(i + 1)
		sb := rt.NewClassBuilder(fmt.Sprintf("Shape%d", i+1), nil, at(10+i))
		sb.SetSimpleInheritance(func(*vm.Runtime, vm.Value) (*vm.Class, error) { return shape, nil })
		area := func(rt *vm.Runtime, self vm.Value, _ []vm.Value) (vm.Value, error) {
			size, err := rt.Perform(vm.Sym("size"), self)
			if err != nil {
				return nil, err
			}
			return rt.Perform(vm.Sym("*"), size, factor)
		}
		if err := sb.DeclareMethod(vm.Sym("area"), vm.Public, area, at(10+i)); err != nil {
			return nil, err
		}
		sd, err := sb.Assemble()
		if err != nil {
			return nil, err
		}
		if classes[i], err = sd.Instantiate(rt, nil); err != nil {
			return nil, err
		}
	}
	return classes, nil
}

func constant(v vm.Value) vm.Invokable {
	return func(*vm.Runtime, vm.Value, []vm.Value) (vm.Value, error) { return v, nil }
}

// runWorkload drives a mix of sends that exercise every site state:
// eager arithmetic and loops, a monomorphic accessor, a polymorphic and a
// megamorphic user send, and a deoptimizing arithmetic site.
func runWorkload(rt *vm.Runtime, iterations int) error {
	shapes, err := defineShapes(rt, vm.DefaultInlineCacheSize+2)
	if err != nil {
		return err
	}
	instances := make([]vm.Value, len(shapes))
	for i, c := range shapes {
		if instances[i], err = rt.Perform(vm.Sym("new"), c); err != nil {
			return err
		}
	}

	var (
		sum      = rt.NewCallSite(vm.Sym("+"), vm.WithSource(at(100)))
		less     = rt.NewCallSite(vm.Sym("<"), vm.WithSource(at(101)))
		setSize  = rt.NewCallSite(vm.Sym("size:"), vm.WithSource(at(102)))
		fewAreas = rt.NewCallSite(vm.Sym("area"), vm.WithSource(at(103)))
		allAreas = rt.NewCallSite(vm.Sym("area"), vm.WithSource(at(104)))
		grow     = rt.NewCallSite(vm.Sym("*"), vm.WithSource(at(105)))
		loop     = rt.NewCallSite(vm.Sym("to:do:"), vm.WithSource(at(106)), vm.WithLiteralBlocks(false, false, true))
	)

	var total vm.Value = int64(0)
	body := vm.NewBlockFunc(1, func(rt *vm.Runtime, args []vm.Value) (vm.Value, error) {
		v, err := sum.Dispatch(rt, total, args[0])
		if err != nil {
			return nil, err
		}
		total = v
		return vm.Nil, nil
	})

	var growing vm.Value = int64(1)
	for i := 0; i < iterations; i++ {
		if _, err := loop.Dispatch(rt, int64(1), int64(10), body); err != nil {
			return err
		}
		if _, err := less.Dispatch(rt, int64(i), 2.5); err != nil {
			return err
		}

		shape := instances[i%len(instances)]
		if _, err := setSize.Dispatch(rt, shape, int64(i%7+1)); err != nil {
			return err
		}
		if _, err := fewAreas.Dispatch(rt, instances[i%2]); err != nil {
			return err
		}
		if _, err := allAreas.Dispatch(rt, shape); err != nil {
			return err
		}

		// Doubling overflows int64 and deoptimizes the site; the large
		// integers that follow add a second guard.
		if i < 80 {
			if growing, err = grow.Dispatch(rt, growing, int64(2)); err != nil {
				return err
			}
		}
	}
	return nil
}
