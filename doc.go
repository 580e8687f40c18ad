// Package thimble provides context-aware dependency injection for Go 1.25+.
//
// Thimble separates deciding what to build from building it. Bindings are
// scoped to positions in the dependency path, so the same interface can be
// satisfied differently depending on what is asking for it. Resolving a
// request produces a graph of construction plans, computed once and shared
// by every scope; instantiating the graph produces values under a cache
// policy.
//
// # Quick Start
//
//	b := thimble.NewBuilder()
//	thimble.Bind[Engine](b).To(thimble.TypeOf[*V6]())
//	thimble.Bind[Engine](thimble.In[*SportsCar](b)).To(thimble.TypeOf[*V8]())
//	b.Provide(NewCar)
//
//	inj, err := b.Build()
//	car, err := thimble.Get[*Car](inj)
//
// # Bindings
//
// A binding rewrites a desired type into a narrower one or attaches a way to
// build it:
//
//	thimble.Bind[Engine](b).To(thimble.TypeOf[*V8]())   // rewrite, then resolve *V8
//	thimble.Bind[Engine](b).ToInstance(&V8{})           // always this value
//	thimble.Bind[Engine](b).ToConstructor(NewV8)        // call NewV8
//	thimble.Bind[time.Time](b).ToProvider(time.Now)     // call on every use
//	thimble.Bind[Cache](b).ToNull()                     // nothing; nullable points only
//
// Bindings apply to unqualified points by default. Use Named, Qualified,
// QualifiedBy, AnyQualifier or Unqualified to change that. Memoize and
// NewInstance set the cache policy of the resulting node.
//
// # Contexts
//
// In narrows where a binding applies. Elements of a context are matched as a
// subsequence of the dependency path, closest to the request first:
//
//	thimble.Bind[Engine](thimble.In[*Garage](b).In(thimble.TypeOf[*SportsCar]())).
//	    To(thimble.TypeOf[*V12]())
//
// When several bindings match, the one with the more specific context wins,
// then the one with the more specific qualifier, then the one whose type is
// closest to the desired type. Explicit bindings beat Default bindings, which
// beat constructors found without a binding. A true tie is an error with code
// ErrCodeAmbiguousBinding.
//
// # Constructors and Struct Injection
//
// Types without a binding are built by a constructor registered with Provide
// or, for structs, by setting fields tagged with `thimble`:
//
//	type Car struct {
//	    Engine Engine `thimble:""`          // inject by type
//	    Radio  Radio  `thimble:"dash"`      // qualified with Named("dash")
//	    Trunk  Trunk  `thimble:",optional"` // accepts a null binding
//	}
//
// # Cycles
//
// A dependency cycle is allowed only if one of its points is a Lazy[T]. The
// cycle is recorded as a back-edge and the lazy handle is wired once every
// node exists. Calling Get on the handle inside a constructor in the same
// cycle fails with ErrCodeCyclicDependency; keep the handle and call it
// later. The same cycle reached under different contexts gets its own nodes,
// so each handle refers back to the instance that holds it.
//
// # Scopes
//
// NewScope returns an injector that shares the resolved graphs but has its own
// instance cache. Close releases memoized instances.
//
// # Observability
//
// WithLogger takes a zerolog.Logger; resolution and instantiation log at debug
// level. WithTracerProvider enables thimble.resolve and thimble.instantiate
// spans in GetInstanceCtx. WithResolveObserver and WithInstantiateObserver
// report timings.
//
// # Errors
//
// Every error is an *Error carrying a code, the desired type and qualifier and
// the dependency path. Use IsUnsatisfiable, IsCyclicDependency and the other
// predicates to test for a code.
package thimble
