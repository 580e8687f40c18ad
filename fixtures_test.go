package thimble_test

import (
	"github.com/danpasecinic/thimble"
)

type Engine interface {
	Name() string
}

type V6 struct {
	Cylinders int
}

func (e *V6) Name() string { return "v6" }

type V8 struct {
	Cylinders int
}

func (e *V8) Name() string { return "v8" }

func NewV6() *V6 { return &V6{Cylinders: 6} }

func NewV8() *V8 { return &V8{Cylinders: 8} }

type Car struct {
	Engine Engine
}

func NewCar(e Engine) *Car {
	return &Car{Engine: e}
}

type SportsCar struct {
	Engine Engine `thimble:""`
}

type Garage struct {
	Car    *Car       `thimble:""`
	Sports *SportsCar `thimble:""`
}

type Radio interface {
	Station() string
}

type FM struct {
	Freq float64
}

func (r *FM) Station() string { return "fm" }

type Dashboard struct {
	Radio Radio `thimble:",optional"`
}

type Stereo struct {
	Radio Radio `thimble:""`
}

type Pit struct {
	Primary Engine `thimble:"primary"`
	Spare   Engine `thimble:"spare"`
}

type Chicken struct {
	Egg *Egg `thimble:""`
}

type Egg struct {
	Chicken thimble.Lazy[*Chicken] `thimble:""`
}

type Ping struct {
	Pong *Pong `thimble:""`
}

type Pong struct {
	Ping *Ping `thimble:""`
}

// carBuilder binds Engine to *V6 everywhere and to *V8 inside sports cars.
func carBuilder(opts ...thimble.Option) *thimble.Builder {
	b := thimble.NewBuilder(opts...)
	b.Provide(NewV6).Provide(NewV8).Provide(NewCar)
	thimble.Bind[Engine](b).To(thimble.TypeOf[*V6]())
	thimble.Bind[Engine](thimble.In[*SportsCar](b)).To(thimble.TypeOf[*V8]())
	return b
}

type Paint interface {
	Color() string
}

type Finish struct {
	Name string
}

func (f *Finish) Color() string { return f.Name }

type Dealer struct {
	North *NorthLot `thimble:""`
	South *SouthLot `thimble:""`
}

type NorthLot struct {
	Showroom *Showroom `thimble:""`
}

type SouthLot struct {
	Showroom *Showroom `thimble:""`
}

type Showroom struct {
	Clerk *Clerk `thimble:""`
	Paint Paint  `thimble:""`
}

type Clerk struct {
	Showroom thimble.Lazy[*Showroom] `thimble:""`
}

type Hen struct {
	Egg *HenEgg
}

type HenEgg struct {
	Hen thimble.Lazy[*Hen]
}

func NewHen(e *HenEgg) *Hen { return &Hen{Egg: e} }

// NewHenEgg dereferences its lazy hen while the hen is still being built.
func NewHenEgg(h thimble.Lazy[*Hen]) (*HenEgg, error) {
	if _, err := h.Get(); err != nil {
		return nil, err
	}
	return &HenEgg{Hen: h}, nil
}
