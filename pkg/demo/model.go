package demo

import "github.com/chazu/carve/pkg/build"

// Model is the reference build: a bunker with a pipe across its cavity
// from the left wall to the right wall.
type Model struct {
	Bunker *Bunker
	Pipe   *Pipe
}

// NewModel returns the reference model with its default component names.
func NewModel() *Model {
	return &Model{
		Bunker: NewBunker("bunker"),
		Pipe:   NewPipe("pipe", "bunker", "cavity"),
	}
}

// Driver returns a driver holding the model's components in build order.
func (m *Model) Driver() (*build.Driver, error) {
	d := build.NewDriver()
	if err := d.Add(m.Bunker); err != nil {
		return nil, err
	}
	if err := d.Add(m.Pipe, m.Bunker.Name()); err != nil {
		return nil, err
	}
	return d, nil
}
