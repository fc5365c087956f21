// Package build runs components through the five-step protocol against one
// explicitly owned build context.
package build

import (
	"fmt"
	"io"

	"github.com/chazu/carve/pkg/attach"
	"github.com/chazu/carve/pkg/cell"
	"github.com/chazu/carve/pkg/config"
	"github.com/chazu/carve/pkg/errs"
	"github.com/chazu/carve/pkg/geom"
	"github.com/chazu/carve/pkg/numbering"
	"github.com/chazu/carve/pkg/region"
	"github.com/chazu/carve/pkg/zone"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Context is the mutable state of one build. Every component step receives
// it; nothing in the build is global.
type Context struct {
	ID       uuid.UUID
	Settings config.Settings
	Log      *logrus.Entry

	Surfaces *geom.Registry
	Cells    *cell.Table
	Numbers  *numbering.Allocator

	published map[string]*attach.Set
	names     map[string]*cell.NameMap
	running   bool
}

// NewContext validates s and returns an empty context logging to log. A
// nil log discards everything.
func NewContext(s config.Settings, log *logrus.Logger) (*Context, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logrus.New()
		log.Out = io.Discard
	}
	id := uuid.New()
	return &Context{
		ID:        id,
		Settings:  s,
		Log:       log.WithField("run", id.String()),
		Surfaces:  geom.NewRegistry(s.Tolerance),
		Cells:     cell.NewTable(),
		Numbers:   numbering.NewAllocator(s.FirstSurface, s.FirstCell),
		published: make(map[string]*attach.Set),
		names:     make(map[string]*cell.NameMap),
	}, nil
}

// Publish makes set available to later components under name.
func (c *Context) Publish(name string, set *attach.Set) error {
	if set == nil {
		return errs.Configf("publish", "%s: nil attachment set", name)
	}
	if _, ok := c.published[name]; ok {
		return errs.Configf("publish", "attachment points of %s already published", name)
	}
	c.published[name] = set
	return nil
}

// Attachments returns the points published by name.
func (c *Context) Attachments(name string) (*attach.Set, error) {
	s, ok := c.published[name]
	if !ok {
		return nil, errs.NotFoundf("attachments", "%s has published no attachment points", name)
	}
	return s, nil
}

// PublishCells makes the named cell groups of a component available to
// later components, which may split or narrow those cells.
func (c *Context) PublishCells(name string, m *cell.NameMap) error {
	if m == nil {
		return errs.Configf("publish-cells", "%s: nil cell map", name)
	}
	if _, ok := c.names[name]; ok {
		return errs.Configf("publish-cells", "cells of %s already published", name)
	}
	c.names[name] = m
	return nil
}

// NamedCells returns the cell groups published by name.
func (c *Context) NamedCells(name string) (*cell.NameMap, error) {
	m, ok := c.names[name]
	if !ok {
		return nil, errs.NotFoundf("named-cells", "%s has published no cells", name)
	}
	return m, nil
}

// Populate binds h to the context's surfaces and cells.
func (c *Context) Populate(h region.Handle) (region.Handle, error) {
	return h.Populate(c.Surfaces, c.Cells)
}

// ZoneBuilder returns a zone builder tuned by the settings, logging under
// the component's name.
func (c *Context) ZoneBuilder(component string) (*zone.Builder, error) {
	b, err := zone.NewBuilder(c.Settings.SampleDirections, c.Settings.SamplePull, c.Settings.Tolerance)
	if err != nil {
		return nil, err
	}
	b.Log = c.Log.WithField("component", component)
	return b, nil
}

// DNF returns h as a union of intersections, within the run's term cap.
func (c *Context) DNF(h region.Handle) (region.Handle, error) {
	return h.DNF(c.Settings.MaxTerms)
}

// CNF returns h as an intersection of unions, within the run's term cap.
func (c *Context) CNF(h region.Handle) (region.Handle, error) {
	return h.CNF(c.Settings.MaxTerms)
}

// Normal forms accepted by Normalize.
const (
	FormDNF = "dnf"
	FormCNF = "cnf"
)

// Normalize rewrites the region of every cell into form. Either every cell
// is rewritten or, on error, none is.
func (c *Context) Normalize(form string) error {
	var convert func(region.Handle) (region.Handle, error)
	switch form {
	case FormDNF:
		convert = c.DNF
	case FormCNF:
		convert = c.CNF
	default:
		return errs.Configf("normalize", "unknown normal form %q (want %s or %s)", form, FormDNF, FormCNF)
	}
	ids := c.Cells.IDs()
	out := make([]cell.Cell, 0, len(ids))
	for _, id := range ids {
		cl, err := c.Cells.Get(id)
		if err != nil {
			return err
		}
		if cl.Region, err = convert(cl.Region); err != nil {
			return fmt.Errorf("cell %d: %w", id, err)
		}
		out = append(out, cl)
	}
	for _, cl := range out {
		if err := c.Cells.Remove(cl.ID); err != nil {
			return err
		}
		if err := c.Cells.Insert(cl); err != nil {
			return err
		}
	}
	c.Log.WithFields(logrus.Fields{"form": form, "cells": len(out)}).Debug("cells normalized")
	return nil
}
