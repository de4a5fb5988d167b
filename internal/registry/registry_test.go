//go:build test

package registry

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/isseis/go-elfcheck/internal/elf32"
	elf32testing "github.com/isseis/go-elfcheck/internal/elf32/testing"
	"github.com/isseis/go-elfcheck/internal/safefileio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingMapper wraps safefileio.MapFile and records every open and release.
type countingMapper struct {
	opens  map[string]int
	closed int
}

type trackedRaw struct {
	*safefileio.Mapping
	m *countingMapper
}

func (r trackedRaw) Close() error {
	r.m.closed++
	return r.Mapping.Close()
}

func newCountingMapper() *countingMapper {
	return &countingMapper{opens: map[string]int{}}
}

func (c *countingMapper) mapper(path string) (RawObject, error) {
	m, err := safefileio.MapFile(path, safefileio.Options{FollowSymlinks: true})
	if err != nil {
		return nil, err
	}
	c.opens[path]++
	return trackedRaw{Mapping: m, m: c}, nil
}

func writeObject(t *testing.T, dir, name string) string {
	t.Helper()
	return elf32testing.NewBuilder().
		AddText([]byte{0xc3}).
		Defined("main", ".text").
		WriteFile(t, dir, name)
}

func TestRegistry_LoadIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := writeObject(t, dir, "a.o")
	cm := newCountingMapper()
	reg := New(Options{Mapper: cm.mapper})
	t.Cleanup(func() { assert.NoError(t, reg.Close()) })

	first, err := reg.Load(path)
	require.NoError(t, err)
	second, err := reg.Load(path)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, cm.opens[path], "a resident object must not be re-mapped")

	// A different spelling of the same path resolves to the same entry.
	rel, err := filepath.Rel(mustGetwd(t), path)
	require.NoError(t, err)
	third, err := reg.Load(rel)
	require.NoError(t, err)
	assert.Same(t, first, third)
	assert.Equal(t, 1, reg.Len())
}

func mustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	return wd
}

func TestRegistry_CapacityExceeded(t *testing.T) {
	dir := t.TempDir()
	a := writeObject(t, dir, "a.o")
	b := writeObject(t, dir, "b.o")
	c := writeObject(t, dir, "c.o")
	reg := New(Options{FileOptions: safefileio.Options{FollowSymlinks: true}})
	t.Cleanup(func() { assert.NoError(t, reg.Close()) })

	objA, err := reg.Load(a)
	require.NoError(t, err)
	objB, err := reg.Load(b)
	require.NoError(t, err)

	_, err = reg.Load(c)
	require.ErrorIs(t, err, ErrCapacityExceeded)

	objs := reg.Objects()
	require.Len(t, objs, 2)
	assert.Same(t, objA, objs[0])
	assert.Same(t, objB, objs[1])
	assert.Equal(t, 0, objA.Slot())
	assert.Equal(t, 1, objB.Slot())

	// Resident paths are still served when full.
	again, err := reg.Load(a)
	require.NoError(t, err)
	assert.Same(t, objA, again)
}

func TestRegistry_UnloadFreesSlot(t *testing.T) {
	dir := t.TempDir()
	a := writeObject(t, dir, "a.o")
	b := writeObject(t, dir, "b.o")
	c := writeObject(t, dir, "c.o")
	cm := newCountingMapper()
	reg := New(Options{Mapper: cm.mapper})
	t.Cleanup(func() { assert.NoError(t, reg.Close()) })

	_, err := reg.Load(a)
	require.NoError(t, err)
	objB, err := reg.Load(b)
	require.NoError(t, err)

	require.NoError(t, reg.Unload(a))
	assert.Equal(t, 1, cm.closed)
	_, ok := reg.Lookup(a)
	assert.False(t, ok)

	objC, err := reg.Load(c)
	require.NoError(t, err)
	assert.Equal(t, 0, objC.Slot(), "the freed slot is reused")

	objs := reg.Objects()
	require.Len(t, objs, 2)
	assert.Same(t, objC, objs[0])
	assert.Same(t, objB, objs[1])

	first, second, ok := reg.Pair()
	require.True(t, ok)
	assert.Same(t, objC, first)
	assert.Same(t, objB, second)

	require.NoError(t, reg.Unload(b))
	_, _, ok = reg.Pair()
	assert.False(t, ok)

	assert.ErrorIs(t, reg.Unload(a), ErrNotLoaded)
}

func TestRegistry_FailedDecodeLeavesSlotEmpty(t *testing.T) {
	dir := t.TempDir()
	good := writeObject(t, dir, "good.o")
	bad := filepath.Join(dir, "script.sh")
	require.NoError(t, os.WriteFile(bad, []byte("#!/bin/sh\n"), 0o600))
	cm := newCountingMapper()
	reg := New(Options{Mapper: cm.mapper})
	t.Cleanup(func() { assert.NoError(t, reg.Close()) })

	objGood, err := reg.Load(good)
	require.NoError(t, err)

	_, err = reg.Load(bad)
	require.ErrorIs(t, err, elf32.ErrInvalidMagic)
	assert.Equal(t, 1, cm.closed, "the rejected file is released")
	assert.Equal(t, 1, reg.Len())

	_, ok := reg.Lookup(bad)
	assert.False(t, ok)
	got, ok := reg.Lookup(good)
	require.True(t, ok)
	assert.Same(t, objGood, got)
}

func TestRegistry_IOFailure(t *testing.T) {
	reg := New(Options{})
	t.Cleanup(func() { assert.NoError(t, reg.Close()) })

	_, err := reg.Load(filepath.Join(t.TempDir(), "missing.o"))
	require.ErrorIs(t, err, ErrIOFailure)
	assert.ErrorIs(t, err, os.ErrNotExist)

	var ioErr *IOError
	require.True(t, errors.As(err, &ioErr))
	assert.Equal(t, "open", ioErr.Op)
	assert.Equal(t, 0, reg.Len())
}

func TestRegistry_CloseReleasesAll(t *testing.T) {
	dir := t.TempDir()
	cm := newCountingMapper()
	reg := New(Options{Mapper: cm.mapper})

	_, err := reg.Load(writeObject(t, dir, "a.o"))
	require.NoError(t, err)
	_, err = reg.Load(writeObject(t, dir, "b.o"))
	require.NoError(t, err)

	require.NoError(t, reg.Close())
	assert.Equal(t, 2, cm.closed)
	assert.Empty(t, reg.Objects())
}

func TestRegistry_SymbolsDecodedFromResidentBytes(t *testing.T) {
	dir := t.TempDir()
	reg := New(Options{FileOptions: safefileio.Options{FollowSymlinks: true}})
	t.Cleanup(func() { assert.NoError(t, reg.Close()) })

	obj, err := reg.Load(writeObject(t, dir, "a.o"))
	require.NoError(t, err)

	syms, err := obj.Symbols()
	require.NoError(t, err)
	require.Len(t, syms, 2)
	assert.Equal(t, "main", syms[1].Name)
	assert.Equal(t, ".text", syms[1].Section.Name)
}
