package address

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type naturalKey struct {
	cep, number, complement string
}

type mockRepo struct {
	stored    map[naturalKey]*Address
	findErr   error
	createErr error
	created   []*Address
}

func newMockRepo() *mockRepo {
	return &mockRepo{stored: make(map[naturalKey]*Address)}
}

func (m *mockRepo) FindByNaturalKey(_ context.Context, cep, number, complement string) (*Address, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	a, ok := m.stored[naturalKey{cep, number, complement}]
	if !ok {
		return nil, ErrNotFound
	}
	return a, nil
}

func (m *mockRepo) Create(_ context.Context, a *Address) (*Address, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.stored[naturalKey{a.CEP, a.Number, a.Complement}] = a
	m.created = append(m.created, a)
	return a, nil
}

type mockDirectory struct {
	loc     *Location
	err     error
	lookups int
}

func (m *mockDirectory) Lookup(_ context.Context, _ string) (*Location, error) {
	m.lookups++
	if m.err != nil {
		return nil, m.err
	}
	return m.loc, nil
}

func TestResolve_CreatesNewAddress(t *testing.T) {
	repo := newMockRepo()
	dir := &mockDirectory{loc: &Location{Street: "Praça da Sé", City: "São Paulo", State: "SP"}}

	got, err := NewResolver(repo, dir).Resolve(context.Background(), "01001000", "42", "apt 7")
	require.NoError(t, err)

	assert.NotEmpty(t, got.ID)
	assert.Equal(t, "01001000", got.CEP)
	assert.Equal(t, "42", got.Number)
	assert.Equal(t, "apt 7", got.Complement)
	assert.Equal(t, "Praça da Sé", got.Street)
	assert.Equal(t, "São Paulo", got.City)
	assert.Equal(t, "SP", got.State)
	require.Len(t, repo.created, 1)
}

func TestResolve_ReusesExistingAddress(t *testing.T) {
	repo := newMockRepo()
	dir := &mockDirectory{loc: &Location{Street: "Praça da Sé", City: "São Paulo", State: "SP"}}
	r := NewResolver(repo, dir)

	first, err := r.Resolve(context.Background(), "01001000", "42", "")
	require.NoError(t, err)

	second, err := r.Resolve(context.Background(), "01001000", "42", "")
	require.NoError(t, err)

	// Same natural key, same stored address; the directory is not consulted
	// again.
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, dir.lookups)
	assert.Len(t, repo.created, 1)
}

func TestResolve_DistinctComplementIsDistinctAddress(t *testing.T) {
	repo := newMockRepo()
	dir := &mockDirectory{loc: &Location{Street: "Praça da Sé", City: "São Paulo", State: "SP"}}
	r := NewResolver(repo, dir)

	first, err := r.Resolve(context.Background(), "01001000", "42", "apt 1")
	require.NoError(t, err)

	second, err := r.Resolve(context.Background(), "01001000", "42", "apt 2")
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Len(t, repo.created, 2)
}

func TestResolve_InvalidCEP(t *testing.T) {
	repo := newMockRepo()
	dir := &mockDirectory{err: ErrInvalidCEP}

	_, err := NewResolver(repo, dir).Resolve(context.Background(), "00000000", "42", "")
	require.ErrorIs(t, err, ErrInvalidCEP)
	assert.Empty(t, repo.created)
}

func TestResolve_DirectoryError(t *testing.T) {
	repo := newMockRepo()
	dirErr := errors.New("directory unavailable")
	dir := &mockDirectory{err: dirErr}

	_, err := NewResolver(repo, dir).Resolve(context.Background(), "01001000", "42", "")
	require.ErrorIs(t, err, dirErr)
}

func TestResolve_ExistingSkipsDirectoryEvenWhenDown(t *testing.T) {
	repo := newMockRepo()
	repo.stored[naturalKey{"01001000", "42", ""}] = &Address{ID: "a1", CEP: "01001000", Number: "42"}
	dir := &mockDirectory{err: errors.New("directory unavailable")}

	got, err := NewResolver(repo, dir).Resolve(context.Background(), "01001000", "42", "")
	require.NoError(t, err)
	assert.Equal(t, "a1", got.ID)
	assert.Equal(t, 0, dir.lookups)
}

func TestResolve_RepoLookupError(t *testing.T) {
	repo := newMockRepo()
	repo.findErr = errors.New("db down")
	dir := &mockDirectory{loc: &Location{}}

	_, err := NewResolver(repo, dir).Resolve(context.Background(), "01001000", "42", "")
	require.ErrorIs(t, err, repo.findErr)
}
