package auth_test

import (
	"context"
	"errors"
	"testing"

	"github.com/nulzo/bifrost/internal/auth"
	"github.com/nulzo/bifrost/internal/store"
	"github.com/nulzo/bifrost/internal/store/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRepo serves virtual keys from a map keyed by value.
type fakeRepo struct {
	keys map[string]*model.VirtualKey
	err  error
}

func (f *fakeRepo) VirtualKeys() store.VirtualKeyRepository { return &fakeVKRepo{f} }
func (f *fakeRepo) Requests() store.RequestRepository       { return nil }
func (f *fakeRepo) WithTx(ctx context.Context, fn func(store.Repository) error) error {
	return fn(f)
}
func (f *fakeRepo) Close() error { return nil }

type fakeVKRepo struct{ r *fakeRepo }

func (f *fakeVKRepo) Create(ctx context.Context, key *model.VirtualKey) error {
	f.r.keys[key.Value] = key
	return nil
}

func (f *fakeVKRepo) Get(ctx context.Context, id string) (*model.VirtualKey, error) {
	for _, k := range f.r.keys {
		if k.ID == id {
			return k, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeVKRepo) GetByValue(ctx context.Context, value string) (*model.VirtualKey, error) {
	if f.r.err != nil {
		return nil, f.r.err
	}
	if k, ok := f.r.keys[value]; ok {
		return k, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeVKRepo) Update(ctx context.Context, id string, patch store.VirtualKeyPatch) (*model.VirtualKey, error) {
	return nil, store.ErrNotFound
}

func TestResolveNoCredential(t *testing.T) {
	r := auth.NewResolver(&fakeRepo{keys: map[string]*model.VirtualKey{}})

	outcome, err := r.Resolve(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, auth.NoCredential, outcome.Kind)
	assert.Nil(t, outcome.Key)
	assert.False(t, outcome.Restricts())
}

func TestResolveUnknownCredential(t *testing.T) {
	r := auth.NewResolver(&fakeRepo{keys: map[string]*model.VirtualKey{}})

	outcome, err := r.Resolve(context.Background(), "bf-does-not-exist")
	require.NoError(t, err)
	assert.Equal(t, auth.UnknownCredential, outcome.Kind)
	assert.False(t, outcome.Restricts())
}

func TestResolveActiveKey(t *testing.T) {
	repo := &fakeRepo{keys: map[string]*model.VirtualKey{
		"bf-secret": {
			ID:       "vk-1",
			IsActive: true,
			Value:    "bf-secret",
			ProviderConfigs: []model.ProviderConfig{
				{Provider: "openai", AllowedModels: []string{"gpt-4"}},
			},
		},
	}}
	r := auth.NewResolver(repo)

	outcome, err := r.Resolve(context.Background(), "bf-secret")
	require.NoError(t, err)
	assert.Equal(t, auth.ValidActiveKey, outcome.Kind)
	require.NotNil(t, outcome.Key)
	assert.Equal(t, "vk-1", outcome.Key.ID)
	assert.True(t, outcome.Restricts())
}

func TestResolveActiveKeyWithoutConfigsDoesNotRestrict(t *testing.T) {
	repo := &fakeRepo{keys: map[string]*model.VirtualKey{
		"bf-open": {ID: "vk-2", IsActive: true, Value: "bf-open"},
	}}
	r := auth.NewResolver(repo)

	outcome, err := r.Resolve(context.Background(), "bf-open")
	require.NoError(t, err)
	assert.Equal(t, auth.ValidActiveKey, outcome.Kind)
	assert.False(t, outcome.Restricts())
}

func TestResolveInactiveKey(t *testing.T) {
	repo := &fakeRepo{keys: map[string]*model.VirtualKey{
		"bf-off": {
			ID:    "vk-3",
			Value: "bf-off",
			ProviderConfigs: []model.ProviderConfig{
				{Provider: "openai"},
			},
		},
	}}
	r := auth.NewResolver(repo)

	outcome, err := r.Resolve(context.Background(), "bf-off")
	require.NoError(t, err)
	assert.Equal(t, auth.ValidInactiveKey, outcome.Kind)
	assert.False(t, outcome.Restricts())
}

func TestResolveStoreFailurePropagates(t *testing.T) {
	repo := &fakeRepo{keys: map[string]*model.VirtualKey{}, err: errors.New("disk gone")}
	r := auth.NewResolver(repo)

	_, err := r.Resolve(context.Background(), "bf-anything")
	assert.Error(t, err)
}

func TestOutcomeContextRoundTrip(t *testing.T) {
	outcome := auth.Outcome{Kind: auth.ValidActiveKey, Key: &model.VirtualKey{ID: "vk-ctx"}}
	ctx := auth.WithOutcome(context.Background(), outcome)

	got := auth.OutcomeFrom(ctx)
	assert.Equal(t, outcome, got)

	// absent means no credential
	assert.Equal(t, auth.NoCredential, auth.OutcomeFrom(context.Background()).Kind)
}
