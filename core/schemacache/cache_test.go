package schemacache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"schema-sync/core/apperrors"
	"schema-sync/core/cache"
	"schema-sync/core/cache/mocks"
	"schema-sync/core/fieldspec"
	"schema-sync/core/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// definitionSource simulates the authoring store shared by all processes.
type definitionSource struct {
	mu    sync.Mutex
	def   schema.Definition
	calls int32
}

func newSource() *definitionSource {
	return &definitionSource{def: schema.Definition{
		Slug: "satisfaction",
		Name: "Satisfaction",
		Fields: []schema.FieldDefinition{
			{Slug: "rating", Type: fieldspec.TagInteger},
			{Slug: "comment", Type: fieldspec.TagLongText},
		},
	}}
}

func (d *definitionSource) update(fn func(def *schema.Definition)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fn(&d.def)
}

func (d *definitionSource) provider(s *schema.Synthesizer) Provider {
	return func(ctx context.Context) (*schema.Schema, error) {
		atomic.AddInt32(&d.calls, 1)
		d.mu.Lock()
		def := d.def
		def.Fields = append([]schema.FieldDefinition(nil), d.def.Fields...)
		d.mu.Unlock()
		return s.Synthesize(def)
	}
}

func identity(t *testing.T) schema.Identity {
	id, err := schema.IdentityFor(schema.DefaultNamespace, "satisfaction")
	require.NoError(t, err)
	return id
}

var publish = Options{PublishOnChange: true}

func TestGetOrBuild_BuildsOnceThenReuses(t *testing.T) {
	ctx := context.Background()
	shared := cache.NewMemory()
	c := New(shared, zap.NewNop())
	src := newSource()
	synth := schema.NewSynthesizer(nil, "", nil)
	id := identity(t)

	first, err := c.GetOrBuild(ctx, id, src.provider(synth), publish)
	require.NoError(t, err)

	second, err := c.GetOrBuild(ctx, id, src.provider(synth), publish)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&src.calls))

	fp, found, err := c.SharedFingerprint(ctx, id)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, first.Fingerprint(), fp)

	current, ok := c.Current(id)
	assert.True(t, ok)
	assert.Same(t, first, current)
	assert.Equal(t, []schema.Identity{id}, c.Identities())
}

func TestGetOrBuild_StalenessConvergence(t *testing.T) {
	ctx := context.Background()
	shared := cache.NewMemory()
	src := newSource()
	synth := schema.NewSynthesizer(nil, "", nil)
	id := identity(t)

	processA := New(shared, zap.NewNop())
	processB := New(shared, zap.NewNop())

	old, err := processA.GetOrBuild(ctx, id, src.provider(synth), publish)
	require.NoError(t, err)

	// Another process edits the definition and publishes F2.
	src.update(func(def *schema.Definition) {
		def.Fields = append(def.Fields, schema.FieldDefinition{Slug: "recommend", Type: fieldspec.TagBoolean})
	})
	newer, err := processB.GetOrBuild(ctx, id, src.provider(synth), Options{ForceRegenerate: true, PublishOnChange: true})
	require.NoError(t, err)
	require.NotEqual(t, old.Fingerprint(), newer.Fingerprint())

	// Process A notices the divergence and rebuilds from the current definition.
	fresh, err := processA.GetOrBuild(ctx, id, src.provider(synth), publish)
	require.NoError(t, err)
	assert.NotSame(t, old, fresh)

	expected, err := synth.Fingerprint(src.def)
	require.NoError(t, err)
	assert.Equal(t, expected, fresh.Fingerprint())
	assert.Equal(t, []string{"rating", "comment", "recommend"}, fresh.ColumnNames())
}

func TestGetOrBuild_SharedFingerprintIsOnlyASignal(t *testing.T) {
	ctx := context.Background()
	shared := cache.NewMemory()
	c := New(shared, zap.NewNop())
	src := newSource()
	synth := schema.NewSynthesizer(nil, "", nil)
	id := identity(t)

	built, err := c.GetOrBuild(ctx, id, src.provider(synth), publish)
	require.NoError(t, err)

	require.NoError(t, shared.Set(ctx, id.CacheKey(), []byte("bogus")))

	rebuilt, err := c.GetOrBuild(ctx, id, src.provider(synth), publish)
	require.NoError(t, err)
	assert.NotSame(t, built, rebuilt)
	assert.Equal(t, built.Fingerprint(), rebuilt.Fingerprint())

	fp, _, _ := c.SharedFingerprint(ctx, id)
	assert.Equal(t, rebuilt.Fingerprint(), fp)
}

func TestGetOrBuild_AbsentSharedFingerprint(t *testing.T) {
	ctx := context.Background()
	c := New(cache.NewMemory(), zap.NewNop())
	src := newSource()
	synth := schema.NewSynthesizer(nil, "", nil)
	id := identity(t)

	// Without publishing the shared key stays absent, so every call rebuilds.
	_, err := c.GetOrBuild(ctx, id, src.provider(synth), Options{})
	require.NoError(t, err)
	_, err = c.GetOrBuild(ctx, id, src.provider(synth), Options{})
	require.NoError(t, err)

	assert.Equal(t, int32(2), atomic.LoadInt32(&src.calls))
	assert.True(t, c.IsStale(ctx, id))
}

func TestGetOrBuild_ForceRegenerate(t *testing.T) {
	ctx := context.Background()
	c := New(cache.NewMemory(), zap.NewNop())
	src := newSource()
	synth := schema.NewSynthesizer(nil, "", nil)
	id := identity(t)

	first, err := c.GetOrBuild(ctx, id, src.provider(synth), publish)
	require.NoError(t, err)
	assert.False(t, c.IsStale(ctx, id))

	second, err := c.GetOrBuild(ctx, id, src.provider(synth), Options{ForceRegenerate: true})
	require.NoError(t, err)

	assert.NotSame(t, first, second)
	assert.Equal(t, first.Columns(), second.Columns())
	assert.Equal(t, first.Fingerprint(), second.Fingerprint())
}

func TestGetOrBuild_CacheReadFailureAssumesStale(t *testing.T) {
	ctx := context.Background()
	shared := new(mocks.Client)
	c := New(shared, zap.NewNop())
	src := newSource()
	synth := schema.NewSynthesizer(nil, "", nil)
	id := identity(t)

	shared.On("Set", mock.Anything, id.CacheKey(), mock.Anything).Return(nil)
	shared.On("Get", mock.Anything, id.CacheKey()).Return(nil, false, apperrors.ErrCacheUnavailable)

	_, err := c.GetOrBuild(ctx, id, src.provider(synth), publish)
	require.NoError(t, err)
	_, err = c.GetOrBuild(ctx, id, src.provider(synth), publish)
	require.NoError(t, err)

	assert.Equal(t, int32(2), atomic.LoadInt32(&src.calls))
	shared.AssertExpectations(t)
}

func TestGetOrBuild_CacheWriteFailureIsSoft(t *testing.T) {
	ctx := context.Background()
	shared := new(mocks.Client)
	c := New(shared, zap.NewNop())
	src := newSource()
	synth := schema.NewSynthesizer(nil, "", nil)
	id := identity(t)

	shared.On("Set", mock.Anything, id.CacheKey(), mock.Anything).Return(apperrors.ErrCacheUnavailable)

	s, err := c.GetOrBuild(ctx, id, src.provider(synth), publish)
	require.NoError(t, err)
	require.NotNil(t, s)

	current, ok := c.Current(id)
	assert.True(t, ok)
	assert.Same(t, s, current)
}

func TestGetOrBuild_ProviderErrorEvictsStaleSchema(t *testing.T) {
	ctx := context.Background()
	c := New(cache.NewMemory(), zap.NewNop())
	src := newSource()
	synth := schema.NewSynthesizer(nil, "", nil)
	id := identity(t)

	_, err := c.GetOrBuild(ctx, id, src.provider(synth), publish)
	require.NoError(t, err)

	src.update(func(def *schema.Definition) {
		def.Fields[0].Type = "Colour"
	})

	_, err = c.GetOrBuild(ctx, id, src.provider(synth), Options{ForceRegenerate: true})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrUnknownTypeTag))

	_, ok := c.Current(id)
	assert.False(t, ok)
}

func TestGetOrBuild_IdentityMismatch(t *testing.T) {
	ctx := context.Background()
	c := New(cache.NewMemory(), zap.NewNop())
	src := newSource()
	synth := schema.NewSynthesizer(nil, "", nil)

	other := schema.Identity{Namespace: schema.DefaultNamespace, Name: "Responseother"}
	_, err := c.GetOrBuild(ctx, other, src.provider(synth), publish)
	assert.True(t, errors.Is(err, apperrors.ErrSynthesis))
}

func TestGetOrBuild_NotifiesListeners(t *testing.T) {
	ctx := context.Background()
	c := New(cache.NewMemory(), zap.NewNop())
	src := newSource()
	synth := schema.NewSynthesizer(nil, "", nil)
	id := identity(t)

	var notified []schema.Identity
	c.Subscribe(func(got schema.Identity, s *schema.Schema) {
		notified = append(notified, got)
		assert.Equal(t, got, s.Identity())
	})

	_, err := c.GetOrBuild(ctx, id, src.provider(synth), publish)
	require.NoError(t, err)
	_, err = c.GetOrBuild(ctx, id, src.provider(synth), publish)
	require.NoError(t, err)
	_, err = c.GetOrBuild(ctx, id, src.provider(synth), Options{ForceRegenerate: true})
	require.NoError(t, err)

	assert.Equal(t, []schema.Identity{id, id}, notified)
}

func TestGetOrBuild_ConcurrentCallers(t *testing.T) {
	ctx := context.Background()
	c := New(cache.NewMemory(), zap.NewNop())
	src := newSource()
	synth := schema.NewSynthesizer(nil, "", nil)
	id := identity(t)

	expected, err := synth.Fingerprint(src.def)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			opts := publish
			opts.ForceRegenerate = i%4 == 0
			s, err := c.GetOrBuild(ctx, id, src.provider(synth), opts)
			if err != nil {
				errs <- err
				return
			}
			if s.Fingerprint() != expected || s.Len() != 2 {
				errs <- errors.New("observed an unexpected schema")
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}

func TestEvict(t *testing.T) {
	ctx := context.Background()
	c := New(cache.NewMemory(), nil)
	src := newSource()
	id := identity(t)

	_, err := c.GetOrBuild(ctx, id, src.provider(schema.NewSynthesizer(nil, "", nil)), publish)
	require.NoError(t, err)

	c.Evict(id)
	_, ok := c.Current(id)
	assert.False(t, ok)
	assert.True(t, c.IsStale(ctx, id))
}
