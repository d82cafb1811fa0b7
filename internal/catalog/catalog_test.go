package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	meds    []Medicine
	svcs    []Service
	medsErr error
}

func (s stubSource) ListMedicines(context.Context) ([]Medicine, error) { return s.meds, s.medsErr }
func (s stubSource) ListServices(context.Context) ([]Service, error)   { return s.svcs, nil }

func TestFetch_BuildsSnapshot(t *testing.T) {
	src := stubSource{
		meds: []Medicine{{ID: "m1", Name: "Analgin", UnitPrice: 1000, Stock: 5}},
		svcs: []Service{{ID: "s1", Name: "Ukol", Variants: []ServiceVariant{
			{Label: "single", Count: 1, Price: 5000},
			{Label: "3-pack", Count: 3, Price: 13000},
		}}},
	}

	snap, err := Fetch(context.Background(), src)
	require.NoError(t, err)

	m, ok := snap.Medicine("m1")
	require.True(t, ok)
	assert.Equal(t, 5, m.Stock)

	_, ok = snap.Medicine("missing")
	assert.False(t, ok)

	svc, ok := snap.Service("s1")
	require.True(t, ok)
	v, ok := svc.Variant("3-pack")
	require.True(t, ok)
	assert.Equal(t, int64(13000), v.Price)
	_, ok = svc.Variant("5-pack")
	assert.False(t, ok)
}

func TestFetch_PropagatesSourceError(t *testing.T) {
	boom := errors.New("backend down")
	_, err := Fetch(context.Background(), stubSource{medsErr: boom})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestSnapshot_CopiesInput(t *testing.T) {
	meds := []Medicine{{ID: "m1", Stock: 3}}
	snap := NewSnapshot(meds, nil)
	meds[0].Stock = 99

	m, _ := snap.Medicine("m1")
	assert.Equal(t, 3, m.Stock)

	out := snap.Medicines()
	out[0].Stock = 42
	m, _ = snap.Medicine("m1")
	assert.Equal(t, 3, m.Stock)
}
