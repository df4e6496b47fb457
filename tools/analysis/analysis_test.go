package analysis

import (
	"testing"

	"github.com/aukilabs/dsa/geoview"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

func setup(t *testing.T) (*geoview.ResourceProvider, *CombinedListModel) {
	resources := geoview.NewResourceProvider()

	resources.Viewsheds().Append(&geoview.Viewshed{
		Name:     "Tower",
		Analysis: geoview.NewLocationViewshed(geoview.NewPoint(1, 2)),
	})
	resources.Viewsheds().Append(&geoview.Viewshed{
		Name: "Unit",
		Analysis: geoview.NewGeoElementViewshed(geoview.NewGraphic(
			geom.NewPolygonFlat(geom.XY, []float64{0, 0, 4, 0, 4, 4, 0, 4, 0, 0}, []int{10}),
			nil,
		)),
	})

	resources.LinesOfSight().Append(geoview.NewLocationLineOfSight(
		geoview.NewPoint(0, 0),
		geoview.NewPoint(5, 5),
	))
	resources.LinesOfSight().Append(geoview.NewGeoElementLineOfSight(
		geoview.NewGraphic(geoview.NewPoint(0, 0), nil),
		geoview.NewGraphic(geoview.NewPoint(7, 8), nil),
	))

	m := NewCombinedListModel(resources)
	t.Cleanup(m.Close)
	return resources, m
}

func TestRows(t *testing.T) {
	_, m := setup(t)

	require.Equal(t, 4, m.Len())
	require.Equal(t, []Row{
		{Name: "Tower", Visible: true, Type: TypeViewshed},
		{Name: "Unit", Visible: true, Type: TypeViewshed},
		{Name: "Line of Sight 0", Visible: true, Type: TypeLineOfSight},
		{Name: "Line of Sight 1", Visible: true, Type: TypeLineOfSight},
	}, m.Rows())

	_, ok := m.At(-1)
	require.False(t, ok)

	_, ok = m.At(4)
	require.False(t, ok)
}

func TestLocationAt(t *testing.T) {
	_, m := setup(t)

	tests := []struct {
		row  int
		x, y float64
	}{
		{row: 0, x: 1, y: 2},
		{row: 1, x: 2, y: 2},
		{row: 2, x: 5, y: 5},
		{row: 3, x: 7, y: 8},
	}

	for _, test := range tests {
		location := m.LocationAt(test.row)
		require.NotNil(t, location)
		require.Equal(t, test.x, location.X())
		require.Equal(t, test.y, location.Y())
	}

	require.Nil(t, m.LocationAt(-1))
	require.Nil(t, m.LocationAt(4))
}

func TestSetVisible(t *testing.T) {
	resources, m := setup(t)

	var resets int
	m.Reset.Connect(func(struct{}) { resets++ })

	require.True(t, m.SetVisible(1, false))
	require.True(t, m.SetVisible(3, false))
	require.False(t, m.SetVisible(4, false))
	require.Equal(t, 2, resets)

	v, _ := resources.Viewsheds().At(1)
	require.False(t, v.Analysis.Visible())

	los, _ := resources.LinesOfSight().At(1)
	require.False(t, los.Visible())

	rows := m.Rows()
	require.True(t, rows[0].Visible)
	require.False(t, rows[1].Visible)
	require.True(t, rows[2].Visible)
	require.False(t, rows[3].Visible)
}

func TestRemoveAt(t *testing.T) {
	resources, m := setup(t)

	var resets int
	m.Reset.Connect(func(struct{}) { resets++ })

	require.True(t, m.RemoveAt(2))
	require.Equal(t, 1, resources.LinesOfSight().Len())

	require.True(t, m.RemoveAt(0))
	require.Equal(t, 1, resources.Viewsheds().Len())

	require.False(t, m.RemoveAt(5))
	require.Equal(t, 2, resets)

	require.Equal(t, []Row{
		{Name: "Unit", Visible: true, Type: TypeViewshed},
		{Name: "Line of Sight 0", Visible: true, Type: TypeLineOfSight},
	}, m.Rows())
}

func TestResetOnUnderlyingChange(t *testing.T) {
	resources, m := setup(t)

	var resets int
	m.Reset.Connect(func(struct{}) { resets++ })

	resources.LinesOfSight().Append(geoview.NewLocationLineOfSight(nil, nil))
	resources.Viewsheds().Replace(nil)
	require.Equal(t, 2, resets)
	require.Equal(t, 3, m.Len())
	require.Nil(t, m.LocationAt(2))

	m.Close()
	resources.LinesOfSight().Replace(nil)
	require.Equal(t, 2, resets)
}
