package featureflag

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFeatureFlag(t *testing.T) {
	f := New([]string{"disable_thumbnails", " ", "DISABLE_DIRECT_READ"})

	t.Run("names are normalized", func(t *testing.T) {
		require.True(t, f.Has(FlagDisableThumbnails))
		require.True(t, f.Has(FlagDisableDirectRead))
		require.False(t, f.Has(FlagDisableDirectoryScan))
		require.Equal(t, []string{"DISABLE_DIRECT_READ", "DISABLE_THUMBNAILS"}, f.Flags())
	})

	t.Run("run if enabled", func(t *testing.T) {
		var thumbnails bool
		f.IfSet(FlagDisableThumbnails, func() {
			thumbnails = true
		})
		require.True(t, thumbnails)

		var download bool
		f.IfSet(FlagDisableDefaultDownload, func() {
			download = true
		})
		require.False(t, download)
	})

	t.Run("run if disabled", func(t *testing.T) {
		var thumbnails bool
		f.IfNotSet(FlagDisableThumbnails, func() {
			thumbnails = true
		})
		require.False(t, thumbnails)

		var download bool
		f.IfNotSet(FlagDisableDefaultDownload, func() {
			download = true
		})
		require.True(t, download)
	})

	t.Run("nil flags", func(t *testing.T) {
		var none FeatureFlag
		require.False(t, none.Has(FlagDisableThumbnails))
		require.Empty(t, none.Flags())
	})
}
