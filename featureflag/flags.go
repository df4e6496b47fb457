package featureflag

type Flag string

const (
	// Packages are listed and loaded without fetching their thumbnails.
	FlagDisableThumbnails Flag = "DISABLE_THUMBNAILS"

	// Package archives are always unpacked, even when their content could be
	// read in place.
	FlagDisableDirectRead Flag = "DISABLE_DIRECT_READ"

	// Setting the package directory does not list its packages.
	FlagDisableDirectoryScan Flag = "DISABLE_DIRECTORY_SCAN"

	// The default configuration is not downloaded at startup when missing.
	FlagDisableDefaultDownload Flag = "DISABLE_DEFAULT_DOWNLOAD"
)
