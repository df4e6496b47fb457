package configurations

import (
	"os"
	"path/filepath"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/segmentio/encoding/json"
)

const (
	// FileName is the name of the file listing the configurations, at the
	// root of the configurations directory.
	FileName = "configurations.json"

	// DefaultName is the name of the default configuration.
	DefaultName = "Default"

	// DefaultDownloadURL is where the default configuration is downloaded
	// from.
	DefaultDownloadURL = "https://usdanrcswmx.esri.com/arcgis/sharing/rest/content/items/46c2b274325c4418833624d48cb2a44a/data"
)

// Configuration is a named data bundle that can be downloaded and selected
// as the data used by the application.
type Configuration struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	Selected bool   `json:"selected"`
}

// CreateDefaultConfigurationsFile writes a configurations file holding the
// default configuration in root. It returns false when the file already
// exists.
func CreateDefaultConfigurationsFile(root string) (bool, error) {
	filename := filepath.Join(root, FileName)
	if _, err := os.Stat(filename); err == nil {
		return false, nil
	}

	err := writeConfigurations(root, []Configuration{
		{
			Name:     DefaultName,
			URL:      DefaultDownloadURL,
			Selected: true,
		},
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

func readConfigurations(root string) ([]Configuration, error) {
	filename := filepath.Join(root, FileName)

	data, err := os.ReadFile(filename)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.New("reading configurations failed").
			WithTag("path", filename).
			Wrap(err)
	}

	var configurations []Configuration
	if err := json.Unmarshal(data, &configurations); err != nil {
		return nil, errors.New("decoding configurations failed").
			WithTag("path", filename).
			Wrap(err)
	}
	return configurations, nil
}

func writeConfigurations(root string, configurations []Configuration) error {
	filename := filepath.Join(root, FileName)

	if configurations == nil {
		configurations = []Configuration{}
	}

	data, err := json.MarshalIndent(configurations, "", "  ")
	if err != nil {
		return errors.New("encoding configurations failed").Wrap(err)
	}

	if err := os.MkdirAll(root, 0o755); err != nil {
		return errors.New("creating configurations directory failed").
			WithTag("path", root).
			Wrap(err)
	}

	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return errors.New("writing configurations failed").
			WithTag("path", filename).
			Wrap(err)
	}
	return nil
}
