package descriptor

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func info(px4Version, customFW string, extra ...string) string {
	content := fmt.Sprintf(`
name = "drone"
id = 12345
vendor = "px4"
model = "fmu-v3"
px4_version = %q
custom_fw_version = %q
`, px4Version, customFW)
	for _, line := range extra {
		content += line + "\n"
	}
	return content
}

func requireKind(t *testing.T, err error, kind Kind) {
	t.Helper()
	require.Error(t, err)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "error %v is not a ValidationError", err)
	require.Equal(t, kind, verr.Kind, "error = %v", err)
}

func TestLoadStringGood(t *testing.T) {
	t.Parallel()

	d, err := LoadString(info("v1.15.4", "0.0.2"))
	require.NoError(t, err)
	require.Equal(t, Descriptor{
		Name:            "drone",
		ID:              12345,
		Vendor:          "px4",
		Model:           "fmu-v3",
		PX4Version:      "v1.15.4",
		CustomFWVersion: "0.0.2",
	}, d)
	require.Equal(t, "12345_drone", d.AirframeName())
	require.False(t, d.HasComponents())
}

func TestLoadStringDefaultsCustomVersion(t *testing.T) {
	t.Parallel()

	d, err := LoadString(`
name = "drone"
id = 1
vendor = "px4"
model = "fmu-v3"
px4_version = "v1.15.4"
`)
	require.NoError(t, err)
	require.Equal(t, DefaultCustomFWVersion, d.CustomFWVersion)
}

func TestLoadStringMissingKey(t *testing.T) {
	t.Parallel()

	_, err := LoadString(`
name = "drone"
id = 12345
vendor = "px4"
px4_version = "v1.15.4"
custom_fw_version = "0.0.2"
`)
	requireKind(t, err, KindMissing)
	require.Contains(t, err.Error(), `"model"`)
}

func TestLoadStringComponents(t *testing.T) {
	t.Parallel()

	d, err := LoadString(info("v1.15.4", "0.0.2", `components = "some_component"`))
	require.NoError(t, err)
	require.Equal(t, []string{"some_component"}, d.Components)

	d, err = LoadString(info("v1.15.4", "0.0.2", `components = ["some_component", "other_component"]`))
	require.NoError(t, err)
	require.Equal(t, []string{"some_component", "other_component"}, d.Components)
	require.True(t, d.HasComponents())

	_, err = LoadString(info("v1.15.4", "0.0.2", `components = [1, 2]`))
	requireKind(t, err, KindType)
}

func TestLoadStringBad(t *testing.T) {
	t.Parallel()

	_, err := LoadString(`
name = drone
id = '12345'
vendor = "px4"
model = "fmu-v3"
px4_version = "v1.15.4"
custom_fw_version = "0.0.2"
`)
	var decodeErr *DecodeError
	require.True(t, errors.As(err, &decodeErr), "error = %v", err)

	_, err = LoadString(`
name = 'drone'
id = '12345'
vendor = "px4"
model = "fmu-v3"
px4_version = "v1.15.4"
custom_fw_version = "0.0.2"
`)
	requireKind(t, err, KindType)

	_, err = LoadString(info("v1.15.4", "0.0.2", `extra = "stuff"`))
	requireKind(t, err, KindUnknown)

	_, err = LoadString(`
name = "drone"
id = 0
vendor = "px4"
model = "fmu-v3"
px4_version = "v1.15.4"
`)
	requireKind(t, err, KindRange)
}

func TestPX4VersionFormat(t *testing.T) {
	t.Parallel()

	for _, version := range []string{"v1.15.4", "v1.15.4-beta1", "v1.15.4-alpha3", "v1.15.4-rc22", "v1.15.4-dev"} {
		_, err := LoadString(info(version, "1.2.3"))
		require.NoError(t, err, "px4_version %q", version)
	}

	for _, version := range []string{"1.15.4", "v1.15.4.0", "v1.15.4-beta", "v1.15.4-rc", "v1.15.4-alpha", "v1.15.4-dev1", "1.14", "latest"} {
		_, err := LoadString(info(version, "0.0.2"))
		requireKind(t, err, KindPattern)
	}
}

func TestCustomFWVersionFormat(t *testing.T) {
	t.Parallel()

	for _, version := range []string{"1.2.3", "1.2.3-rc2", "1.2.3-alpha2", "1.2.3-beta2", "1.2.3-dev", "rc2", "beta1"} {
		_, err := LoadString(info("v1.15.4", version))
		require.NoError(t, err, "custom_fw_version %q", version)
	}

	for _, version := range []string{"0.2.0.0", "0.2", "rc", "v1.2.3"} {
		_, err := LoadString(info("v1.15.4", version))
		requireKind(t, err, KindPattern)
	}
}

func TestIsPrerelease(t *testing.T) {
	t.Parallel()

	cases := map[string]bool{
		"0.0.2":     false,
		"1.2.3-dev": false,
		"rc2":       true,
		"beta1":     true,
		"1.2.3-rc2": true,
		"alpha7":    true,
	}
	for version, want := range cases {
		require.Equal(t, want, Descriptor{CustomFWVersion: version}.IsPrerelease(), version)
	}
}

func TestPX4Commit(t *testing.T) {
	t.Parallel()

	d, err := LoadString(info("v1.15.4", "0.0.2", `px4_commit = "a1b2c3d4e5"`))
	require.NoError(t, err)
	require.Equal(t, "a1b2c3d4e5", d.PX4Commit)

	_, err = LoadString(info("v1.15.4", "0.0.2", `px4_commit = "main"`))
	requireKind(t, err, KindPattern)
}

func TestLoadFileYAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "info.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: drone
id: 22105
vendor: px4
model: fmu-v6c
px4_version: v1.15.4
custom_fw_version: rc2
components: [camera_trigger, payload]
`), 0o644))

	d, err := LoadFile(path)
	require.NoError(t, err)
	require.Equal(t, int64(22105), d.ID)
	require.Equal(t, "rc2", d.CustomFWVersion)
	require.Equal(t, []string{"camera_trigger", "payload"}, d.Components)
}

func TestLoadFileUnsupportedExtension(t *testing.T) {
	t.Parallel()

	_, err := LoadFile(filepath.Join(t.TempDir(), "info.json"))
	require.Error(t, err)
}
