package export

import (
	"os"
	"path/filepath"

	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
	geojson "github.com/paulmach/go.geojson"
	"github.com/pkg/errors"
	"google.golang.org/protobuf/proto"
)

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "create dir %s", dir)
		}
	}
	return errors.Wrapf(os.WriteFile(path, data, 0o644), "write %s", path)
}

// WriteMap 把城市地图序列化到pb文件
func WriteMap(path string, m *mapv2.Map) error {
	data, err := proto.Marshal(m)
	if err != nil {
		return errors.Wrap(err, "marshal map")
	}
	if err := writeFile(path, data); err != nil {
		return err
	}
	log.Infof("map written to %s (%d bytes)", path, len(data))
	return nil
}

// WriteGeoJSON 把要素集合写入GeoJSON文件
func WriteGeoJSON(path string, fc *geojson.FeatureCollection) error {
	data, err := fc.MarshalJSON()
	if err != nil {
		return errors.Wrap(err, "marshal geojson")
	}
	if err := writeFile(path, data); err != nil {
		return err
	}
	log.Infof("geojson written to %s (%d features)", path, len(fc.Features))
	return nil
}
