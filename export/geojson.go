package export

import (
	"math"

	"git.fiblab.net/general/common/v2/parallel"
	geojson "github.com/paulmach/go.geojson"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/tsinghua-fib-lab/agentsociety-roadgen/entity/lane"
	"github.com/tsinghua-fib-lab/agentsociety-roadgen/entity/road"
)

// minPolygonArea 面积更小的车道面（例如零宽度的中央分隔带）不导出
const minPolygonArea = 1e-6

// lanePolygon 车道在[s0, s1)内的外轮廓：内边界正向、外边界反向后闭合
func lanePolygon(r *road.Road, id int32, s0, s1, step float64) orb.Polygon {
	n := max(int(math.Ceil((s1-s0)/step)), 1)
	inner := make([]orb.Point, 0, n+1)
	outer := make([]orb.Point, 0, n+1)
	for i := 0; i <= n; i++ {
		s := math.Min(s0+(s1-s0)*float64(i)/float64(n), s1-sectionEps)
		pi, po := r.BorderPoints(id, s)
		inner = append(inner, orb.Point{pi.X, pi.Y})
		outer = append(outer, orb.Point{po.X, po.Y})
	}
	ring := make(orb.Ring, 0, 2*len(inner)+1)
	ring = append(ring, inner...)
	for i := len(outer) - 1; i >= 0; i-- {
		ring = append(ring, outer[i])
	}
	ring = append(ring, inner[0])
	return orb.Polygon{ring}
}

func toCoordinates(p orb.Polygon) [][][]float64 {
	out := make([][][]float64, len(p))
	for i, ring := range p {
		out[i] = make([][]float64, len(ring))
		for j, pt := range ring {
			out[i][j] = []float64{pt[0], pt[1]}
		}
	}
	return out
}

// roadFeatures 一条道路每个车道段内每条车道的多边形
func roadFeatures(r *road.Road, step float64) []*geojson.Feature {
	var out []*geojson.Feature
	r.Sections().Range(func(s0 float64, sec *lane.LaneSection) bool {
		s1 := r.SectionEnd(s0)
		for _, id := range sec.IDs() {
			if id == 0 {
				continue
			}
			poly := lanePolygon(r, id, s0, s1, step)
			if math.Abs(planar.Area(poly)) < minPolygonArea {
				continue
			}
			l, _ := sec.Lane(id)
			f := geojson.NewPolygonFeature(toCoordinates(poly))
			f.SetProperty("road", r.ID())
			f.SetProperty("lane", id)
			f.SetProperty("type", l.Type.String())
			f.SetProperty("s_begin", s0)
			f.SetProperty("s_end", s1)
			f.SetProperty("junction", r.Junction())
			out = append(out, f)
		}
		return true
	})
	return out
}

// LanePolygons 全部道路的车道面
// 功能：每个车道段内的每条车道导出为一个多边形要素，属性为道路、车道、类型、纵向范围与所属路口
func LanePolygons(roads *road.RoadManager, step float64) *geojson.FeatureCollection {
	if step <= 0 {
		step = defaultStep
	}
	fc := geojson.NewFeatureCollection()
	for _, features := range parallel.GoMap(roads.All(), func(r *road.Road) []*geojson.Feature {
		return roadFeatures(r, step)
	}) {
		for _, f := range features {
			fc.AddFeature(f)
		}
	}
	return fc
}
