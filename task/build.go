package task

import (
	"fmt"

	"git.fiblab.net/general/common/v2/geometry"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/agentsociety-roadgen/entity"
	"github.com/tsinghua-fib-lab/agentsociety-roadgen/entity/junction"
	"github.com/tsinghua-fib-lab/agentsociety-roadgen/entity/profile"
	"github.com/tsinghua-fib-lab/agentsociety-roadgen/entity/road"
	"github.com/tsinghua-fib-lab/agentsociety-roadgen/utils/config"
)

// ParseSide 解析left/right
func ParseSide(s string) (int, error) {
	switch s {
	case "left":
		return entity.LEFT, nil
	case "right":
		return entity.RIGHT, nil
	default:
		return 0, fmt.Errorf("bad side %q (want left or right)", s)
	}
}

// ParseContact 解析start/end
func ParseContact(s string) (entity.ContactPoint, error) {
	switch s {
	case "start":
		return entity.ContactStart, nil
	case "end":
		return entity.ContactEnd, nil
	default:
		return 0, fmt.Errorf("bad contact %q (want start or end)", s)
	}
}

// refLine 道路配置中的参考线：直线、折线或输入地图中的车道中心线
func (ctx *Context) refLine(rc config.Road) (road.RefLine, error) {
	switch {
	case rc.Line != nil:
		if rc.Line.Length <= 0 {
			return nil, fmt.Errorf("road %d: line length must be positive", rc.ID)
		}
		return road.Line{
			Start:   geometry.Point{X: rc.Line.X, Y: rc.Line.Y},
			Heading: rc.Line.Heading,
			Len:     rc.Line.Length,
		}, nil
	case len(rc.Points) > 0:
		if len(rc.Points) < 2 {
			return nil, fmt.Errorf("road %d: polyline needs at least 2 points", rc.ID)
		}
		points := make([]geometry.Point, 0, len(rc.Points))
		for _, p := range rc.Points {
			if len(p) != 2 {
				return nil, fmt.Errorf("road %d: point %v must be [x, y]", rc.ID, p)
			}
			points = append(points, geometry.Point{X: p[0], Y: p[1]})
		}
		return road.NewPolyline(points), nil
	case rc.MapLane != 0:
		if ctx.input == nil {
			return nil, fmt.Errorf("road %d: map_lane %d needs input.map", rc.ID, rc.MapLane)
		}
		line, err := ctx.input.CenterLine(rc.MapLane)
		if err != nil {
			return nil, fmt.Errorf("road %d: %w", rc.ID, err)
		}
		return road.NewPolyline(lo.Map(line, func(p geometry.Point, _ int) geometry.Point {
			return geometry.Point{X: p.X, Y: p.Y}
		})), nil
	default:
		return nil, fmt.Errorf("road %d: one of line, points or map_lane is required", rc.ID)
	}
}

// profileOf 道路配置中的剖面
func profileOf(rc config.Road, length float64) (*profile.RoadProfile, error) {
	if rc.Left.Lanes == 0 && rc.Right.Lanes == 0 {
		return nil, fmt.Errorf("road %d: no lanes on either side", rc.ID)
	}
	p := profile.New(rc.Left.Lanes, profile.HalfWidth(rc.Left.OffsetX2), rc.Right.Lanes, profile.HalfWidth(rc.Right.OffsetX2))
	for _, o := range rc.Overwrites {
		side, err := ParseSide(o.Side)
		if err != nil {
			return nil, fmt.Errorf("road %d: %w", rc.ID, err)
		}
		if o.End > length {
			return nil, fmt.Errorf("road %d: overwrite end %.2f beyond length %.2f", rc.ID, o.End, length)
		}
		if err := p.OverwriteSection(side, profile.FromMeters(o.Start), profile.FromMeters(o.End), o.Lanes, profile.HalfWidth(o.OffsetX2)); err != nil {
			return nil, fmt.Errorf("road %d: %w", rc.ID, err)
		}
	}
	return p, nil
}

// connectionInfo 路口接入配置
func connectionInfo(c config.Connection) (junction.ConnectionInfo, error) {
	contact, err := ParseContact(c.Contact)
	if err != nil {
		return junction.ConnectionInfo{}, fmt.Errorf("road %d: %w", c.Road, err)
	}
	return junction.ConnectionInfo{Road: c.Road, Contact: contact, SkipProviderLanes: c.Skip}, nil
}

// build 按配置创建道路与路口
func (ctx *Context) build(c config.Config) error {
	params := make([]road.Params, 0, len(c.Roads))
	for _, rc := range c.Roads {
		refLine, err := ctx.refLine(rc)
		if err != nil {
			return err
		}
		p, err := profileOf(rc, refLine.Length())
		if err != nil {
			return err
		}
		params = append(params, road.Params{ID: rc.ID, Name: rc.Name, RefLine: refLine, Profile: p})
	}
	ids := lo.FilterMap(params, func(s road.Params, _ int) (int32, bool) { return s.ID, s.ID != 0 })
	if dup := lo.FindDuplicates(ids); len(dup) > 0 {
		return fmt.Errorf("duplicate road ids %v", dup)
	}
	for i, r := range ctx.roads.Init(params) {
		r.SetElevation(c.Roads[i].Elevation)
	}

	for i, jc := range c.Junctions {
		infos := make([]junction.ConnectionInfo, 0, len(jc.Connections))
		for _, cc := range jc.Connections {
			info, err := connectionInfo(cc)
			if err != nil {
				return fmt.Errorf("junction #%d: %w", i, err)
			}
			infos = append(infos, info)
		}
		var err error
		switch jc.Type {
		case "", "common":
			_, err = ctx.junctions.CreateCommon(infos)
		case "direct":
			if jc.Provider == nil {
				return fmt.Errorf("junction #%d: direct junction needs a provider", i)
			}
			var provider junction.ConnectionInfo
			if provider, err = connectionInfo(*jc.Provider); err != nil {
				return fmt.Errorf("junction #%d: %w", i, err)
			}
			if !lo.ContainsBy(infos, func(info junction.ConnectionInfo) bool {
				return info.Road == provider.Road && info.Contact == provider.Contact
			}) {
				infos = append(infos, provider)
			}
			_, err = ctx.junctions.CreateDirect(provider, infos)
		default:
			return fmt.Errorf("junction #%d: bad type %q", i, jc.Type)
		}
		if err != nil {
			return fmt.Errorf("junction #%d: %w", i, err)
		}
	}
	return nil
}
